package translator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ============================================================================
// GEMINI MODEL — genai client behind a rate limiter
// ============================================================================
// One request per Generate call. Requests wait on the limiter first; 429 and
// 5xx responses are retried with doubling backoff up to Config.Retries.
// ============================================================================

// GeminiModel implements Model with the Gemini API.
type GeminiModel struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	timeout time.Duration
	retries int
	log     zerolog.Logger
}

// NewGeminiModel creates a genai client from cfg.
func NewGeminiModel(ctx context.Context, cfg Config, log zerolog.Logger) (*GeminiModel, error) {
	cfg.ApplyDefaults()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return &GeminiModel{
		client:  client,
		model:   strings.TrimSpace(cfg.Model),
		limiter: limiter,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		log:     log,
	}, nil
}

// Generate sends prompt and returns the response text.
func (g *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		text, err := g.generateOnce(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isTransient(err) || attempt == g.retries {
			break
		}

		sleep := time.Duration(1<<attempt) * 500 * time.Millisecond
		g.log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", sleep).Msg("gemini request failed, retrying")
		t := time.NewTimer(sleep)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (g *GeminiModel) generateOnce(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text, nil
}

// isTransient reports whether err is worth retrying.
func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code/100 == 5
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
