package translator

import (
	"context"
	"time"

	"github.com/spektr-org/tabula/query"
	"github.com/spektr-org/tabula/schema"
)

// ============================================================================
// TRANSLATOR — AI boundary for natural language → query.Spec
// ============================================================================
// The Translator is the ONLY component that calls an external AI service.
// It receives schema metadata + a question, returns a query.Spec.
// It never sees raw rows. Only column names, sample values, and the question.
// ============================================================================

// Translator translates natural language questions into query specs.
type Translator interface {
	// Translate converts a question into a query.Spec. The schema provides
	// the column metadata the prompt is built from.
	Translate(ctx context.Context, question string, sch schema.Config) (*Result, error)
}

// Model generates a text completion for a prompt. Gemini implements it over
// google.golang.org/genai; tests substitute a stub.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result contains both the Spec and the Interpretation.
// Interpret (preview) → Execute (compute).
type Result struct {
	Spec           query.Spec     `json:"querySpec"`
	Interpretation Interpretation `json:"interpretation"`
	Fallback       bool           `json:"fallback,omitempty"` // model output could not be parsed
}

// Interpretation describes what the model understood from the question.
type Interpretation struct {
	Summary     string                `json:"summary"`
	Details     []InterpretDetail     `json:"details"`
	Suggestions []InterpretSuggestion `json:"suggestions,omitempty"`
	Confidence  float64               `json:"confidence"`
}

// InterpretDetail is a label-value pair.
type InterpretDetail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// InterpretSuggestion is a refinement option.
type InterpretSuggestion struct {
	Label    string `json:"label"`
	Modifier string `json:"modifier"`
}

// Config holds Gemini client configuration.
type Config struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	Model   string        `yaml:"model" mapstructure:"model"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"` // proxies and tests
	RPS     float64       `yaml:"rps" mapstructure:"rps" validate:"gte=0"`                   // 0 = unlimited
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retries int           `yaml:"retries" mapstructure:"retries" validate:"gte=0"`
}

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash-lite"

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}
