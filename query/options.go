package query

import (
	"github.com/rs/zerolog"

	"github.com/spektr-org/tabula/logger"
)

// ============================================================================
// QUERY OPTIONS — Functional options for Execute()
// ============================================================================

// Option configures executor behavior via functional options pattern.
type Option func(*config)

type config struct {
	DefaultMeasure string // measure column if Spec.Measure is empty
	Unit           string // prefix for formatted totals in the summary
	Logger         zerolog.Logger
}

// WithDefaultMeasure sets the measure to aggregate when Spec.Measure is empty.
func WithDefaultMeasure(measure string) Option {
	return func(c *config) {
		c.DefaultMeasure = measure
	}
}

// WithUnit sets the unit printed before totals, e.g. "INR".
func WithUnit(unit string) Option {
	return func(c *config) {
		c.Unit = unit
	}
}

// WithLogger routes pipeline logging to l.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.Logger = logger.Component(l, "query")
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{Logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
