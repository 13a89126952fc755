package logger

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ============================================================================
// LOGGER — zerolog construction for the CLI and the I/O packages
// ============================================================================
// The dataframe core never logs. Packages that do I/O or call out to a
// model accept a zerolog.Logger and default to zerolog.Nop().
// ============================================================================

// Standard field keys.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldColumn    = "column"
	FieldRows      = "rows"
	FieldDuration  = "duration_ms"
)

// Config contains logging configuration.
type Config struct {
	Level   string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format  string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=console json"`
	Output  string `yaml:"output" mapstructure:"output" validate:"omitempty,oneof=stdout stderr"`
	NoColor bool   `yaml:"no_color" mapstructure:"no_color"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate checks the level and format names.
func (c *Config) Validate() error {
	levels := []string{"trace", "debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Level) {
		return fmt.Errorf("log.level must be one of %v (got: %s)", levels, c.Level)
	}
	formats := []string{"console", "json"}
	if !slices.Contains(formats, c.Format) {
		return fmt.Errorf("log.format must be one of %v (got: %s)", formats, c.Format)
	}
	return nil
}

// New builds a logger from cfg. Unknown levels fall back to info.
func New(cfg Config) zerolog.Logger {
	cfg.ApplyDefaults()
	return NewWriter(cfg, outputWriter(cfg.Output))
}

// NewWriter builds a logger that writes to w.
func NewWriter(cfg Config, w io.Writer) zerolog.Logger {
	cfg.ApplyDefaults()
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if strings.ToLower(cfg.Format) == "console" {
		w = zerolog.ConsoleWriter{Out: w, NoColor: cfg.NoColor, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Component tags l with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

func outputWriter(output string) io.Writer {
	if strings.ToLower(output) == "stdout" {
		return os.Stdout
	}
	return os.Stderr
}
