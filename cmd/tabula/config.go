package main

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/spektr-org/tabula/datasource"
	"github.com/spektr-org/tabula/logger"
	"github.com/spektr-org/tabula/translator"
)

// ============================================================================
// CONFIG — YAML file, .env and TABULA_* environment
// ============================================================================
// Precedence, lowest first: defaults, config file, environment (.env is
// loaded into the environment first), command-line flags.
//
//	TABULA_LOG_LEVEL=debug
//	TABULA_S3_REGION=eu-west-1
//	TABULA_GEMINI_API_KEY=...   (GEMINI_API_KEY also accepted)
// ============================================================================

// Config is the CLI configuration.
type Config struct {
	InFormat  string `yaml:"in_format" mapstructure:"in_format" validate:"omitempty,oneof=csv tsv json yaml yml arrow ipc"`
	OutFormat string `yaml:"out_format" mapstructure:"out_format" validate:"omitempty,oneof=csv tsv json yaml yml arrow ipc"`
	Infer     bool   `yaml:"infer" mapstructure:"infer"`

	Log logger.Config `yaml:"log" mapstructure:"log"`

	// Connection sections are checked only when a command needs them.
	S3     datasource.S3Config `yaml:"s3" mapstructure:"s3" validate:"-"`
	Gemini translator.Config   `yaml:"gemini" mapstructure:"gemini" validate:"-"`
}

// configKeys lists every leaf key so viper binds it to the environment.
var configKeys = []string{
	"in_format", "out_format", "infer",
	"log.level", "log.format", "log.output", "log.no_color",
	"s3.region", "s3.endpoint", "s3.access_key", "s3.secret_key", "s3.force_path_style", "s3.content_type",
	"gemini.api_key", "gemini.model", "gemini.base_url", "gemini.rps", "gemini.timeout", "gemini.retries",
}

// loadConfig reads configPath (optional) and envFile (optional, missing
// is fine) then overlays TABULA_* variables.
func loadConfig(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("TABULA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	if err := v.BindEnv("gemini.api_key", "TABULA_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, err
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("s3.region", datasource.DefaultRegion)
	v.SetDefault("gemini.model", translator.DefaultModel)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validateStruct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ── Validation ──────────────────────────────────────────────────────────

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report mapstructure names so errors match the config file keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs tag validation and flattens the result into one error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msg := e.Namespace() + " failed " + e.Tag()
		if e.Param() != "" {
			msg += "=" + e.Param()
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
