package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg, err := loadConfig("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" || cfg.S3.Region != "us-east-1" || cfg.Gemini.Model == "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigFileEnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tabula.yaml")
	os.WriteFile(cfgPath, []byte(`
in_format: json
log:
  level: warn
gemini:
  model: gemini-test
  timeout: 5s
s3:
  region: eu-west-1
`), 0o644)
	envPath := filepath.Join(dir, ".env")
	os.WriteFile(envPath, []byte("TABULA_GEMINI_RETRIES=4\n"), 0o644)

	t.Setenv("TABULA_LOG_LEVEL", "debug")
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Cleanup(func() { os.Unsetenv("TABULA_GEMINI_RETRIES") })

	cfg, err := loadConfig(cfgPath, envPath)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.InFormat != "json" || cfg.S3.Region != "eu-west-1" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("environment should override the file, got %q", cfg.Log.Level)
	}
	if cfg.Gemini.APIKey != "from-env" || cfg.Gemini.Model != "gemini-test" || cfg.Gemini.Timeout != 5*time.Second {
		t.Errorf("gemini section: %+v", cfg.Gemini)
	}
	if cfg.Gemini.Retries != 4 {
		t.Errorf(".env value not applied, got %d", cfg.Gemini.Retries)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("out_format: xls\nlog:\n  format: xml\n"), 0o644)

	_, err := loadConfig(path, "")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"out_format", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should name %s: %v", want, err)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"), ""); err == nil {
		t.Error("expected error for a missing config file")
	}
}
