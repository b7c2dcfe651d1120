package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE",
		"API_PORT",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"PYTHON_API_BASE_URL",
		"PREDICTION_API_BASE_URL",
		"PREDICTION_TIMEOUT",
		"PREDICTION_RETRY_MAX_ATTEMPTS",
		"PREDICTION_BREAKER_ENABLED",
		"MAX_DESCRIPTION_BYTES",
		"API_MAX_IN_FLIGHT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadRequiresPredictionBaseURL(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error without base url")
	}
	if !strings.Contains(err.Error(), "PREDICTION_API_BASE_URL") {
		t.Fatalf("expected base url in error, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREDICTION_API_BASE_URL", "http://localhost:8000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.APIPort)
	}
	if cfg.PredictionTimeout != 10*time.Second {
		t.Fatalf("expected default timeout 10s, got %s", cfg.PredictionTimeout)
	}
	if cfg.PredictionRetryMaxAttempts != 1 {
		t.Fatalf("expected single attempt by default, got %d", cfg.PredictionRetryMaxAttempts)
	}
	if cfg.PredictionBreakerEnabled {
		t.Fatalf("expected breaker disabled by default")
	}
	if cfg.MaxDescriptionBytes != 1<<20 {
		t.Fatalf("expected 1MiB body limit, got %d", cfg.MaxDescriptionBytes)
	}
}

func TestLoadAcceptsLegacyPythonBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PYTHON_API_BASE_URL", "http://python-ml:8000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PredictionAPIBaseURL != "http://python-ml:8000" {
		t.Fatalf("expected legacy base url, got %q", cfg.PredictionAPIBaseURL)
	}
}

func TestLoadRejectsRelativeBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREDICTION_API_BASE_URL", "python-ml:8000/api")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

func TestLoadReadsYAMLFileWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "prediction_api_base_url: http://file-host:9000\nprediction_timeout: 3s\napi_port: \"9090\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PredictionAPIBaseURL != "http://file-host:9000" {
		t.Fatalf("expected base url from file, got %q", cfg.PredictionAPIBaseURL)
	}
	if cfg.PredictionTimeout != 3*time.Second {
		t.Fatalf("expected timeout from file, got %s", cfg.PredictionTimeout)
	}
	if cfg.APIPort != "7070" {
		t.Fatalf("expected env to override file port, got %q", cfg.APIPort)
	}
}

func TestLoadParsesResilienceOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREDICTION_API_BASE_URL", "http://localhost:8000")
	t.Setenv("PREDICTION_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("PREDICTION_BREAKER_ENABLED", "true")
	t.Setenv("PREDICTION_TIMEOUT", "750ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PredictionRetryMaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.PredictionRetryMaxAttempts)
	}
	if !cfg.PredictionBreakerEnabled {
		t.Fatalf("expected breaker enabled")
	}
	if cfg.PredictionTimeout != 750*time.Millisecond {
		t.Fatalf("expected 750ms timeout, got %s", cfg.PredictionTimeout)
	}
}
