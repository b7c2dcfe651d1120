package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort   string `yaml:"api_port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	PredictionAPIBaseURL string        `yaml:"prediction_api_base_url"`
	PredictionTimeout    time.Duration `yaml:"prediction_timeout"`

	PredictionRetryMaxAttempts    int           `yaml:"prediction_retry_max_attempts"`
	PredictionRetryInitialBackoff time.Duration `yaml:"prediction_retry_initial_backoff"`
	PredictionRetryMaxBackoff     time.Duration `yaml:"prediction_retry_max_backoff"`

	PredictionBreakerEnabled      bool          `yaml:"prediction_breaker_enabled"`
	PredictionBreakerMinRequests  int           `yaml:"prediction_breaker_min_requests"`
	PredictionBreakerFailureRatio float64       `yaml:"prediction_breaker_failure_ratio"`
	PredictionBreakerOpenTimeout  time.Duration `yaml:"prediction_breaker_open_timeout"`

	MaxDescriptionBytes int64         `yaml:"max_description_bytes"`
	APIMaxInFlight      int           `yaml:"api_max_in_flight"`
	APIQueueWait        time.Duration `yaml:"api_queue_wait"`
}

func defaults() Config {
	return Config{
		APIPort:   "8080",
		LogLevel:  "info",
		LogFormat: "json",

		PredictionTimeout: 10 * time.Second,

		PredictionRetryMaxAttempts:    1,
		PredictionRetryInitialBackoff: 100 * time.Millisecond,
		PredictionRetryMaxBackoff:     400 * time.Millisecond,

		PredictionBreakerMinRequests:  10,
		PredictionBreakerFailureRatio: 0.5,
		PredictionBreakerOpenTimeout:  30 * time.Second,

		MaxDescriptionBytes: 1 << 20,
	}
}

// Load reads an optional .env file, an optional YAML file named by
// CONFIG_FILE and then environment variables, later sources winning.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.APIPort = envString("API_PORT", cfg.APIPort)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envString("LOG_FORMAT", cfg.LogFormat)

	cfg.PredictionAPIBaseURL = envString("PYTHON_API_BASE_URL", cfg.PredictionAPIBaseURL)
	cfg.PredictionAPIBaseURL = envString("PREDICTION_API_BASE_URL", cfg.PredictionAPIBaseURL)
	cfg.PredictionTimeout = envDuration("PREDICTION_TIMEOUT", cfg.PredictionTimeout)

	cfg.PredictionRetryMaxAttempts = envInt("PREDICTION_RETRY_MAX_ATTEMPTS", cfg.PredictionRetryMaxAttempts)
	cfg.PredictionRetryInitialBackoff = envDuration("PREDICTION_RETRY_INITIAL_BACKOFF", cfg.PredictionRetryInitialBackoff)
	cfg.PredictionRetryMaxBackoff = envDuration("PREDICTION_RETRY_MAX_BACKOFF", cfg.PredictionRetryMaxBackoff)

	cfg.PredictionBreakerEnabled = envBool("PREDICTION_BREAKER_ENABLED", cfg.PredictionBreakerEnabled)
	cfg.PredictionBreakerMinRequests = envInt("PREDICTION_BREAKER_MIN_REQUESTS", cfg.PredictionBreakerMinRequests)
	cfg.PredictionBreakerFailureRatio = envFloat("PREDICTION_BREAKER_FAILURE_RATIO", cfg.PredictionBreakerFailureRatio)
	cfg.PredictionBreakerOpenTimeout = envDuration("PREDICTION_BREAKER_OPEN_TIMEOUT", cfg.PredictionBreakerOpenTimeout)

	cfg.MaxDescriptionBytes = int64(envInt("MAX_DESCRIPTION_BYTES", int(cfg.MaxDescriptionBytes)))
	cfg.APIMaxInFlight = envInt("API_MAX_IN_FLIGHT", cfg.APIMaxInFlight)
	cfg.APIQueueWait = envDuration("API_QUEUE_WAIT", cfg.APIQueueWait)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.PredictionAPIBaseURL) == "" {
		errs = append(errs, errors.New("PREDICTION_API_BASE_URL is required"))
	} else if u, err := url.Parse(c.PredictionAPIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("PREDICTION_API_BASE_URL must be an absolute URL, got %q", c.PredictionAPIBaseURL))
	}
	if c.PredictionTimeout <= 0 {
		errs = append(errs, errors.New("PREDICTION_TIMEOUT must be positive"))
	}
	if c.PredictionRetryMaxAttempts < 1 {
		errs = append(errs, errors.New("PREDICTION_RETRY_MAX_ATTEMPTS must be at least 1"))
	}
	if c.MaxDescriptionBytes <= 0 {
		errs = append(errs, errors.New("MAX_DESCRIPTION_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func envString(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
