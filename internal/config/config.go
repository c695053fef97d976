package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/garnizeh/terapia/pkg/ollama"
	"github.com/garnizeh/terapia/pkg/payments"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr          string          `yaml:"addr"`
	JWTSecret     string          `yaml:"jwt_secret"`
	APITimeout    time.Duration   `yaml:"timeout"`
	DatabaseURL   string          `yaml:"database_url"`
	TokenDuration time.Duration   `yaml:"token_duration"`
	LogLevel      string          `yaml:"log_level"`
	CORSOrigins   []string        `yaml:"cors_origins"`
	Storage       StorageConfig   `yaml:"storage"`
	Redis         RedisConfig     `yaml:"redis"`
	Payments      payments.Config `yaml:"payments"`
	Dispatch      DispatchConfig  `yaml:"dispatch"`
	Workers       int             `yaml:"workers"`
	Assistant     AssistantConfig `yaml:"assistant"`
}

type StorageConfig struct {
	Dir           string `yaml:"dir"`
	PublicBaseURL string `yaml:"public_base_url"`
	MaxBytes      int64  `yaml:"max_bytes"`
}

type RedisConfig struct {
	// URL enables the shared change feed and token denylist, e.g. redis://localhost:6379/0
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

type DispatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type AssistantConfig struct {
	Enabled       bool `yaml:"enabled"`
	ollama.Config `yaml:",inline"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 24 * time.Hour

	cfg := &Config{
		Addr:          getEnv("TERAPIA_ADDR", ":8080"),
		JWTSecret:     getEnv("TERAPIA_JWT_SECRET", insecureJWTSecret),
		APITimeout:    apiTimeout,
		DatabaseURL:   getEnv("TERAPIA_DATABASE_URL", "terapia.db"),
		TokenDuration: tokenDuration,
		LogLevel:      getEnv("TERAPIA_LOG_LEVEL", "info"),
		Storage: StorageConfig{
			Dir:           getEnv("TERAPIA_STORAGE_DIR", "storage"),
			PublicBaseURL: "/storage",
		},
		Redis:    RedisConfig{URL: os.Getenv("TERAPIA_REDIS_URL")},
		Payments: payments.DefaultConfig(),
		Dispatch: DispatchConfig{Enabled: true, Interval: time.Hour, Timeout: 5 * time.Minute},
		Workers:  2,
		Assistant: AssistantConfig{
			Config: ollama.DefaultConfig(),
		},
	}
	cfg.Payments.BaseURL = os.Getenv("TERAPIA_PAYMENTS_URL")
	cfg.Payments.SecretKey = os.Getenv("TERAPIA_PAYMENTS_SECRET")
	cfg.Payments.PublishableKey = os.Getenv("TERAPIA_PAYMENTS_PUBLISHABLE_KEY")
	if v := os.Getenv("TERAPIA_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = strings.Split(v, ",")
	}
	if v, err := strconv.ParseBool(os.Getenv("TERAPIA_ASSISTANT_ENABLED")); err == nil {
		cfg.Assistant.Enabled = v
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects unsafe or incomplete settings and fills defaults for the
// optional ones.
func (c *Config) Validate() error {
	var errs []error

	env := strings.ToLower(getEnv("TERAPIA_ENV", "production"))
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if c.JWTSecret == insecureJWTSecret && env != "development" {
		errs = append(errs, errors.New("jwt_secret uses the insecure default; set TERAPIA_JWT_SECRET"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.Assistant.Enabled && c.Assistant.Model == "" {
		errs = append(errs, errors.New("assistant.model is required when the assistant is enabled"))
	}
	if (c.Payments.BaseURL == "") != (c.Payments.SecretKey == "") {
		errs = append(errs, errors.New("payments.base_url and payments.secret_key must be set together"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = 24 * time.Hour
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "storage"
	}
	if c.Storage.PublicBaseURL == "" {
		c.Storage.PublicBaseURL = "/storage"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "terapia:realtime"
	}
	if c.Dispatch.Interval <= 0 {
		c.Dispatch.Interval = time.Hour
	}
	if c.Dispatch.Timeout <= 0 {
		c.Dispatch.Timeout = 5 * time.Minute
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}

	pd := payments.DefaultConfig()
	if c.Payments.Timeout <= 0 {
		c.Payments.Timeout = pd.Timeout
	}
	if c.Payments.CircuitReset <= 0 {
		c.Payments.CircuitReset = pd.CircuitReset
	}

	od := ollama.DefaultConfig()
	if c.Assistant.BaseURL == "" {
		c.Assistant.BaseURL = od.BaseURL
	}
	if c.Assistant.Timeout <= 0 {
		c.Assistant.Timeout = od.Timeout
	}
	if c.Assistant.Retries == 0 {
		c.Assistant.Retries = od.Retries
	}
	if c.Assistant.Backoff <= 0 {
		c.Assistant.Backoff = od.Backoff
	}
	if c.Assistant.CircuitReset <= 0 {
		c.Assistant.CircuitReset = od.CircuitReset
	}
	return nil
}

// PaymentsEnabled reports whether the payment functions are configured.
func (c *Config) PaymentsEnabled() bool {
	return c.Payments.BaseURL != "" && c.Payments.SecretKey != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
