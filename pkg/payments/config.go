package payments

import "time"

// Config holds settings for the payment functions client.
type Config struct {
	// BaseURL is the functions host, e.g. https://project.functions.example.com
	BaseURL string `yaml:"base_url" json:"base_url"`
	// SecretKey is sent as the bearer token on every call
	SecretKey string `yaml:"secret_key" json:"-"`
	// PublishableKey is handed to browsers for the provider's widgets
	PublishableKey string `yaml:"publishable_key" json:"publishable_key"`
	// Timeout is the per-request timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// CircuitFailureThreshold opens circuit after this many consecutive failures
	CircuitFailureThreshold int `yaml:"circuit_failure_threshold" json:"circuit_failure_threshold"`
	// CircuitReset is the duration after which the circuit attempts to half-open
	CircuitReset time.Duration `yaml:"circuit_reset" json:"circuit_reset"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:                 15 * time.Second,
		CircuitFailureThreshold: 5,
		CircuitReset:            30 * time.Second,
	}
}
