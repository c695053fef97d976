package ollama

import "time"

// Config holds settings for the drafting assistant's Ollama client.
type Config struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Retries counts extra attempts after a failed generation.
	Retries                 int           `yaml:"retries" json:"retries"`
	Backoff                 time.Duration `yaml:"backoff" json:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold" json:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset" json:"circuit_reset"`
}

// DefaultConfig targets a local Ollama. Drafting is interactive, so a single
// retry keeps profile saves responsive.
func DefaultConfig() Config {
	return Config{
		BaseURL:                 "http://localhost:11434",
		Model:                   "llama3",
		Timeout:                 30 * time.Second,
		Retries:                 1,
		Backoff:                 500 * time.Millisecond,
		CircuitFailureThreshold: 5,
		CircuitReset:            30 * time.Second,
	}
}

// withDefaults fills the zero timeout and backoff from DefaultConfig. A zero
// CircuitFailureThreshold keeps the breaker disabled.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Backoff <= 0 {
		c.Backoff = d.Backoff
	}
	if c.CircuitFailureThreshold > 0 && c.CircuitReset <= 0 {
		c.CircuitReset = d.CircuitReset
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	return c
}
