package apic

import "time"

// Config holds the controller connection settings.
type Config struct {
	URL                string        `mapstructure:"url"`                  // Controller base URL (e.g., "https://apic1.example.net")
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"` // Skip TLS certificate verification (explicit opt-in)
	CAFile             string        `mapstructure:"ca_file"`              // Optional PEM bundle trusted in addition to the system pool
	Timeout            time.Duration `mapstructure:"timeout"`              // Per-request timeout (default: 30s)
}

// DefaultConfig returns a Config with sensible defaults.
// URL is empty and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}
