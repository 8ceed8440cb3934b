package apiclient

import (
	"os"
	"time"
)

const (
	defaultBaseURL = "http://localhost:8000"
	defaultTimeout = 10 * time.Second
)

// Config is the fixed configuration shared by every call made through a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Headers are added to every request before interceptors run.
	Headers map[string]string
}

// ConfigFromEnv reads API_BASE_URL and API_TIMEOUT (a Go duration, e.g. "10s").
func ConfigFromEnv() Config {
	base := os.Getenv("API_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := defaultTimeout
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}
	return Config{BaseURL: base, Timeout: timeout}
}
