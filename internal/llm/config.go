package llm

import (
	"time"

	"fakenews/internal/config"
)

// Options controls how a Groq handle talks to the endpoint.
type Options struct {
	BaseURL       string
	Timeout       time.Duration // 0 leaves the HTTP client default
	Temperature   float32       // 0 leaves the provider default
	MaxTokens     int           // 0 leaves the provider default
	MaxConcurrent int           // in-flight requests per handle, 0 for no cap
}

// DefaultOptions targets the public Groq endpoint with provider defaults.
func DefaultOptions() Options {
	return Options{BaseURL: config.DefaultGroqBaseURL}
}

// OptionsFromConfig maps the groq config section onto Options.
func OptionsFromConfig(c config.GroqConfig) Options {
	opts := DefaultOptions()
	if c.BaseURL != "" {
		opts.BaseURL = c.BaseURL
	}
	if c.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	opts.Temperature = c.Temperature
	opts.MaxTokens = c.MaxTokens
	opts.MaxConcurrent = c.MaxConcurrent
	return opts
}
