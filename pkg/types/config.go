// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CompletionBackend identifies the client used to reach the completion service.
type CompletionBackend string

const (
	// BackendHTTP speaks the OpenAI-compatible chat completions wire format
	// directly (Groq by default).
	BackendHTTP      CompletionBackend = "http"
	BackendOpenAI    CompletionBackend = "openai"
	BackendAnthropic CompletionBackend = "anthropic"
)

const (
	DefaultMaxChars          = 15000
	DefaultCompletionTimeout = 60 * time.Second
	DefaultCompletionURL     = "https://api.groq.com/openai/v1/chat/completions"
	DefaultHTTPModel         = "llama3-70b-8192"
	DefaultOpenAIModel       = "gpt-4o"
	DefaultAnthropicModel    = "claude-sonnet-4-20250514"
	DefaultMaxTokens         = 4096
	DefaultServerAddr        = ":8080"
	DefaultMaxUploadBytes    = 50 << 20
)

// CompletionConfig holds the settings of the completion client. It is built
// once at startup and never mutated.
type CompletionConfig struct {
	// Backend selects the client implementation (default http).
	Backend CompletionBackend `json:"backend" yaml:"backend"`

	// BaseURL is the endpoint. For the http backend it is the full chat
	// completions URL; for SDK backends it overrides the SDK base URL.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey is the bearer credential. Empty disables analysis.
	APIKey string `json:"-" yaml:"-"`

	// Model is the model identifier (default depends on the backend).
	Model string `json:"model" yaml:"model"`

	// Timeout bounds a single completion call (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxTokens caps the reply length where the service requires it.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// Configured reports whether the required credential is present.
func (c CompletionConfig) Configured() bool {
	return c.APIKey != ""
}

// WithDefaults fills unset fields with backend-specific defaults.
func (c CompletionConfig) WithDefaults() CompletionConfig {
	if c.Backend == "" {
		c.Backend = BackendHTTP
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultCompletionTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Model == "" {
		switch c.Backend {
		case BackendOpenAI:
			c.Model = DefaultOpenAIModel
		case BackendAnthropic:
			c.Model = DefaultAnthropicModel
		default:
			c.Model = DefaultHTTPModel
		}
	}
	if c.BaseURL == "" && c.Backend == BackendHTTP {
		c.BaseURL = DefaultCompletionURL
	}
	return c
}

// ExtractionConfig holds settings for the text extractor.
type ExtractionConfig struct {
	// MaxChars is the character budget of the document text (default 15000).
	MaxChars int `json:"max_chars" yaml:"max_chars"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`

	// AnalyzeRate is the sustained analyze actions per second per client.
	// Zero disables rate limiting.
	AnalyzeRate float64 `json:"analyze_rate" yaml:"analyze_rate"`

	// AnalyzeBurst is the burst size for AnalyzeRate.
	AnalyzeBurst int `json:"analyze_burst" yaml:"analyze_burst"`

	// MaxUploadBytes caps the accepted multipart body.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// LedgerConfig holds settings for the run ledger.
type LedgerConfig struct {
	// Path is the SQLite file. Empty disables the ledger.
	Path string `json:"path" yaml:"path"`
}

// Config groups every component configuration.
type Config struct {
	Completion CompletionConfig `json:"completion" yaml:"completion"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Ledger     LedgerConfig     `json:"ledger" yaml:"ledger"`
}
