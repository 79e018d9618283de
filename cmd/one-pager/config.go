// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/one-pager/internal/analysis"
	"github.com/pdiddy/one-pager/internal/completion"
	"github.com/pdiddy/one-pager/internal/ledger"
	"github.com/pdiddy/one-pager/internal/secrets"
	"github.com/pdiddy/one-pager/internal/textextract"
	"github.com/pdiddy/one-pager/pkg/types"
)

const defaultLedgerPath = ".one-pager/runs.db"

// credential names the secret file and environment variable holding the
// API key of a backend.
type credential struct {
	secretKey string
	envVar    string
}

var credentials = map[types.CompletionBackend]credential{
	types.BackendHTTP:      {"groq-api-key", "GROQ_API_KEY"},
	types.BackendOpenAI:    {"openai-api-key", "OPENAI_API_KEY"},
	types.BackendAnthropic: {"anthropic-api-key", "ANTHROPIC_API_KEY"},
}

func setDefaults() {
	viper.SetDefault("completion.backend", string(types.BackendHTTP))
	viper.SetDefault("completion.timeout", types.DefaultCompletionTimeout)
	viper.SetDefault("completion.max_tokens", types.DefaultMaxTokens)
	viper.SetDefault("extraction.max_chars", types.DefaultMaxChars)
	viper.SetDefault("server.addr", types.DefaultServerAddr)
	viper.SetDefault("server.analyze_rate", 0.5)
	viper.SetDefault("server.analyze_burst", 2)
	viper.SetDefault("server.max_upload_bytes", types.DefaultMaxUploadBytes)
	viper.SetDefault("ledger.path", defaultLedgerPath)
}

// bindFlags binds the named flags of cmd to viper keys. Binding happens when
// the command runs so that commands sharing a key do not override each
// other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// completionFlags are shared by every command that talks to the
// completion service.
func completionFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "", "completion backend: http (Groq), openai or anthropic")
	cmd.Flags().String("model", "", "model identifier (default depends on the backend)")
	cmd.Flags().String("base-url", "", "override the completion endpoint")
	cmd.Flags().Duration("timeout", 0, "completion request timeout")
	cmd.Flags().Int("max-chars", 0, "character budget of the document text")
	cmd.Flags().String("ledger", "", "run ledger SQLite path; \"off\" disables it")
}

var completionFlagKeys = map[string]string{
	"backend":   "completion.backend",
	"model":     "completion.model",
	"base-url":  "completion.base_url",
	"timeout":   "completion.timeout",
	"max-chars": "extraction.max_chars",
	"ledger":    "ledger.path",
}

// loadConfig copies viper values into an immutable Config. The API key is
// resolved from config, then .secrets/, then the backend's environment
// variable.
func loadConfig(store *secrets.Store) types.Config {
	cfg := types.Config{
		Completion: types.CompletionConfig{
			Backend:   types.CompletionBackend(viper.GetString("completion.backend")),
			BaseURL:   viper.GetString("completion.base_url"),
			APIKey:    viper.GetString("completion.api_key"),
			Model:     viper.GetString("completion.model"),
			Timeout:   viper.GetDuration("completion.timeout"),
			MaxTokens: viper.GetInt("completion.max_tokens"),
		},
		Extraction: types.ExtractionConfig{
			MaxChars: viper.GetInt("extraction.max_chars"),
		},
		Server: types.ServerConfig{
			Addr:           viper.GetString("server.addr"),
			AnalyzeRate:    viper.GetFloat64("server.analyze_rate"),
			AnalyzeBurst:   viper.GetInt("server.analyze_burst"),
			MaxUploadBytes: viper.GetInt64("server.max_upload_bytes"),
		},
		Ledger: types.LedgerConfig{
			Path: viper.GetString("ledger.path"),
		},
	}
	if cfg.Ledger.Path == "off" {
		cfg.Ledger.Path = ""
	}
	cfg.Completion = cfg.Completion.WithDefaults()
	if cfg.Completion.APIKey == "" {
		cfg.Completion.APIKey = resolveAPIKey(store, cfg.Completion.Backend)
	}
	return cfg
}

func resolveAPIKey(store *secrets.Store, backend types.CompletionBackend) string {
	c, ok := credentials[backend]
	if !ok || store == nil {
		return ""
	}
	return store.Resolve(c.secretKey, c.envVar)
}

// configurationWarning describes why analysis is disabled, or returns ""
// when the credential is present.
func configurationWarning(cfg types.CompletionConfig) string {
	if cfg.Configured() {
		return ""
	}
	c, ok := credentials[cfg.Backend]
	if !ok {
		return fmt.Sprintf("unknown completion backend %q; analysis is disabled", cfg.Backend)
	}
	return fmt.Sprintf("no API key for the %s backend: create .secrets/%s or set %s; analysis is disabled",
		cfg.Backend, c.secretKey, c.envVar)
}

// pipeline holds the components built from a Config.
type pipeline struct {
	analyzer *analysis.Analyzer
	ledger   *ledger.Store
	warning  string
}

func (p *pipeline) Close() error {
	if p.ledger == nil {
		return nil
	}
	return p.ledger.Close()
}

// buildPipeline wires the extractor, completion client and optional ledger
// into an Analyzer.
func buildPipeline(cfg types.Config, logger *slog.Logger) (*pipeline, error) {
	client, err := completion.New(cfg.Completion, logger)
	if err != nil {
		return nil, err
	}

	p := &pipeline{warning: configurationWarning(cfg.Completion)}
	opts := analysis.Options{
		Extractor:  textextract.New(cfg.Extraction, logger),
		Completer:  client,
		Configured: cfg.Completion.Configured(),
		Model:      client.Model(),
		Logger:     logger,
	}
	if cfg.Ledger.Path != "" {
		store, err := ledger.Open(cfg.Ledger)
		if err != nil {
			logger.Warn("ledger.open_failed", "path", cfg.Ledger.Path, "error", err)
		} else {
			p.ledger = store
			opts.Recorder = store
		}
	}
	p.analyzer = analysis.New(opts)
	return p, nil
}
