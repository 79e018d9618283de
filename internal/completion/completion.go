// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package completion delivers an instruction pair to the completion service
// and returns the raw reply text. Each call is attempted exactly once.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/one-pager/pkg/types"
)

// maxErrorBody bounds the service body kept on a ServiceError.
const maxErrorBody = 2048

// Backend sends one completion request and returns the reply content.
// Implementations return *TransportError or *ServiceError on failure.
type Backend interface {
	Complete(ctx context.Context, req types.CompletionRequest) (string, error)
}

// TransportError means the service could not be reached or the call timed
// out before a response arrived.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("calling completion service: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError means the service answered with a non-success status or an
// unusable envelope.
type ServiceError struct {
	StatusCode int
	Body       string

	// Reason is set when the status was 2xx but the envelope held no usable
	// content.
	Reason string
}

func (e *ServiceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("completion service returned %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("completion service returned %d: %s", e.StatusCode, e.Body)
}

func serviceError(status int, body string) *ServiceError {
	return &ServiceError{StatusCode: status, Body: types.Excerpt(body, maxErrorBody)}
}

// Client wraps a Backend with the call timeout and request logging.
type Client struct {
	backend Backend
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient wraps backend. model is reported in logs only.
func NewClient(backend Backend, model string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = types.DefaultCompletionTimeout
	}
	return &Client{backend: backend, model: model, timeout: timeout, logger: logger}
}

// New builds the client selected by cfg.Backend.
func New(cfg types.CompletionConfig, logger *slog.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()
	var backend Backend
	switch cfg.Backend {
	case types.BackendHTTP:
		backend = NewHTTPBackend(cfg, logger)
	case types.BackendOpenAI:
		backend = NewOpenAIBackend(cfg)
	case types.BackendAnthropic:
		backend = NewAnthropicBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown completion backend %q", cfg.Backend)
	}
	return NewClient(backend, cfg.Model, cfg.Timeout, logger), nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Complete sends req once. The call is detached from ctx cancellation and
// bounded only by the client timeout, so an in-flight request always runs
// to a response or the deadline.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	reqID := uuid.New().String()
	start := time.Now()
	c.logger.Info("completion.request.start",
		"req_id", reqID,
		"model", c.model,
		"temperature", req.Temperature,
		"user_chars", len([]rune(req.User)),
	)

	content, err := c.backend.Complete(ctx, req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		var svc *ServiceError
		if errors.As(err, &svc) {
			c.logger.Warn("completion.request.service_error", "req_id", reqID, "status", svc.StatusCode, "elapsed_ms", elapsed)
			return "", err
		}
		var tr *TransportError
		if !errors.As(err, &tr) {
			err = &TransportError{Err: err}
		}
		c.logger.Warn("completion.request.transport_error", "req_id", reqID, "error", err, "elapsed_ms", elapsed)
		return "", err
	}

	c.logger.Info("completion.request.done", "req_id", reqID, "content_chars", len([]rune(content)), "elapsed_ms", elapsed)
	return content, nil
}
