// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pdiddy/one-pager/internal/httputil"
	"github.com/pdiddy/one-pager/pkg/types"
)

// defaultChatURL is the chat completions endpoint used when none is
// configured. Package-level var for test substitution.
var defaultChatURL = types.DefaultCompletionURL

// HTTPBackend speaks the OpenAI-compatible chat completions wire format over
// plain net/http. Groq is the default service.
type HTTPBackend struct {
	URL    string
	APIKey string
	Model  string
	Client *http.Client
	Logger *slog.Logger
}

// NewHTTPBackend returns an HTTPBackend for cfg.
func NewHTTPBackend(cfg types.CompletionConfig, logger *slog.Logger) *HTTPBackend {
	return &HTTPBackend{
		URL:    cfg.BaseURL,
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
		Client: httputil.NewClient(cfg.Timeout),
		Logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete posts the request and returns choices[0].message.content.
func (b *HTTPBackend) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	body := chatRequest{
		Model: b.Model,
		Messages: []chatMessage{
			{Role: types.RoleSystem, Content: req.System},
			{Role: types.RoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
	}
	if req.JSONObject {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := b.URL
	if url == "" {
		url = defaultChatURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.APIKey)

	logger.Debug("completion.http.request", "url", url, "model", b.Model, "content_length", len(bodyBytes))

	resp, err := httputil.Do(ctx, b.Client, httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	logger.Debug("completion.http.response", "status", resp.StatusCode, "bytes", len(resp.Body), "elapsed_ms", resp.Elapsed.Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return "", serviceError(resp.StatusCode, string(resp.Body))
	}

	var cResp chatResponse
	if err := json.Unmarshal(resp.Body, &cResp); err != nil {
		return "", &ServiceError{StatusCode: resp.StatusCode, Body: types.Excerpt(string(resp.Body), maxErrorBody), Reason: "undecodable response envelope"}
	}
	if len(cResp.Choices) == 0 {
		return "", &ServiceError{StatusCode: resp.StatusCode, Body: types.Excerpt(string(resp.Body), maxErrorBody), Reason: "response has no choices"}
	}
	return cResp.Choices[0].Message.Content, nil
}
