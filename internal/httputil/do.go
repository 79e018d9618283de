// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across components.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxBodyBytes caps how much of a response body Do reads. Larger bodies are
// cut and the remainder discarded.
var MaxBodyBytes int64 = 4 << 20

// NewClient returns an HTTP client whose requests are bounded by timeout.
// A non-positive timeout disables the client-level bound.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		return &http.Client{}
	}
	return &http.Client{Timeout: timeout}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}

// Do executes req exactly once and reads at most MaxBodyBytes of the body.
// A non-2xx status is not an error; callers inspect StatusCode. The only
// errors are transport errors and body read failures.
func Do(ctx context.Context, client *http.Client, req *http.Request) (Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	start := time.Now()

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return Response{Elapsed: time.Since(start)}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return Response{StatusCode: resp.StatusCode, Elapsed: time.Since(start)}, fmt.Errorf("reading response body: %w", err)
	}
	io.Copy(io.Discard, resp.Body)

	return Response{StatusCode: resp.StatusCode, Body: body, Elapsed: time.Since(start)}, nil
}
