// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Outcome is the terminal state of one analyze action.
type Outcome string

const (
	OutcomeDone   Outcome = "done"
	OutcomeFailed Outcome = "failed"
)

// Run is the ledger entry for one analyze action. It carries outcome
// metadata only, never document text or results.
type Run struct {
	ID            string        `json:"id" yaml:"id"`
	SessionID     string        `json:"session_id" yaml:"session_id"`
	Profile       string        `json:"profile" yaml:"profile"`
	Model         string        `json:"model" yaml:"model"`
	Outcome       Outcome       `json:"outcome" yaml:"outcome"`
	FailureKind   FailureKind   `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	StatusCode    int           `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	DocumentChars int           `json:"document_chars" yaml:"document_chars"`
	Pages         int           `json:"pages" yaml:"pages"`
	Sentinels     int           `json:"sentinels" yaml:"sentinels"`
	StartedAt     time.Time     `json:"started_at" yaml:"started_at"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

// RunSummary aggregates ledger entries.
type RunSummary struct {
	Total     int                 `json:"total" yaml:"total"`
	Done      int                 `json:"done" yaml:"done"`
	Failed    int                 `json:"failed" yaml:"failed"`
	ByFailure map[FailureKind]int `json:"by_failure" yaml:"by_failure"`
	ByProfile map[string]int      `json:"by_profile" yaml:"by_profile"`
}
