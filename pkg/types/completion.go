// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Role values for completion messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// CompletionRequest is the instruction pair sent to the completion service.
// User always embeds the full document text verbatim.
type CompletionRequest struct {
	System      string  `json:"system" yaml:"system"`
	User        string  `json:"user" yaml:"user"`
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// JSONObject requests JSON-object formatted output from the service.
	JSONObject bool `json:"json_object" yaml:"json_object"`
}
