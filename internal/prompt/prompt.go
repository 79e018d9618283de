// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt renders the system and user instructions for one analysis
// profile. Rendering is deterministic and has no side effects.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/one-pager/internal/profile"
	"github.com/pdiddy/one-pager/pkg/types"
)

// ErrEmptyText is returned when the document text is empty.
var ErrEmptyText = errors.New("document text is empty")

// baseSystem is the profile-invariant part of the system instruction.
const baseSystem = "You are an expert research assistant specializing in synthesizing complex academic papers into clear, concise summaries. You are precise and adhere strictly to the user's requested format."

// userTmpl lays out the schema table followed by the literal document text.
// The "fields" template recurses once per nesting level.
var userTmpl = template.Must(template.New("user").Funcs(template.FuncMap{
	"indent": func(depth int) string { return strings.Repeat("  ", depth) },
	"nest":   func(fields []profile.Field, depth int) level { return level{Fields: fields, Depth: depth} },
	"inc":    func(n int) int { return n + 1 },
	"kind":   kindLabel,
}).Parse(`{{define "fields"}}{{range .Fields}}{{indent $.Depth}}- "{{.Key}}" ({{kind .}}): {{.Guidance}}{{if .Sentinel}} Use "{{.Sentinel}}" when not stated.{{end}}
{{if .Children}}{{template "fields" (nest .Children (inc $.Depth))}}{{end}}{{end}}{{end}}Analyze the academic paper below. Reply with one JSON object containing exactly these keys:

{{template "fields" (nest .Fields 0)}}
Text values are strings. List values are arrays of strings. Object values contain exactly the nested keys listed under them. If the paper does not provide the information for a key, use the string "{{.Sentinel}}".

Here is the paper's text:

{{.Text}}`))

type level struct {
	Fields []profile.Field
	Depth  int
}

func kindLabel(f profile.Field) string {
	switch f.Kind {
	case types.KindList:
		return "list of text"
	case types.KindMapping:
		return "object"
	default:
		return "text"
	}
}

// Build renders the completion request for p and text. The text is embedded
// verbatim; Build never shortens it.
func Build(p profile.Profile, text string) (types.CompletionRequest, error) {
	def, err := profile.Lookup(p)
	if err != nil {
		return types.CompletionRequest{}, err
	}
	if strings.TrimSpace(text) == "" {
		return types.CompletionRequest{}, ErrEmptyText
	}

	var buf bytes.Buffer
	data := struct {
		Fields   []profile.Field
		Sentinel string
		Text     string
	}{def.Fields, types.SentinelNotFound, text}
	if err := userTmpl.Execute(&buf, data); err != nil {
		return types.CompletionRequest{}, fmt.Errorf("rendering user instruction: %w", err)
	}

	return types.CompletionRequest{
		System:      System(def),
		User:        buf.String(),
		Temperature: def.Temperature,
		JSONObject:  true,
	}, nil
}

// System returns the system instruction for def.
func System(def profile.Definition) string {
	return baseSystem + " " + def.Strictness
}

// Schema renders only the schema table of p, as it appears in the user
// instruction.
func Schema(p profile.Profile) (string, error) {
	def, err := profile.Lookup(p)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := userTmpl.ExecuteTemplate(&buf, "fields", level{Fields: def.Fields}); err != nil {
		return "", fmt.Errorf("rendering schema: %w", err)
	}
	return buf.String(), nil
}
