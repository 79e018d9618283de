// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize turns raw completion text into a schema-complete
// analysis result. It is the only place that resolves presence and absence
// of fields: every key of the profile is present in the output, holding real
// data or the field's sentinel.
package normalize

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/one-pager/internal/profile"
	"github.com/pdiddy/one-pager/pkg/types"
)

// ExcerptChars bounds the raw content kept on a SchemaError.
const ExcerptChars = 500

const fence = "```"

// SchemaError reports a reply that is not a JSON object.
type SchemaError struct {
	Reason  string
	Excerpt string
	Err     error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reply is not a JSON object: %s: %v", e.Reason, e.Err)
	}
	return "reply is not a JSON object: " + e.Reason
}

func (e *SchemaError) Unwrap() error { return e.Err }

// StripFences trims whitespace and removes at most one leading fence marker
// (optionally tagged json) and at most one trailing fence marker. Content
// that neither starts nor ends with a fence is returned trimmed and
// otherwise unchanged.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, fence) {
		s = s[len(fence):]
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
	}
	if strings.HasSuffix(s, fence) {
		s = s[:len(s)-len(fence)]
	}
	return strings.TrimSpace(s)
}

// Normalize parses raw and maps it onto the schema of p.
func Normalize(p profile.Profile, raw string) (types.Result, error) {
	def, err := profile.Lookup(p)
	if err != nil {
		return types.Result{}, err
	}

	obj, err := Parse(raw)
	if err != nil {
		return types.Result{}, err
	}
	return types.Result{Profile: string(def.Name), Sections: Map(def.Fields, obj)}, nil
}

// Parse strips fences from raw and decodes it as a single JSON object.
func Parse(raw string) (map[string]any, error) {
	excerpt := types.Excerpt(strings.TrimSpace(raw), ExcerptChars)
	body := StripFences(raw)
	if body == "" {
		return nil, &SchemaError{Reason: "empty reply", Excerpt: excerpt}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, &SchemaError{Reason: "invalid JSON", Excerpt: excerpt, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &SchemaError{Reason: "trailing content after JSON value", Excerpt: excerpt}
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &SchemaError{Reason: fmt.Sprintf("top level is %s", jsonKind(parsed)), Excerpt: excerpt}
	}
	return obj, nil
}

// Map walks fields against obj. Extra keys in obj are ignored.
func Map(fields []profile.Field, obj map[string]any) types.Value {
	out := make([]types.Field, len(fields))
	for i, f := range fields {
		out[i] = types.Field{Key: f.Key, Value: mapField(f, obj[f.Key])}
	}
	return types.MappingValue(out...)
}

func mapField(f profile.Field, v any) types.Value {
	switch f.Kind {
	case types.KindMapping:
		obj, ok := v.(map[string]any)
		m := Map(f.Children, obj)
		m.Missing = !ok
		return m
	case types.KindList:
		return toList(f, v)
	default:
		return toText(f, v)
	}
}

func toText(f profile.Field, v any) types.Value {
	var s string
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if text, ok := scalarText(item); ok && text != "" {
				parts = append(parts, text)
			}
		}
		s = strings.Join(parts, "\n")
	case map[string]any:
		s = flattenObject(t)
	default:
		s, _ = scalarText(v)
	}
	if isSentinel(s) {
		return sentinelText(f)
	}
	return types.TextValue(s)
}

// flattenObject renders the scalar members of obj as "key: value" lines in
// key order. Nested members and sentinel-like values are dropped.
func flattenObject(obj map[string]any) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		if text, ok := scalarText(obj[k]); ok && !isSentinel(text) {
			lines = append(lines, k+": "+text)
		}
	}
	return strings.Join(lines, "\n")
}

func toList(f profile.Field, v any) types.Value {
	var items []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if text, ok := scalarText(item); ok && !isSentinel(text) {
				items = append(items, text)
			}
		}
	default:
		if text, ok := scalarText(v); ok && !isSentinel(text) {
			items = []string{text}
		}
	}
	if len(items) == 0 {
		return types.Value{Kind: types.KindList, Items: []string{f.SentinelValue()}, Missing: true}
	}
	return types.ListValue(items...)
}

func sentinelText(f profile.Field) types.Value {
	v := types.TextValue(f.SentinelValue())
	v.Missing = true
	return v
}

// scalarText renders strings, numbers and booleans as trimmed text.
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// isSentinel reports whether s carries no data.
func isSentinel(s string) bool {
	return s == "" || strings.EqualFold(s, types.SentinelNotFound) || strings.EqualFold(s, types.SentinelNA)
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	}
	return "unknown"
}
