// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// Sentinel values substituted for absent or malformed fields, so absence is
// represented as data and consumers never branch on a missing key.
const (
	SentinelNotFound = "Not found"
	SentinelNA       = "N/A"
)

// ValueKind is the shape of one section of an analysis result.
type ValueKind string

const (
	KindText    ValueKind = "text"
	KindList    ValueKind = "list"
	KindMapping ValueKind = "mapping"
)

// Field is one named entry of a mapping value. Mappings keep their fields
// in schema order.
type Field struct {
	Key   string
	Value Value
}

// Value is scalar text, an ordered list of text, or a nested mapping of the
// same shape.
type Value struct {
	Kind   ValueKind
	Text   string
	Items  []string
	Fields []Field

	// Missing is set when the normalizer substituted a sentinel.
	Missing bool
}

// TextValue returns a scalar value.
func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// ListValue returns an ordered list value.
func ListValue(items ...string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{Kind: KindList, Items: items}
}

// MappingValue returns a mapping value with fields in the given order.
func MappingValue(fields ...Field) Value {
	return Value{Kind: KindMapping, Fields: fields}
}

// Get returns the field named key of a mapping value and whether it exists.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Keys returns the field keys of a mapping value in order.
func (v Value) Keys() []string {
	keys := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		keys[i] = f.Key
	}
	return keys
}

// SentinelCount returns how many leaf values hold a sentinel.
func (v Value) SentinelCount() int {
	if v.Kind != KindMapping {
		if v.Missing {
			return 1
		}
		return 0
	}
	n := 0
	for _, f := range v.Fields {
		n += f.Value.SentinelCount()
	}
	return n
}

// MarshalJSON encodes text as a string, lists as arrays and mappings as
// objects with keys in schema order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindList:
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	case KindMapping:
		return marshalFields(v.Fields)
	default:
		return json.Marshal(v.Text)
	}
}

// MarshalYAML encodes the value as an ordered YAML node.
func (v Value) MarshalYAML() (any, error) {
	return v.yamlNode(), nil
}

func (v Value) yamlNode() *yaml.Node {
	switch v.Kind {
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items {
			n.Content = append(n.Content, strNode(item))
		}
		return n
	case KindMapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range v.Fields {
			n.Content = append(n.Content, strNode(f.Key), f.Value.yamlNode())
		}
		return n
	default:
		return strNode(v.Text)
	}
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func marshalFields(fields []Field) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the canonical, schema-complete analysis of one document. Every
// key of the profile's schema is present in Sections.
type Result struct {
	Profile  string
	Sections Value
}

// Get returns the top-level section named key.
func (r Result) Get(key string) (Value, bool) {
	return r.Sections.Get(key)
}

type resultJSON struct {
	Profile  string `json:"profile"`
	Sections Value  `json:"sections"`
}

// MarshalJSON encodes the result as {"profile": ..., "sections": {...}}.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{Profile: r.Profile, Sections: r.Sections})
}

// MarshalYAML encodes the result with sections in schema order.
func (r Result) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	n.Content = append(n.Content,
		strNode("profile"), strNode(r.Profile),
		strNode("sections"), r.Sections.yamlNode(),
	)
	return n, nil
}

// FailureKind classifies why an analysis action did not reach Done.
type FailureKind string

const (
	FailureExtraction FailureKind = "extraction"
	FailureTransport  FailureKind = "transport"
	FailureService    FailureKind = "service"
	FailureSchema     FailureKind = "schema"
)

// Hint returns the user-facing recovery advice for the failure kind.
func (k FailureKind) Hint() string {
	switch k {
	case FailureExtraction:
		return "the document has no extractable text; upload a text-based PDF"
	case FailureTransport:
		return "the completion service could not be reached; try again"
	case FailureService:
		return "the completion service rejected the request"
	case FailureSchema:
		return "the completion service replied with content that is not a JSON object"
	default:
		return ""
	}
}

// Failure is produced instead of a Result when any stage cannot complete.
type Failure struct {
	Kind    FailureKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`

	// StatusCode is set for service failures.
	StatusCode int `json:"status_code,omitempty" yaml:"status_code,omitempty"`

	// RawExcerpt is a bounded excerpt of the offending content.
	RawExcerpt string `json:"raw_excerpt,omitempty" yaml:"raw_excerpt,omitempty"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %s", f.Kind, f.Message)
}

// Excerpt cuts s to at most n characters, marking the cut with "...".
func Excerpt(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
