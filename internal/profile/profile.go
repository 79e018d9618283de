// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile defines the analysis profiles. Each profile is one
// declarative schema table; the prompt builder and the response normalizer
// are generic over it.
package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/one-pager/pkg/types"
)

// Profile names an analysis schema variant.
type Profile string

const (
	Flat     Profile = "flat"
	Expert   Profile = "expert"
	Metadata Profile = "metadata"
)

// ErrUnknown is returned for a profile name that is not defined.
var ErrUnknown = errors.New("unknown analysis profile")

// Field is one entry of a schema table.
type Field struct {
	Key      string          `json:"key" yaml:"key"`
	Kind     types.ValueKind `json:"kind" yaml:"kind"`
	Guidance string          `json:"guidance" yaml:"guidance"`

	// Sentinel replaces the value when it is absent or malformed. Empty
	// means types.SentinelNotFound.
	Sentinel string `json:"sentinel,omitempty" yaml:"sentinel,omitempty"`

	// Children are the nested keys of a mapping field.
	Children []Field `json:"children,omitempty" yaml:"children,omitempty"`
}

// SentinelValue returns the placeholder used when the field is absent.
func (f Field) SentinelValue() string {
	if f.Sentinel == "" {
		return types.SentinelNotFound
	}
	return f.Sentinel
}

// Definition is the full configuration of one profile.
type Definition struct {
	Name        Profile `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`

	// Temperature is sent with every completion request of this profile.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Strictness is appended to the base system instruction.
	Strictness string `json:"strictness" yaml:"strictness"`

	Fields []Field `json:"fields" yaml:"fields"`
}

// Keys returns the top-level keys in schema order.
func (d Definition) Keys() []string {
	keys := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		keys[i] = f.Key
	}
	return keys
}

func text(key, guidance string) Field {
	return Field{Key: key, Kind: types.KindText, Guidance: guidance}
}

func list(key, guidance string) Field {
	return Field{Key: key, Kind: types.KindList, Guidance: guidance}
}

func mapping(key, guidance string, children ...Field) Field {
	return Field{Key: key, Kind: types.KindMapping, Guidance: guidance, Children: children}
}

func na(f Field) Field {
	f.Sentinel = types.SentinelNA
	return f
}

var definitions = []Definition{
	{
		Name:        Flat,
		Description: "Five-section one-page summary with markdown-formatted text values.",
		Temperature: 0.2,
		Strictness:  "Reply with a single JSON object and nothing else.",
		Fields: []Field{
			text("question", "The single, specific research question the authors are trying to answer, stated in one sentence."),
			text("contribution", "The main, novel contribution of this work to its field, described in one or two sentences."),
			text("methodology", "The key methodologies, techniques, or data sources used in the paper, as a markdown bulleted list."),
			text("findings", "The 3-5 most important findings or results of the paper, as a markdown numbered list."),
			text("limitations", "The key weaknesses, limitations, or open questions mentioned by the authors, as a markdown bulleted list."),
		},
	},
	{
		Name:        Expert,
		Description: "Nested expert critique: core idea, methodology, findings, limitations and a reviewer assessment.",
		Temperature: 0.3,
		Strictness:  "Reply with a single JSON object that uses exactly the keys and nesting described, with no commentary and no code fences.",
		Fields: []Field{
			mapping("core_idea", "The central idea of the paper.",
				text("question", "The single, specific research question the authors are trying to answer, in one sentence."),
				text("contribution", "The main, novel contribution to the field, in one or two sentences."),
			),
			list("methodology", "Each key methodology, technique, or data source as one list item."),
			list("key_findings", "The 3-5 most important findings or results, one per item, most important first."),
			list("limitations", "Each weakness, limitation, or open question as one list item."),
			mapping("critique", "An expert reviewer's assessment of the work.",
				list("strengths", "The strongest aspects of the work, one per item."),
				list("weaknesses", "Methodological or argumentative weaknesses not acknowledged by the authors, one per item."),
				text("validity", "One or two sentences on whether the evidence supports the claims."),
				text("reproducibility", "One or two sentences on whether the work could be reproduced from the paper."),
			),
		},
	},
	{
		Name:        Metadata,
		Description: "Metadata-rich review: bibliographic metadata, summary sections and linked resources.",
		Temperature: 0.1,
		Strictness:  "Reply with a single JSON object that uses exactly the keys and nesting described. Use \"N/A\" for metadata the paper does not state; never guess.",
		Fields: []Field{
			mapping("metadata", "Bibliographic metadata stated in the paper.",
				na(text("title", "The full title of the paper.")),
				na(list("authors", "Each author name as one item, in the order listed.")),
				na(text("venue", "The journal, conference, or repository where the paper appeared.")),
				na(text("year", "The four-digit publication year.")),
				na(text("doi", "The DOI without a URL prefix.")),
			),
			text("research_question", "The single, specific research question, in one sentence."),
			text("contribution", "The main, novel contribution, in one or two sentences."),
			list("methodology", "Each key methodology, technique, or data source as one list item."),
			list("key_findings", "The 3-5 most important findings, one per item."),
			list("limitations", "Each limitation or open question as one list item."),
			mapping("resources", "Artifacts released or used by the paper.",
				list("datasets", "Each dataset named in the paper as one item."),
				text("code", "The URL of released source code, or where it is said to be available."),
			),
		},
	},
}

// All returns every profile definition in display order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Names returns the defined profile names.
func Names() []string {
	names := make([]string, len(definitions))
	for i, d := range definitions {
		names[i] = string(d.Name)
	}
	return names
}

// Parse maps a name to a profile. Matching ignores case and surrounding
// whitespace; "nested" and "rich" are accepted aliases.
func Parse(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "flat", "":
		return Flat, nil
	case "expert", "nested", "nestedexpert":
		return Expert, nil
	case "metadata", "rich", "metadatarich":
		return Metadata, nil
	}
	return "", fmt.Errorf("%w %q (want one of %s)", ErrUnknown, name, strings.Join(Names(), ", "))
}

// Lookup returns the definition of p.
func Lookup(p Profile) (Definition, error) {
	for _, d := range definitions {
		if d.Name == p {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w %q", ErrUnknown, string(p))
}
