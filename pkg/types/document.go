// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Document is the bounded plain-text extraction of one uploaded PDF.
// It is produced once per upload and never persisted.
type Document struct {
	// Text is the concatenated page text, cut to the configured character budget.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Pages is the number of pages the PDF declares.
	Pages int `json:"pages" yaml:"pages"`

	// PagesWithText counts pages that yielded extractable text.
	PagesWithText int `json:"pages_with_text" yaml:"pages_with_text"`

	// SourceChars is the character count of the concatenation before truncation.
	SourceChars int `json:"source_chars" yaml:"source_chars"`

	// Truncated reports whether the budget cut anything off.
	Truncated bool `json:"truncated" yaml:"truncated"`
}

// Chars returns the character (rune) length of the document text.
func (d Document) Chars() int {
	return len([]rune(d.Text))
}
