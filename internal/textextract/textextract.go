// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textextract turns PDF bytes into bounded plain text. Pages are read
// in document order; pages without extractable text are skipped. Faults in
// the PDF library are recovered and reported as errors.
package textextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/one-pager/pkg/types"
)

var (
	// ErrNoText is returned when no page yields extractable text, as with
	// scanned image-only documents.
	ErrNoText = errors.New("document has no extractable text")

	// ErrUnreadable wraps parse errors and recovered panics from the PDF
	// library.
	ErrUnreadable = errors.New("document could not be read")
)

// Extractor produces Document Text from raw upload bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (types.Document, error)
}

// pageReader is the subset of a parsed PDF the extractor needs.
type pageReader interface {
	NumPage() int
	PageText(i int) (string, error)
}

type ledongthucReader struct {
	r *pdf.Reader
}

func (l ledongthucReader) NumPage() int { return l.r.NumPage() }

func (l ledongthucReader) PageText(i int) (string, error) {
	page := l.r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// readPage returns the text of page i. A panic inside the PDF library while
// decoding one page is returned as an error so only that page is dropped.
func readPage(r pageReader, i int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: page %d: %v", ErrUnreadable, i, rec)
		}
	}()
	return r.PageText(i)
}

// openPDF parses data. Package-level var for test substitution.
var openPDF = func(data []byte) (pageReader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return ledongthucReader{r: r}, nil
}

// PDFExtractor extracts text with github.com/ledongthuc/pdf.
type PDFExtractor struct {
	// MaxChars is the character budget (default types.DefaultMaxChars).
	MaxChars int
	Logger   *slog.Logger
}

// New returns a PDFExtractor for cfg.
func New(cfg types.ExtractionConfig, logger *slog.Logger) *PDFExtractor {
	return &PDFExtractor{MaxChars: cfg.MaxChars, Logger: logger}
}

// Extract reads every page of data and returns the bounded concatenation.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (doc types.Document, err error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("extract.pdf.panic", "panic", fmt.Sprint(r))
			doc = types.Document{}
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	if len(data) == 0 {
		return types.Document{}, ErrNoText
	}

	r, err := openPDF(data)
	if err != nil {
		return types.Document{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return types.Document{}, err
		}
		text, err := readPage(r, i)
		if err != nil {
			logger.Warn("extract.pdf.page_skipped", "page", i, "error", err)
			continue
		}
		pages = append(pages, text)
	}

	doc = Assemble(pages, e.budget())
	doc.Pages = n
	if doc.PagesWithText == 0 {
		return types.Document{}, ErrNoText
	}

	logger.Debug("extract.pdf.done",
		"pages", doc.Pages,
		"pages_with_text", doc.PagesWithText,
		"source_chars", doc.SourceChars,
		"truncated", doc.Truncated,
	)
	return doc, nil
}

func (e *PDFExtractor) budget() int {
	if e.MaxChars <= 0 {
		return types.DefaultMaxChars
	}
	return e.MaxChars
}

// Assemble concatenates page texts in order, each followed by a newline, and
// cuts the result to at most budget characters. Pages with only whitespace
// are skipped. The cut is hard: no word-boundary adjustment.
func Assemble(pages []string, budget int) types.Document {
	var sb strings.Builder
	var doc types.Document
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		doc.PagesWithText++
		sb.WriteString(p)
		sb.WriteString("\n")
	}

	runes := []rune(sb.String())
	doc.SourceChars = len(runes)
	if budget > 0 && len(runes) > budget {
		runes = runes[:budget]
		doc.Truncated = true
	}
	doc.Text = string(runes)
	return doc
}
