// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textextract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/one-pager/pkg/types"
)

type fakeReader struct {
	pages []string
	errs   map[int]error
	panics map[int]bool
}

func (f fakeReader) NumPage() int { return len(f.pages) }

func (f fakeReader) PageText(i int) (string, error) {
	if f.panics[i] {
		panic("malformed content stream")
	}
	if err := f.errs[i]; err != nil {
		return "", err
	}
	return f.pages[i-1], nil
}

func withReader(t *testing.T, r pageReader, openErr error) {
	t.Helper()
	orig := openPDF
	openPDF = func([]byte) (pageReader, error) {
		if openErr != nil {
			return nil, openErr
		}
		return r, nil
	}
	t.Cleanup(func() { openPDF = orig })
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name          string
		pages         []string
		budget        int
		wantText      string
		wantPages     int
		wantTruncated bool
	}{
		{"joins pages with newline", []string{"one", "two"}, 100, "one\ntwo\n", 2, false},
		{"skips blank pages", []string{"one", "  \n", "", "three"}, 100, "one\nthree\n", 2, false},
		{"hard cut at budget", []string{"abcdef", "ghij"}, 8, "abcdef\ng", 2, true},
		{"exact budget not truncated", []string{"abc"}, 4, "abc\n", 1, false},
		{"no pages", nil, 10, "", 0, false},
		{"cuts on rune boundaries", []string{"héllo wörld"}, 5, "héllo", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Assemble(tt.pages, tt.budget)
			assert.Equal(t, tt.wantText, doc.Text)
			assert.Equal(t, tt.wantPages, doc.PagesWithText)
			assert.Equal(t, tt.wantTruncated, doc.Truncated)
			assert.True(t, utf8.ValidString(doc.Text))
		})
	}
}

func TestAssembleBound(t *testing.T) {
	pages := []string{strings.Repeat("x", 9000), strings.Repeat("y", 9000)}
	for _, budget := range []int{1, 100, 15000, 18002, 50000} {
		doc := Assemble(pages, budget)
		assert.LessOrEqual(t, doc.Chars(), budget)
		if doc.SourceChars <= budget {
			assert.Equal(t, strings.Join(pages, "\n")+"\n", doc.Text, "short input is kept whole")
		}
	}
}

func TestExtract(t *testing.T) {
	withReader(t, fakeReader{pages: []string{"Abstract", "", "Results"}}, nil)

	e := New(types.ExtractionConfig{MaxChars: 12}, nil)
	doc, err := e.Extract(context.Background(), []byte("%PDF-fake"))
	require.NoError(t, err)
	assert.Equal(t, "Abstract\nRes", doc.Text)
	assert.Equal(t, 3, doc.Pages)
	assert.Equal(t, 2, doc.PagesWithText)
	assert.Equal(t, 17, doc.SourceChars)
	assert.True(t, doc.Truncated)
}

func TestExtractSkipsFailingPages(t *testing.T) {
	withReader(t, fakeReader{
		pages: []string{"first", "broken", "third"},
		errs:  map[int]error{2: errors.New("bad font")},
	}, nil)

	doc, err := New(types.ExtractionConfig{}, nil).Extract(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "first\nthird\n", doc.Text)
}

func TestExtractSkipsPanickingPage(t *testing.T) {
	withReader(t, fakeReader{
		pages:  []string{"first", "garbled", "third"},
		panics: map[int]bool{2: true},
	}, nil)

	doc, err := New(types.ExtractionConfig{}, nil).Extract(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "first\nthird\n", doc.Text)
	assert.Equal(t, 3, doc.Pages)
	assert.Equal(t, 2, doc.PagesWithText)
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name    string
		reader  pageReader
		openErr error
		data    []byte
		wantErr error
	}{
		{"empty upload", fakeReader{}, nil, nil, ErrNoText},
		{"image-only pages", fakeReader{pages: []string{"", " ", "\n"}}, nil, []byte("x"), ErrNoText},
		{"parse error", nil, errors.New("not a PDF file"), []byte("x"), ErrUnreadable},
		{"every page panics", fakeReader{pages: []string{"a", "b"}, panics: map[int]bool{1: true, 2: true}}, nil, []byte("x"), ErrNoText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withReader(t, tt.reader, tt.openErr)
			doc, err := New(types.ExtractionConfig{}, nil).Extract(context.Background(), tt.data)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, doc.Text)
		})
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := New(types.ExtractionConfig{}, nil).Extract(context.Background(), []byte("this is not a pdf"))
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestExtractCancelled(t *testing.T) {
	withReader(t, fakeReader{pages: []string{"a"}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(types.ExtractionConfig{}, nil).Extract(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
