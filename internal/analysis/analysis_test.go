// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/one-pager/internal/completion"
	"github.com/pdiddy/one-pager/internal/profile"
	"github.com/pdiddy/one-pager/internal/textextract"
	"github.com/pdiddy/one-pager/pkg/types"
)

type fakeExtractor struct {
	doc types.Document
	err error
}

func (f fakeExtractor) Extract(context.Context, []byte) (types.Document, error) {
	return f.doc, f.err
}

type fakeCompleter struct {
	content string
	err     error
	calls   int32
	started chan struct{}
	release chan struct{}
	lastReq types.CompletionRequest
	mu      sync.Mutex
}

func (f *fakeCompleter) Complete(_ context.Context, req types.CompletionRequest) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.content, f.err
}

type memRecorder struct {
	mu   sync.Mutex
	runs []types.Run
	err  error
}

func (m *memRecorder) Record(_ context.Context, run types.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return m.err
}

var paperDoc = types.Document{Text: "We ask a question.\n", Pages: 2, PagesWithText: 1, SourceChars: 19}

const fullFlat = `{"question":"Q","contribution":"C","methodology":"- a","findings":"1. x","limitations":"- none"}`

func newTestAnalyzer(ext textextract.Extractor, c Completer, rec Recorder) *Analyzer {
	return New(Options{Extractor: ext, Completer: c, Configured: true, Model: "test-model", Recorder: rec})
}

func uploaded(t *testing.T) *Session {
	t.Helper()
	s := NewSession("s1")
	require.NoError(t, s.SetDocument("paper.pdf", []byte("%PDF-1.7")))
	return s
}

func TestAnalyzeScenarios(t *testing.T) {
	tests := []struct {
		name        string
		extractor   fakeExtractor
		content     string
		compErr     error
		wantState   State
		wantKind    types.FailureKind
		wantStatus  int
		wantCalls   int32
		wantExcerpt string
	}{
		{
			name:      "empty-text PDF fails extraction without a request",
			extractor: fakeExtractor{err: textextract.ErrNoText},
			wantState: Failed, wantKind: types.FailureExtraction, wantCalls: 0,
		},
		{
			name:      "whitespace text fails extraction",
			extractor: fakeExtractor{doc: types.Document{Text: " \n "}},
			wantState: Failed, wantKind: types.FailureExtraction, wantCalls: 0,
		},
		{
			name:      "HTTP 429 is a service failure",
			extractor: fakeExtractor{doc: paperDoc},
			compErr:   &completion.ServiceError{StatusCode: 429, Body: `{"error":"rate limited"}`},
			wantState: Failed, wantKind: types.FailureService, wantStatus: 429, wantCalls: 1,
			wantExcerpt: "rate limited",
		},
		{
			name:      "network failure is a transport failure",
			extractor: fakeExtractor{doc: paperDoc},
			compErr:   &completion.TransportError{Err: errors.New("connection refused")},
			wantState: Failed, wantKind: types.FailureTransport, wantCalls: 1,
		},
		{
			name:      "fenced flat reply is done",
			extractor: fakeExtractor{doc: paperDoc},
			content:   "```json\n" + fullFlat + "\n```",
			wantState: Done, wantCalls: 1,
		},
		{
			name:      "partial flat reply is done",
			extractor: fakeExtractor{doc: paperDoc},
			content:   `{"question":"Q"}`,
			wantState: Done, wantCalls: 1,
		},
		{
			name:      "prose reply is a schema failure",
			extractor: fakeExtractor{doc: paperDoc},
			content:   "Here is a lovely summary of the paper.",
			wantState: Failed, wantKind: types.FailureSchema, wantCalls: 1,
			wantExcerpt: "lovely summary",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := &fakeCompleter{content: tt.content, err: tt.compErr}
			a := newTestAnalyzer(tt.extractor, comp, nil)
			s := uploaded(t)

			snap, err := a.Analyze(context.Background(), s, profile.Flat)
			require.NoError(t, err)

			assert.Equal(t, tt.wantState, snap.State)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&comp.calls))

			// Exactly one of result and failure.
			if tt.wantState == Done {
				require.NotNil(t, snap.Result)
				assert.Nil(t, snap.Failure)
				assert.Len(t, snap.Result.Sections.Fields, 5)
				q, _ := snap.Result.Get("question")
				assert.Equal(t, "Q", q.Text)
				return
			}
			assert.Nil(t, snap.Result)
			require.NotNil(t, snap.Failure)
			assert.Equal(t, tt.wantKind, snap.Failure.Kind)
			assert.Equal(t, tt.wantStatus, snap.Failure.StatusCode)
			if tt.wantStatus != 0 {
				assert.Contains(t, snap.Failure.Message, "429")
			}
			if tt.wantExcerpt != "" {
				assert.Contains(t, snap.Failure.RawExcerpt, tt.wantExcerpt)
			}
		})
	}
}

func TestAnalyzeSentinelsThroughPipeline(t *testing.T) {
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, &fakeCompleter{content: `{"question":"Q"}`}, nil)
	snap, err := a.Analyze(context.Background(), uploaded(t), profile.Flat)
	require.NoError(t, err)
	for _, key := range []string{"contribution", "methodology", "findings", "limitations"} {
		v, _ := snap.Result.Get(key)
		assert.Equal(t, types.SentinelNotFound, v.Text)
	}
}

func TestAnalyzeSendsDocumentVerbatim(t *testing.T) {
	comp := &fakeCompleter{content: fullFlat}
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, comp, nil)
	_, err := a.Analyze(context.Background(), uploaded(t), profile.Expert)
	require.NoError(t, err)

	comp.mu.Lock()
	defer comp.mu.Unlock()
	assert.Contains(t, comp.lastReq.User, paperDoc.Text)
	assert.True(t, comp.lastReq.JSONObject)
	assert.Equal(t, 0.3, comp.lastReq.Temperature)
}

func TestAnalyzeNotConfigured(t *testing.T) {
	comp := &fakeCompleter{content: fullFlat}
	a := New(Options{Extractor: fakeExtractor{doc: paperDoc}, Completer: comp, Configured: false})
	s := uploaded(t)

	_, err := a.Analyze(context.Background(), s, profile.Flat)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, a.Configured())
	assert.Equal(t, Idle, s.Snapshot().State)
	assert.Zero(t, atomic.LoadInt32(&comp.calls))
}

func TestAnalyzeUnknownProfile(t *testing.T) {
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, &fakeCompleter{}, nil)
	s := uploaded(t)
	_, err := a.Analyze(context.Background(), s, profile.Profile("haiku"))
	assert.ErrorIs(t, err, profile.ErrUnknown)
	assert.Equal(t, Idle, s.Snapshot().State)
}

func TestAnalyzeNoDocument(t *testing.T) {
	comp := &fakeCompleter{content: fullFlat}
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, comp, nil)
	snap, err := a.Analyze(context.Background(), NewSession("empty"), profile.Flat)
	require.NoError(t, err)
	assert.Equal(t, Failed, snap.State)
	assert.Equal(t, types.FailureExtraction, snap.Failure.Kind)
	assert.Zero(t, atomic.LoadInt32(&comp.calls))
}

func TestAnalyzeIgnoresTriggerWhileBusy(t *testing.T) {
	comp := &fakeCompleter{content: fullFlat, started: make(chan struct{}), release: make(chan struct{})}
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, comp, nil)
	s := uploaded(t)

	done := make(chan Snapshot)
	go func() {
		snap, _ := a.Analyze(context.Background(), s, profile.Flat)
		done <- snap
	}()
	<-comp.started

	assert.Equal(t, Requesting, s.Snapshot().State)
	_, err := a.Analyze(context.Background(), s, profile.Flat)
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.SetDocument("other.pdf", []byte("x")), ErrBusy)

	close(comp.release)
	snap := <-done
	assert.Equal(t, Done, snap.State)
	assert.Equal(t, int32(1), atomic.LoadInt32(&comp.calls), "no duplicate concurrent request")
}

func TestAnalyzeConcurrentTriggers(t *testing.T) {
	comp := &fakeCompleter{content: fullFlat, release: make(chan struct{})}
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, comp, nil)
	s := uploaded(t)

	var wg sync.WaitGroup
	var busy int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Analyze(context.Background(), s, profile.Flat); errors.Is(err, ErrBusy) {
				atomic.AddInt32(&busy, 1)
			}
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&busy) == 7 }, time.Second, time.Millisecond)
	close(comp.release)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&comp.calls))
}

func TestAnalyzeDiscardsPreviousResult(t *testing.T) {
	comp := &fakeCompleter{content: fullFlat}
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, comp, nil)
	s := uploaded(t)

	first, err := a.Analyze(context.Background(), s, profile.Flat)
	require.NoError(t, err)
	require.Equal(t, Done, first.State)

	comp.content = "not json"
	second, err := a.Analyze(context.Background(), s, profile.Flat)
	require.NoError(t, err)
	assert.Equal(t, Failed, second.State)
	assert.Nil(t, second.Result, "previous result is discarded")

	require.NoError(t, s.SetDocument("new.pdf", []byte("%PDF")))
	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.Failure)
	assert.Equal(t, "new.pdf", snap.Filename)
}

func TestAnalyzeRecordsRuns(t *testing.T) {
	rec := &memRecorder{}
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, &fakeCompleter{content: `{"question":"Q"}`}, rec)
	s := uploaded(t)
	_, err := a.Analyze(context.Background(), s, profile.Flat)
	require.NoError(t, err)

	a = newTestAnalyzer(fakeExtractor{doc: paperDoc}, &fakeCompleter{err: &completion.ServiceError{StatusCode: 500}}, rec)
	_, err = a.Analyze(context.Background(), s, profile.Flat)
	require.NoError(t, err)

	require.Len(t, rec.runs, 2)
	ok := rec.runs[0]
	assert.Equal(t, types.OutcomeDone, ok.Outcome)
	assert.Equal(t, "s1", ok.SessionID)
	assert.Equal(t, "flat", ok.Profile)
	assert.Equal(t, "test-model", ok.Model)
	assert.Equal(t, 4, ok.Sentinels)
	assert.Equal(t, paperDoc.Chars(), ok.DocumentChars)
	assert.Equal(t, 2, ok.Pages)
	assert.NotEmpty(t, ok.ID)

	failed := rec.runs[1]
	assert.Equal(t, types.OutcomeFailed, failed.Outcome)
	assert.Equal(t, types.FailureService, failed.FailureKind)
	assert.Equal(t, 500, failed.StatusCode)
}

func TestAnalyzeRecorderErrorDoesNotFail(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, &fakeCompleter{content: fullFlat}, rec)
	snap, err := a.Analyze(context.Background(), uploaded(t), profile.Flat)
	require.NoError(t, err)
	assert.Equal(t, Done, snap.State)
}

func TestAnalyzeIgnoresCallerCancellation(t *testing.T) {
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, &fakeCompleter{content: fullFlat}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap, err := a.Analyze(ctx, uploaded(t), profile.Flat)
	require.NoError(t, err)
	assert.Equal(t, Done, snap.State)
}

func TestDocument(t *testing.T) {
	a := newTestAnalyzer(fakeExtractor{doc: paperDoc}, &fakeCompleter{content: fullFlat}, nil)
	snap, err := a.Document(context.Background(), "paper.pdf", []byte("%PDF"), profile.Flat)
	require.NoError(t, err)
	assert.Equal(t, Done, snap.State)
	assert.Equal(t, "paper.pdf", snap.Filename)
	require.NotNil(t, snap.Document)
	assert.Empty(t, snap.Document.Text, "document text is not retained after the action")
	assert.Equal(t, 2, snap.Document.Pages)
}
