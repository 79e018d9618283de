// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analysis sequences extraction, prompt building, completion and
// normalization for one session. Every analyze action ends in exactly one
// of Done or Failed; failures are classified at the stage that produced
// them.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/one-pager/internal/completion"
	"github.com/pdiddy/one-pager/internal/normalize"
	"github.com/pdiddy/one-pager/internal/profile"
	"github.com/pdiddy/one-pager/internal/prompt"
	"github.com/pdiddy/one-pager/internal/textextract"
	"github.com/pdiddy/one-pager/pkg/types"
)

// ErrNotConfigured is returned before any stage runs when the completion
// credential is missing.
var ErrNotConfigured = errors.New("completion API key is not configured; analysis is disabled")

// Completer sends one completion request.
type Completer interface {
	Complete(ctx context.Context, req types.CompletionRequest) (string, error)
}

// Recorder persists run metadata. Recording errors are logged, never
// surfaced to the session.
type Recorder interface {
	Record(ctx context.Context, run types.Run) error
}

// Options configures an Analyzer.
type Options struct {
	Extractor textextract.Extractor
	Completer Completer

	// Configured reports whether the completion credential is present.
	Configured bool

	// Model is recorded on each run.
	Model string

	// Recorder is optional.
	Recorder Recorder
	Logger   *slog.Logger
}

// Analyzer runs analyze actions.
type Analyzer struct {
	extractor  textextract.Extractor
	completer  Completer
	configured bool
	model      string
	recorder   Recorder
	logger     *slog.Logger
}

// New returns an Analyzer for opts.
func New(opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		extractor:  opts.Extractor,
		completer:  opts.Completer,
		configured: opts.Configured && opts.Completer != nil,
		model:      opts.Model,
		recorder:   opts.Recorder,
		logger:     logger,
	}
}

// Configured reports whether Analyze can run.
func (a *Analyzer) Configured() bool { return a.configured }

// Analyze runs one analyze action on s with profile p. It returns
// ErrNotConfigured, ErrBusy or profile.ErrUnknown without touching the
// session. Otherwise the returned snapshot is in Done or Failed. Once
// started, an action is not cancelled by ctx; the completion timeout bounds it.
func (a *Analyzer) Analyze(ctx context.Context, s *Session, p profile.Profile) (Snapshot, error) {
	ctx = context.WithoutCancel(ctx)
	if !a.configured {
		return Snapshot{}, ErrNotConfigured
	}
	if _, err := profile.Lookup(p); err != nil {
		return Snapshot{}, err
	}

	data, err := s.begin(p)
	if err != nil {
		a.logger.Info("analysis.trigger.ignored", "session_id", s.ID(), "reason", err)
		return s.Snapshot(), err
	}

	run := types.Run{
		ID:        uuid.New().String(),
		SessionID: s.ID(),
		Profile:   string(p),
		Model:     a.model,
		StartedAt: time.Now().UTC(),
	}
	logger := a.logger.With("run_id", run.ID, "session_id", s.ID(), "profile", string(p))
	logger.Info("analysis.request.start")

	snap, doc := a.run(ctx, s, p, data, logger)

	run.Duration = time.Since(run.StartedAt)
	run.DocumentChars = doc.Chars()
	run.Pages = doc.Pages
	if snap.Failure != nil {
		run.Outcome = types.OutcomeFailed
		run.FailureKind = snap.Failure.Kind
		run.StatusCode = snap.Failure.StatusCode
		logger.Warn("analysis.request.failed", "kind", snap.Failure.Kind, "error", snap.Failure.Message, "elapsed_ms", run.Duration.Milliseconds())
	} else if snap.Result != nil {
		run.Outcome = types.OutcomeDone
		run.Sentinels = snap.Result.Sections.SentinelCount()
		logger.Info("analysis.request.done", "sentinels", run.Sentinels, "elapsed_ms", run.Duration.Milliseconds())
	}
	a.record(ctx, run, logger)

	return snap, nil
}

func (a *Analyzer) run(ctx context.Context, s *Session, p profile.Profile, data []byte, logger *slog.Logger) (Snapshot, types.Document) {
	if len(data) == 0 {
		return s.fail(&types.Failure{Kind: types.FailureExtraction, Message: "no document uploaded"}), types.Document{}
	}

	doc, err := a.extractor.Extract(ctx, data)
	if err == nil && strings.TrimSpace(doc.Text) == "" {
		err = textextract.ErrNoText
	}
	if err != nil {
		return s.fail(&types.Failure{Kind: types.FailureExtraction, Message: err.Error()}), types.Document{}
	}
	logger.Debug("analysis.extracted", "pages", doc.Pages, "chars", doc.Chars(), "truncated", doc.Truncated)
	if err := s.extracted(doc); err != nil {
		return s.fail(&types.Failure{Kind: types.FailureExtraction, Message: err.Error()}), doc
	}

	req, err := prompt.Build(p, doc.Text)
	if err != nil {
		return s.fail(&types.Failure{Kind: types.FailureExtraction, Message: err.Error()}), doc
	}

	raw, err := a.completer.Complete(ctx, req)
	if err != nil {
		return s.fail(completionFailure(err)), doc
	}
	if err := s.received(); err != nil {
		return s.fail(&types.Failure{Kind: types.FailureTransport, Message: err.Error()}), doc
	}

	res, err := normalize.Normalize(p, raw)
	if err != nil {
		return s.fail(schemaFailure(err, raw)), doc
	}
	snap, err := s.finish(res)
	if err != nil {
		return s.fail(&types.Failure{Kind: types.FailureSchema, Message: err.Error()}), doc
	}
	return snap, doc
}

// Document runs an analyze action on a throwaway session holding data.
func (a *Analyzer) Document(ctx context.Context, filename string, data []byte, p profile.Profile) (Snapshot, error) {
	s := NewSession(uuid.New().String())
	if err := s.SetDocument(filename, data); err != nil {
		return Snapshot{}, err
	}
	return a.Analyze(ctx, s, p)
}

func completionFailure(err error) *types.Failure {
	var svc *completion.ServiceError
	if errors.As(err, &svc) {
		return &types.Failure{
			Kind:       types.FailureService,
			Message:    svc.Error(),
			StatusCode: svc.StatusCode,
			RawExcerpt: types.Excerpt(svc.Body, normalize.ExcerptChars),
		}
	}
	return &types.Failure{Kind: types.FailureTransport, Message: err.Error()}
}

func schemaFailure(err error, raw string) *types.Failure {
	f := &types.Failure{Kind: types.FailureSchema, Message: err.Error()}
	var se *normalize.SchemaError
	if errors.As(err, &se) {
		f.RawExcerpt = se.Excerpt
	} else {
		f.RawExcerpt = types.Excerpt(raw, normalize.ExcerptChars)
	}
	return f
}

func (a *Analyzer) record(ctx context.Context, run types.Run, logger *slog.Logger) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.Record(ctx, run); err != nil {
		logger.Warn("analysis.ledger.record_failed", "error", err)
	}
}
