// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pdiddy/one-pager/internal/profile"
	"github.com/pdiddy/one-pager/pkg/types"
)

// State is a step of the per-session analysis state machine.
type State string

const (
	Idle        State = "idle"
	Extracting  State = "extracting"
	Requesting  State = "requesting"
	Normalizing State = "normalizing"
	Done        State = "done"
	Failed      State = "failed"
)

// Busy reports whether an analyze action is in flight.
func (s State) Busy() bool {
	return s == Extracting || s == Requesting || s == Normalizing
}

// ErrBusy is returned when an analyze action or upload arrives while a
// previous action of the same session is still in flight.
var ErrBusy = errors.New("analysis already in progress")

// Session holds the state of one user session: the uploaded document bytes
// and at most one analysis outcome. Only the Analyzer drives transitions.
type Session struct {
	mu sync.Mutex

	id       string
	state    State
	filename string
	upload   []byte
	profile  profile.Profile
	document types.Document
	result   *types.Result
	failure  *types.Failure
	touched  time.Time
}

// NewSession returns an Idle session with the given id.
func NewSession(id string) *Session {
	return &Session{id: id, state: Idle, touched: time.Now()}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot is a consistent copy of a session's observable state.
type Snapshot struct {
	ID          string          `json:"id"`
	State       State           `json:"state"`
	Filename    string          `json:"filename,omitempty"`
	HasDocument bool            `json:"has_document"`
	Profile     profile.Profile `json:"profile,omitempty"`
	Document    *types.Document `json:"document,omitempty"`
	Result      *types.Result   `json:"result,omitempty"`
	Failure     *types.Failure  `json:"failure,omitempty"`
}

// Snapshot returns a copy of the current state. Document text is omitted.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		State:       s.state,
		Filename:    s.filename,
		HasDocument: len(s.upload) > 0,
		Profile:     s.profile,
		Result:      s.result,
		Failure:     s.failure,
	}
	if s.state != Idle && s.state != Extracting {
		doc := s.document
		doc.Text = ""
		snap.Document = &doc
	}
	return snap
}

// SetDocument stores an upload and resets the session to Idle, discarding
// any previous outcome. It does not analyze.
func (s *Session) SetDocument(filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy() {
		return ErrBusy
	}
	s.filename = filename
	s.upload = data
	s.resetLocked()
	return nil
}

// idle returns time since the last transition or upload.
func (s *Session) idle(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy() {
		return 0
	}
	return now.Sub(s.touched)
}

func (s *Session) resetLocked() {
	s.state = Idle
	s.profile = ""
	s.document = types.Document{}
	s.result = nil
	s.failure = nil
	s.touched = time.Now()
}

// begin moves Idle, Done or Failed to Extracting, discarding the previous
// outcome, and returns the upload bytes.
func (s *Session) begin(p profile.Profile) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy() {
		return nil, ErrBusy
	}
	s.resetLocked()
	s.profile = p
	s.state = Extracting
	return s.upload, nil
}

func (s *Session) transition(from, to State) error {
	if s.state != from {
		return fmt.Errorf("invalid transition %s -> %s from state %s", from, to, s.state)
	}
	s.state = to
	s.touched = time.Now()
	return nil
}

func (s *Session) extracted(doc types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(Extracting, Requesting); err != nil {
		return err
	}
	s.document = doc
	return nil
}

func (s *Session) received() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(Requesting, Normalizing)
}

func (s *Session) finish(res types.Result) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(Normalizing, Done); err != nil {
		return Snapshot{}, err
	}
	s.result = &res
	s.document.Text = ""
	return s.snapshotLocked(), nil
}

// fail moves any busy state to Failed.
func (s *Session) fail(f *types.Failure) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy() {
		s.state = Failed
		s.failure = f
		s.document.Text = ""
		s.touched = time.Now()
	}
	return s.snapshotLocked()
}
