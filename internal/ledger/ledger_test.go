// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/one-pager/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(types.LedgerConfig{Path: filepath.Join(t.TempDir(), "state", "runs.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	runs := []types.Run{
		{ID: "r1", SessionID: "s1", Profile: "flat", Model: "llama3-70b-8192", Outcome: types.OutcomeDone,
			DocumentChars: 15000, Pages: 12, Sentinels: 1, StartedAt: base, Duration: 2300 * time.Millisecond},
		{ID: "r2", SessionID: "s1", Profile: "flat", Outcome: types.OutcomeFailed, FailureKind: types.FailureService,
			StatusCode: 429, DocumentChars: 15000, Pages: 12, StartedAt: base.Add(time.Minute), Duration: time.Second},
		{ID: "r3", SessionID: "s2", Profile: "expert", Outcome: types.OutcomeFailed, FailureKind: types.FailureExtraction,
			StartedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range runs {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record(%s): %v", r.ID, err)
		}
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d runs, want 2", len(got))
	}
	if got[0].ID != "r3" || got[1].ID != "r2" {
		t.Errorf("Recent order = %s, %s; want r3, r2", got[0].ID, got[1].ID)
	}
	if got[1].StatusCode != 429 || got[1].FailureKind != types.FailureService {
		t.Errorf("r2 = %+v, want service failure 429", got[1])
	}
	if !got[1].StartedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("r2 started_at = %v", got[1].StartedAt)
	}
	if got[1].Duration != time.Second {
		t.Errorf("r2 duration = %v, want 1s", got[1].Duration)
	}
}

func TestRecordDuplicateID(t *testing.T) {
	store := testStore(t)
	run := types.Run{ID: "dup", SessionID: "s", Profile: "flat", Outcome: types.OutcomeDone, StartedAt: time.Now()}
	if err := store.Record(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(context.Background(), run); err == nil {
		t.Error("expected error for duplicate run id")
	}
}

func TestSummary(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	now := time.Now()
	for i, r := range []types.Run{
		{Profile: "flat", Outcome: types.OutcomeDone},
		{Profile: "flat", Outcome: types.OutcomeDone},
		{Profile: "expert", Outcome: types.OutcomeFailed, FailureKind: types.FailureSchema},
		{Profile: "flat", Outcome: types.OutcomeFailed, FailureKind: types.FailureTransport},
		{Profile: "metadata", Outcome: types.OutcomeFailed, FailureKind: types.FailureSchema},
	} {
		r.ID = string(rune('a' + i))
		r.SessionID = "s"
		r.StartedAt = now
		if err := store.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := store.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 5 || sum.Done != 2 || sum.Failed != 3 {
		t.Errorf("summary totals = %d/%d/%d, want 5/2/3", sum.Total, sum.Done, sum.Failed)
	}
	if sum.ByFailure[types.FailureSchema] != 2 || sum.ByFailure[types.FailureTransport] != 1 {
		t.Errorf("by failure = %v", sum.ByFailure)
	}
	if sum.ByProfile["flat"] != 3 || sum.ByProfile["expert"] != 1 || sum.ByProfile["metadata"] != 1 {
		t.Errorf("by profile = %v", sum.ByProfile)
	}
}

func TestSummaryEmpty(t *testing.T) {
	sum, err := testStore(t).Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 0 || len(sum.ByFailure) != 0 {
		t.Errorf("empty ledger summary = %+v", sum)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(types.LedgerConfig{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(types.LedgerConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Record(context.Background(), types.Run{ID: "keep", SessionID: "s", Profile: "flat", Outcome: types.OutcomeDone, StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = Open(types.LedgerConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runs, err := store.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "keep" {
		t.Errorf("runs after reopen = %+v", runs)
	}
}
