// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/one-pager/internal/profile"
	"github.com/pdiddy/one-pager/pkg/types"
)

func TestStateBusy(t *testing.T) {
	tests := []struct {
		state State
		busy  bool
	}{
		{Idle, false},
		{Extracting, true},
		{Requesting, true},
		{Normalizing, true},
		{Done, false},
		{Failed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.busy, tt.state.Busy(), string(tt.state))
	}
}

func TestSessionTransitions(t *testing.T) {
	s := NewSession("x")
	require.NoError(t, s.SetDocument("a.pdf", []byte("pdf")))

	data, err := s.begin(profile.Flat)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), data)
	assert.Equal(t, Extracting, s.Snapshot().State)

	// Out-of-order transitions are rejected.
	assert.Error(t, s.received())
	_, err = s.finish(types.Result{})
	assert.Error(t, err)

	require.NoError(t, s.extracted(types.Document{Text: "t", Pages: 1}))
	assert.Equal(t, Requesting, s.Snapshot().State)
	require.NoError(t, s.received())
	assert.Equal(t, Normalizing, s.Snapshot().State)

	snap, err := s.finish(types.Result{Profile: "flat"})
	require.NoError(t, err)
	assert.Equal(t, Done, snap.State)
	assert.Equal(t, "flat", snap.Result.Profile)
	assert.Empty(t, snap.Document.Text)
}

func TestSessionFailOnlyFromBusy(t *testing.T) {
	s := NewSession("x")
	snap := s.fail(&types.Failure{Kind: types.FailureTransport})
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.Failure)

	_, err := s.begin(profile.Flat)
	require.NoError(t, err)
	snap = s.fail(&types.Failure{Kind: types.FailureExtraction, Message: "empty"})
	assert.Equal(t, Failed, snap.State)
	assert.Equal(t, types.FailureExtraction, snap.Failure.Kind)
	assert.Nil(t, snap.Result)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := r.Create()
	b := r.Create()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.True(t, r.Delete(a.ID()))
	assert.False(t, r.Delete(a.ID()))
	_, ok = r.Get(a.ID())
	assert.False(t, ok)
}

func TestRegistrySweep(t *testing.T) {
	r := NewRegistry()
	stale := r.Create()
	busy := r.Create()
	_, err := busy.begin(profile.Flat)
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	assert.Equal(t, 1, r.Sweep(later, time.Minute))
	_, ok := r.Get(stale.ID())
	assert.False(t, ok)
	_, ok = r.Get(busy.ID())
	assert.True(t, ok, "busy sessions are kept")
}
