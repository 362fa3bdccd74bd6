package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	// Given: a fresh store
	s := openTemp(t)
	ctx := context.Background()
	started := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)

	// When: recording a partially failed run
	run := &Run{
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
		Backend:   "elasticsearch",
		Index:     "blog",
		Outcome:   "partially_failed",
		Selected:  4,
		Omitted:   1,
		Total:     3,
		Failed:    1,
		Failures: []Failure{
			{DocID: "broken", Title: "Broken", Reason: "failed to parse", CausedBy: "bad date"},
		},
	}
	id, err := s.Record(ctx, run)
	require.NoError(t, err)

	// Then: it is listed with its counts and failures
	assert.Equal(t, id, run.ID)
	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, id, got.ID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, "partially_failed", got.Outcome)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.Failed)
	assert.False(t, got.DryRun)
	assert.Nil(t, got.Failures)

	failures, err := s.Failures(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, run.Failures, failures)
}

func TestStore_RecentNewestFirstWithLimit(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for i, outcome := range []string{"all_succeeded", "fatal", "all_succeeded"} {
		_, err := s.Record(ctx, &Run{
			StartedAt: time.Unix(int64(i), 0),
			Backend:   "bleve",
			Index:     "blog",
			Outcome:   outcome,
			DryRun:    i == 2,
		})
		require.NoError(t, err)
	}

	runs, err := s.Recent(ctx, 2)

	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(3), runs[0].ID)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, "fatal", runs[1].Outcome)
}

func TestStore_Prune(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.Record(ctx, &Run{StartedAt: time.Now(), Backend: "bleve", Index: "blog", Outcome: "fatal",
			Failures: []Failure{{DocID: "x", Title: "X", Reason: "r"}}})
		require.NoError(t, err)
	}

	removed, err := s.Prune(ctx, 2)

	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	failures, err := s.Failures(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(ctx, &Run{StartedAt: time.Now(), Backend: "elasticsearch", Index: "blog", Outcome: "all_succeeded"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	runs, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_InMemory(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Record(context.Background(), &Run{StartedAt: time.Now(), Backend: "bleve", Index: "blog", Outcome: "all_succeeded"})

	assert.NoError(t, err)
}

func TestStore_ClosedRejectsCalls(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Record(context.Background(), &Run{})
	assert.Error(t, err)
	_, err = s.Recent(context.Background(), 1)
	assert.Error(t, err)
}
