package runstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-screener/internal/brain"
	"github.com/wonny/aegis-screener/pkg/redis"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestRecord_Lifecycle(t *testing.T) {
	rec := NewRecord("r1", "api", brain.Request{Criteria: "value"}, t0)
	assert.Equal(t, StatusQueued, rec.Status)
	assert.False(t, rec.Status.Terminal())

	rec.MarkRunning(t0.Add(time.Second))
	assert.Equal(t, StatusRunning, rec.Status)
	require.NotNil(t, rec.StartedAt)

	rec.Finish(&brain.RunResult{RunID: "r1"}, nil, t0.Add(2*time.Second))
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.True(t, rec.Status.Terminal())
	assert.Empty(t, rec.Error)

	failed := NewRecord("r2", "api", brain.Request{}, t0)
	failed.Finish(&brain.RunResult{RunID: "r2"}, errors.New("S2 no candidates"), t0)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "S2 no candidates", failed.Error)
	assert.NotNil(t, failed.Result, "partial result is kept")
}

func TestMemoryStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	rec := NewRecord("r1", "api", brain.Request{Strategies: []string{"buffett"}}, t0)
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"buffett"}, got.Request.Strategies)

	// stored value is a copy
	got.Status = StatusFailed
	again, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, again.Status)

	rec.MarkRunning(t0)
	require.NoError(t, s.Save(ctx, rec))
	again, err = s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, again.Status)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	for i := 0; i < 5; i++ {
		rec := NewRecord(fmt.Sprintf("r%d", i), "schedule", brain.Request{}, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.Save(ctx, rec))
	}

	recs, err := s.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "r4", recs[0].ID)
	assert.Equal(t, "r3", recs[1].ID)
	assert.Equal(t, "r2", recs[2].ID)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestMemoryStore_Evicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	for i := 0; i < 4; i++ {
		rec := NewRecord(fmt.Sprintf("r%d", i), "api", brain.Request{}, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.Save(ctx, rec))
	}

	_, err := s.Get(ctx, "r0")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "r3")
	assert.NoError(t, err)

	recs, err := s.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestRedisStore_Disabled(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(redis.Wrap(nil), "test")

	require.NoError(t, s.Save(ctx, NewRecord("r1", "api", brain.Request{}, t0)))

	_, err := s.Get(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)

	recs, err := s.List(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
