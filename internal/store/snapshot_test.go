package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storylet/internal/ir"
)

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")

	snap := testSnapshot(10)
	require.NoError(t, s.WriteSnapshot(ctx, "r", snap))

	got, err := s.ReadSnapshot(ctx, "r", 10)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Equal(t, ir.MustSnapshotDigest(snap), ir.MustSnapshotDigest(got))
}

func TestWriteSnapshot_PreservesFloatBits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")

	snap := testSnapshot(3)
	snap.Heat = math.Copysign(0, -1)
	snap.Pressures[0].Value = math.SmallestNonzeroFloat64
	require.NoError(t, s.WriteSnapshot(ctx, "r", snap))

	got, err := s.ReadSnapshot(ctx, "r", 3)
	require.NoError(t, err)
	assert.True(t, math.Signbit(got.Heat), "negative zero survives")
	assert.Equal(t, math.SmallestNonzeroFloat64, got.Pressures[0].Value)
}

func TestWriteSnapshot_ReplacesSameTick(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")

	require.NoError(t, s.WriteSnapshot(ctx, "r", testSnapshot(5)))

	smaller := testSnapshot(5)
	smaller.Queue = smaller.Queue[:1]
	smaller.Cooldowns = nil
	require.NoError(t, s.WriteSnapshot(ctx, "r", smaller))

	got, err := s.ReadSnapshot(ctx, "r", 5)
	require.NoError(t, err)
	assert.Len(t, got.Queue, 1)
	assert.Empty(t, got.Cooldowns)
	assert.Equal(t, ir.MustSnapshotDigest(smaller), ir.MustSnapshotDigest(got))
}

func TestWriteSnapshot_AtomicOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")

	bad := testSnapshot(4)
	bad.Queue = append(bad.Queue, bad.Queue[0]) // duplicate seq violates the primary key
	require.Error(t, s.WriteSnapshot(ctx, "r", bad))

	_, err := s.ReadSnapshot(ctx, "r", 4)
	assert.True(t, errors.Is(err, sql.ErrNoRows), "no partial snapshot left behind")

	var rows int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM snapshot_cooldowns`).Scan(&rows))
	assert.Zero(t, rows)
}

func TestReadSnapshot_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")
	require.NoError(t, s.WriteSnapshot(ctx, "r", testSnapshot(2)))

	_, err := s.db.Exec(`UPDATE snapshot_milestones SET stage = 2`)
	require.NoError(t, err)

	_, err = s.ReadSnapshot(ctx, "r", 2)
	assert.ErrorContains(t, err, "digest mismatch")
}

func TestLatestSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")

	_, err := s.LatestSnapshot(ctx, "r")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	for _, tick := range []int64{10, 30, 20} {
		require.NoError(t, s.WriteSnapshot(ctx, "r", testSnapshot(tick)))
	}
	got, err := s.LatestSnapshot(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, int64(30), got.Tick)

	ticks, err := s.SnapshotTicks(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, ticks)
}

func TestSnapshots_ScopedByRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "a")
	createTestRun(t, s, "b")

	sa := testSnapshot(1)
	sb := testSnapshot(1)
	sb.Seed = 99
	require.NoError(t, s.WriteSnapshot(ctx, "a", sa))
	require.NoError(t, s.WriteSnapshot(ctx, "b", sb))

	got, err := s.ReadSnapshot(ctx, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Seed)
	assert.Len(t, got.Queue, 2)
}
