package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/storylet/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun inserts a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run, err := s.CreateRun(context.Background(), Run{
		ID:            id,
		Seed:          42,
		ConfigDigest:  "config-digest",
		LibraryDigest: "library-digest",
		ScenarioName:  "test",
	})
	if err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	return run
}

func testSnapshot(tick int64) ir.Snapshot {
	return ir.Snapshot{
		Version: ir.SnapshotVersion,
		Seed:    42,
		Tick:    tick,
		Heat:    37.25,
		NextSeq: 9,
		Cooldowns: []ir.CooldownEntry{
			{Key: 2, LastFired: tick - 1},
			{Key: 7, LastFired: tick - 4},
		},
		Pressures: []ir.PressureEntry{
			{ID: "famine", Value: 0.1 + 0.2, CooldownRemaining: 0},
			{ID: "war", Value: 3, CooldownRemaining: 2},
		},
		Milestones: []ir.MilestoneEntry{
			{ID: "career", Stage: 1, Progress: 12.5},
		},
		Queue: []ir.QueuedEvent{
			{Key: 7, Source: ir.SourcePressure, ReadyTick: tick, Seq: 4, MaxWaitTicks: 10, Origin: "famine"},
			{Key: 3, Source: ir.SourcePlayer, ReadyTick: tick + 2, Seq: 8},
		},
	}
}
