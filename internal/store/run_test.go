package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storylet/internal/ir"
)

func TestCreateRun_AssignsSeqInOrder(t *testing.T) {
	s := createTestStore(t)

	a := createTestRun(t, s, "run-b")
	b := createTestRun(t, s, "run-a")
	assert.Equal(t, int64(1), a.Seq)
	assert.Equal(t, int64(2), b.Seq)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID, "creation order, not id order")
	assert.Equal(t, "run-a", runs[1].ID)
}

func TestCreateRun_RejectsDuplicateID(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "dup")

	_, err := s.CreateRun(context.Background(), Run{ID: "dup"})
	assert.Error(t, err)
}

func TestCreateRun_RejectsEmptyID(t *testing.T) {
	s := createTestStore(t)
	_, err := s.CreateRun(context.Background(), Run{})
	assert.ErrorContains(t, err, "empty id")
}

func TestGetRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := Run{
		ID:            "r1",
		Seed:          -7,
		ConfigDigest:  "c",
		LibraryDigest: "l",
		ScenarioName:  "famine",
		ScenarioPath:  "testdata/famine.yaml",
		Scenario:      "name: famine\n",
	}
	_, err := s.CreateRun(ctx, want)
	require.NoError(t, err)
	require.NoError(t, s.WriteStep(ctx, "r1", ir.StepResult{Tick: 1, Heat: 20}, "d1"))

	got, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	want.Seq = 1
	want.StepCount = 1
	assert.Equal(t, want, got)
}

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestLatestRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRun(ctx)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	createTestRun(t, s, "first")
	createTestRun(t, s, "second")
	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", run.ID)
}

func TestListRuns_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestWriteStep_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")

	second := ir.StepResult{
		Tick:       2,
		Heat:       0.1 + 0.2,
		Candidates: 3,
		Fired:      &ir.Firing{Key: 4, Outcome: "o/4", Source: ir.SourceMilestone, Score: 1.0 / 3},
	}
	first := ir.StepResult{
		Tick:    1,
		Heat:    20,
		Expired: []ir.StoryletKey{9},
		Diagnostics: []ir.Diagnostic{
			{Code: ir.DiagLookup, Message: "storylet 9 not found", Key: 9, Subject: "queue"},
		},
	}
	require.NoError(t, s.WriteStep(ctx, "r", second, "state-2"))
	require.NoError(t, s.WriteStep(ctx, "r", first, "state-1"))

	steps, err := s.ReadSteps(ctx, "r")
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, first, steps[0].Result, "ordered by tick")
	assert.Equal(t, second, steps[1].Result)
	assert.Equal(t, "state-1", steps[0].StateDigest)
	assert.Equal(t, ir.MustResultDigest(second), steps[1].ResultDigest)

	one, err := s.ReadStep(ctx, "r", 2)
	require.NoError(t, err)
	assert.Equal(t, second, one.Result)
}

func TestWriteStep_AppendOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")

	require.NoError(t, s.WriteStep(ctx, "r", ir.StepResult{Tick: 1}, "a"))
	assert.Error(t, s.WriteStep(ctx, "r", ir.StepResult{Tick: 1}, "b"))
}

func TestWriteStep_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteStep(context.Background(), "ghost", ir.StepResult{Tick: 1}, "a")
	assert.Error(t, err, "foreign key")
}

func TestReadStep_NotFound(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "r")
	_, err := s.ReadStep(context.Background(), "r", 5)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
