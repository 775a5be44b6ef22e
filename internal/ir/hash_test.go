package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Version: SnapshotVersion,
		Seed:    42,
		Tick:    7,
		Heat:    35.5,
		NextSeq: 3,
		Cooldowns: []CooldownEntry{
			{Key: 4, LastFired: 5},
		},
		Pressures: []PressureEntry{
			{ID: "debt", Value: 2.25, CooldownRemaining: 0},
		},
		Milestones: []MilestoneEntry{
			{ID: "career", Stage: 1, Progress: 12},
		},
		Queue: []QueuedEvent{
			{Key: 9, Source: SourcePressure, ReadyTick: 8, Seq: 2, Origin: "debt"},
		},
	}
}

func TestSnapshotDigestDeterminism(t *testing.T) {
	d1, err := SnapshotDigest(sampleSnapshot())
	require.NoError(t, err)
	d2, err := SnapshotDigest(sampleSnapshot())
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")
}

func TestSnapshotDigestChangesWithState(t *testing.T) {
	base := MustSnapshotDigest(sampleSnapshot())

	mutations := map[string]func(*Snapshot){
		"heat":      func(s *Snapshot) { s.Heat = 35.50000000000001 },
		"tick":      func(s *Snapshot) { s.Tick++ },
		"cooldown":  func(s *Snapshot) { s.Cooldowns[0].LastFired++ },
		"pressure":  func(s *Snapshot) { s.Pressures[0].CooldownRemaining = 1 },
		"milestone": func(s *Snapshot) { s.Milestones[0].Stage = 2 },
		"queue":     func(s *Snapshot) { s.Queue[0].Source = SourceScheduled },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			s := sampleSnapshot()
			mutate(&s)
			assert.NotEqual(t, base, MustSnapshotDigest(s))
		})
	}
}

func TestResultDigestIgnoresDiagnosticMessages(t *testing.T) {
	r1 := StepResult{
		Tick: 3, Heat: 10,
		Fired:       &Firing{Key: 2, Outcome: "o", Source: SourceFresh, Score: 1.5},
		Diagnostics: []Diagnostic{{Code: DiagLookup, Key: 5, Message: "first wording"}},
	}
	r2 := r1
	r2.Diagnostics = []Diagnostic{{Code: DiagLookup, Key: 5, Message: "second wording"}}

	d1, err := ResultDigest(r1)
	require.NoError(t, err)
	d2, err := ResultDigest(r2)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	r2.Fired = nil
	d3, err := ResultDigest(r2)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestDigestDomainSeparation(t *testing.T) {
	v := IRObject{"a": IRInt(1)}
	d1, err := Digest(DomainConfig, v)
	require.NoError(t, err)
	d2, err := Digest(DomainLibrary, v)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}
