package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storylet/internal/ir"
)

const villageScenario = "testdata/scenarios/village_year.yaml"

const minimalYAML = `
name: minimal
description: "one tick"
library: lib
ticks: 1
assertions:
  - { type: final_queue_len, count: 0 }
`

func TestLoadScenario_Village(t *testing.T) {
	s, err := LoadScenario(villageScenario)
	require.NoError(t, err)

	assert.Equal(t, "village_year", s.Name)
	assert.Equal(t, int64(11), s.Seed)
	assert.Equal(t, int64(16), s.Ticks)
	assert.Equal(t, int64(5), s.SnapshotEvery)
	assert.Equal(t, villageScenario, s.Path())
	assert.Equal(t, filepath.Join("testdata", "library"), s.LibraryPath())
	assert.Equal(t, filepath.Join("testdata", "director.yaml"), s.ConfigPath())

	assert.Equal(t, "adult", s.World.LifeStage)
	assert.Equal(t, []string{"autumn"}, s.World.Tags)
	require.Len(t, s.Inputs, 5)
	assert.Equal(t, ir.StoryletKey(4), s.Inputs[1].Schedule[0].Key)
	assert.Equal(t, "player", s.Inputs[1].Schedule[0].Source)
	assert.Contains(t, s.Outcomes, "career.promotion")
	assert.Len(t, s.Assertions, 14)
	assert.NotEmpty(t, s.Source())
}

func TestParseScenario_DefaultsAndPaths(t *testing.T) {
	s, err := ParseScenario([]byte(minimalYAML), "/scenarios")
	require.NoError(t, err)

	assert.Equal(t, "/scenarios", s.Dir())
	assert.Equal(t, filepath.Join("/scenarios", "lib"), s.LibraryPath())
	assert.Empty(t, s.ConfigPath(), "no config means the default configuration")
	assert.Empty(t, s.Path())
	assert.Equal(t, []byte(minimalYAML), s.Source())
}

func TestParseScenario_AbsoluteLibraryKept(t *testing.T) {
	data := []byte(`
name: abs
description: "absolute library"
library: /opt/library
ticks: 1
assertions: [{ type: final_queue_len }]
`)
	s, err := ParseScenario(data, "/scenarios")
	require.NoError(t, err)
	assert.Equal(t, "/opt/library", s.LibraryPath())
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	data := []byte(`
name: typo
description: "misspelled assertions"
library: lib
ticks: 1
assertion:
  - { type: final_queue_len }
`)
	_, err := ParseScenario(data, ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `{description: d, library: lib, ticks: 1, assertions: [{type: final_queue_len}]}`,
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: `{name: n, library: lib, ticks: 1, assertions: [{type: final_queue_len}]}`,
			want: "description is required",
		},
		{
			name: "missing library",
			yaml: `{name: n, description: d, ticks: 1, assertions: [{type: final_queue_len}]}`,
			want: "library is required",
		},
		{
			name: "zero ticks",
			yaml: `{name: n, description: d, library: lib, assertions: [{type: final_queue_len}]}`,
			want: "ticks must be positive",
		},
		{
			name: "negative snapshot_every",
			yaml: `{name: n, description: d, library: lib, ticks: 1, snapshot_every: -1, assertions: [{type: final_queue_len}]}`,
			want: "snapshot_every must be non-negative",
		},
		{
			name: "no assertions",
			yaml: `{name: n, description: d, library: lib, ticks: 1}`,
			want: "assertions list is required",
		},
		{
			name: "input tick out of range",
			yaml: `{name: n, description: d, library: lib, ticks: 3, inputs: [{tick: 4}], assertions: [{type: final_queue_len}]}`,
			want: "inputs[0]: tick 4 outside 1..3",
		},
		{
			name: "duplicate input tick",
			yaml: `{name: n, description: d, library: lib, ticks: 3, inputs: [{tick: 2}, {tick: 2}], assertions: [{type: final_queue_len}]}`,
			want: "inputs[1]: duplicate tick 2",
		},
		{
			name: "schedule without key",
			yaml: `{name: n, description: d, library: lib, ticks: 3, inputs: [{tick: 1, schedule: [{delay: 1}]}], assertions: [{type: final_queue_len}]}`,
			want: "inputs[0].schedule[0]: key is required",
		},
		{
			name: "schedule with pressure source",
			yaml: `{name: n, description: d, library: lib, ticks: 3, inputs: [{tick: 1, schedule: [{key: 1, source: pressure}]}], assertions: [{type: final_queue_len}]}`,
			want: "source must be scheduled or player",
		},
		{
			name: "outcome schedule with negative delay",
			yaml: `{name: n, description: d, library: lib, ticks: 3, outcomes: {x: {schedule: [{key: 1, delay: -1}]}}, assertions: [{type: final_queue_len}]}`,
			want: `outcomes["x"].schedule[0]: delay must be non-negative`,
		},
		{
			name: "assertion without type",
			yaml: `{name: n, description: d, library: lib, ticks: 1, assertions: [{key: 1}]}`,
			want: "assertions[0]: type is required",
		},
		{
			name: "unknown assertion type",
			yaml: `{name: n, description: d, library: lib, ticks: 1, assertions: [{type: fired_sometime}]}`,
			want: `unknown assertion type "fired_sometime"`,
		},
		{
			name: "fired_at without tick",
			yaml: `{name: n, description: d, library: lib, ticks: 1, assertions: [{type: fired_at, key: 1}]}`,
			want: "key and tick are required for fired_at",
		},
		{
			name: "no_fire_at without tick",
			yaml: `{name: n, description: d, library: lib, ticks: 1, assertions: [{type: no_fire_at}]}`,
			want: "tick is required for no_fire_at",
		},
		{
			name: "fire_count without key",
			yaml: `{name: n, description: d, library: lib, ticks: 1, assertions: [{type: fire_count, count: 2}]}`,
			want: "key is required for fire_count",
		},
		{
			name: "expired without key",
			yaml: `{name: n, description: d, library: lib, ticks: 1, assertions: [{type: expired}]}`,
			want: "key is required for expired",
		},
		{
			name: "heat range inverted",
			yaml: `{name: n, description: d, library: lib, ticks: 1, assertions: [{type: heat_between, min: 50, max: 10}]}`,
			want: "min 50 above max 10",
		},
		{
			name: "negative queue length",
			yaml: `{name: n, description: d, library: lib, ticks: 1, assertions: [{type: final_queue_len, count: -1}]}`,
			want: "count must be non-negative for final_queue_len",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), ".")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestScheduleSource(t *testing.T) {
	for name, want := range map[string]ir.Source{
		"":          ir.SourceScheduled,
		"scheduled": ir.SourceScheduled,
		"player":    ir.SourcePlayer,
	} {
		got, err := scheduleSource(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := scheduleSource("milestone")
	assert.Error(t, err)
}
