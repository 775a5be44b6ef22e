package compiler

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/library"
)

const festivalCUE = `
storylet: harvest_festival: {
	key:                12
	tags:               ["village", "celebration"]
	base_weight:        1.5
	heat_tier:          1
	heat_delta:         -5
	min_cooldown_ticks: 30
	outcome:            "festival.attend"
	requires: {
		life_stages: ["adult", "elder"]
		stats: [{stat: "wealth", op: ">=", value: 10}]
		relationships: [{actor: "player", target: "mayor", axis: "trust", min: 20}]
		memory: [{actor: "player", target: "mayor", required: ["helped"], forbidden: ["betrayed"], window_ticks: 100}]
		world: {required: ["autumn"], forbidden: ["war"]}
	}
}
`

func compileOne(t *testing.T, src, name string) (*library.Storylet, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileStorylet(v.LookupPath(cue.ParsePath("storylet." + name)))
}

func TestCompileStorylet_Full(t *testing.T) {
	s, err := compileOne(t, festivalCUE, "harvest_festival")
	require.NoError(t, err)

	assert.Equal(t, "harvest_festival", s.Name)
	assert.Equal(t, ir.StoryletKey(12), s.Key)
	assert.Equal(t, []string{"celebration", "village"}, s.Tags.Tags())
	assert.Equal(t, 1.5, s.BaseWeight)
	assert.Equal(t, 1, s.HeatTier)
	assert.Equal(t, -5.0, s.HeatDelta)
	assert.Equal(t, int64(30), s.MinCooldownTicks)
	assert.Equal(t, "festival.attend", s.Outcome)

	p := s.Prereqs
	assert.Equal(t, []string{"adult", "elder"}, p.LifeStages)
	require.Len(t, p.Stats, 1)
	assert.Equal(t, library.StatCondition{Stat: "wealth", Op: library.OpGE, Value: 10}, p.Stats[0])

	require.Len(t, p.Relationships, 1)
	rel := p.Relationships[0]
	assert.Equal(t, "trust", rel.Axis)
	assert.Equal(t, 20.0, rel.Min)
	assert.True(t, math.IsInf(rel.Max, 1), "missing max is unbounded")

	require.Len(t, p.Memory, 1)
	mem := p.Memory[0]
	assert.Equal(t, "mayor", mem.Target)
	assert.True(t, mem.Required.Has("helped"))
	assert.True(t, mem.Forbidden.Has("betrayed"))
	assert.Equal(t, int64(100), mem.WindowTicks)

	assert.True(t, p.WorldTags.Required.Has("autumn"))
	assert.True(t, p.WorldTags.Forbidden.Has("war"))
}

func TestCompileStorylet_Defaults(t *testing.T) {
	s, err := compileOne(t, `storylet: quiet: {key: 3, outcome: "rest"}`, "quiet")
	require.NoError(t, err)

	assert.Equal(t, 1.0, s.BaseWeight)
	assert.Equal(t, 0, s.HeatTier)
	assert.Zero(t, s.MinCooldownTicks)
	assert.Zero(t, s.Tags.Len())
	assert.True(t, s.Prereqs.WorldTags.Empty())
}

func TestCompileStorylet_Errors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantField string
	}{
		{"missing key", `storylet: x: {outcome: "o"}`, "key"},
		{"zero key", `storylet: x: {key: 0, outcome: "o"}`, "key"},
		{"missing outcome", `storylet: x: {key: 1}`, "outcome"},
		{"bad tags", `storylet: x: {key: 1, outcome: "o", tags: [1, 2]}`, "tags"},
		{"bad op", `storylet: x: {key: 1, outcome: "o", requires: stats: [{stat: "a", op: "=>", value: 1}]}`, "stats.op"},
		{"stat missing value", `storylet: x: {key: 1, outcome: "o", requires: stats: [{stat: "a", op: ">"}]}`, "value"},
		{"negative cooldown", `storylet: x: {key: 1, outcome: "o", min_cooldown_ticks: -1}`, "storylet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileOne(t, tt.src, "x")
			require.Error(t, err)
			require.True(t, IsCompileError(err), "got %T: %v", err, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantField, ce.Field)
		})
	}
}

func TestCompileLibrary(t *testing.T) {
	lib, err := CompileLibrary("lib.cue", festivalCUE+`
storylet: duel: {key: 4, outcome: "duel", tags: ["war"]}
`)
	require.NoError(t, err)
	assert.Equal(t, []ir.StoryletKey{4, 12}, lib.Keys())
}

func TestCompileLibrary_DuplicateKey(t *testing.T) {
	_, err := CompileLibrary("lib.cue", `
storylet: a: {key: 4, outcome: "a"}
storylet: b: {key: 4, outcome: "b"}
`)
	require.Error(t, err)
	assert.True(t, library.IsDefinitionError(err))
}

func TestLoadLibrary_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "festival.cue"), []byte("package library\n"+festivalCUE), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "duel.cue"), []byte(`package library

storylet: duel: {key: 4, outcome: "duel"}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not cue"), 0o644))

	lib, err := LoadLibrary(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, lib.Len())

	s, ok := lib.Lookup(4)
	require.True(t, ok)
	assert.Equal(t, "duel", s.Name)
}

func TestLoadStorylets_CollectsAllErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte(`package library

storylet: a: {key: 1}
storylet: b: {outcome: "b"}
storylet: c: {key: 3, outcome: "c"}
`), 0o644))

	result, errs := LoadStorylets(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	require.NotNil(t, result)
	assert.Len(t, result.Storylets, 1)
	assert.Equal(t, 1, result.FileCount)

	_, errs = LoadStorylets(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestLoadStorylets_MissingDir(t *testing.T) {
	_, errs := LoadStorylets(filepath.Join(t.TempDir(), "nope"), LoadModeCollectAll)
	require.Len(t, errs, 1)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoadStorylets_NoFiles(t *testing.T) {
	_, errs := LoadStorylets(t.TempDir(), LoadModeCollectAll)
	require.Len(t, errs, 1)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}
