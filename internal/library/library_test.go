package library

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/tagbits"
)

func storylet(key ir.StoryletKey, weight float64, tags ...string) Storylet {
	return Storylet{
		Key:        key,
		Name:       "s" + key.String(),
		Tags:       tagbits.NewSet(tags),
		BaseWeight: weight,
		Outcome:    "outcome/" + key.String(),
	}
}

func TestNew_IndexesByKey(t *testing.T) {
	lib, err := New([]Storylet{storylet(7, 1), storylet(2, 1), storylet(5, 1)})
	require.NoError(t, err)

	assert.Equal(t, []ir.StoryletKey{2, 5, 7}, lib.Keys())
	assert.Equal(t, 3, lib.Len())

	s, ok := lib.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, "s5", s.Name)

	_, ok = lib.Lookup(6)
	assert.False(t, ok)
	assert.False(t, lib.Has(6))
}

func TestNew_RejectsDuplicateAndZeroKeys(t *testing.T) {
	_, err := New([]Storylet{storylet(1, 1), storylet(1, 2), storylet(0, 1)})
	require.Error(t, err)
	assert.True(t, IsDefinitionError(err))
	assert.Contains(t, err.Error(), "duplicate key 1")
	assert.Contains(t, err.Error(), "zero is not a valid key")
}

func TestCheck(t *testing.T) {
	lo, hi := Unbounded()

	tests := []struct {
		name    string
		mutate  func(*Storylet)
		wantErr string
	}{
		{"valid", func(*Storylet) {}, ""},
		{"nan weight", func(s *Storylet) { s.BaseWeight = math.NaN() }, "base_weight"},
		{"negative tier", func(s *Storylet) { s.HeatTier = -1 }, "heat_tier"},
		{"negative cooldown", func(s *Storylet) { s.MinCooldownTicks = -3 }, "min_cooldown_ticks"},
		{"bad op", func(s *Storylet) {
			s.Prereqs.Stats = []StatCondition{{Stat: "wealth", Op: "=>", Value: 1}}
		}, "unknown operator"},
		{"inverted band", func(s *Storylet) {
			s.Prereqs.Relationships = []RelationshipCondition{{Actor: "a", Target: "b", Axis: "trust", Min: 5, Max: 1}}
		}, "min 5 above max 1"},
		{"open band", func(s *Storylet) {
			s.Prereqs.Relationships = []RelationshipCondition{{Actor: "a", Target: "b", Axis: "trust", Min: lo, Max: hi}}
		}, ""},
		{"memory without tags", func(s *Storylet) {
			s.Prereqs.Memory = []MemoryCondition{{Actor: "a"}}
		}, "needs required or forbidden tags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storylet(1, 1)
			tt.mutate(&s)
			err := Check(&s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveTags_HighestWeightThenLowestKey(t *testing.T) {
	lib, err := New([]Storylet{
		storylet(9, 3, "war"),
		storylet(4, 3, "war", "famine"),
		storylet(2, 1, "war"),
		storylet(1, 10, "romance"),
	})
	require.NoError(t, err)

	key, ok := lib.ResolveTags(tagbits.NewSet([]string{"war"}))
	require.True(t, ok)
	assert.Equal(t, ir.StoryletKey(4), key, "weight 3 ties between 4 and 9; lower key wins")

	key, ok = lib.ResolveTags(tagbits.NewSet([]string{"romance", "famine"}))
	require.True(t, ok)
	assert.Equal(t, ir.StoryletKey(1), key)

	_, ok = lib.ResolveTags(tagbits.NewSet([]string{"plague"}))
	assert.False(t, ok)

	assert.Equal(t, []ir.StoryletKey{2, 4, 9}, lib.WithTag(tagbits.NewSet([]string{"war"})))
}

func TestStatCondition(t *testing.T) {
	tests := []struct {
		op   Op
		v    float64
		want bool
	}{
		{OpGE, 10, true},
		{OpGE, 9, false},
		{OpGT, 10, false},
		{OpLE, 10, true},
		{OpLT, 10, false},
		{OpEQ, 10, true},
		{OpNE, 10, false},
	}
	for _, tt := range tests {
		c := StatCondition{Stat: "wealth", Op: tt.op, Value: 10}
		assert.Equal(t, tt.want, c.Holds(tt.v), "%s with %g", c, tt.v)
	}
}

func TestTagCondition(t *testing.T) {
	cond := TagCondition{
		Required:  tagbits.NewSet([]string{"city"}),
		Forbidden: tagbits.NewSet([]string{"war"}),
	}
	assert.True(t, cond.HoldsFor(tagbits.NewSet([]string{"city", "winter"})))
	assert.False(t, cond.HoldsFor(tagbits.NewSet([]string{"winter"})))
	assert.False(t, cond.HoldsFor(tagbits.NewSet([]string{"city", "war"})))
	assert.True(t, TagCondition{}.Empty())
	assert.True(t, TagCondition{}.HoldsFor(tagbits.Set{}))
}

func TestMemoryCondition_Since(t *testing.T) {
	assert.Equal(t, int64(90), MemoryCondition{WindowTicks: 10}.Since(100))
	assert.Equal(t, int64(math.MinInt64), MemoryCondition{}.Since(100))
}

func TestDigest_OrderIndependent(t *testing.T) {
	a, err := New([]Storylet{storylet(1, 1, "a"), storylet(2, 2, "b")})
	require.NoError(t, err)
	b, err := New([]Storylet{storylet(2, 2, "b"), storylet(1, 1, "a")})
	require.NoError(t, err)

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)

	c, err := New([]Storylet{storylet(1, 1, "a"), storylet(2, 2.5, "b")})
	require.NoError(t, err)
	dc, err := c.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)
}

func TestMaxHeatTier(t *testing.T) {
	empty, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, -1, empty.MaxHeatTier())

	s := storylet(3, 1)
	s.HeatTier = 2
	lib, err := New([]Storylet{storylet(1, 1), s})
	require.NoError(t, err)
	assert.Equal(t, 2, lib.MaxHeatTier())
}
