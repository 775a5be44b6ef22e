// Package testutil provides fixtures shared by package tests: a small
// director configuration, storylet builders and deterministic generators.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/storylet/internal/config"
	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/library"
	"github.com/roach88/storylet/internal/tagbits"
)

// Config returns a valid configuration with one pressure and one
// milestone, and jitter disabled so scores are exact:
//
//   - pressure "famine": +1 per tick, fires at 5, cooldown 3, tags [hunger]
//   - milestone "career": thresholds [10, 20, 30], tags [career]
//   - heat in [0, 100], initial and rest 20, no relaxation
func Config() *config.Config {
	cfg := &config.Config{
		Heat: config.HeatConfig{Min: 0, Max: 100, Initial: 20, Rest: 20, DecayPerTick: 0},
		Pressures: []config.PressureConfig{{
			ID:            "famine",
			GrowthPerTick: 1,
			DecayPerTick:  1,
			FireThreshold: 5,
			CooldownTicks: 3,
			LinkedTags:    []string{"hunger"},
		}},
		Milestones: []config.MilestoneConfig{{
			ID:         "career",
			Thresholds: []float64{10, 20, 30},
			LinkedTags: []string{"career"},
		}},
		Queue: config.QueueConfig{Capacity: 8},
		Scoring: config.ScoringConfig{
			Heat:          config.HeatAffinityConfig{Weight: 0, TierCenters: []float64{10, 50, 90}},
			Pressure:      config.CurveComponent{Weight: 0},
			Milestone:     config.CurveComponent{Weight: 0},
			Recency:       config.RecencyConfig{Weight: 0, HorizonTicks: 0},
			QueuePriority: config.QueuePriority{Scheduled: 1, Pressure: 2, Milestone: 3, Player: 4},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// StoryletOption customizes a storylet built by Storylet.
type StoryletOption func(*library.Storylet)

// Storylet builds a storylet with weight 1, tier 0 and no prerequisites.
func Storylet(key ir.StoryletKey, opts ...StoryletOption) library.Storylet {
	s := library.Storylet{
		Key:        key,
		Name:       "storylet_" + key.String(),
		BaseWeight: 1,
		Outcome:    "outcome/" + key.String(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Tags sets the storylet's domain tags.
func Tags(tags ...string) StoryletOption {
	return func(s *library.Storylet) { s.Tags = tagbits.NewSet(tags) }
}

// Weight sets the base weight.
func Weight(w float64) StoryletOption {
	return func(s *library.Storylet) { s.BaseWeight = w }
}

// Tier sets the heat tier.
func Tier(tier int) StoryletOption {
	return func(s *library.Storylet) { s.HeatTier = tier }
}

// HeatDelta sets the heat applied on firing.
func HeatDelta(d float64) StoryletOption {
	return func(s *library.Storylet) { s.HeatDelta = d }
}

// Cooldown sets min_cooldown_ticks.
func Cooldown(ticks int64) StoryletOption {
	return func(s *library.Storylet) { s.MinCooldownTicks = ticks }
}

// LifeStages restricts the storylet to life stages.
func LifeStages(stages ...string) StoryletOption {
	return func(s *library.Storylet) { s.Prereqs.LifeStages = stages }
}

// Stat adds a stat condition.
func Stat(stat string, op library.Op, v float64) StoryletOption {
	return func(s *library.Storylet) {
		s.Prereqs.Stats = append(s.Prereqs.Stats, library.StatCondition{Stat: stat, Op: op, Value: v})
	}
}

// Relationship adds a relationship band condition.
func Relationship(actor, target, axis string, lo, hi float64) StoryletOption {
	return func(s *library.Storylet) {
		s.Prereqs.Relationships = append(s.Prereqs.Relationships,
			library.RelationshipCondition{Actor: actor, Target: target, Axis: axis, Min: lo, Max: hi})
	}
}

// Memory adds a memory condition.
func Memory(actor, target string, required, forbidden []string, window int64) StoryletOption {
	return func(s *library.Storylet) {
		s.Prereqs.Memory = append(s.Prereqs.Memory, library.MemoryCondition{
			Actor:       actor,
			Target:      target,
			Required:    tagbits.NewSet(required),
			Forbidden:   tagbits.NewSet(forbidden),
			WindowTicks: window,
		})
	}
}

// WorldTags sets required and forbidden world tags.
func WorldTags(required, forbidden []string) StoryletOption {
	return func(s *library.Storylet) {
		s.Prereqs.WorldTags = library.TagCondition{
			Required:  tagbits.NewSet(required),
			Forbidden: tagbits.NewSet(forbidden),
		}
	}
}

// Library builds a library, failing the test on error.
func Library(t testing.TB, storylets ...library.Storylet) *library.Library {
	t.Helper()
	lib, err := library.New(storylets)
	require.NoError(t, err)
	return lib
}
