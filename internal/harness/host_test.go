package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storylet/internal/director"
	"github.com/roach88/storylet/internal/ir"
)

func hostScenario() *Scenario {
	return &Scenario{
		Name:  "host",
		Ticks: 10,
		World: WorldSpec{
			LifeStage:     "adult",
			Stats:         map[string]float64{"wealth": 10},
			Relationships: []RelationSpec{{Actor: "player", Target: "mayor", Axis: "trust", Value: 5}},
			Tags:          []string{"autumn"},
		},
		Memory: []FactSpec{{Tick: 0, Actor: "player", Target: "mayor", Tags: []string{"met"}}},
		Inputs: []TickInput{
			{
				Tick:     2,
				Progress: []ProgressSpec{{Milestone: "career", Delta: 4}},
				Resolve:  []string{"famine"},
				Schedule: []ScheduleSpec{{Key: 7, Source: "player", Delay: 1, Origin: "letter"}},
				World: &WorldEdit{
					LifeStage:  "elder",
					SetStats:   map[string]float64{"health": 3},
					AddStats:   map[string]float64{"wealth": -4},
					AddTags:    []string{"winter"},
					RemoveTags: []string{"autumn"},
				},
				Memory: []FactSpec{{Tick: 2, Actor: "player", Target: "mayor", Tags: []string{"argued"}}},
			},
		},
		Outcomes: map[string]Effect{
			"gift": {
				Stats:         map[string]float64{"wealth": 2},
				Relationships: []RelationSpec{{Actor: "player", Target: "mayor", Axis: "trust", Value: 10}},
				AddTags:       []string{"generous"},
				Memory:        []FactSpec{{Tick: 99, Actor: "player", Target: "mayor", Tags: []string{"gifted"}}},
				Progress:      []ProgressSpec{{Milestone: "career", Delta: 1}},
				Resolve:       []string{"war"},
				Schedule:      []ScheduleSpec{{Key: 9, MaxWaitTicks: 3}},
			},
		},
	}
}

func TestHost_InitialWorld(t *testing.T) {
	h := newHost(hostScenario())

	assert.Equal(t, "adult", h.world.LifeStage())
	wealth, ok := h.world.Stat("wealth")
	require.True(t, ok)
	assert.Equal(t, 10.0, wealth)
	trust, ok := h.world.Relationship("player", "mayor", "trust")
	require.True(t, ok)
	assert.Equal(t, 5.0, trust)
	assert.True(t, h.world.Tags().Has("autumn"))
	assert.True(t, h.memory.Tags("player", "mayor", 0).Has("met"))
}

func TestHost_InputWithoutScript(t *testing.T) {
	h := newHost(hostScenario())

	in := h.input(1)
	assert.Equal(t, int64(1), in.Tick)
	assert.Same(t, h.world, in.World)
	assert.Same(t, h.memory, in.Memory)
	assert.Empty(t, in.Progress)
	assert.Empty(t, in.Resolved)
	assert.Empty(t, in.Schedule)
}

func TestHost_InputAppliesScript(t *testing.T) {
	h := newHost(hostScenario())

	in := h.input(2)
	assert.Equal(t, []director.MilestoneProgress{{ID: "career", Delta: 4}}, in.Progress)
	assert.Equal(t, []string{"famine"}, in.Resolved)
	assert.Equal(t, []director.ScheduleRequest{
		{Key: 7, Source: ir.SourcePlayer, Delay: 1, Origin: "letter"},
	}, in.Schedule)

	assert.Equal(t, "elder", h.world.LifeStage())
	health, _ := h.world.Stat("health")
	assert.Equal(t, 3.0, health)
	wealth, _ := h.world.Stat("wealth")
	assert.Equal(t, 6.0, wealth)
	assert.True(t, h.world.Tags().Has("winter"))
	assert.False(t, h.world.Tags().Has("autumn"))
	assert.True(t, h.memory.Tags("player", "mayor", 2).Has("argued"))
}

func TestHost_ApplyCarriesToNextTick(t *testing.T) {
	h := newHost(hostScenario())

	h.apply(&ir.Firing{Key: 3, Outcome: "gift"}, 4)

	wealth, _ := h.world.Stat("wealth")
	assert.Equal(t, 12.0, wealth)
	trust, _ := h.world.Relationship("player", "mayor", "trust")
	assert.Equal(t, 15.0, trust, "relationship effects are deltas")
	assert.True(t, h.world.Tags().Has("generous"))

	mem := h.memory.Tags("player", "mayor", 4)
	assert.True(t, mem.Has("gifted"), "memory facts are recorded at the firing tick")
	assert.False(t, h.memory.Tags("player", "mayor", 5).Has("gifted"))

	in := h.input(5)
	assert.Equal(t, []director.MilestoneProgress{{ID: "career", Delta: 1}}, in.Progress)
	assert.Equal(t, []string{"war"}, in.Resolved)
	assert.Equal(t, []director.ScheduleRequest{
		{Key: 9, Source: ir.SourceScheduled, MaxWaitTicks: 3},
	}, in.Schedule)

	next := h.input(6)
	assert.Empty(t, next.Progress, "carried effects are reported once")
	assert.Empty(t, next.Resolved)
	assert.Empty(t, next.Schedule)
}

func TestHost_CarriedEffectsPrecedeScript(t *testing.T) {
	h := newHost(hostScenario())

	h.apply(&ir.Firing{Key: 3, Outcome: "gift"}, 1)
	in := h.input(2)

	require.Len(t, in.Progress, 2)
	assert.Equal(t, 1.0, in.Progress[0].Delta)
	assert.Equal(t, 4.0, in.Progress[1].Delta)
	assert.Equal(t, []string{"war", "famine"}, in.Resolved)
	require.Len(t, in.Schedule, 2)
	assert.Equal(t, ir.StoryletKey(9), in.Schedule[0].Key)
	assert.Equal(t, ir.StoryletKey(7), in.Schedule[1].Key)
}

func TestHost_UnknownOutcomeHasNoEffect(t *testing.T) {
	h := newHost(hostScenario())

	h.apply(&ir.Firing{Key: 3, Outcome: "nothing.bound"}, 1)

	wealth, _ := h.world.Stat("wealth")
	assert.Equal(t, 10.0, wealth)
	in := h.input(3)
	assert.Empty(t, in.Progress)
	assert.Empty(t, in.Schedule)
}
