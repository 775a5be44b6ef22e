package harness

import (
	"github.com/roach88/storylet/internal/director"
	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/world"
)

// host is the scripted simulation around the director: it owns the world
// and memory, applies scenario inputs and turns firings into effects.
type host struct {
	world    *world.State
	memory   *world.MemoryLog
	inputs   map[int64]TickInput
	outcomes map[string]Effect

	// Effects of the last firing reported on the next tick.
	progress []director.MilestoneProgress
	resolved []string
	schedule []director.ScheduleRequest
}

func newHost(s *Scenario) *host {
	w := world.NewState(s.World.LifeStage)
	for name, v := range s.World.Stats {
		w.SetStat(name, v)
	}
	for _, r := range s.World.Relationships {
		w.SetRelationship(r.Actor, r.Target, r.Axis, r.Value)
	}
	for _, tag := range s.World.Tags {
		w.AddTag(tag)
	}

	mem := world.NewMemoryLog()
	for _, f := range s.Memory {
		mem.Record(world.Fact{Tick: f.Tick, Actor: f.Actor, Target: f.Target, Tags: f.Tags})
	}

	inputs := make(map[int64]TickInput, len(s.Inputs))
	for _, in := range s.Inputs {
		inputs[in.Tick] = in
	}
	return &host{world: w, memory: mem, inputs: inputs, outcomes: s.Outcomes}
}

// input applies the scripted input for tick and builds the StepInput,
// carried effects first.
func (h *host) input(tick int64) director.StepInput {
	in := director.StepInput{
		Tick:     tick,
		World:    h.world,
		Memory:   h.memory,
		Progress: h.progress,
		Resolved: h.resolved,
		Schedule: h.schedule,
	}
	h.progress, h.resolved, h.schedule = nil, nil, nil

	script, ok := h.inputs[tick]
	if !ok {
		return in
	}
	if script.World != nil {
		h.edit(script.World)
	}
	for _, f := range script.Memory {
		h.memory.Record(world.Fact{Tick: f.Tick, Actor: f.Actor, Target: f.Target, Tags: f.Tags})
	}
	in.Progress = append(in.Progress, progressInputs(script.Progress)...)
	in.Resolved = append(in.Resolved, script.Resolve...)
	in.Schedule = append(in.Schedule, scheduleInputs(script.Schedule)...)
	return in
}

func (h *host) edit(e *WorldEdit) {
	if e.LifeStage != "" {
		h.world.SetLifeStage(e.LifeStage)
	}
	for name, v := range e.SetStats {
		h.world.SetStat(name, v)
	}
	for name, d := range e.AddStats {
		h.world.AddStat(name, d)
	}
	for _, r := range e.Relationships {
		h.world.SetRelationship(r.Actor, r.Target, r.Axis, r.Value)
	}
	for _, tag := range e.AddTags {
		h.world.AddTag(tag)
	}
	for _, tag := range e.RemoveTags {
		h.world.RemoveTag(tag)
	}
}

// apply runs the effect bound to the fired outcome. Unknown outcomes have
// no effect.
func (h *host) apply(f *ir.Firing, tick int64) {
	eff, ok := h.outcomes[f.Outcome]
	if !ok {
		return
	}
	for name, d := range eff.Stats {
		h.world.AddStat(name, d)
	}
	for _, r := range eff.Relationships {
		h.world.AddRelationship(r.Actor, r.Target, r.Axis, r.Value)
	}
	for _, tag := range eff.AddTags {
		h.world.AddTag(tag)
	}
	for _, tag := range eff.RemoveTags {
		h.world.RemoveTag(tag)
	}
	for _, fact := range eff.Memory {
		h.memory.Record(world.Fact{Tick: tick, Actor: fact.Actor, Target: fact.Target, Tags: fact.Tags})
	}
	h.progress = append(h.progress, progressInputs(eff.Progress)...)
	h.resolved = append(h.resolved, eff.Resolve...)
	h.schedule = append(h.schedule, scheduleInputs(eff.Schedule)...)
}

func progressInputs(ps []ProgressSpec) []director.MilestoneProgress {
	out := make([]director.MilestoneProgress, 0, len(ps))
	for _, p := range ps {
		out = append(out, director.MilestoneProgress{ID: p.Milestone, Delta: p.Delta})
	}
	return out
}

// scheduleInputs converts validated schedule specs.
func scheduleInputs(ss []ScheduleSpec) []director.ScheduleRequest {
	out := make([]director.ScheduleRequest, 0, len(ss))
	for _, sc := range ss {
		src, _ := scheduleSource(sc.Source)
		out = append(out, director.ScheduleRequest{
			Key:          sc.Key,
			Source:       src,
			Delay:        sc.Delay,
			MaxWaitTicks: sc.MaxWaitTicks,
			Origin:       sc.Origin,
		})
	}
	return out
}
