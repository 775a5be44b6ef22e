package director

import (
	"slices"

	"github.com/roach88/storylet/internal/library"
	"github.com/roach88/storylet/internal/tagbits"
	"github.com/roach88/storylet/internal/world"
)

// evalContext is the read-only input to one eligibility pass.
type evalContext struct {
	tick   int64
	state  *State
	world  world.View
	memory world.Memory
	wtags  tagbits.Set // world.Tags(), fetched once

	// Memory lookups repeat across storylets sharing a condition; answers
	// are stable within a tick.
	memo map[memoKey]tagbits.Set
}

type memoKey struct {
	actor  string
	target string
	since  int64
}

func newEvalContext(tick int64, st *State, view world.View, mem world.Memory) *evalContext {
	return &evalContext{
		tick:   tick,
		state:  st,
		world:  view,
		memory: mem,
		wtags:  view.Tags(),
		memo:   make(map[memoKey]tagbits.Set),
	}
}

func (c *evalContext) memoryTags(actor, target string, since int64) tagbits.Set {
	k := memoKey{actor: actor, target: target, since: since}
	if tags, ok := c.memo[k]; ok {
		return tags
	}
	tags := c.memory.Tags(actor, target, since)
	c.memo[k] = tags
	return tags
}

// coolingDown reports whether s fired less than min_cooldown_ticks ago.
func coolingDown(st *State, s *library.Storylet, tick int64) bool {
	last, ok := st.cooldowns[s.Key]
	return ok && tick-last < s.MinCooldownTicks
}

// eligible evaluates every prerequisite of s. Checks run cheapest first;
// the outcome does not depend on their order.
func (c *evalContext) eligible(s *library.Storylet) bool {
	if coolingDown(c.state, s, c.tick) {
		return false
	}
	p := &s.Prereqs

	if len(p.LifeStages) > 0 && !slices.Contains(p.LifeStages, c.world.LifeStage()) {
		return false
	}
	for _, cond := range p.Stats {
		v, ok := c.world.Stat(cond.Stat)
		if !ok || !cond.Holds(v) {
			return false
		}
	}
	if !p.WorldTags.Empty() && !p.WorldTags.HoldsFor(c.wtags) {
		return false
	}
	for _, cond := range p.Relationships {
		v, ok := c.world.Relationship(cond.Actor, cond.Target, cond.Axis)
		if !ok || !cond.Holds(v) {
			return false
		}
	}
	for _, cond := range p.Memory {
		have := c.memoryTags(cond.Actor, cond.Target, cond.Since(c.tick))
		if !have.ContainsAll(cond.Required) || have.Intersects(cond.Forbidden) {
			return false
		}
	}
	return true
}

// emptyView stands in when the host supplies no world.
type emptyView struct{}

func (emptyView) LifeStage() string                           { return "" }
func (emptyView) Stat(string) (float64, bool)                 { return 0, false }
func (emptyView) Relationship(_, _, _ string) (float64, bool) { return 0, false }
func (emptyView) Tags() tagbits.Set                           { return tagbits.Set{} }
