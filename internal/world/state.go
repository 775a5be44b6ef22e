package world

import (
	"maps"
	"slices"

	"github.com/roach88/storylet/internal/tagbits"
)

// State is a mutable in-memory world. It satisfies View; mutators are for
// hosts applying outcomes between ticks.
type State struct {
	stage     string
	stats     map[string]float64
	relations map[RelationKey]float64
	tags      map[string]struct{}
	tagSet    *tagbits.Set // Cached; reset on tag mutation
}

// NewState creates an empty world at the given life stage.
func NewState(stage string) *State {
	return &State{
		stage:     stage,
		stats:     make(map[string]float64),
		relations: make(map[RelationKey]float64),
		tags:      make(map[string]struct{}),
	}
}

// LifeStage implements View.
func (s *State) LifeStage() string { return s.stage }

// Stat implements View.
func (s *State) Stat(name string) (float64, bool) {
	v, ok := s.stats[name]
	return v, ok
}

// Relationship implements View.
func (s *State) Relationship(actor, target, axis string) (float64, bool) {
	v, ok := s.relations[RelationKey{Actor: actor, Target: target, Axis: axis}]
	return v, ok
}

// Tags implements View.
func (s *State) Tags() tagbits.Set {
	if s.tagSet == nil {
		set := tagbits.NewSet(slices.Collect(maps.Keys(s.tags)))
		s.tagSet = &set
	}
	return *s.tagSet
}

// SetLifeStage moves the protagonist to a new life stage.
func (s *State) SetLifeStage(stage string) { s.stage = stage }

// SetStat assigns a stat.
func (s *State) SetStat(name string, v float64) { s.stats[name] = v }

// AddStat adds delta to a stat, treating an undefined stat as 0.
func (s *State) AddStat(name string, delta float64) { s.stats[name] += delta }

// SetRelationship assigns one relationship axis.
func (s *State) SetRelationship(actor, target, axis string, v float64) {
	s.relations[RelationKey{Actor: actor, Target: target, Axis: axis}] = v
}

// AddRelationship adds delta to one relationship axis.
func (s *State) AddRelationship(actor, target, axis string, delta float64) {
	s.relations[RelationKey{Actor: actor, Target: target, Axis: axis}] += delta
}

// AddTag sets a world tag.
func (s *State) AddTag(tag string) {
	n := tagbits.Normalize(tag)
	if n == "" {
		return
	}
	s.tags[n] = struct{}{}
	s.tagSet = nil
}

// RemoveTag clears a world tag.
func (s *State) RemoveTag(tag string) {
	delete(s.tags, tagbits.Normalize(tag))
	s.tagSet = nil
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	return &State{
		stage:     s.stage,
		stats:     maps.Clone(s.stats),
		relations: maps.Clone(s.relations),
		tags:      maps.Clone(s.tags),
	}
}

// StatNames returns the defined stat names, sorted.
func (s *State) StatNames() []string {
	return slices.Sorted(maps.Keys(s.stats))
}
