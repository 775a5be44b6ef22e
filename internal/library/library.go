package library

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/tagbits"
)

// DefinitionError reports an invalid storylet definition.
type DefinitionError struct {
	Key     ir.StoryletKey
	Name    string
	Field   string
	Message string
}

func (e *DefinitionError) Error() string {
	who := e.Name
	if who == "" {
		who = "storylet " + e.Key.String()
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", who, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", who, e.Field, e.Message)
}

// IsDefinitionError reports whether err is or wraps a DefinitionError.
func IsDefinitionError(err error) bool {
	var de *DefinitionError
	return errors.As(err, &de)
}

// Library is an immutable, key-indexed set of storylets.
type Library struct {
	byKey map[ir.StoryletKey]*Storylet
	keys  []ir.StoryletKey // Ascending
}

// New validates the storylets and indexes them by key. Every problem is
// returned, joined.
func New(storylets []Storylet) (*Library, error) {
	lib := &Library{byKey: make(map[ir.StoryletKey]*Storylet, len(storylets))}
	var errs []error
	for i := range storylets {
		s := storylets[i]
		if err := Check(&s); err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := lib.byKey[s.Key]; dup {
			errs = append(errs, &DefinitionError{
				Key:     s.Key,
				Name:    s.Name,
				Field:   "key",
				Message: fmt.Sprintf("duplicate key %d (also used by %q)", s.Key, prev.Name),
			})
			continue
		}
		lib.byKey[s.Key] = &s
		lib.keys = append(lib.keys, s.Key)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	sort.Slice(lib.keys, func(i, j int) bool { return lib.keys[i] < lib.keys[j] })
	return lib, nil
}

// Check validates a single storylet definition.
func Check(s *Storylet) error {
	fail := func(field, msg string) error {
		return &DefinitionError{Key: s.Key, Name: s.Name, Field: field, Message: msg}
	}
	if s.Key == 0 {
		return fail("key", "zero is not a valid key")
	}
	if math.IsNaN(s.BaseWeight) || math.IsInf(s.BaseWeight, 0) {
		return fail("base_weight", "must be finite")
	}
	if math.IsNaN(s.HeatDelta) || math.IsInf(s.HeatDelta, 0) {
		return fail("heat_delta", "must be finite")
	}
	if s.HeatTier < 0 {
		return fail("heat_tier", "must not be negative")
	}
	if s.MinCooldownTicks < 0 {
		return fail("min_cooldown_ticks", "must not be negative")
	}
	for i, c := range s.Prereqs.Stats {
		if c.Stat == "" {
			return fail(fmt.Sprintf("stats[%d].stat", i), "must not be empty")
		}
		if !c.Op.Valid() {
			return fail(fmt.Sprintf("stats[%d].op", i), fmt.Sprintf("unknown operator %q", c.Op))
		}
	}
	for i, c := range s.Prereqs.Relationships {
		if c.Actor == "" || c.Target == "" || c.Axis == "" {
			return fail(fmt.Sprintf("relationships[%d]", i), "actor, target and axis are required")
		}
		if c.Min > c.Max {
			return fail(fmt.Sprintf("relationships[%d]", i), fmt.Sprintf("min %g above max %g", c.Min, c.Max))
		}
	}
	for i, c := range s.Prereqs.Memory {
		if c.Actor == "" {
			return fail(fmt.Sprintf("memory[%d].actor", i), "must not be empty")
		}
		if c.WindowTicks < 0 {
			return fail(fmt.Sprintf("memory[%d].window_ticks", i), "must not be negative")
		}
		if c.Required.Len() == 0 && c.Forbidden.Len() == 0 {
			return fail(fmt.Sprintf("memory[%d]", i), "needs required or forbidden tags")
		}
	}
	return nil
}

// Lookup returns the storylet for key.
func (l *Library) Lookup(key ir.StoryletKey) (*Storylet, bool) {
	s, ok := l.byKey[key]
	return s, ok
}

// Has reports whether key resolves.
func (l *Library) Has(key ir.StoryletKey) bool {
	_, ok := l.byKey[key]
	return ok
}

// Keys returns all keys in ascending order. Callers must not modify it.
func (l *Library) Keys() []ir.StoryletKey {
	return l.keys
}

// Len returns the number of storylets.
func (l *Library) Len() int {
	return len(l.keys)
}

// MaxHeatTier returns the highest heat tier any storylet uses, or -1 for
// an empty library.
func (l *Library) MaxHeatTier() int {
	highest := -1
	for _, k := range l.keys {
		if t := l.byKey[k].HeatTier; t > highest {
			highest = t
		}
	}
	return highest
}

// ResolveTags picks the storylet a trigger over tags should queue: among
// storylets sharing at least one tag, the highest base weight wins, then
// the lowest key. Cooldowns are not consulted; a cooling storylet waits in
// the queue like any other entry.
func (l *Library) ResolveTags(tags tagbits.Set) (ir.StoryletKey, bool) {
	var best *Storylet
	for _, k := range l.keys {
		s := l.byKey[k]
		if !s.Tags.Intersects(tags) {
			continue
		}
		if best == nil || s.BaseWeight > best.BaseWeight {
			best = s
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Key, true
}

// WithTag returns the keys of storylets carrying any of tags, ascending.
func (l *Library) WithTag(tags tagbits.Set) []ir.StoryletKey {
	var out []ir.StoryletKey
	for _, k := range l.keys {
		if l.byKey[k].Tags.Intersects(tags) {
			out = append(out, k)
		}
	}
	return out
}
