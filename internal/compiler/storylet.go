// Package compiler turns CUE storylet definitions into a library.
//
// A storylet is declared under the top-level "storylet" struct; the field
// label becomes the storylet's name:
//
//	storylet: harvest_festival: {
//		key:                12
//		tags:               ["village", "celebration"]
//		base_weight:        1.5
//		heat_tier:          1
//		heat_delta:         -5
//		min_cooldown_ticks: 30
//		outcome:            "festival.attend"
//		requires: {
//			life_stages: ["adult"]
//			stats: [{stat: "wealth", op: ">=", value: 10}]
//			relationships: [{actor: "player", target: "mayor", axis: "trust", min: 20}]
//			memory: [{actor: "player", target: "mayor", required: ["helped"], window_ticks: 100}]
//			world: {required: ["autumn"], forbidden: ["war"]}
//		}
//	}
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/library"
	"github.com/roach88/storylet/internal/tagbits"
)

// CompileStorylet parses a CUE value into a Storylet.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the storylet struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`storylet: duel: { key: 3, outcome: "duel" }`)
//	s, err := CompileStorylet(v.LookupPath(cue.ParsePath("storylet.duel")))
func CompileStorylet(v cue.Value) (*library.Storylet, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &library.Storylet{}

	// Name comes from the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		s.Name = labels[len(labels)-1].String()
	}

	keyVal := v.LookupPath(cue.ParsePath("key"))
	if !keyVal.Exists() {
		return nil, &CompileError{Field: "key", Message: "key is required", Pos: v.Pos()}
	}
	key, err := keyVal.Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if key <= 0 || key > int64(^uint32(0)) {
		return nil, &CompileError{
			Field:   "key",
			Message: fmt.Sprintf("key %d out of range [1, %d]", key, ^uint32(0)),
			Pos:     keyVal.Pos(),
		}
	}
	s.Key = ir.StoryletKey(key)

	outcomeVal := v.LookupPath(cue.ParsePath("outcome"))
	if !outcomeVal.Exists() {
		return nil, &CompileError{Field: "outcome", Message: "outcome is required", Pos: v.Pos()}
	}
	if s.Outcome, err = outcomeVal.String(); err != nil {
		return nil, formatCUEError(err)
	}

	tags, err := optionalStrings(v, "tags")
	if err != nil {
		return nil, err
	}
	s.Tags = tagbits.NewSet(tags)

	if s.BaseWeight, err = optionalFloat(v, "base_weight", 1); err != nil {
		return nil, err
	}
	if s.HeatDelta, err = optionalFloat(v, "heat_delta", 0); err != nil {
		return nil, err
	}
	tier, err := optionalInt(v, "heat_tier", 0)
	if err != nil {
		return nil, err
	}
	s.HeatTier = int(tier)
	if s.MinCooldownTicks, err = optionalInt(v, "min_cooldown_ticks", 0); err != nil {
		return nil, err
	}

	reqVal := v.LookupPath(cue.ParsePath("requires"))
	if reqVal.Exists() {
		if s.Prereqs, err = parsePrereqs(reqVal); err != nil {
			return nil, err
		}
	}

	if err := library.Check(s); err != nil {
		return nil, &CompileError{Field: "storylet", Message: err.Error(), Pos: v.Pos()}
	}
	return s, nil
}

// parsePrereqs extracts the requires block.
func parsePrereqs(v cue.Value) (library.Prerequisites, error) {
	var p library.Prerequisites

	stages, err := optionalStrings(v, "life_stages")
	if err != nil {
		return p, err
	}
	p.LifeStages = stages

	if err := eachElem(v, "stats", func(e cue.Value) error {
		var err error
		c := library.StatCondition{}
		if c.Stat, err = requiredString(e, "stat"); err != nil {
			return err
		}
		op, err := requiredString(e, "op")
		if err != nil {
			return err
		}
		c.Op = library.Op(op)
		if !c.Op.Valid() {
			return &CompileError{Field: "stats.op", Message: fmt.Sprintf("unknown operator %q", op), Pos: e.Pos()}
		}
		if c.Value, err = requiredFloat(e, "value"); err != nil {
			return err
		}
		p.Stats = append(p.Stats, c)
		return nil
	}); err != nil {
		return p, err
	}

	if err := eachElem(v, "relationships", func(e cue.Value) error {
		var err error
		c := library.RelationshipCondition{}
		if c.Actor, err = requiredString(e, "actor"); err != nil {
			return err
		}
		if c.Target, err = requiredString(e, "target"); err != nil {
			return err
		}
		if c.Axis, err = requiredString(e, "axis"); err != nil {
			return err
		}
		lo, hi := library.Unbounded()
		if c.Min, err = optionalFloat(e, "min", lo); err != nil {
			return err
		}
		if c.Max, err = optionalFloat(e, "max", hi); err != nil {
			return err
		}
		p.Relationships = append(p.Relationships, c)
		return nil
	}); err != nil {
		return p, err
	}

	if err := eachElem(v, "memory", func(e cue.Value) error {
		var err error
		c := library.MemoryCondition{}
		if c.Actor, err = requiredString(e, "actor"); err != nil {
			return err
		}
		if c.Target, err = optionalString(e, "target"); err != nil {
			return err
		}
		required, err := optionalStrings(e, "required")
		if err != nil {
			return err
		}
		forbidden, err := optionalStrings(e, "forbidden")
		if err != nil {
			return err
		}
		c.Required = tagbits.NewSet(required)
		c.Forbidden = tagbits.NewSet(forbidden)
		if c.WindowTicks, err = optionalInt(e, "window_ticks", 0); err != nil {
			return err
		}
		p.Memory = append(p.Memory, c)
		return nil
	}); err != nil {
		return p, err
	}

	worldVal := v.LookupPath(cue.ParsePath("world"))
	if worldVal.Exists() {
		required, err := optionalStrings(worldVal, "required")
		if err != nil {
			return p, err
		}
		forbidden, err := optionalStrings(worldVal, "forbidden")
		if err != nil {
			return p, err
		}
		p.WorldTags = library.TagCondition{
			Required:  tagbits.NewSet(required),
			Forbidden: tagbits.NewSet(forbidden),
		}
	}

	return p, nil
}

// eachElem calls fn for every element of the optional list at field.
func eachElem(v cue.Value, field string, fn func(cue.Value) error) error {
	listVal := v.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		return nil
	}
	iter, err := listVal.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func requiredString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalStrings(v cue.Value, field string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return nil, nil
	}
	var out []string
	if err := f.Decode(&out); err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: f.Pos()}
	}
	return out, nil
}

func requiredFloat(v cue.Value, field string) (float64, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return 0, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := f.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func optionalFloat(v cue.Value, field string, def float64) (float64, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return def, nil
	}
	n, err := f.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func optionalInt(v cue.Value, field string, def int64) (int64, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return def, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}
