// Package library holds storylet definitions: prerequisites, outcome
// reference, weight, heat tier and cooldown, indexed by StoryletKey.
//
// A Library is immutable once built. The director only reads it.
package library

import (
	"fmt"
	"math"

	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/tagbits"
)

// Storylet is a discrete narrative event definition.
type Storylet struct {
	Key              ir.StoryletKey
	Name             string
	Tags             tagbits.Set // Domain tags, matched by pressure and milestone triggers
	BaseWeight       float64
	HeatTier         int     // Index into the configured heat tier centers
	HeatDelta        float64 // Applied to heat when the storylet fires
	MinCooldownTicks int64
	Outcome          string // Opaque reference the host resolves to stat/relationship deltas
	Prereqs          Prerequisites
}

// Prerequisites are the eligibility predicates of a storylet.
// All of them must hold.
type Prerequisites struct {
	LifeStages    []string // Empty = any life stage
	Stats         []StatCondition
	Relationships []RelationshipCondition
	Memory        []MemoryCondition
	WorldTags     TagCondition
}

// Op is a comparison operator for stat conditions.
type Op string

const (
	OpGE Op = ">="
	OpGT Op = ">"
	OpLE Op = "<="
	OpLT Op = "<"
	OpEQ Op = "=="
	OpNE Op = "!="
)

// Valid reports whether op is a known operator.
func (op Op) Valid() bool {
	switch op {
	case OpGE, OpGT, OpLE, OpLT, OpEQ, OpNE:
		return true
	}
	return false
}

// Compare applies the operator to (v, threshold).
func (op Op) Compare(v, threshold float64) bool {
	switch op {
	case OpGE:
		return v >= threshold
	case OpGT:
		return v > threshold
	case OpLE:
		return v <= threshold
	case OpLT:
		return v < threshold
	case OpEQ:
		return v == threshold
	case OpNE:
		return v != threshold
	}
	return false
}

// StatCondition is a threshold on a world stat, e.g. "wealth >= 40".
type StatCondition struct {
	Stat  string
	Op    Op
	Value float64
}

// Holds reports whether value satisfies the condition.
func (c StatCondition) Holds(value float64) bool {
	return c.Op.Compare(value, c.Value)
}

func (c StatCondition) String() string {
	return fmt.Sprintf("%s %s %g", c.Stat, c.Op, c.Value)
}

// RelationshipCondition requires a relationship axis between two actors to
// lie in the inclusive band [Min, Max]. Open ends are infinite.
type RelationshipCondition struct {
	Actor  string
	Target string
	Axis   string
	Min    float64
	Max    float64
}

// Holds reports whether value lies in the band.
func (c RelationshipCondition) Holds(value float64) bool {
	return value >= c.Min && value <= c.Max
}

// Unbounded returns the widest band, for builders to narrow.
func Unbounded() (float64, float64) {
	return math.Inf(-1), math.Inf(1)
}

// MemoryCondition requires tags to be present, and others absent, among
// the memory facts recorded between Actor and Target within the last
// WindowTicks ticks. WindowTicks of 0 searches all of history.
type MemoryCondition struct {
	Actor       string
	Target      string
	Required    tagbits.Set
	Forbidden   tagbits.Set
	WindowTicks int64
}

// Since returns the first tick inside the window ending at tick.
func (c MemoryCondition) Since(tick int64) int64 {
	if c.WindowTicks <= 0 {
		return math.MinInt64
	}
	return tick - c.WindowTicks
}

// TagCondition requires tags present and forbids others.
type TagCondition struct {
	Required  tagbits.Set
	Forbidden tagbits.Set
}

// Empty reports whether the condition constrains nothing.
func (c TagCondition) Empty() bool {
	return c.Required.Len() == 0 && c.Forbidden.Len() == 0
}

// HoldsFor checks the condition against a tag set, using the bitset masks
// as a prefilter before the exact set comparison.
func (c TagCondition) HoldsFor(have tagbits.Set) bool {
	if !have.ContainsAll(c.Required) {
		return false
	}
	return !have.Intersects(c.Forbidden)
}
