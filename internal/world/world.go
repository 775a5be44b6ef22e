// Package world defines the read-only surfaces the director consults each
// tick, plus in-memory implementations used by the harness and tests.
//
// The director never writes through these interfaces. Hosts apply fired
// outcomes to their own world state between ticks.
package world

import (
	"github.com/roach88/storylet/internal/tagbits"
)

// View is a read-only snapshot of world state for one tick.
type View interface {
	// LifeStage is the protagonist's current life stage, e.g. "adult".
	LifeStage() string
	// Stat returns a named stat and whether it is defined.
	Stat(name string) (float64, bool)
	// Relationship returns the value of one axis from actor toward target.
	Relationship(actor, target, axis string) (float64, bool)
	// Tags are the world-level tags in effect (season, war, location).
	Tags() tagbits.Set
}

// Memory is a read-only query surface over recorded facts.
type Memory interface {
	// Tags returns the union of tags on facts recorded by actor about
	// target at or after tick since. An empty target matches any target.
	Tags(actor, target string, since int64) tagbits.Set
}

// RelationKey addresses one relationship axis.
type RelationKey struct {
	Actor  string
	Target string
	Axis   string
}
