package world

import (
	"github.com/roach88/storylet/internal/tagbits"
)

// Fact is one remembered event between two actors.
type Fact struct {
	Tick   int64
	Actor  string
	Target string
	Tags   []string
}

// MemoryLog is an append-only in-memory Memory.
type MemoryLog struct {
	facts []Fact
}

// NewMemoryLog creates a log seeded with facts.
func NewMemoryLog(facts ...Fact) *MemoryLog {
	m := &MemoryLog{}
	for _, f := range facts {
		m.Record(f)
	}
	return m
}

// Record appends a fact.
func (m *MemoryLog) Record(f Fact) {
	f.Tags = append([]string(nil), f.Tags...)
	m.facts = append(m.facts, f)
}

// Len returns the number of recorded facts.
func (m *MemoryLog) Len() int { return len(m.facts) }

// Tags implements Memory.
func (m *MemoryLog) Tags(actor, target string, since int64) tagbits.Set {
	var tags []string
	for _, f := range m.facts {
		if f.Tick < since || f.Actor != actor {
			continue
		}
		if target != "" && f.Target != target {
			continue
		}
		tags = append(tags, f.Tags...)
	}
	return tagbits.NewSet(tags)
}

// Clone returns an independent copy.
func (m *MemoryLog) Clone() *MemoryLog {
	out := &MemoryLog{facts: make([]Fact, len(m.facts))}
	copy(out.facts, m.facts)
	return out
}

// Empty is a Memory with no facts.
type Empty struct{}

// Tags implements Memory.
func (Empty) Tags(string, string, int64) tagbits.Set { return tagbits.Set{} }
