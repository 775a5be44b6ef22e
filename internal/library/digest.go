package library

import (
	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/tagbits"
)

// Digest identifies the library by content, independent of the order the
// storylets were defined in.
func (l *Library) Digest() (string, error) {
	arr := make(ir.IRArray, len(l.keys))
	for i, k := range l.keys {
		arr[i] = l.byKey[k].IR()
	}
	return ir.Digest(ir.DomainLibrary, arr)
}

// IR converts the storylet to its canonical value form.
func (s *Storylet) IR() ir.IRObject {
	p := s.Prereqs
	stats := make(ir.IRArray, len(p.Stats))
	for i, c := range p.Stats {
		stats[i] = ir.IRObject{"stat": ir.IRString(c.Stat), "op": ir.IRString(string(c.Op)), "value": ir.FloatBits(c.Value)}
	}
	rels := make(ir.IRArray, len(p.Relationships))
	for i, c := range p.Relationships {
		rels[i] = ir.IRObject{
			"actor":  ir.IRString(c.Actor),
			"target": ir.IRString(c.Target),
			"axis":   ir.IRString(c.Axis),
			"min":    ir.FloatBits(c.Min),
			"max":    ir.FloatBits(c.Max),
		}
	}
	mem := make(ir.IRArray, len(p.Memory))
	for i, c := range p.Memory {
		mem[i] = ir.IRObject{
			"actor":        ir.IRString(c.Actor),
			"target":       ir.IRString(c.Target),
			"required":     tagsIR(c.Required),
			"forbidden":    tagsIR(c.Forbidden),
			"window_ticks": ir.IRInt(c.WindowTicks),
		}
	}
	stages := make(ir.IRArray, len(p.LifeStages))
	for i, st := range p.LifeStages {
		stages[i] = ir.IRString(st)
	}
	return ir.IRObject{
		"key":                ir.IRInt(s.Key),
		"name":               ir.IRString(s.Name),
		"tags":               tagsIR(s.Tags),
		"base_weight":        ir.FloatBits(s.BaseWeight),
		"heat_tier":          ir.IRInt(s.HeatTier),
		"heat_delta":         ir.FloatBits(s.HeatDelta),
		"min_cooldown_ticks": ir.IRInt(s.MinCooldownTicks),
		"outcome":            ir.IRString(s.Outcome),
		"prereqs": ir.IRObject{
			"life_stages":     stages,
			"stats":           stats,
			"relationships":   rels,
			"memory":          mem,
			"world_required":  tagsIR(p.WorldTags.Required),
			"world_forbidden": tagsIR(p.WorldTags.Forbidden),
		},
	}
}

func tagsIR(s tagbits.Set) ir.IRArray {
	tags := s.Tags()
	arr := make(ir.IRArray, len(tags))
	for i, t := range tags {
		arr[i] = ir.IRString(t)
	}
	return arr
}
