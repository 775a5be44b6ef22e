package director

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/storylet/internal/config"
	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/library"
)

// scorer computes candidate scores. It is a pure function of (state,
// candidate, config): nothing here mutates.
type scorer struct {
	cfg        *config.ScoringConfig
	pressures  []*pressureTracker // Sorted by id
	milestones []*milestoneTracker
}

// score returns the per-component breakdown for s at tick.
func (sc *scorer) score(st *State, s *library.Storylet, source ir.Source, tick int64) ir.Breakdown {
	return ir.Breakdown{
		Base:      s.BaseWeight,
		Heat:      sc.heatAffinity(st.heat, s.HeatTier),
		Pressure:  sc.pressureBonus(st, s),
		Milestone: sc.milestoneBonus(st, s),
		Recency:   sc.recencyPenalty(st, s, tick),
		Queue:     sc.queueBonus(source),
		Jitter:    sc.cfg.Jitter * jitterUnit(st.seed, tick, s.Key),
	}
}

func (sc *scorer) heatAffinity(heat float64, tier int) float64 {
	if tier < 0 || tier >= len(sc.cfg.Heat.TierCenters) {
		return 0
	}
	dist := math.Abs(heat - sc.cfg.Heat.TierCenters[tier])
	return sc.cfg.Heat.Weight * sc.cfg.Heat.Falloff.Eval(dist)
}

// pressureBonus is the strongest bonus among pressures linked to s.
func (sc *scorer) pressureBonus(st *State, s *library.Storylet) float64 {
	best := 0.0
	found := false
	for _, t := range sc.pressures {
		if !t.tags.Intersects(s.Tags) {
			continue
		}
		v := sc.cfg.Pressure.Weight * sc.cfg.Pressure.Curve.Eval(t.ratio(st.pressures[t.cfg.ID]))
		if !found || v > best {
			best, found = v, true
		}
	}
	return best
}

// milestoneBonus is the strongest bonus among milestones linked to s.
func (sc *scorer) milestoneBonus(st *State, s *library.Storylet) float64 {
	best := 0.0
	found := false
	for _, t := range sc.milestones {
		if !t.tags.Intersects(s.Tags) {
			continue
		}
		ms := st.milestones[t.cfg.ID]
		if ms.Stage >= t.final() {
			continue
		}
		v := sc.cfg.Milestone.Weight * sc.cfg.Milestone.Curve.Eval(t.proximity(ms))
		if !found || v > best {
			best, found = v, true
		}
	}
	return best
}

// recencyPenalty discourages repeats within the recency horizon.
// A storylet that never fired takes no penalty.
func (sc *scorer) recencyPenalty(st *State, s *library.Storylet, tick int64) float64 {
	horizon := sc.cfg.Recency.HorizonTicks
	last, ok := st.cooldowns[s.Key]
	if !ok || horizon <= 0 {
		return 0
	}
	since := tick - last
	if since >= horizon {
		return 0
	}
	return sc.cfg.Recency.Weight * sc.cfg.Recency.Curve.Eval(float64(since)/float64(horizon))
}

func (sc *scorer) queueBonus(source ir.Source) float64 {
	if !source.Queued() {
		return 0
	}
	return sc.cfg.QueuePriority.PriorityOf(source.String())
}

// jitterUnit maps (seed, tick, key) to a uniform value in [0, 1).
func jitterUnit(seed, tick int64, key ir.StoryletKey) float64 {
	var buf [20]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(tick))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(key))
	// Top 53 bits fill a float64 mantissa exactly.
	return float64(xxhash.Sum64(buf[:])>>11) / (1 << 53)
}

// rank orders candidates: score descending, then lower key, then queued
// before fresh, then lower queue sequence.
func rank(cands []ir.ScoredCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if a.Source.Queued() != b.Source.Queued() {
			return a.Source.Queued()
		}
		return a.Seq < b.Seq
	})
}
