package director

import (
	"fmt"
	"math"

	"github.com/roach88/storylet/internal/config"
	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/tagbits"
)

// milestoneTracker applies externally reported progress to one milestone.
type milestoneTracker struct {
	cfg  config.MilestoneConfig
	tags tagbits.Set
}

func newMilestoneTracker(cfg config.MilestoneConfig) *milestoneTracker {
	return &milestoneTracker{cfg: cfg, tags: tagbits.NewSet(cfg.LinkedTags)}
}

// final is the last stage index.
func (t *milestoneTracker) final() int {
	return len(t.cfg.Thresholds)
}

// apply adds delta to the milestone's progress and reports whether a stage
// threshold was crossed. Progress never drops below zero and the stage
// never moves backward. However many thresholds one update crosses, it
// yields a single crossing; the returned stage is the final one reached.
func (t *milestoneTracker) apply(ms *MilestoneState, delta float64) (crossed bool, stage int) {
	if ms.Stage >= t.final() {
		ms.Progress = math.Max(0, ms.Progress+delta)
		return false, ms.Stage
	}
	ms.Progress = math.Max(0, ms.Progress+delta)

	next := ms.Stage
	for next < t.final() && reached(ms.Progress, t.cfg.Thresholds[next]) {
		next++
	}
	if next == ms.Stage {
		return false, ms.Stage
	}
	ms.Stage = next
	return true, next
}

// proximity is how far the milestone has travelled from its current stage
// threshold toward the next, in [0, 1]. A completed milestone is 0.
func (t *milestoneTracker) proximity(ms *MilestoneState) float64 {
	if ms.Stage >= t.final() {
		return 0
	}
	lo := 0.0
	if ms.Stage > 0 {
		lo = t.cfg.Thresholds[ms.Stage-1]
	}
	hi := t.cfg.Thresholds[ms.Stage]
	return clamp((ms.Progress-lo)/(hi-lo), 0, 1)
}

func (t *milestoneTracker) trigger(tick int64, stage int) trigger {
	return trigger{
		source:    ir.SourceMilestone,
		tags:      t.tags,
		origin:    fmt.Sprintf("%s/%d", t.cfg.ID, stage),
		readyTick: tick + t.cfg.ReadyDelay,
		maxWait:   t.cfg.MaxWaitTicks,
	}
}
