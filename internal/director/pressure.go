package director

import (
	"math"

	"github.com/roach88/storylet/internal/config"
	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/tagbits"
)

// pressureTracker advances one configured pressure each tick.
type pressureTracker struct {
	cfg  config.PressureConfig
	tags tagbits.Set
}

func newPressureTracker(cfg config.PressureConfig) *pressureTracker {
	return &pressureTracker{cfg: cfg, tags: tagbits.NewSet(cfg.LinkedTags)}
}

// advance applies one tick and reports whether the pressure fired.
//
// While cooling down the pressure neither grows nor fires. Otherwise it
// grows by growth_per_tick, or decays toward zero when resolved, and is
// clamped to [0, max]. Reaching fire_threshold fires it: the value resets
// to 0 and the cooldown starts.
func (t *pressureTracker) advance(ps *PressureState, resolved bool, rec *recorder) bool {
	if math.IsNaN(ps.Value) || ps.Value < 0 || ps.Value > t.cfg.Max {
		rec.violation(&InvariantViolation{Subject: "pressure " + t.cfg.ID, Value: ps.Value, Min: 0, Max: t.cfg.Max})
		ps.Value = clamp(ps.Value, 0, t.cfg.Max)
	}
	if ps.CooldownRemaining > 0 {
		ps.CooldownRemaining--
		return false
	}
	if ps.CooldownRemaining < 0 {
		rec.violation(&InvariantViolation{Subject: "pressure " + t.cfg.ID + " cooldown", Value: float64(ps.CooldownRemaining), Min: 0, Max: float64(t.cfg.CooldownTicks)})
		ps.CooldownRemaining = 0
	}

	if resolved {
		ps.Value = math.Max(0, ps.Value-t.cfg.DecayPerTick)
	} else {
		ps.Value += t.cfg.GrowthPerTick
	}
	ps.Value = clamp(ps.Value, 0, t.cfg.Max)

	if reached(ps.Value, t.cfg.FireThreshold) {
		ps.Value = 0
		ps.CooldownRemaining = t.cfg.CooldownTicks
		return true
	}
	return false
}

// thresholdTolerance absorbs the rounding of accumulated growth, so a
// pressure growing by g fires after exactly ceil(threshold/g) ticks.
const thresholdTolerance = 1e-9

// reached reports whether v is at threshold within a relative tolerance.
func reached(v, threshold float64) bool {
	return v >= threshold-thresholdTolerance*math.Max(1, math.Abs(threshold))
}

// ratio is the pressure's progress toward firing, in [0, max/threshold].
func (t *pressureTracker) ratio(ps *PressureState) float64 {
	return ps.Value / t.cfg.FireThreshold
}

func (t *pressureTracker) trigger(tick int64) trigger {
	return trigger{
		source:    ir.SourcePressure,
		tags:      t.tags,
		origin:    t.cfg.ID,
		readyTick: tick + t.cfg.ReadyDelay,
		maxWait:   t.cfg.MaxWaitTicks,
	}
}

// trigger is an emission waiting to be resolved to a storylet and queued.
type trigger struct {
	source    ir.Source
	tags      tagbits.Set
	origin    string
	readyTick int64
	maxWait   int64
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
