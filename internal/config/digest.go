package config

import (
	"github.com/roach88/storylet/internal/ir"
)

// Digest identifies a configuration by content. Runs record it so replay
// can detect a config that changed underneath a stored trace.
func (c *Config) Digest() (string, error) {
	return ir.Digest(ir.DomainConfig, c.IR())
}

// IR converts the configuration to its canonical value form.
func (c *Config) IR() ir.IRObject {
	pressures := make(ir.IRArray, len(c.Pressures))
	for i, p := range c.Pressures {
		pressures[i] = ir.IRObject{
			"id":              ir.IRString(p.ID),
			"growth_per_tick": ir.FloatBits(p.GrowthPerTick),
			"decay_per_tick":  ir.FloatBits(p.DecayPerTick),
			"fire_threshold":  ir.FloatBits(p.FireThreshold),
			"max":             ir.FloatBits(p.Max),
			"cooldown_ticks":  ir.IRInt(p.CooldownTicks),
			"linked_tags":     stringsIR(p.LinkedTags),
			"ready_delay":     ir.IRInt(p.ReadyDelay),
			"max_wait_ticks":  ir.IRInt(p.MaxWaitTicks),
		}
	}
	milestones := make(ir.IRArray, len(c.Milestones))
	for i, m := range c.Milestones {
		milestones[i] = ir.IRObject{
			"id":             ir.IRString(m.ID),
			"thresholds":     floatsIR(m.Thresholds),
			"linked_tags":    stringsIR(m.LinkedTags),
			"ready_delay":    ir.IRInt(m.ReadyDelay),
			"max_wait_ticks": ir.IRInt(m.MaxWaitTicks),
		}
	}
	s := c.Scoring
	return ir.IRObject{
		"heat": ir.IRObject{
			"min":            ir.FloatBits(c.Heat.Min),
			"max":            ir.FloatBits(c.Heat.Max),
			"initial":        ir.FloatBits(c.Heat.Initial),
			"rest":           ir.FloatBits(c.Heat.Rest),
			"decay_per_tick": ir.FloatBits(c.Heat.DecayPerTick),
		},
		"pressures":  pressures,
		"milestones": milestones,
		"queue": ir.IRObject{
			"capacity":               ir.IRInt(c.Queue.Capacity),
			"default_max_wait_ticks": ir.IRInt(c.Queue.DefaultMaxWaitTicks),
		},
		"scoring": ir.IRObject{
			"heat": ir.IRObject{
				"weight":       ir.FloatBits(s.Heat.Weight),
				"tier_centers": floatsIR(s.Heat.TierCenters),
				"falloff":      s.Heat.Falloff.IR(),
			},
			"pressure":  ir.IRObject{"weight": ir.FloatBits(s.Pressure.Weight), "curve": s.Pressure.Curve.IR()},
			"milestone": ir.IRObject{"weight": ir.FloatBits(s.Milestone.Weight), "curve": s.Milestone.Curve.IR()},
			"recency": ir.IRObject{
				"weight":        ir.FloatBits(s.Recency.Weight),
				"horizon_ticks": ir.IRInt(s.Recency.HorizonTicks),
				"curve":         s.Recency.Curve.IR(),
			},
			"queue_priority": ir.IRObject{
				"scheduled": ir.FloatBits(s.QueuePriority.Scheduled),
				"pressure":  ir.FloatBits(s.QueuePriority.Pressure),
				"milestone": ir.FloatBits(s.QueuePriority.Milestone),
				"player":    ir.FloatBits(s.QueuePriority.Player),
			},
			"jitter": ir.FloatBits(s.Jitter),
		},
	}
}

// IR converts the curve to its canonical value form.
func (c Curve) IR() ir.IRArray {
	arr := make(ir.IRArray, len(c.Points))
	for i, p := range c.Points {
		arr[i] = ir.IRArray{ir.FloatBits(p.X), ir.FloatBits(p.Y)}
	}
	return arr
}

func stringsIR(ss []string) ir.IRArray {
	arr := make(ir.IRArray, len(ss))
	for i, s := range ss {
		arr[i] = ir.IRString(s)
	}
	return arr
}

func floatsIR(fs []float64) ir.IRArray {
	arr := make(ir.IRArray, len(fs))
	for i, f := range fs {
		arr[i] = ir.FloatBits(f)
	}
	return arr
}
