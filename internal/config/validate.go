package config

import (
	"fmt"
	"strings"
)

// Validate checks every configuration invariant and returns all problems
// found as Errors, or nil.
func (c *Config) Validate() error {
	var errs Errors
	c.validateHeat(&errs)
	c.validatePressures(&errs)
	c.validateMilestones(&errs)
	c.validateQueue(&errs)
	c.validateScoring(&errs)
	return errs.err()
}

func (c *Config) validateHeat(errs *Errors) {
	h := c.Heat
	fields := []struct {
		field string
		v     float64
	}{
		{"heat.min", h.Min},
		{"heat.max", h.Max},
		{"heat.initial", h.Initial},
		{"heat.rest", h.Rest},
		{"heat.decay_per_tick", h.DecayPerTick},
	}
	bad := false
	for _, f := range fields {
		if !finite(f.v) {
			errs.add(ErrCodeInvalidHeat, f.field, "must be finite")
			bad = true
		}
	}
	if bad {
		return
	}
	if h.Min >= h.Max {
		errs.add(ErrCodeInvalidHeat, "heat", fmt.Sprintf("min (%g) must be below max (%g)", h.Min, h.Max))
		return
	}
	if h.Initial < h.Min || h.Initial > h.Max {
		errs.add(ErrCodeInvalidHeat, "heat.initial", fmt.Sprintf("%g outside [%g, %g]", h.Initial, h.Min, h.Max))
	}
	if h.Rest < h.Min || h.Rest > h.Max {
		errs.add(ErrCodeInvalidHeat, "heat.rest", fmt.Sprintf("%g outside [%g, %g]", h.Rest, h.Min, h.Max))
	}
	if h.DecayPerTick < 0 {
		errs.add(ErrCodeInvalidHeat, "heat.decay_per_tick", "must not be negative")
	}
}

func (c *Config) validatePressures(errs *Errors) {
	seen := make(map[string]bool, len(c.Pressures))
	for i, p := range c.Pressures {
		field := fmt.Sprintf("pressures[%d]", i)
		if strings.TrimSpace(p.ID) == "" {
			errs.add(ErrCodeInvalidPressure, field+".id", "must not be empty")
		} else if seen[p.ID] {
			errs.add(ErrCodeDuplicateID, field+".id", fmt.Sprintf("duplicate pressure id %q", p.ID))
		}
		seen[p.ID] = true

		if !finite(p.GrowthPerTick) || p.GrowthPerTick < 0 {
			errs.add(ErrCodeInvalidPressure, field+".growth_per_tick", "must be finite and not negative")
		}
		if !finite(p.DecayPerTick) || p.DecayPerTick < 0 {
			errs.add(ErrCodeInvalidPressure, field+".decay_per_tick", "must be finite and not negative")
		}
		if !finite(p.FireThreshold) || p.FireThreshold <= 0 {
			errs.add(ErrCodeInvalidPressure, field+".fire_threshold", "must be finite and positive")
		}
		if !finite(p.Max) || p.Max < p.FireThreshold {
			errs.add(ErrCodeInvalidPressure, field+".max", fmt.Sprintf("must be at least fire_threshold (%g)", p.FireThreshold))
		}
		if p.CooldownTicks < 0 {
			errs.add(ErrCodeInvalidPressure, field+".cooldown_ticks", "must not be negative")
		}
		if p.ReadyDelay < 0 {
			errs.add(ErrCodeInvalidPressure, field+".ready_delay", "must not be negative")
		}
		if p.MaxWaitTicks < 0 {
			errs.add(ErrCodeInvalidPressure, field+".max_wait_ticks", "must not be negative")
		}
		if !hasTag(p.LinkedTags) {
			errs.add(ErrCodeInvalidPressure, field+".linked_tags", "at least one tag is required")
		}
	}
}

func (c *Config) validateMilestones(errs *Errors) {
	seen := make(map[string]bool, len(c.Milestones))
	for i, m := range c.Milestones {
		field := fmt.Sprintf("milestones[%d]", i)
		if strings.TrimSpace(m.ID) == "" {
			errs.add(ErrCodeInvalidMilestone, field+".id", "must not be empty")
		} else if seen[m.ID] {
			errs.add(ErrCodeDuplicateID, field+".id", fmt.Sprintf("duplicate milestone id %q", m.ID))
		}
		seen[m.ID] = true

		if len(m.Thresholds) == 0 {
			errs.add(ErrCodeInvalidMilestone, field+".thresholds", "at least one threshold is required")
		}
		for j, t := range m.Thresholds {
			switch {
			case !finite(t) || t <= 0:
				errs.add(ErrCodeInvalidMilestone, fmt.Sprintf("%s.thresholds[%d]", field, j), "must be finite and positive")
			case j > 0 && t <= m.Thresholds[j-1]:
				errs.add(ErrCodeInvalidMilestone, fmt.Sprintf("%s.thresholds[%d]", field, j),
					fmt.Sprintf("must be strictly increasing (%g after %g)", t, m.Thresholds[j-1]))
			}
		}
		if m.ReadyDelay < 0 {
			errs.add(ErrCodeInvalidMilestone, field+".ready_delay", "must not be negative")
		}
		if m.MaxWaitTicks < 0 {
			errs.add(ErrCodeInvalidMilestone, field+".max_wait_ticks", "must not be negative")
		}
		if !hasTag(m.LinkedTags) {
			errs.add(ErrCodeInvalidMilestone, field+".linked_tags", "at least one tag is required")
		}
	}
}

func (c *Config) validateQueue(errs *Errors) {
	if c.Queue.Capacity <= 0 {
		errs.add(ErrCodeInvalidQueue, "queue.capacity", "must be positive")
	}
	if c.Queue.DefaultMaxWaitTicks < 0 {
		errs.add(ErrCodeInvalidQueue, "queue.default_max_wait_ticks", "must not be negative")
	}
}

func (c *Config) validateScoring(errs *Errors) {
	s := c.Scoring
	weights := []struct {
		field string
		v     float64
	}{
		{"scoring.heat.weight", s.Heat.Weight},
		{"scoring.pressure.weight", s.Pressure.Weight},
		{"scoring.milestone.weight", s.Milestone.Weight},
		{"scoring.recency.weight", s.Recency.Weight},
		{"scoring.queue_priority.scheduled", s.QueuePriority.Scheduled},
		{"scoring.queue_priority.pressure", s.QueuePriority.Pressure},
		{"scoring.queue_priority.milestone", s.QueuePriority.Milestone},
		{"scoring.queue_priority.player", s.QueuePriority.Player},
	}
	for _, w := range weights {
		if !finite(w.v) {
			errs.add(ErrCodeInvalidScoring, w.field, "must be finite")
		}
	}
	if !finite(s.Jitter) || s.Jitter < 0 {
		errs.add(ErrCodeInvalidScoring, "scoring.jitter", "must be finite and not negative")
	}
	if s.Recency.HorizonTicks < 0 {
		errs.add(ErrCodeInvalidScoring, "scoring.recency.horizon_ticks", "must not be negative")
	}
	if len(s.Heat.TierCenters) == 0 {
		errs.add(ErrCodeInvalidScoring, "scoring.heat.tier_centers", "at least one tier is required")
	}
	for i, center := range s.Heat.TierCenters {
		if !finite(center) {
			errs.add(ErrCodeInvalidScoring, fmt.Sprintf("scoring.heat.tier_centers[%d]", i), "must be finite")
		}
	}
	s.Heat.Falloff.validate("scoring.heat.falloff", errs)
	s.Pressure.Curve.validate("scoring.pressure.curve", errs)
	s.Milestone.Curve.validate("scoring.milestone.curve", errs)
	s.Recency.Curve.validate("scoring.recency.curve", errs)
}

// CheckTier reports an UNKNOWN_TIER error when tier has no configured center.
func (c *Config) CheckTier(tier int) error {
	if tier < 0 || tier >= len(c.Scoring.Heat.TierCenters) {
		return &ConfigError{
			Code:    ErrCodeUnknownTier,
			Field:   "scoring.heat.tier_centers",
			Message: fmt.Sprintf("heat tier %d has no center (%d tiers configured)", tier, len(c.Scoring.Heat.TierCenters)),
		}
	}
	return nil
}

func hasTag(tags []string) bool {
	for _, t := range tags {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}
