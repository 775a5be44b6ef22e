// Package config loads the director configuration: heat bounds, pressures,
// milestones, queue limits and scoring curves.
//
// A Config is loaded once, validated, and then treated as immutable. The
// director keeps scoring a pure function of (state, candidate, config), so
// nothing here may be mutated after New.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete director configuration.
type Config struct {
	Heat       HeatConfig        `yaml:"heat"`
	Pressures  []PressureConfig  `yaml:"pressures"`
	Milestones []MilestoneConfig `yaml:"milestones"`
	Queue      QueueConfig       `yaml:"queue"`
	Scoring    ScoringConfig     `yaml:"scoring"`
}

// HeatConfig bounds the narrative heat scalar and its per-tick relaxation.
type HeatConfig struct {
	Min          float64 `yaml:"min"`
	Max          float64 `yaml:"max"`
	Initial      float64 `yaml:"initial"`
	Rest         float64 `yaml:"rest"`           // Heat relaxes toward this value
	DecayPerTick float64 `yaml:"decay_per_tick"` // Relaxation step per tick
}

// PressureConfig describes one ticking narrative pressure.
type PressureConfig struct {
	ID            string   `yaml:"id"`
	GrowthPerTick float64  `yaml:"growth_per_tick"`
	DecayPerTick  float64  `yaml:"decay_per_tick"`
	FireThreshold float64  `yaml:"fire_threshold"`
	Max           float64  `yaml:"max"` // Defaults to FireThreshold
	CooldownTicks int64    `yaml:"cooldown_ticks"`
	LinkedTags    []string `yaml:"linked_tags"`
	ReadyDelay    int64    `yaml:"ready_delay"`    // Ticks between emission and readiness
	MaxWaitTicks  int64    `yaml:"max_wait_ticks"` // 0 = queue default
}

// MilestoneConfig describes one staged long-term arc.
type MilestoneConfig struct {
	ID           string    `yaml:"id"`
	Thresholds   []float64 `yaml:"thresholds"` // Strictly increasing
	LinkedTags   []string  `yaml:"linked_tags"`
	ReadyDelay   int64     `yaml:"ready_delay"`
	MaxWaitTicks int64     `yaml:"max_wait_ticks"`
}

// QueueConfig bounds the deferred-event queue.
type QueueConfig struct {
	Capacity            int   `yaml:"capacity"`
	DefaultMaxWaitTicks int64 `yaml:"default_max_wait_ticks"` // 0 = entries wait forever
}

// ScoringConfig holds every weight and curve the scoring engine uses.
type ScoringConfig struct {
	Heat          HeatAffinityConfig `yaml:"heat"`
	Pressure      CurveComponent     `yaml:"pressure"`
	Milestone     CurveComponent     `yaml:"milestone"`
	Recency       RecencyConfig      `yaml:"recency"`
	QueuePriority QueuePriority      `yaml:"queue_priority"`
	Jitter        float64            `yaml:"jitter"` // Amplitude of seeded tie-break jitter
}

// HeatAffinityConfig scores how well a storylet's heat tier suits the
// current heat. TierCenters[i] is the heat tier i is written for.
type HeatAffinityConfig struct {
	Weight      float64   `yaml:"weight"`
	TierCenters []float64 `yaml:"tier_centers"`
	Falloff     Curve     `yaml:"falloff"` // Evaluated at |heat - center|
}

// CurveComponent is a weighted curve.
type CurveComponent struct {
	Weight float64 `yaml:"weight"`
	Curve  Curve   `yaml:"curve"`
}

// RecencyConfig penalizes recently fired storylets until HorizonTicks.
type RecencyConfig struct {
	Weight       float64 `yaml:"weight"`
	HorizonTicks int64   `yaml:"horizon_ticks"`
	Curve        Curve   `yaml:"curve"` // Evaluated at since/horizon in [0,1)
}

// QueuePriority is the score bonus per queue source. It also ranks sources
// for overflow eviction: the lowest bonus is evicted first.
type QueuePriority struct {
	Scheduled float64 `yaml:"scheduled"`
	Pressure  float64 `yaml:"pressure"`
	Milestone float64 `yaml:"milestone"`
	Player    float64 `yaml:"player"`
}

// Load reads, defaults and validates a YAML configuration file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or fails validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes, defaults and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, &ConfigError{Code: ErrCodeMalformed, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills fields whose zero value means "use the default".
func (c *Config) ApplyDefaults() {
	for i := range c.Pressures {
		p := &c.Pressures[i]
		if p.Max == 0 {
			p.Max = p.FireThreshold
		}
		if p.MaxWaitTicks == 0 {
			p.MaxWaitTicks = c.Queue.DefaultMaxWaitTicks
		}
	}
	for i := range c.Milestones {
		if c.Milestones[i].MaxWaitTicks == 0 {
			c.Milestones[i].MaxWaitTicks = c.Queue.DefaultMaxWaitTicks
		}
	}
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = DefaultQueueCapacity
	}
	if len(c.Scoring.Heat.Falloff.Points) == 0 {
		c.Scoring.Heat.Falloff = Linear(0, 1, 50, 0)
	}
	if len(c.Scoring.Pressure.Curve.Points) == 0 {
		c.Scoring.Pressure.Curve = Linear(0, 0, 1, 1)
	}
	if len(c.Scoring.Milestone.Curve.Points) == 0 {
		c.Scoring.Milestone.Curve = Linear(0, 0, 1, 1)
	}
	if len(c.Scoring.Recency.Curve.Points) == 0 {
		c.Scoring.Recency.Curve = Linear(0, 1, 1, 0)
	}
}

// DefaultQueueCapacity bounds the queue when no capacity is configured.
const DefaultQueueCapacity = 32

// Default returns a small, valid configuration with no pressures or
// milestones. Useful as a base for tests and the CLI.
func Default() *Config {
	cfg := &Config{
		Heat: HeatConfig{Min: 0, Max: 100, Initial: 20, Rest: 20, DecayPerTick: 1},
		Queue: QueueConfig{
			Capacity: DefaultQueueCapacity,
		},
		Scoring: ScoringConfig{
			Heat:          HeatAffinityConfig{Weight: 1, TierCenters: []float64{10, 40, 70, 95}},
			Pressure:      CurveComponent{Weight: 2},
			Milestone:     CurveComponent{Weight: 2},
			Recency:       RecencyConfig{Weight: 1, HorizonTicks: 20},
			QueuePriority: QueuePriority{Scheduled: 1, Pressure: 2, Milestone: 3, Player: 4},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// PriorityOf returns the queue bonus for a queue source name.
func (q QueuePriority) PriorityOf(source string) float64 {
	switch source {
	case "scheduled":
		return q.Scheduled
	case "pressure":
		return q.Pressure
	case "milestone":
		return q.Milestone
	case "player":
		return q.Player
	}
	return 0
}
