package harness

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storylet/internal/ir"
)

// Scenario defines a director scenario: a library, a configuration, a
// starting world and a scripted host, run for a fixed number of ticks
// from a seed, with assertions on what fired.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Library is the CUE storylet directory, relative to the scenario file.
	Library string `yaml:"library"`

	// Config is the director configuration YAML, relative to the scenario
	// file. Empty means config.Default().
	Config string `yaml:"config,omitempty"`

	Seed  int64 `yaml:"seed"`
	Ticks int64 `yaml:"ticks"`

	// SnapshotEvery stores a snapshot every N ticks when recording to a
	// store. The final state is always stored. 0 = final only.
	SnapshotEvery int64 `yaml:"snapshot_every,omitempty"`

	// World is the initial world state.
	World WorldSpec `yaml:"world"`

	// Memory is the initial memory log.
	Memory []FactSpec `yaml:"memory,omitempty"`

	// Inputs are host actions applied at specific ticks.
	Inputs []TickInput `yaml:"inputs,omitempty"`

	// Outcomes maps a storylet outcome reference to the effect the host
	// applies when a storylet with that outcome fires.
	Outcomes map[string]Effect `yaml:"outcomes,omitempty"`

	// Assertions validate the run.
	Assertions []Assertion `yaml:"assertions"`

	// dir is the directory relative paths resolve against.
	dir string
	// source is the raw YAML, kept for run records.
	source []byte
	// path is the file the scenario was loaded from, if any.
	path string
}

// WorldSpec is the initial world.
type WorldSpec struct {
	LifeStage     string             `yaml:"life_stage"`
	Stats         map[string]float64 `yaml:"stats,omitempty"`
	Relationships []RelationSpec     `yaml:"relationships,omitempty"`
	Tags          []string           `yaml:"tags,omitempty"`
}

// RelationSpec sets one relationship axis.
type RelationSpec struct {
	Actor  string  `yaml:"actor"`
	Target string  `yaml:"target"`
	Axis   string  `yaml:"axis"`
	Value  float64 `yaml:"value"`
}

// FactSpec is one memory fact.
type FactSpec struct {
	Tick   int64    `yaml:"tick"`
	Actor  string   `yaml:"actor"`
	Target string   `yaml:"target,omitempty"`
	Tags   []string `yaml:"tags"`
}

// ProgressSpec reports milestone progress.
type ProgressSpec struct {
	Milestone string  `yaml:"milestone"`
	Delta     float64 `yaml:"delta"`
}

// ScheduleSpec requests a specific storylet.
type ScheduleSpec struct {
	Key          ir.StoryletKey `yaml:"key"`
	Source       string         `yaml:"source,omitempty"` // scheduled (default) or player
	Delay        int64          `yaml:"delay,omitempty"`
	MaxWaitTicks int64          `yaml:"max_wait_ticks,omitempty"`
	Origin       string         `yaml:"origin,omitempty"`
}

// TickInput is what the host does before stepping a tick.
type TickInput struct {
	Tick     int64          `yaml:"tick"`
	Progress []ProgressSpec `yaml:"progress,omitempty"`
	Resolve  []string       `yaml:"resolve,omitempty"`
	Schedule []ScheduleSpec `yaml:"schedule,omitempty"`
	World    *WorldEdit     `yaml:"world,omitempty"`
	Memory   []FactSpec     `yaml:"memory,omitempty"`
}

// WorldEdit changes the world before a tick.
type WorldEdit struct {
	LifeStage     string             `yaml:"life_stage,omitempty"`
	SetStats      map[string]float64 `yaml:"set_stats,omitempty"`
	AddStats      map[string]float64 `yaml:"add_stats,omitempty"`
	Relationships []RelationSpec     `yaml:"relationships,omitempty"`
	AddTags       []string           `yaml:"add_tags,omitempty"`
	RemoveTags    []string           `yaml:"remove_tags,omitempty"`
}

// Effect is what the host does when a storylet outcome fires. World
// changes and memory facts apply immediately; milestone progress and
// pressure resolution are reported on the next tick.
type Effect struct {
	Stats         map[string]float64 `yaml:"stats,omitempty"` // Deltas
	Relationships []RelationSpec     `yaml:"relationships,omitempty"`
	AddTags       []string           `yaml:"add_tags,omitempty"`
	RemoveTags    []string           `yaml:"remove_tags,omitempty"`
	Memory        []FactSpec         `yaml:"memory,omitempty"` // Tick is ignored; the firing tick is used
	Progress      []ProgressSpec     `yaml:"progress,omitempty"`
	Resolve       []string           `yaml:"resolve,omitempty"`
	Schedule      []ScheduleSpec     `yaml:"schedule,omitempty"`
}

// Assertion validates the run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "fired_at": Key fired at Tick
	// - "no_fire_at": Nothing fired at Tick
	// - "fire_count": Key fired exactly Count times
	// - "never_fired": Key never fired
	// - "expired": Key expired from the queue (at Tick when set)
	// - "heat_between": Heat within [Min, Max] at Tick, or at every tick when Tick is 0
	// - "final_queue_len": Queue holds Count entries after the last tick
	Type string `yaml:"type"`

	Key   ir.StoryletKey `yaml:"key,omitempty"`
	Tick  int64          `yaml:"tick,omitempty"`
	Count int            `yaml:"count,omitempty"`
	Min   float64        `yaml:"min,omitempty"`
	Max   float64        `yaml:"max,omitempty"`
}

// Assertion type constants.
const (
	AssertFiredAt       = "fired_at"
	AssertNoFireAt      = "no_fire_at"
	AssertFireCount     = "fire_count"
	AssertNeverFired    = "never_fired"
	AssertExpired       = "expired"
	AssertHeatBetween   = "heat_between"
	AssertFinalQueueLen = "final_queue_len"
)

// LoadScenario reads and parses a scenario YAML file. Relative paths in
// the scenario resolve against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.path = path
	return s, nil
}

// ParseScenario parses scenario YAML, resolving relative paths against
// baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.dir = baseDir
	scenario.source = append([]byte(nil), data...)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Source returns the YAML the scenario was parsed from.
func (s *Scenario) Source() []byte { return s.source }

// Path returns the file the scenario was loaded from, or "".
func (s *Scenario) Path() string { return s.path }

// Dir returns the directory relative paths resolve against.
func (s *Scenario) Dir() string { return s.dir }

// LibraryPath returns the resolved library directory.
func (s *Scenario) LibraryPath() string { return s.resolve(s.Library) }

// ConfigPath returns the resolved config file, or "" for the default.
func (s *Scenario) ConfigPath() string {
	if s.Config == "" {
		return ""
	}
	return s.resolve(s.Config)
}

func (s *Scenario) resolve(p string) string {
	if filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Library == "" {
		return fmt.Errorf("library is required")
	}
	if s.Ticks <= 0 {
		return fmt.Errorf("ticks must be positive")
	}
	if s.SnapshotEvery < 0 {
		return fmt.Errorf("snapshot_every must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[int64]bool, len(s.Inputs))
	for i, in := range s.Inputs {
		if in.Tick < 1 || in.Tick > s.Ticks {
			return fmt.Errorf("inputs[%d]: tick %d outside 1..%d", i, in.Tick, s.Ticks)
		}
		if seen[in.Tick] {
			return fmt.Errorf("inputs[%d]: duplicate tick %d", i, in.Tick)
		}
		seen[in.Tick] = true
		for j, sc := range in.Schedule {
			if err := validateSchedule(sc); err != nil {
				return fmt.Errorf("inputs[%d].schedule[%d]: %w", i, j, err)
			}
		}
	}

	for _, outcome := range slices.Sorted(maps.Keys(s.Outcomes)) {
		for j, sc := range s.Outcomes[outcome].Schedule {
			if err := validateSchedule(sc); err != nil {
				return fmt.Errorf("outcomes[%q].schedule[%d]: %w", outcome, j, err)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateSchedule(sc ScheduleSpec) error {
	if sc.Key == 0 {
		return fmt.Errorf("key is required")
	}
	if _, err := scheduleSource(sc.Source); err != nil {
		return err
	}
	if sc.Delay < 0 {
		return fmt.Errorf("delay must be non-negative")
	}
	return nil
}

func scheduleSource(name string) (ir.Source, error) {
	switch name {
	case "", "scheduled":
		return ir.SourceScheduled, nil
	case "player":
		return ir.SourcePlayer, nil
	}
	return 0, fmt.Errorf("source must be scheduled or player, got %q", name)
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFiredAt:
		if a.Key == 0 || a.Tick <= 0 {
			return fmt.Errorf("assertions[%d]: key and tick are required for fired_at", index)
		}
	case AssertNoFireAt:
		if a.Tick <= 0 {
			return fmt.Errorf("assertions[%d]: tick is required for no_fire_at", index)
		}
	case AssertFireCount:
		if a.Key == 0 {
			return fmt.Errorf("assertions[%d]: key is required for fire_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for fire_count", index)
		}
	case AssertNeverFired, AssertExpired:
		if a.Key == 0 {
			return fmt.Errorf("assertions[%d]: key is required for %s", index, a.Type)
		}
	case AssertHeatBetween:
		if a.Min > a.Max {
			return fmt.Errorf("assertions[%d]: min %g above max %g for heat_between", index, a.Min, a.Max)
		}
	case AssertFinalQueueLen:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for final_queue_len", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
