package ir

import (
	"fmt"
	"strconv"
)

// StoryletKey identifies a storylet in the external library.
// Zero is never a valid key.
type StoryletKey uint32

// String renders the key in decimal form.
func (k StoryletKey) String() string {
	return strconv.FormatUint(uint64(k), 10)
}

// ParseStoryletKey parses a decimal storylet key.
func ParseStoryletKey(s string) (StoryletKey, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse storylet key %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("parse storylet key %q: zero is not a valid key", s)
	}
	return StoryletKey(n), nil
}

// Source records where a candidate came from.
type Source int

const (
	// SourceFresh marks a candidate produced by the eligibility pipeline this tick.
	SourceFresh Source = iota
	// SourceScheduled marks an explicitly scheduled queue entry.
	SourceScheduled
	// SourcePressure marks a queue entry emitted by a pressure crossing its threshold.
	SourcePressure
	// SourceMilestone marks a queue entry emitted by a milestone stage crossing.
	SourceMilestone
	// SourcePlayer marks a queue entry requested by the player.
	SourcePlayer
)

var sourceNames = [...]string{"fresh", "scheduled", "pressure", "milestone", "player"}

// String returns the snake_case name used in JSON, YAML and SQLite.
func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return fmt.Sprintf("source(%d)", int(s))
	}
	return sourceNames[s]
}

// Queued reports whether candidates with this source come from the event queue.
func (s Source) Queued() bool {
	return s != SourceFresh
}

// ParseSource converts a source name back to a Source.
func ParseSource(name string) (Source, error) {
	for i, n := range sourceNames {
		if n == name {
			return Source(i), nil
		}
	}
	return 0, fmt.Errorf("unknown source %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(b []byte) error {
	v, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// QueuedEvent is a deferred candidate awaiting its ready tick.
type QueuedEvent struct {
	Key          StoryletKey `json:"key"`
	Source       Source      `json:"source"`
	ReadyTick    int64       `json:"ready_tick"`
	Seq          int64       `json:"seq"`                      // Insertion sequence number
	MaxWaitTicks int64       `json:"max_wait_ticks,omitempty"` // 0 = waits forever
	Origin       string      `json:"origin,omitempty"`         // Pressure/milestone id or caller label
}

// Less orders queue entries by (ready_tick, seq).
func (e QueuedEvent) Less(other QueuedEvent) bool {
	if e.ReadyTick != other.ReadyTick {
		return e.ReadyTick < other.ReadyTick
	}
	return e.Seq < other.Seq
}

// Expired reports whether the entry waited longer than its max wait at tick.
func (e QueuedEvent) Expired(tick int64) bool {
	return e.MaxWaitTicks > 0 && tick-e.ReadyTick > e.MaxWaitTicks
}

// Breakdown is the per-component contribution to a candidate's score.
type Breakdown struct {
	Base      float64 `json:"base"`
	Heat      float64 `json:"heat"`
	Pressure  float64 `json:"pressure"`
	Milestone float64 `json:"milestone"`
	Recency   float64 `json:"recency"` // Subtracted from the total
	Queue     float64 `json:"queue"`
	Jitter    float64 `json:"jitter"`
}

// Total sums the components in a fixed order.
func (b Breakdown) Total() float64 {
	total := b.Base
	total += b.Heat
	total += b.Pressure
	total += b.Milestone
	total -= b.Recency
	total += b.Queue
	total += b.Jitter
	return total
}

// ScoredCandidate is a ranked candidate for this tick.
type ScoredCandidate struct {
	Key       StoryletKey `json:"key"`
	Score     float64     `json:"score"`
	Breakdown Breakdown   `json:"breakdown"`
	Source    Source      `json:"source"`
	Seq       int64       `json:"seq,omitempty"` // Queue sequence for queue-sourced candidates
}

// Firing is the storylet selected on a tick.
type Firing struct {
	Key     StoryletKey `json:"key"`
	Outcome string      `json:"outcome"`
	Source  Source      `json:"source"`
	Score   float64     `json:"score"`
}

// DiagnosticCode categorizes per-tick anomalies.
type DiagnosticCode string

const (
	// DiagLookup marks a key that no longer resolves in the library.
	DiagLookup DiagnosticCode = "LOOKUP"
	// DiagInvariant marks a value found out of its declared bound and clamped.
	DiagInvariant DiagnosticCode = "INVARIANT"
	// DiagMalformed marks a malformed queue entry or input that was dropped.
	DiagMalformed DiagnosticCode = "MALFORMED"
	// DiagEvicted marks a queue entry evicted on overflow.
	DiagEvicted DiagnosticCode = "EVICTED"
)

// Diagnostic is a non-fatal anomaly observed during a step.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Message string         `json:"message"`
	Key     StoryletKey    `json:"key,omitempty"`
	Subject string         `json:"subject,omitempty"`
}

// StepResult is what a tick reports back to the simulation host.
type StepResult struct {
	Tick        int64         `json:"tick"`
	Fired       *Firing       `json:"fired,omitempty"`
	Expired     []StoryletKey `json:"expired,omitempty"`
	Evicted     []StoryletKey `json:"evicted,omitempty"`
	Heat        float64       `json:"heat"`
	Candidates  int           `json:"candidates"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
}

// CooldownEntry records the last tick a storylet fired.
type CooldownEntry struct {
	Key       StoryletKey `json:"key"`
	LastFired int64       `json:"last_fired"`
}

// PressureEntry is the runtime state of one pressure.
type PressureEntry struct {
	ID                string  `json:"id"`
	Value             float64 `json:"value"`
	CooldownRemaining int64   `json:"cooldown_remaining"`
}

// MilestoneEntry is the runtime state of one milestone.
type MilestoneEntry struct {
	ID       string  `json:"id"`
	Stage    int     `json:"stage"`
	Progress float64 `json:"progress"`
}

// Snapshot is the persisted layout of the director state.
// Every slice is in a fixed order: cooldowns by key, pressures and
// milestones by id, queue by (ready_tick, seq).
type Snapshot struct {
	Version    int              `json:"version"`
	Seed       int64            `json:"seed"`
	Tick       int64            `json:"tick"`
	Heat       float64          `json:"heat"`
	NextSeq    int64            `json:"next_seq"`
	Cooldowns  []CooldownEntry  `json:"cooldowns"`
	Pressures  []PressureEntry  `json:"pressures"`
	Milestones []MilestoneEntry `json:"milestones"`
	Queue      []QueuedEvent    `json:"queue"`
}
