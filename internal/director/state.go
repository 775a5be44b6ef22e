package director

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/storylet/internal/config"
	"github.com/roach88/storylet/internal/ir"
)

// PressureState is the runtime value of one pressure.
type PressureState struct {
	Value             float64
	CooldownRemaining int64
}

// MilestoneState is the runtime stage of one milestone. Stage counts the
// thresholds crossed; it never exceeds the number of thresholds.
type MilestoneState struct {
	Stage    int
	Progress float64
}

// State is the director's persistent aggregate: heat, cooldowns,
// pressures, milestones and the event queue. It is created once at world
// start, mutated only by Director.Step, and persisted wholesale through
// Snapshot.
type State struct {
	seed       int64
	tick       int64
	heat       float64
	cooldowns  map[ir.StoryletKey]int64 // key -> last fired tick
	pressures  map[string]*PressureState
	milestones map[string]*MilestoneState
	queue      *Queue

	// Diagnostics raised by Restore, reported on the next step.
	pending []ir.Diagnostic
}

// NewState creates the initial state for a world seed.
func NewState(cfg *config.Config, seed int64) *State {
	st := &State{
		seed:       seed,
		heat:       cfg.Heat.Initial,
		cooldowns:  make(map[ir.StoryletKey]int64),
		pressures:  make(map[string]*PressureState, len(cfg.Pressures)),
		milestones: make(map[string]*MilestoneState, len(cfg.Milestones)),
		queue:      NewQueue(cfg.Queue.Capacity),
	}
	for _, p := range cfg.Pressures {
		st.pressures[p.ID] = &PressureState{}
	}
	for _, m := range cfg.Milestones {
		st.milestones[m.ID] = &MilestoneState{}
	}
	return st
}

// Seed returns the world seed.
func (s *State) Seed() int64 { return s.seed }

// Tick returns the last tick stepped, 0 before the first step.
func (s *State) Tick() int64 { return s.tick }

// Heat returns the current heat.
func (s *State) Heat() float64 { return s.heat }

// LastFired returns the tick key last fired, if it has a cooldown entry.
func (s *State) LastFired(key ir.StoryletKey) (int64, bool) {
	t, ok := s.cooldowns[key]
	return t, ok
}

// Pressure returns the runtime state of a pressure.
func (s *State) Pressure(id string) (PressureState, bool) {
	p, ok := s.pressures[id]
	if !ok {
		return PressureState{}, false
	}
	return *p, true
}

// Milestone returns the runtime state of a milestone.
func (s *State) Milestone(id string) (MilestoneState, bool) {
	m, ok := s.milestones[id]
	if !ok {
		return MilestoneState{}, false
	}
	return *m, true
}

// Queue returns the event queue. Callers must not mutate it outside Step.
func (s *State) Queue() *Queue { return s.queue }

// Snapshot captures the state in its persisted layout. Every list is in a
// fixed order so equal states produce equal snapshots.
func (s *State) Snapshot() ir.Snapshot {
	snap := ir.Snapshot{
		Version:    ir.SnapshotVersion,
		Seed:       s.seed,
		Tick:       s.tick,
		Heat:       s.heat,
		NextSeq:    s.queue.NextSeq(),
		Cooldowns:  make([]ir.CooldownEntry, 0, len(s.cooldowns)),
		Pressures:  make([]ir.PressureEntry, 0, len(s.pressures)),
		Milestones: make([]ir.MilestoneEntry, 0, len(s.milestones)),
		Queue:      s.queue.Entries(),
	}
	for _, k := range slices.Sorted(maps.Keys(s.cooldowns)) {
		snap.Cooldowns = append(snap.Cooldowns, ir.CooldownEntry{Key: k, LastFired: s.cooldowns[k]})
	}
	for _, id := range slices.Sorted(maps.Keys(s.pressures)) {
		p := s.pressures[id]
		snap.Pressures = append(snap.Pressures, ir.PressureEntry{ID: id, Value: p.Value, CooldownRemaining: p.CooldownRemaining})
	}
	for _, id := range slices.Sorted(maps.Keys(s.milestones)) {
		m := s.milestones[id]
		snap.Milestones = append(snap.Milestones, ir.MilestoneEntry{ID: id, Stage: m.Stage, Progress: m.Progress})
	}
	return snap
}

// Digest is the snapshot digest of the state.
func (s *State) Digest() (string, error) {
	return ir.SnapshotDigest(s.Snapshot())
}

// Restore rebuilds a state from a snapshot taken under cfg.
//
// Pressures or milestones present in cfg but missing from the snapshot
// start fresh. Ids the snapshot carries that cfg no longer declares are an
// error: the state would silently lose them. Malformed queue entries are
// dropped and reported as diagnostics on the next step.
func Restore(cfg *config.Config, snap ir.Snapshot) (*State, error) {
	if snap.Version != ir.SnapshotVersion {
		return nil, &RestoreError{Field: "version", Message: fmt.Sprintf("unsupported snapshot version %d (want %d)", snap.Version, ir.SnapshotVersion)}
	}
	st := NewState(cfg, snap.Seed)
	st.tick = snap.Tick
	st.heat = snap.Heat

	for _, c := range snap.Cooldowns {
		if c.Key == 0 {
			return nil, &RestoreError{Field: "cooldowns", Message: "zero storylet key"}
		}
		st.cooldowns[c.Key] = c.LastFired
	}
	for _, p := range snap.Pressures {
		ps, ok := st.pressures[p.ID]
		if !ok {
			return nil, &RestoreError{Field: "pressures", Message: fmt.Sprintf("unknown pressure %q", p.ID)}
		}
		ps.Value = p.Value
		ps.CooldownRemaining = p.CooldownRemaining
	}
	for _, m := range snap.Milestones {
		ms, ok := st.milestones[m.ID]
		if !ok {
			return nil, &RestoreError{Field: "milestones", Message: fmt.Sprintf("unknown milestone %q", m.ID)}
		}
		ms.Stage = m.Stage
		ms.Progress = m.Progress
	}

	nextSeq := snap.NextSeq
	seen := make(map[int64]bool, len(snap.Queue))
	var entries []ir.QueuedEvent
	for _, e := range snap.Queue {
		var problem string
		switch {
		case e.Key == 0:
			problem = "zero storylet key"
		case !e.Source.Queued():
			problem = fmt.Sprintf("source %s cannot be queued", e.Source)
		case e.Seq <= 0 || seen[e.Seq]:
			problem = fmt.Sprintf("invalid or duplicate seq %d", e.Seq)
		case e.MaxWaitTicks < 0:
			problem = "negative max wait"
		}
		if problem != "" {
			st.pending = append(st.pending, ir.Diagnostic{
				Code:    ir.DiagMalformed,
				Message: "dropped queue entry on restore: " + problem,
				Key:     e.Key,
				Subject: "queue",
			})
			continue
		}
		seen[e.Seq] = true
		nextSeq = max(nextSeq, e.Seq)
		entries = append(entries, e)
	}
	st.queue = restoreQueue(cfg.Queue.Capacity, entries, nextSeq)
	return st, nil
}
