package director

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sort"

	"github.com/roach88/storylet/internal/config"
	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/library"
	"github.com/roach88/storylet/internal/world"
)

// MilestoneProgress reports progress the host applied to a milestone.
type MilestoneProgress struct {
	ID    string
	Delta float64
}

// ScheduleRequest asks the director to queue a specific storylet.
type ScheduleRequest struct {
	Key          ir.StoryletKey
	Source       ir.Source // SourceScheduled or SourcePlayer
	Delay        int64     // Ticks until ready; 0 = ready this tick
	MaxWaitTicks int64     // 0 = queue default
	Origin       string    // Caller label, kept on the queue entry
}

// StepInput is everything the host hands the director for one tick.
// World and Memory are read-only; nil means empty.
type StepInput struct {
	Tick     int64
	World    world.View
	Memory   world.Memory
	Progress []MilestoneProgress
	Resolved []string // Pressure ids resolved this tick
	Schedule []ScheduleRequest
}

// Director runs the per-tick pipeline over a fixed configuration and
// library. A Director holds no per-world state and may drive any number
// of States, one at a time.
type Director struct {
	cfg        *config.Config
	lib        *library.Library
	logger     *slog.Logger
	pressures  []*pressureTracker // Sorted by id
	milestones map[string]*milestoneTracker
	msOrder    []*milestoneTracker // Sorted by id
	scorer     *scorer
}

// Option configures a Director.
type Option func(*Director)

// WithLogger sets the logger for step diagnostics.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Director) {
		d.logger = l
	}
}

// New validates cfg against lib and builds a Director.
//
// The config must pass config.Validate, and every storylet's heat tier must
// have a configured center. Pressures and milestones whose tags match no
// storylet are allowed but logged: their triggers will report lookup
// diagnostics.
func New(cfg *config.Config, lib *library.Library, opts ...Option) (*Director, error) {
	if cfg == nil || lib == nil {
		return nil, errors.New("director: config and library are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("director: %w", err)
	}
	var tierErrs config.Errors
	for _, k := range lib.Keys() {
		s, _ := lib.Lookup(k)
		if err := cfg.CheckTier(s.HeatTier); err != nil {
			var ce *config.ConfigError
			errors.As(err, &ce)
			ce.Message = fmt.Sprintf("storylet %d (%s): %s", s.Key, s.Name, ce.Message)
			tierErrs = append(tierErrs, ce)
		}
	}
	if len(tierErrs) > 0 {
		return nil, fmt.Errorf("director: %w", tierErrs)
	}

	d := &Director{
		cfg:        cfg,
		lib:        lib,
		logger:     slog.Default(),
		milestones: make(map[string]*milestoneTracker, len(cfg.Milestones)),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, p := range cfg.Pressures {
		d.pressures = append(d.pressures, newPressureTracker(p))
	}
	sort.Slice(d.pressures, func(i, j int) bool { return d.pressures[i].cfg.ID < d.pressures[j].cfg.ID })
	for _, m := range cfg.Milestones {
		t := newMilestoneTracker(m)
		d.milestones[m.ID] = t
		d.msOrder = append(d.msOrder, t)
	}
	sort.Slice(d.msOrder, func(i, j int) bool { return d.msOrder[i].cfg.ID < d.msOrder[j].cfg.ID })

	for _, t := range d.pressures {
		if len(lib.WithTag(t.tags)) == 0 {
			d.logger.Warn("pressure tags match no storylet", "pressure", t.cfg.ID, "tags", t.tags.Tags())
		}
	}
	for _, t := range d.msOrder {
		if len(lib.WithTag(t.tags)) == 0 {
			d.logger.Warn("milestone tags match no storylet", "milestone", t.cfg.ID, "tags", t.tags.Tags())
		}
	}

	d.scorer = &scorer{cfg: &cfg.Scoring, pressures: d.pressures, milestones: d.msOrder}
	return d, nil
}

// Config returns the director's configuration.
func (d *Director) Config() *config.Config { return d.cfg }

// Library returns the director's storylet library.
func (d *Director) Library() *library.Library { return d.lib }

// NewState creates the initial state for a world seed.
func (d *Director) NewState(seed int64) *State {
	return NewState(d.cfg, seed)
}

// Step advances st by one tick and reports what fired. It never fails:
// anomalies are clamped or dropped and reported in the result's
// diagnostics.
func (d *Director) Step(st *State, in StepInput) ir.StepResult {
	rec := &recorder{logger: d.logger, tick: in.Tick}
	rec.diags = append(rec.diags, st.pending...)
	st.pending = nil

	tick := in.Tick
	if tick <= st.tick {
		rec.violation(&InvariantViolation{Subject: "tick", Value: float64(tick), Min: float64(st.tick + 1), Max: math.MaxInt64})
		tick = st.tick + 1
	}
	st.tick = tick
	rec.tick = tick

	view := in.World
	if view == nil {
		view = emptyView{}
	}
	mem := in.Memory
	if mem == nil {
		mem = world.Empty{}
	}

	d.adopt(st)
	d.checkBounds(st, rec)

	var triggers []trigger

	// Milestones first: progress applied by last tick's outcomes.
	for _, p := range in.Progress {
		t, ok := d.milestones[p.ID]
		if !ok {
			rec.malformed("milestone "+p.ID, fmt.Sprintf("progress for unknown milestone %q", p.ID), 0)
			continue
		}
		if crossed, stage := t.apply(st.milestones[p.ID], p.Delta); crossed {
			d.logger.Debug("milestone stage crossed", "tick", tick, "milestone", p.ID, "stage", stage)
			triggers = append(triggers, t.trigger(tick, stage))
		}
	}

	resolved := make(map[string]bool, len(in.Resolved))
	for _, id := range in.Resolved {
		if _, ok := st.pressures[id]; !ok {
			rec.malformed("pressure "+id, fmt.Sprintf("resolution for unknown pressure %q", id), 0)
			continue
		}
		resolved[id] = true
	}
	for _, t := range d.pressures {
		if t.advance(st.pressures[t.cfg.ID], resolved[t.cfg.ID], rec) {
			d.logger.Debug("pressure fired", "tick", tick, "pressure", t.cfg.ID)
			triggers = append(triggers, t.trigger(tick))
		}
	}

	d.relaxHeat(st)

	var res ir.StepResult
	res.Tick = tick
	d.enqueueTriggers(st, triggers, &res, rec)
	d.enqueueScheduled(st, tick, in.Schedule, &res, rec)
	d.pruneCooldowns(st, tick, rec)

	// Fresh candidates are computed before and independently of the queue.
	ctx := newEvalContext(tick, st, view, mem)
	var fresh []ir.StoryletKey
	for _, k := range d.lib.Keys() {
		s, _ := d.lib.Lookup(k)
		if ctx.eligible(s) {
			fresh = append(fresh, k)
		}
	}

	ready, expired := st.queue.DrainReady(tick)
	for _, e := range expired {
		d.logger.Debug("queue entry expired", "tick", tick, "storylet", uint32(e.Key), "seq", e.Seq)
		res.Expired = append(res.Expired, e.Key)
	}
	var waiting, queued []ir.QueuedEvent
	for _, e := range ready {
		s, ok := d.lib.Lookup(e.Key)
		switch {
		case !ok:
			rec.lookup(&LookupError{Key: e.Key, Context: "queue"})
		case coolingDown(st, s, tick):
			waiting = append(waiting, e)
		default:
			queued = append(queued, e)
		}
	}

	cands := make([]ir.ScoredCandidate, 0, len(fresh)+len(queued))
	for _, k := range fresh {
		s, _ := d.lib.Lookup(k)
		b := d.scorer.score(st, s, ir.SourceFresh, tick)
		cands = append(cands, ir.ScoredCandidate{Key: k, Score: b.Total(), Breakdown: b, Source: ir.SourceFresh})
	}
	for _, e := range queued {
		s, _ := d.lib.Lookup(e.Key)
		b := d.scorer.score(st, s, e.Source, tick)
		cands = append(cands, ir.ScoredCandidate{Key: e.Key, Score: b.Total(), Breakdown: b, Source: e.Source, Seq: e.Seq})
	}
	rank(cands)
	res.Candidates = len(cands)

	var firedKey ir.StoryletKey
	if len(cands) > 0 {
		best := cands[0]
		s, _ := d.lib.Lookup(best.Key)
		d.fire(st, s, tick)
		firedKey = s.Key
		res.Fired = &ir.Firing{Key: s.Key, Outcome: s.Outcome, Source: best.Source, Score: best.Score}
		d.logger.Debug("storylet fired", "tick", tick, "storylet", uint32(s.Key), "source", best.Source.String(), "score", best.Score)
	}

	for _, e := range queued {
		if e.Key != firedKey {
			st.queue.Reinsert(e)
		}
	}
	for _, e := range waiting {
		st.queue.Reinsert(e)
	}

	res.Heat = st.heat
	res.Diagnostics = rec.diags
	return res
}

// adopt gives st an entry for every configured pressure and milestone, so a
// state created before a pressure was added keeps stepping.
func (d *Director) adopt(st *State) {
	for _, t := range d.pressures {
		if _, ok := st.pressures[t.cfg.ID]; !ok {
			st.pressures[t.cfg.ID] = &PressureState{}
		}
	}
	for _, t := range d.msOrder {
		if _, ok := st.milestones[t.cfg.ID]; !ok {
			st.milestones[t.cfg.ID] = &MilestoneState{}
		}
	}
}

// checkBounds clamps state found outside its declared bounds.
func (d *Director) checkBounds(st *State, rec *recorder) {
	h := d.cfg.Heat
	if math.IsNaN(st.heat) || st.heat < h.Min || st.heat > h.Max {
		rec.violation(&InvariantViolation{Subject: "heat", Value: st.heat, Min: h.Min, Max: h.Max})
		st.heat = clamp(st.heat, h.Min, h.Max)
	}
	for _, id := range slices.Sorted(maps.Keys(st.milestones)) {
		t, ok := d.milestones[id]
		if !ok {
			continue
		}
		ms := st.milestones[id]
		final := t.final()
		if ms.Stage < 0 || ms.Stage > final {
			rec.violation(&InvariantViolation{Subject: "milestone " + id, Value: float64(ms.Stage), Min: 0, Max: float64(final)})
			ms.Stage = min(max(ms.Stage, 0), final)
		}
	}
}

// relaxHeat moves heat toward its rest value by at most decay_per_tick.
func (d *Director) relaxHeat(st *State) {
	h := d.cfg.Heat
	switch {
	case st.heat > h.Rest:
		st.heat = math.Max(h.Rest, st.heat-h.DecayPerTick)
	case st.heat < h.Rest:
		st.heat = math.Min(h.Rest, st.heat+h.DecayPerTick)
	}
}

func (d *Director) priority(src ir.Source) float64 {
	return d.cfg.Scoring.QueuePriority.PriorityOf(src.String())
}

func (d *Director) push(st *State, e ir.QueuedEvent, res *ir.StepResult, rec *recorder) {
	e, evicted := st.queue.Push(e, d.priority)
	d.logger.Debug("queued", "tick", rec.tick, "storylet", uint32(e.Key), "source", e.Source.String(), "ready_tick", e.ReadyTick, "seq", e.Seq)
	for _, v := range evicted {
		res.Evicted = append(res.Evicted, v.Key)
		rec.evicted(v)
	}
}

// enqueueTriggers resolves each trigger to a storylet and queues it.
func (d *Director) enqueueTriggers(st *State, triggers []trigger, res *ir.StepResult, rec *recorder) {
	for _, tr := range triggers {
		key, ok := d.lib.ResolveTags(tr.tags)
		if !ok {
			rec.lookup(&LookupError{Context: tr.source.String() + " " + tr.origin})
			continue
		}
		d.push(st, ir.QueuedEvent{
			Key:          key,
			Source:       tr.source,
			ReadyTick:    tr.readyTick,
			MaxWaitTicks: tr.maxWait,
			Origin:       tr.origin,
		}, res, rec)
	}
}

// enqueueScheduled queues explicit host requests.
func (d *Director) enqueueScheduled(st *State, tick int64, reqs []ScheduleRequest, res *ir.StepResult, rec *recorder) {
	for _, r := range reqs {
		switch {
		case r.Source != ir.SourceScheduled && r.Source != ir.SourcePlayer:
			rec.malformed("schedule", fmt.Sprintf("schedule request with source %s", r.Source), r.Key)
			continue
		case r.Delay < 0 || r.MaxWaitTicks < 0:
			rec.malformed("schedule", "schedule request with negative delay or max wait", r.Key)
			continue
		case !d.lib.Has(r.Key):
			rec.lookup(&LookupError{Key: r.Key, Context: "schedule"})
			continue
		}
		maxWait := r.MaxWaitTicks
		if maxWait == 0 {
			maxWait = d.cfg.Queue.DefaultMaxWaitTicks
		}
		d.push(st, ir.QueuedEvent{
			Key:          r.Key,
			Source:       r.Source,
			ReadyTick:    tick + r.Delay,
			MaxWaitTicks: maxWait,
			Origin:       r.Origin,
		}, res, rec)
	}
}

// pruneCooldowns drops cooldown entries whose storylet is gone, and
// entries that no longer affect eligibility or recency scoring.
func (d *Director) pruneCooldowns(st *State, tick int64, rec *recorder) {
	horizon := d.cfg.Scoring.Recency.HorizonTicks
	for _, k := range slices.Sorted(maps.Keys(st.cooldowns)) {
		s, ok := d.lib.Lookup(k)
		if !ok {
			rec.lookup(&LookupError{Key: k, Context: "cooldown"})
			delete(st.cooldowns, k)
			continue
		}
		if since := tick - st.cooldowns[k]; since >= s.MinCooldownTicks && since >= horizon {
			delete(st.cooldowns, k)
		}
	}
}

// fire applies the post-fire mutation: heat delta and cooldown. Outcomes
// are the host's to apply.
func (d *Director) fire(st *State, s *library.Storylet, tick int64) {
	h := d.cfg.Heat
	next := st.heat + s.HeatDelta
	if next < h.Min || next > h.Max {
		d.logger.Debug("heat clamped", "tick", tick, "storylet", uint32(s.Key), "heat", next)
	}
	st.heat = clamp(next, h.Min, h.Max)
	st.cooldowns[s.Key] = tick
}
