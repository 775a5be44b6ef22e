package director

import (
	"slices"
	"sort"

	"github.com/roach88/storylet/internal/ir"
)

// Queue holds deferred candidates totally ordered by (ready_tick, seq).
//
// The queue is bounded. Insertion past capacity evicts the entry whose
// source has the lowest priority, and among equals the oldest by
// (ready_tick, seq). An arrival is evicted only when it is strictly the
// lowest-priority entry present.
type Queue struct {
	entries  []ir.QueuedEvent // Sorted by Less
	clock    *Clock
	capacity int
}

// NewQueue creates an empty queue. A capacity of 0 is unbounded.
func NewQueue(capacity int) *Queue {
	return &Queue{clock: NewClock(), capacity: capacity}
}

// Len returns the number of waiting entries.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns a copy of the entries in (ready_tick, seq) order.
func (q *Queue) Entries() []ir.QueuedEvent {
	return slices.Clone(q.entries)
}

// NextSeq returns the last sequence number handed out.
func (q *Queue) NextSeq() int64 {
	return q.clock.Current()
}

// Push stamps e with the next sequence number and inserts it. Entries
// evicted to stay within capacity are returned in eviction order.
func (q *Queue) Push(e ir.QueuedEvent, priority func(ir.Source) float64) (ir.QueuedEvent, []ir.QueuedEvent) {
	e.Seq = q.clock.Next()
	q.insert(e)
	return e, q.evict(e.Seq, priority)
}

// Reinsert puts a drained entry back, keeping its original sequence number.
func (q *Queue) Reinsert(e ir.QueuedEvent) {
	q.insert(e)
}

func (q *Queue) insert(e ir.QueuedEvent) {
	i := sort.Search(len(q.entries), func(i int) bool { return e.Less(q.entries[i]) })
	q.entries = slices.Insert(q.entries, i, e)
}

// evict removes entries until the queue fits its capacity. The entry
// stamped arrival is chosen only when its priority is strictly below every
// other entry's.
func (q *Queue) evict(arrival int64, priority func(ir.Source) float64) []ir.QueuedEvent {
	if q.capacity <= 0 {
		return nil
	}
	var evicted []ir.QueuedEvent
	for len(q.entries) > q.capacity {
		// entries are in (ready_tick, seq) order, so the first entry at the
		// lowest priority is the oldest among equals.
		victim, incoming := -1, -1
		for i, e := range q.entries {
			if e.Seq == arrival {
				incoming = i
				continue
			}
			if victim < 0 || priority(e.Source) < priority(q.entries[victim].Source) {
				victim = i
			}
		}
		if victim < 0 || (incoming >= 0 && priority(q.entries[incoming].Source) < priority(q.entries[victim].Source)) {
			victim = incoming
		}
		evicted = append(evicted, q.entries[victim])
		q.entries = slices.Delete(q.entries, victim, victim+1)
	}
	return evicted
}

// DrainReady removes every entry with ready_tick <= tick. Entries that
// waited longer than their max wait are returned as expired; the rest are
// returned as ready. Both lists keep (ready_tick, seq) order.
func (q *Queue) DrainReady(tick int64) (ready, expired []ir.QueuedEvent) {
	n := sort.Search(len(q.entries), func(i int) bool { return q.entries[i].ReadyTick > tick })
	for _, e := range q.entries[:n] {
		if e.Expired(tick) {
			expired = append(expired, e)
			continue
		}
		ready = append(ready, e)
	}
	q.entries = slices.Delete(q.entries, 0, n)
	return ready, expired
}

// restoreQueue rebuilds a queue from snapshot entries, resuming the clock
// at nextSeq.
func restoreQueue(capacity int, entries []ir.QueuedEvent, nextSeq int64) *Queue {
	q := &Queue{clock: NewClockAt(nextSeq), capacity: capacity}
	for _, e := range entries {
		q.insert(e)
	}
	return q
}
