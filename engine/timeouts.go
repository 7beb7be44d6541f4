package engine

import (
	"container/heap"
	"time"
)

// timeoutEntry is a scheduled deadline for an event. Cancellation is lazy:
// cancelled entries stay in the heap and are dropped when they surface.
type timeoutEntry struct {
	deadline  time.Time
	event     Event
	index     int
	cancelled bool
	popped    bool
}

type timeoutHeap []*timeoutEntry

func (h timeoutHeap) Len() int { return len(h) }

func (h timeoutHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].index < h[j].index
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timeoutHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timeoutHeap) Push(x any) { *h = append(*h, x.(*timeoutEntry)) }

func (h *timeoutHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// Timeouts is a min-heap of event deadlines with lazy cancellation. Entries
// with equal deadlines pop in insertion order.
type Timeouts struct {
	heap    timeoutHeap
	counter int
}

// NewTimeouts creates an empty timeout schedule.
func NewTimeouts() *Timeouts {
	return &Timeouts{}
}

// Size returns the number of pending entries, cancelled ones included
// until they surface. Call PopEarliestCancelled first for a live count.
func (t *Timeouts) Size() int { return len(t.heap) }

// Add schedules an event deadline and returns a handle for cancellation.
func (t *Timeouts) Add(deadline time.Time, event Event) *timeoutEntry {
	entry := &timeoutEntry{deadline: deadline, event: event, index: t.counter}
	t.counter++
	heap.Push(&t.heap, entry)
	return entry
}

// Cancel marks a pending entry cancelled. Cancelling an entry that already
// popped has no effect.
func (t *Timeouts) Cancel(entry *timeoutEntry) {
	if !entry.popped {
		entry.cancelled = true
	}
}

// PopEarliestCancelled discards cancelled entries sitting at the top of
// the heap.
func (t *Timeouts) PopEarliestCancelled() {
	for len(t.heap) > 0 && t.heap[0].cancelled {
		t.popEntry()
	}
}

// PopTimeout removes and returns the earliest pending deadline and its
// event. It must not be called on an empty schedule.
func (t *Timeouts) PopTimeout() (time.Time, Event) {
	entry := t.popEntry()
	return entry.deadline, entry.event
}

// Earliest returns the earliest live deadline, or false if none is pending.
func (t *Timeouts) Earliest() (time.Time, bool) {
	t.PopEarliestCancelled()
	if len(t.heap) == 0 {
		return time.Time{}, false
	}
	return t.heap[0].deadline, true
}

// HasExpired reports whether a live deadline is due at or before now.
func (t *Timeouts) HasExpired(now time.Time) bool {
	earliest, ok := t.Earliest()
	return ok && !earliest.After(now)
}

func (t *Timeouts) popEntry() *timeoutEntry {
	entry := heap.Pop(&t.heap).(*timeoutEntry)
	entry.popped = true
	return entry
}
