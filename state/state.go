// Package state implements the replicated period state carried from round
// to round. Snapshots are immutable: every update layers a new snapshot
// over its parent, so past rounds keep a live view of the state they ran
// against and snapshots can be shared by reference without locking.
package state

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ConsensusThreshold returns the minimum number of identical votes needed
// to finalize a round among n participants, ceil((2n+1)/3).
func ConsensusThreshold(n int) int {
	return int(math.Ceil(float64(2*n+1) / 3))
}

// KeyNotSetError is returned by GetStrict for a key that was never set,
// or that a reset round scrubbed.
type KeyNotSetError struct {
	Key string
}

// Error implements the error interface.
func (e *KeyNotSetError) Error() string {
	return fmt.Sprintf("key %q is not set", e.Key)
}

// PeriodState is one immutable snapshot of the shared application state.
// The zero value is not usable; construct with New.
type PeriodState struct {
	participants []string
	periodCount  uint64
	values       map[string]any
	scrubbed     map[string]bool
	parent       *PeriodState
}

// New creates an initial snapshot with the given participant set and an
// empty key/value store. The participant slice is copied.
func New(participants []string) *PeriodState {
	return &PeriodState{
		participants: append([]string(nil), participants...),
	}
}

// Participants returns the participant addresses in their original order.
// The returned slice must not be mutated.
func (s *PeriodState) Participants() []string {
	return s.participants
}

// SortedParticipants returns the participant addresses sorted by their
// case-insensitive (hexadecimal) value, the order contract interactions
// expect.
func (s *PeriodState) SortedParticipants() []string {
	sorted := append([]string(nil), s.participants...)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i]) < strings.ToLower(sorted[j])
	})
	return sorted
}

// NumParticipants returns the number of participants.
func (s *PeriodState) NumParticipants() int {
	return len(s.participants)
}

// Threshold returns the consensus threshold for this participant set.
func (s *PeriodState) Threshold() int {
	return ConsensusThreshold(len(s.participants))
}

// PeriodCount returns the period counter of this snapshot.
func (s *PeriodState) PeriodCount() uint64 {
	return s.periodCount
}

// Update returns a new snapshot layered over the receiver. Keys in kv
// override the inherited value; a key explicitly mapped to nil is scrubbed
// and reads as never set again. The receiver is unchanged.
func (s *PeriodState) Update(kv map[string]any) *PeriodState {
	next := &PeriodState{
		participants: s.participants,
		periodCount:  s.periodCount,
		parent:       s,
	}
	for k, v := range kv {
		if v == nil {
			if next.scrubbed == nil {
				next.scrubbed = make(map[string]bool)
			}
			next.scrubbed[k] = true
			continue
		}
		if next.values == nil {
			next.values = make(map[string]any)
		}
		next.values[k] = v
	}
	return next
}

// UpdateWithPeriodCount is Update with a new period counter, used by reset
// rounds which bump the period as they scrub transient keys.
func (s *PeriodState) UpdateWithPeriodCount(periodCount uint64, kv map[string]any) *PeriodState {
	next := s.Update(kv)
	next.periodCount = periodCount
	return next
}

// lookup walks the snapshot chain from newest to oldest.
func (s *PeriodState) lookup(key string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.scrubbed[key] {
			return nil, false
		}
		if v, ok := cur.values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// GetStrict returns the value for key, or a *KeyNotSetError if the key was
// never set in this snapshot or any ancestor.
func (s *PeriodState) GetStrict(key string) (any, error) {
	v, ok := s.lookup(key)
	if !ok {
		return nil, &KeyNotSetError{Key: key}
	}
	return v, nil
}

// Get returns the value for key, or def when absent. It never fails.
func (s *PeriodState) Get(key string, def any) any {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	return v
}

// Has reports whether key is set in this snapshot or any ancestor.
func (s *PeriodState) Has(key string) bool {
	_, ok := s.lookup(key)
	return ok
}
