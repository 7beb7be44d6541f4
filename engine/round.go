package engine

import (
	"fmt"

	"github.com/blockberries/tenderberry/state"
)

// RoundID identifies a round class in the transition graph.
type RoundID string

// Round is one step of the replicated state machine. A round instance is
// bound to the period state it was scheduled against, collects payloads
// until it can finalize, and is never reused after EndBlock reports a
// result.
type Round interface {
	// ID returns the round's identifier in the transition graph.
	ID() RoundID

	// AllowedTxType returns the payload type this round accepts.
	AllowedTxType() TxType

	// PeriodState returns the snapshot the round was scheduled against.
	PeriodState() *state.PeriodState

	// CheckPayload verifies that the payload could be applied without
	// applying it; used for transaction admission (check-tx).
	CheckPayload(payload *Payload) error

	// ProcessPayload applies the payload to the round's collection.
	ProcessPayload(payload *Payload) error

	// EndBlock computes the round result at a consensus commit boundary.
	// ok is false while neither the threshold nor majority impossibility
	// holds; otherwise it returns the updated state and the outcome event.
	// Repeated calls after completion return the same result.
	EndBlock() (newState *state.PeriodState, event Event, ok bool)
}

// Constructor instantiates a round class bound to a period state.
type Constructor func(st *state.PeriodState) Round

// DegenerateRound is a graph sentinel marking sub-app completion. It
// accepts no payloads and produces no transitions; the composed app maps
// it to another sub-app's initial round.
type DegenerateRound struct {
	id RoundID
	st *state.PeriodState
}

// NewDegenerateRound creates a degenerate round with the given identifier.
func NewDegenerateRound(id RoundID, st *state.PeriodState) *DegenerateRound {
	return &DegenerateRound{id: id, st: st}
}

// DegenerateConstructor returns a Constructor for a degenerate round.
func DegenerateConstructor(id RoundID) Constructor {
	return func(st *state.PeriodState) Round {
		return NewDegenerateRound(id, st)
	}
}

// ID implements Round.
func (r *DegenerateRound) ID() RoundID { return r.id }

// AllowedTxType implements Round. Degenerate rounds accept nothing.
func (r *DegenerateRound) AllowedTxType() TxType { return "" }

// PeriodState implements Round.
func (r *DegenerateRound) PeriodState() *state.PeriodState { return r.st }

// CheckPayload implements Round. It always fails.
func (r *DegenerateRound) CheckPayload(*Payload) error {
	return fmt.Errorf("%w: round %q accepts no payloads", ErrTransactionNotValid, r.id)
}

// ProcessPayload implements Round. It always fails.
func (r *DegenerateRound) ProcessPayload(*Payload) error {
	return fmt.Errorf("%w: round %q accepts no payloads", ErrTransactionNotValid, r.id)
}

// EndBlock implements Round. A degenerate round never finalizes on its
// own; the composed app re-routes control before it is ever asked to.
func (r *DegenerateRound) EndBlock() (*state.PeriodState, Event, bool) {
	return nil, "", false
}
