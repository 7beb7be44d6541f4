package engine

import (
	"fmt"
	"time"

	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/state"
)

// AbciApp drives a round-based application: it keeps the current round,
// feeds it transactions, moves between rounds on events, and fires timeout
// events from block timestamps. Time only ever comes from block headers,
// never from a wall clock, so every replica observes the same deadlines.
type AbciApp struct {
	spec         *AppSpec
	logger       *logging.Logger
	initialState *state.PeriodState

	currentRoundID RoundID
	currentRound   Round
	lastRoundID    RoundID
	previousRounds []Round
	roundResults   []*state.PeriodState

	timeouts       *Timeouts
	pendingEntries []*timeoutEntry
	lastTimestamp  time.Time
	timestampSet   bool
}

// NewAbciApp validates the spec and builds an application over the given
// initial state. It fails fast on a malformed transition graph.
func NewAbciApp(spec *AppSpec, initialState *state.PeriodState, logger *logging.Logger) (*AbciApp, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if initialState == nil {
		return nil, configErrorf("app %q: nil initial state", spec.Name)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AbciApp{
		spec:         spec,
		logger:       logger,
		initialState: initialState,
		timeouts:     NewTimeouts(),
	}, nil
}

// Setup instantiates the initial round. It must be called once before any
// transaction or event is processed.
func (a *AbciApp) Setup() {
	a.scheduleRound(a.spec.InitialRound)
}

// IsFinished reports whether the application reached a dead end: an event
// with no outgoing transition.
func (a *AbciApp) IsFinished() bool { return a.currentRound == nil }

// CurrentRound returns the active round, or nil once finished.
func (a *AbciApp) CurrentRound() Round { return a.currentRound }

// CurrentRoundID returns the active round's identifier, or "" once finished.
func (a *AbciApp) CurrentRoundID() RoundID { return a.currentRoundID }

// LastRoundID returns the identifier of the previously active round.
func (a *AbciApp) LastRoundID() RoundID { return a.lastRoundID }

// CurrentRoundHeight returns how many rounds have completed so far.
func (a *AbciApp) CurrentRoundHeight() int { return len(a.previousRounds) }

// State returns the latest round result, or the initial state before any
// round has completed.
func (a *AbciApp) State() *state.PeriodState {
	if len(a.roundResults) == 0 {
		return a.initialState
	}
	return a.roundResults[len(a.roundResults)-1]
}

// LastTimestamp returns the application's notion of time, taken from block
// headers and expired deadlines.
func (a *AbciApp) LastTimestamp() (time.Time, error) {
	if !a.timestampSet {
		return time.Time{}, fmt.Errorf("%w: no block timestamp observed yet", ErrInternal)
	}
	return a.lastTimestamp, nil
}

// CheckTransaction validates a transaction against the current round
// without mutating it.
func (a *AbciApp) CheckTransaction(tx *Transaction) error {
	if a.currentRound == nil {
		return ErrPeriodFinished
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	return a.currentRound.CheckPayload(tx.Payload)
}

// ProcessTransaction applies a transaction to the current round.
func (a *AbciApp) ProcessTransaction(tx *Transaction) error {
	if a.currentRound == nil {
		return ErrPeriodFinished
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	return a.currentRound.ProcessPayload(tx.Payload)
}

// ProcessEvent ends the current round with the given event and result and
// schedules the round the transition graph names next. An event with no
// outgoing edge finishes the application. result may be nil, in which case
// the outgoing round's state is carried forward unchanged.
func (a *AbciApp) ProcessEvent(event Event, result *state.PeriodState) {
	if a.currentRound == nil {
		a.logger.Info("cannot process event, no active round", logging.Event(string(event)))
		return
	}

	nextRound, ok := a.spec.Transitions[a.currentRoundID][event]
	a.previousRounds = append(a.previousRounds, a.currentRound)
	if result != nil {
		a.roundResults = append(a.roundResults, result)
	} else {
		a.roundResults = append(a.roundResults, a.currentRound.PeriodState())
	}

	a.logger.Info("round done",
		logging.Round(string(a.currentRoundID)),
		logging.Event(string(event)))
	if !ok {
		a.logger.Warn("application reached a dead end",
			logging.Round(string(a.currentRoundID)),
			logging.Event(string(event)))
		a.lastRoundID = a.currentRoundID
		a.currentRoundID = ""
		a.currentRound = nil
		return
	}
	a.scheduleRound(nextRound)
}

// UpdateTime observes a block timestamp, firing every timeout whose
// deadline it passes. Each fired timeout rewinds the application clock to
// the expired deadline before its event is processed, so deadlines of the
// rounds it schedules are simulated from the moment the timeout happened.
func (a *AbciApp) UpdateTime(timestamp time.Time) {
	for {
		earliest, ok := a.timeouts.Earliest()
		if !ok || earliest.After(timestamp) {
			break
		}
		deadline, event := a.timeouts.PopTimeout()
		a.logger.Warn("deadline expired",
			logging.Event(string(event)),
			logging.Round(string(a.currentRoundID)))
		a.lastTimestamp = deadline
		a.timestampSet = true
		a.ProcessEvent(event, nil)
	}

	a.lastTimestamp = timestamp
	a.timestampSet = true
}

// scheduleRound cancels the outgoing round's timeouts, arms deadlines for
// the timed events of the new round, and instantiates it over the latest
// round result.
func (a *AbciApp) scheduleRound(roundID RoundID) {
	for _, entry := range a.pendingEntries {
		a.timeouts.Cancel(entry)
	}
	a.pendingEntries = nil

	for event := range a.spec.Transitions[roundID] {
		timeout, ok := a.spec.EventToTimeout[event]
		if !ok {
			continue
		}
		// lastTimestamp is set here: timed events are barred from the
		// initial round, and every later round is scheduled after a block
		// timestamp or an expired deadline was observed.
		deadline := a.lastTimestamp.Add(timeout)
		a.pendingEntries = append(a.pendingEntries, a.timeouts.Add(deadline, event))
	}

	a.lastRoundID = a.currentRoundID
	a.currentRoundID = roundID
	a.currentRound = a.spec.Rounds[roundID](a.State())
	a.logger.Info("entered round",
		logging.Round(string(roundID)),
		logging.Period(a.State().PeriodCount()))
}
