package engine

import (
	"fmt"

	"github.com/blockberries/tenderberry/state"
)

// CollectionRound holds the payload bookkeeping shared by every round that
// collects contributions from participants: at most one payload per sender,
// all payloads of the allowed type, insertion order preserved.
type CollectionRound struct {
	id         RoundID
	txType     TxType
	st         *state.PeriodState
	collection map[string]*Payload
	order      []string

	// memoized EndBlock result, set once the round finalizes
	done       bool
	finalState *state.PeriodState
	finalEvent Event
}

// NewCollectionRound creates the collection bookkeeping for a round.
func NewCollectionRound(id RoundID, txType TxType, st *state.PeriodState) CollectionRound {
	return CollectionRound{
		id:         id,
		txType:     txType,
		st:         st,
		collection: make(map[string]*Payload),
	}
}

// ID implements Round.
func (r *CollectionRound) ID() RoundID { return r.id }

// AllowedTxType implements Round.
func (r *CollectionRound) AllowedTxType() TxType { return r.txType }

// PeriodState implements Round.
func (r *CollectionRound) PeriodState() *state.PeriodState { return r.st }

// Collection returns the payloads collected so far, keyed by sender. The
// returned map must not be mutated.
func (r *CollectionRound) Collection() map[string]*Payload { return r.collection }

// Senders returns the senders in arrival order.
func (r *CollectionRound) Senders() []string { return r.order }

// CheckPayload implements Round.
func (r *CollectionRound) CheckPayload(payload *Payload) error {
	if payload.Type() != r.txType {
		return fmt.Errorf("%w: round %q expects %q, got %q",
			ErrTransactionTypeNotRecognized, r.id, r.txType, payload.Type())
	}
	if !r.isParticipant(payload.Sender()) {
		return fmt.Errorf("%w: %s is not in the participant set",
			ErrTransactionNotValid, payload.Sender())
	}
	if _, voted := r.collection[payload.Sender()]; voted {
		return fmt.Errorf("%w: %s already sent a payload for round %q",
			ErrTransactionNotValid, payload.Sender(), r.id)
	}
	return nil
}

// ProcessPayload implements Round. The first payload per sender wins; a
// second one fails and never overwrites it.
func (r *CollectionRound) ProcessPayload(payload *Payload) error {
	if err := r.CheckPayload(payload); err != nil {
		return err
	}
	r.collection[payload.Sender()] = payload
	r.order = append(r.order, payload.Sender())
	return nil
}

func (r *CollectionRound) isParticipant(sender string) bool {
	for _, p := range r.st.Participants() {
		if p == sender {
			return true
		}
	}
	return false
}

// finalizeOnce memoizes the round result so repeated EndBlock calls after
// completion return the same pair.
func (r *CollectionRound) finalizeOnce(st *state.PeriodState, event Event) (*state.PeriodState, Event, bool) {
	if !r.done {
		r.done = true
		r.finalState = st
		r.finalEvent = event
	}
	return r.finalState, r.finalEvent, true
}

// CollectSameUntilThresholdRound collects payloads until some payload value
// has been submitted by a threshold of distinct senders, then hands the
// agreed body to its finalize function. Majority impossibility short-cuts
// the round with EventNoMajority.
type CollectSameUntilThresholdRound struct {
	CollectionRound
	finalize FinalizeSameFunc
}

// FinalizeSameFunc computes a finished round's new state and event from the
// agreed payload body.
type FinalizeSameFunc func(r *CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, Event)

// NewCollectSameRound creates a collect-same-until-threshold round.
func NewCollectSameRound(id RoundID, txType TxType, st *state.PeriodState, finalize FinalizeSameFunc) *CollectSameUntilThresholdRound {
	return &CollectSameUntilThresholdRound{
		CollectionRound: NewCollectionRound(id, txType, st),
		finalize:        finalize,
	}
}

// tally counts votes per payload value, returning counts and the values in
// first-seen order.
func (r *CollectSameUntilThresholdRound) tally() (map[string]int, []string) {
	counts := make(map[string]int)
	var seen []string
	for _, sender := range r.order {
		key := r.collection[sender].ValueKey()
		if counts[key] == 0 {
			seen = append(seen, key)
		}
		counts[key]++
	}
	return counts, seen
}

// ThresholdReached reports whether some payload value has reached the
// consensus threshold.
func (r *CollectSameUntilThresholdRound) ThresholdReached() bool {
	counts, _ := r.tally()
	for _, c := range counts {
		if c >= r.st.Threshold() {
			return true
		}
	}
	return false
}

// MostVotedPayload returns the payload body held by the largest agreeing
// cohort. Ties break by first-seen order. It fails with ErrInternal while
// the threshold has not been reached.
func (r *CollectSameUntilThresholdRound) MostVotedPayload() (map[string]any, error) {
	counts, seen := r.tally()
	best, bestCount := "", 0
	for _, key := range seen {
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	if bestCount < r.st.Threshold() {
		return nil, fmt.Errorf("%w: not enough votes", ErrInternal)
	}
	for _, sender := range r.order {
		if r.collection[sender].ValueKey() == best {
			return r.collection[sender].Data(), nil
		}
	}
	return nil, fmt.Errorf("%w: most voted payload not found", ErrInternal)
}

// MajorityPossible reports whether the threshold can still be reached:
// false iff the remaining voters plus the largest agreeing cohort fall
// short of the threshold.
func (r *CollectSameUntilThresholdRound) MajorityPossible() bool {
	if len(r.collection) == 0 {
		return true
	}
	counts, _ := r.tally()
	largest := 0
	for _, c := range counts {
		if c > largest {
			largest = c
		}
	}
	remaining := r.st.NumParticipants() - len(r.collection)
	return remaining+largest >= r.st.Threshold()
}

// EndBlock implements Round.
func (r *CollectSameUntilThresholdRound) EndBlock() (*state.PeriodState, Event, bool) {
	if r.done {
		return r.finalState, r.finalEvent, true
	}
	if r.ThresholdReached() {
		agreed, err := r.MostVotedPayload()
		if err != nil {
			// Unreachable: ThresholdReached guarantees enough votes.
			return nil, "", false
		}
		st, event := r.finalize(r, agreed)
		return r.finalizeOnce(st, event)
	}
	if !r.MajorityPossible() {
		return r.finalizeOnce(r.st, EventNoMajority)
	}
	return nil, "", false
}

// CollectDifferentUntilAllRound collects one distinct contribution per
// participant and completes once every participant has sent one.
type CollectDifferentUntilAllRound struct {
	CollectionRound
	finalize FinalizeCollectionFunc
}

// FinalizeCollectionFunc computes a finished round's new state and event
// from the full collection.
type FinalizeCollectionFunc func(r *CollectionRound) (*state.PeriodState, Event)

// NewCollectDifferentRound creates a collect-different-until-all round.
func NewCollectDifferentRound(id RoundID, txType TxType, st *state.PeriodState, finalize FinalizeCollectionFunc) *CollectDifferentUntilAllRound {
	return &CollectDifferentUntilAllRound{
		CollectionRound: NewCollectionRound(id, txType, st),
		finalize:        finalize,
	}
}

// CheckPayload implements Round, additionally rejecting duplicate values.
func (r *CollectDifferentUntilAllRound) CheckPayload(payload *Payload) error {
	if err := r.CollectionRound.CheckPayload(payload); err != nil {
		return err
	}
	key := payload.ValueKey()
	for _, existing := range r.collection {
		if existing.ValueKey() == key {
			return fmt.Errorf("%w: value already contributed for round %q",
				ErrTransactionNotValid, r.id)
		}
	}
	return nil
}

// ProcessPayload implements Round.
func (r *CollectDifferentUntilAllRound) ProcessPayload(payload *Payload) error {
	if err := r.CheckPayload(payload); err != nil {
		return err
	}
	r.collection[payload.Sender()] = payload
	r.order = append(r.order, payload.Sender())
	return nil
}

// CollectionComplete reports whether every participant has contributed.
func (r *CollectDifferentUntilAllRound) CollectionComplete() bool {
	return len(r.collection) >= r.st.NumParticipants()
}

// EndBlock implements Round.
func (r *CollectDifferentUntilAllRound) EndBlock() (*state.PeriodState, Event, bool) {
	if r.done {
		return r.finalState, r.finalEvent, true
	}
	if !r.CollectionComplete() {
		return nil, "", false
	}
	st, event := r.finalize(&r.CollectionRound)
	return r.finalizeOnce(st, event)
}

// KeeperAddressKey is the state key holding the elected keeper's address.
const KeeperAddressKey = "most_voted_keeper_address"

// OnlyKeeperSendsRound accepts exactly one payload, from the participant
// elected as keeper in the period state.
type OnlyKeeperSendsRound struct {
	CollectionRound
	finalize FinalizeSameKeeperFunc
}

// FinalizeSameKeeperFunc computes a finished round's new state and event
// from the keeper's payload body.
type FinalizeSameKeeperFunc func(r *OnlyKeeperSendsRound, keeperData map[string]any) (*state.PeriodState, Event)

// NewOnlyKeeperSendsRound creates an only-keeper-sends round.
func NewOnlyKeeperSendsRound(id RoundID, txType TxType, st *state.PeriodState, finalize FinalizeSameKeeperFunc) *OnlyKeeperSendsRound {
	return &OnlyKeeperSendsRound{
		CollectionRound: NewCollectionRound(id, txType, st),
		finalize:        finalize,
	}
}

// CheckPayload implements Round, additionally requiring the sender to be
// the elected keeper.
func (r *OnlyKeeperSendsRound) CheckPayload(payload *Payload) error {
	if err := r.CollectionRound.CheckPayload(payload); err != nil {
		return err
	}
	keeper, err := r.st.GetStrict(KeeperAddressKey)
	if err != nil {
		return fmt.Errorf("%w: no keeper elected", ErrTransactionNotValid)
	}
	if payload.Sender() != keeper {
		return fmt.Errorf("%w: %s is not the elected keeper",
			ErrTransactionNotValid, payload.Sender())
	}
	return nil
}

// ProcessPayload implements Round.
func (r *OnlyKeeperSendsRound) ProcessPayload(payload *Payload) error {
	if err := r.CheckPayload(payload); err != nil {
		return err
	}
	r.collection[payload.Sender()] = payload
	r.order = append(r.order, payload.Sender())
	return nil
}

// HasKeeperSent reports whether the keeper's payload has arrived.
func (r *OnlyKeeperSendsRound) HasKeeperSent() bool {
	return len(r.collection) > 0
}

// EndBlock implements Round.
func (r *OnlyKeeperSendsRound) EndBlock() (*state.PeriodState, Event, bool) {
	if r.done {
		return r.finalState, r.finalEvent, true
	}
	if !r.HasKeeperSent() {
		return nil, "", false
	}
	keeperData := r.collection[r.order[0]].Data()
	st, event := r.finalize(r, keeperData)
	return r.finalizeOnce(st, event)
}

// VoteKey is the payload body key carrying a participant's vote in a
// voting round: true, false, or nil for an abstention.
const VoteKey = "vote"

// VoteOutcome is the agreed verdict of a voting round.
type VoteOutcome int

// Vote outcomes.
const (
	VotePositive VoteOutcome = iota
	VoteNegative
	VoteNone
)

// VotingRound collects boolean votes and completes when positive, negative,
// or abstention votes reach the threshold.
type VotingRound struct {
	CollectionRound
	finalize FinalizeVoteFunc
}

// FinalizeVoteFunc computes a finished voting round's new state and event
// from the winning outcome.
type FinalizeVoteFunc func(r *VotingRound, outcome VoteOutcome) (*state.PeriodState, Event)

// NewVotingRound creates a voting round.
func NewVotingRound(id RoundID, txType TxType, st *state.PeriodState, finalize FinalizeVoteFunc) *VotingRound {
	return &VotingRound{
		CollectionRound: NewCollectionRound(id, txType, st),
		finalize:        finalize,
	}
}

// voteCounts tallies positive, negative, and abstention votes.
func (r *VotingRound) voteCounts() (positive, negative, none int) {
	for _, p := range r.collection {
		switch v := p.Get(VoteKey).(type) {
		case bool:
			if v {
				positive++
			} else {
				negative++
			}
		default:
			none++
		}
	}
	return
}

// PositiveReached reports whether positive votes reached the threshold.
func (r *VotingRound) PositiveReached() bool {
	positive, _, _ := r.voteCounts()
	return positive >= r.st.Threshold()
}

// NegativeReached reports whether negative votes reached the threshold.
func (r *VotingRound) NegativeReached() bool {
	_, negative, _ := r.voteCounts()
	return negative >= r.st.Threshold()
}

// NoneReached reports whether abstentions reached the threshold.
func (r *VotingRound) NoneReached() bool {
	_, _, none := r.voteCounts()
	return none >= r.st.Threshold()
}

// EndBlock implements Round.
func (r *VotingRound) EndBlock() (*state.PeriodState, Event, bool) {
	if r.done {
		return r.finalState, r.finalEvent, true
	}
	switch {
	case r.PositiveReached():
		st, event := r.finalize(r, VotePositive)
		return r.finalizeOnce(st, event)
	case r.NegativeReached():
		st, event := r.finalize(r, VoteNegative)
		return r.finalizeOnce(st, event)
	case r.NoneReached():
		st, event := r.finalize(r, VoteNone)
		return r.finalizeOnce(st, event)
	}
	positive, negative, none := r.voteCounts()
	largest := positive
	if negative > largest {
		largest = negative
	}
	if none > largest {
		largest = none
	}
	remaining := r.st.NumParticipants() - len(r.collection)
	if remaining+largest < r.st.Threshold() {
		return r.finalizeOnce(r.st, EventNoMajority)
	}
	return nil, "", false
}
