package collector

import (
	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

// Transaction submission round identifiers.
const (
	RandomnessTransactionSubmissionRoundID   engine.RoundID = "randomness_transaction_submission"
	SelectKeeperTransactionSubmissionRoundID engine.RoundID = "select_keeper_transaction_submission"
	CollectSignatureRoundID                  engine.RoundID = "collect_signature"
	FinalizationRoundID                      engine.RoundID = "finalization"
	ValidateTransactionRoundID               engine.RoundID = "validate_transaction"
	FinishedTransactionSubmissionRoundID     engine.RoundID = "finished_transaction_submission"
	FailedRoundID                            engine.RoundID = "failed"
)

// NewRandomnessTransactionSubmissionRound agrees on randomness for the
// submission keeper election.
func NewRandomnessTransactionSubmissionRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(RandomnessTransactionSubmissionRoundID, TxRandomness, st, finalizeRandomness)
}

// NewSelectKeeperTransactionSubmissionRound elects the participant that
// submits the pending transaction.
func NewSelectKeeperTransactionSubmissionRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(SelectKeeperTransactionSubmissionRoundID, TxSelection, st, finalizeSelectKeeper)
}

// NewCollectSignatureRound gathers every participant's signature over the
// agreed transaction hash.
func NewCollectSignatureRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectDifferentRound(CollectSignatureRoundID, TxSignature, st,
		func(r *engine.CollectionRound) (*state.PeriodState, engine.Event) {
			st := r.PeriodState().Update(map[string]any{
				KeyParticipantToSignature: r.Collection(),
			})
			return st, engine.EventDone
		})
}

// NewFinalizationRound waits for the keeper's settled transaction hash. An
// empty hash means the submission failed and another keeper is elected.
func NewFinalizationRound(st *state.PeriodState) engine.Round {
	return engine.NewOnlyKeeperSendsRound(FinalizationRoundID, TxFinalization, st,
		func(r *engine.OnlyKeeperSendsRound, keeperData map[string]any) (*state.PeriodState, engine.Event) {
			txHash, _ := keeperData["tx_hash"].(string)
			if txHash == "" {
				return r.PeriodState(), EventFailed
			}
			st := r.PeriodState().Update(map[string]any{
				KeyFinalTxHash: txHash,
			})
			return st, engine.EventDone
		})
}

// NewValidateTransactionRound votes on whether the settled transaction
// checks out on chain.
func NewValidateTransactionRound(st *state.PeriodState) engine.Round {
	return engine.NewVotingRound(ValidateTransactionRoundID, TxValidate, st,
		func(r *engine.VotingRound, outcome engine.VoteOutcome) (*state.PeriodState, engine.Event) {
			switch outcome {
			case engine.VotePositive:
				st := r.PeriodState().Update(map[string]any{
					KeyParticipantToVotes: r.Collection(),
				})
				return st, engine.EventDone
			case engine.VoteNegative:
				return r.PeriodState(), EventNegative
			default:
				return r.PeriodState(), EventNone
			}
		})
}

// TransactionSubmissionApp is the submission pipeline: elect a keeper,
// collect signatures, let the keeper finalize, and validate the result.
func TransactionSubmissionApp() *engine.AppSpec {
	timeouts := defaultTimeouts()
	timeouts[EventValidateTimeout] = timeouts[engine.EventRoundTimeout]
	return &engine.AppSpec{
		Name:         "transaction_submission",
		InitialRound: RandomnessTransactionSubmissionRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			RandomnessTransactionSubmissionRoundID:   NewRandomnessTransactionSubmissionRound,
			SelectKeeperTransactionSubmissionRoundID: NewSelectKeeperTransactionSubmissionRound,
			CollectSignatureRoundID:                  NewCollectSignatureRound,
			FinalizationRoundID:                      NewFinalizationRound,
			ValidateTransactionRoundID:               NewValidateTransactionRound,
			FinishedTransactionSubmissionRoundID:     engine.DegenerateConstructor(FinishedTransactionSubmissionRoundID),
			FailedRoundID:                            engine.DegenerateConstructor(FailedRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			RandomnessTransactionSubmissionRoundID: {
				engine.EventDone:         SelectKeeperTransactionSubmissionRoundID,
				engine.EventRoundTimeout: RandomnessTransactionSubmissionRoundID,
				engine.EventNoMajority:   RandomnessTransactionSubmissionRoundID,
			},
			SelectKeeperTransactionSubmissionRoundID: {
				engine.EventDone:         CollectSignatureRoundID,
				engine.EventRoundTimeout: RandomnessTransactionSubmissionRoundID,
				engine.EventNoMajority:   RandomnessTransactionSubmissionRoundID,
			},
			CollectSignatureRoundID: {
				engine.EventDone:         FinalizationRoundID,
				engine.EventRoundTimeout: RandomnessTransactionSubmissionRoundID,
			},
			FinalizationRoundID: {
				engine.EventDone:         ValidateTransactionRoundID,
				EventFailed:              SelectKeeperTransactionSubmissionRoundID,
				engine.EventRoundTimeout: SelectKeeperTransactionSubmissionRoundID,
			},
			ValidateTransactionRoundID: {
				engine.EventDone:       FinishedTransactionSubmissionRoundID,
				EventNegative:          FailedRoundID,
				EventNone:              FailedRoundID,
				EventValidateTimeout:   RandomnessTransactionSubmissionRoundID,
				engine.EventNoMajority: RandomnessTransactionSubmissionRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedTransactionSubmissionRoundID: true,
			FailedRoundID:                        true,
		},
		EventToTimeout: timeouts,
	}
}
