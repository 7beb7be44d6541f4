package collector

import (
	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

// Safe deployment round identifiers.
const (
	RandomnessSafeRoundID   engine.RoundID = "randomness_safe"
	SelectKeeperSafeRoundID engine.RoundID = "select_keeper_safe"
	DeploySafeRoundID       engine.RoundID = "deploy_safe"
	ValidateSafeRoundID     engine.RoundID = "validate_safe"
	FinishedSafeRoundID     engine.RoundID = "finished_safe"
)

// finalizeRandomness records the agreed randomness; shared by the safe
// deployment and transaction submission keeper elections.
func finalizeRandomness(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
	randomness, _ := agreed["randomness"].(string)
	st := r.PeriodState().Update(map[string]any{
		KeyParticipantToRandomness: r.Collection(),
		KeyMostVotedRandomness:     randomness,
	})
	return st, engine.EventDone
}

// finalizeSelectKeeper records the elected keeper.
func finalizeSelectKeeper(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
	keeper, _ := agreed["keeper"].(string)
	st := r.PeriodState().Update(map[string]any{
		KeyParticipantToSelection: r.Collection(),
		KeyMostVotedKeeper:        keeper,
	})
	return st, engine.EventDone
}

// NewRandomnessSafeRound agrees on randomness for the safe keeper election.
func NewRandomnessSafeRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(RandomnessSafeRoundID, TxRandomness, st, finalizeRandomness)
}

// NewSelectKeeperSafeRound elects the participant that deploys the safe.
func NewSelectKeeperSafeRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(SelectKeeperSafeRoundID, TxSelection, st, finalizeSelectKeeper)
}

// NewDeploySafeRound waits for the keeper's deployed safe contract address.
// An empty address means the deployment failed and another keeper must be
// elected.
func NewDeploySafeRound(st *state.PeriodState) engine.Round {
	return engine.NewOnlyKeeperSendsRound(DeploySafeRoundID, TxDeploySafe, st,
		func(r *engine.OnlyKeeperSendsRound, keeperData map[string]any) (*state.PeriodState, engine.Event) {
			address, _ := keeperData["safe_contract_address"].(string)
			if address == "" {
				return r.PeriodState(), EventFailed
			}
			st := r.PeriodState().Update(map[string]any{
				KeySafeContractAddress: address,
			})
			return st, engine.EventDone
		})
}

// NewValidateSafeRound votes on whether the deployed safe checks out.
func NewValidateSafeRound(st *state.PeriodState) engine.Round {
	return engine.NewVotingRound(ValidateSafeRoundID, TxValidate, st,
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

// SafeDeploymentApp is the safe deployment sub-app: elect a keeper, let it
// deploy, and validate the result. Any failure re-runs the election.
func SafeDeploymentApp() *engine.AppSpec {
	timeouts := defaultTimeouts()
	timeouts[EventDeployTimeout] = timeouts[engine.EventRoundTimeout]
	timeouts[EventValidateTimeout] = timeouts[engine.EventRoundTimeout]
	return &engine.AppSpec{
		Name:         "safe_deployment",
		InitialRound: RandomnessSafeRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			RandomnessSafeRoundID:   NewRandomnessSafeRound,
			SelectKeeperSafeRoundID: NewSelectKeeperSafeRound,
			DeploySafeRoundID:       NewDeploySafeRound,
			ValidateSafeRoundID:     NewValidateSafeRound,
			FinishedSafeRoundID:     engine.DegenerateConstructor(FinishedSafeRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			RandomnessSafeRoundID: {
				engine.EventDone:         SelectKeeperSafeRoundID,
				engine.EventRoundTimeout: RandomnessSafeRoundID,
				engine.EventNoMajority:   RandomnessSafeRoundID,
			},
			SelectKeeperSafeRoundID: {
				engine.EventDone:         DeploySafeRoundID,
				engine.EventRoundTimeout: RandomnessSafeRoundID,
				engine.EventNoMajority:   RandomnessSafeRoundID,
			},
			DeploySafeRoundID: {
				engine.EventDone:   ValidateSafeRoundID,
				EventDeployTimeout: SelectKeeperSafeRoundID,
				EventFailed:        SelectKeeperSafeRoundID,
			},
			ValidateSafeRoundID: {
				engine.EventDone:       FinishedSafeRoundID,
				EventNegative:          RandomnessSafeRoundID,
				EventNone:              RandomnessSafeRoundID,
				EventValidateTimeout:   RandomnessSafeRoundID,
				engine.EventNoMajority: RandomnessSafeRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedSafeRoundID: true,
		},
		EventToTimeout: timeouts,
	}
}
