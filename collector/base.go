package collector

import (
	"encoding/json"

	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

// Collector base round identifiers.
const (
	ObservationRoundID           engine.RoundID = "observation"
	DetailsRoundID               engine.RoundID = "details"
	DecisionRoundID              engine.RoundID = "decision"
	TransactionRoundID           engine.RoundID = "transaction_collection"
	ResetFromObservationRoundID  engine.RoundID = "reset_from_observation"
	FinishedCollectorBaseRoundID engine.RoundID = "finished_collector_base"
)

// NewObservationRound agrees on the project currently open for minting. An
// empty or undecodable observation is an error and restarts the loop.
func NewObservationRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(ObservationRoundID, TxObservation, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			details, _ := agreed["project_details"].(string)
			var project map[string]any
			if err := json.Unmarshal([]byte(details), &project); err != nil || len(project) == 0 {
				return r.PeriodState(), engine.EventError
			}
			projectID, _ := asInt64(project["project_id"])
			st := r.PeriodState().Update(map[string]any{
				KeyParticipantToProject:   r.Collection(),
				KeyMostVotedProject:       details,
				KeyLastProcessedProjectID: projectID,
			})
			return st, engine.EventDone
		})
}

// NewDetailsRound agrees on the extra project details requested by a
// gib-details decision.
func NewDetailsRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(DetailsRoundID, TxDetails, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			details, _ := agreed["details"].(string)
			st := r.PeriodState().Update(map[string]any{
				KeyParticipantToDetails: r.Collection(),
				KeyMostVotedDetails:     details,
			})
			return st, engine.EventDone
		})
}

// NewDecisionRound agrees on whether to purchase the observed project:
// 1 buys it, 0 passes, -1 asks for details first. A positive decision also
// marks the observed project as the one to purchase.
func NewDecisionRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(DecisionRoundID, TxDecision, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			decision, _ := asInt64(agreed["decision"])
			kv := map[string]any{
				KeyParticipantToDecision: r.Collection(),
				KeyMostVotedDecision:     decision,
			}
			switch decision {
			case 0:
				return r.PeriodState().Update(kv), EventDecidedNo
			case -1:
				return r.PeriodState().Update(kv), EventGibDetails
			default:
				kv[KeyProjectToPurchase] = r.PeriodState().Get(KeyMostVotedProject, "")
				return r.PeriodState().Update(kv), EventDecidedYes
			}
		})
}

// NewTransactionRound agrees on the encoded purchase transaction and hands
// it to the submission pipeline.
func NewTransactionRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(TransactionRoundID, TxTransaction, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			purchaseData, _ := agreed["purchase_data"].(string)
			if purchaseData == "" {
				return r.PeriodState(), engine.EventError
			}
			st := r.PeriodState().Update(map[string]any{
				KeyParticipantToVotedTxHash: r.Collection(),
				KeyMostVotedTxHash:          purchaseData,
				KeyTxSubmitter:              string(TransactionRoundID),
			})
			return st, engine.EventDone
		})
}

// NewResetFromObservationRound agrees on the next period counter, scrubs
// the transient keys of the finished period, and restarts the observation
// loop. last_processed_project_id deliberately survives the reset.
func NewResetFromObservationRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(ResetFromObservationRoundID, TxReset, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			periodCount, _ := asInt64(agreed["period_count"])
			st := r.PeriodState().UpdateWithPeriodCount(uint64(periodCount), map[string]any{
				KeyParticipantToRandomness: nil,
				KeyMostVotedRandomness:     nil,
				KeyParticipantToSelection:  nil,
				KeyMostVotedKeeper:         nil,
				KeyParticipantToProject:    nil,
				KeyMostVotedProject:        nil,
				KeyParticipantToDecision:   nil,
				KeyMostVotedDecision:       nil,
				KeyParticipantToDetails:    nil,
				KeyMostVotedDetails:        nil,
			})
			return st, engine.EventDone
		})
}

// CollectorBaseApp is the observe/decide/purchase loop at the heart of the
// service.
func CollectorBaseApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "collector_base",
		InitialRound: ObservationRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			ObservationRoundID:           NewObservationRound,
			DetailsRoundID:               NewDetailsRound,
			DecisionRoundID:              NewDecisionRound,
			TransactionRoundID:           NewTransactionRound,
			ResetFromObservationRoundID:  NewResetFromObservationRound,
			FinishedCollectorBaseRoundID: engine.DegenerateConstructor(FinishedCollectorBaseRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			ObservationRoundID: {
				engine.EventDone:         DecisionRoundID,
				engine.EventRoundTimeout: ResetFromObservationRoundID,
				engine.EventNoMajority:   ResetFromObservationRoundID,
				engine.EventError:        ResetFromObservationRoundID,
			},
			DetailsRoundID: {
				engine.EventDone:         DecisionRoundID,
				engine.EventRoundTimeout: DecisionRoundID,
				engine.EventNoMajority:   DecisionRoundID,
			},
			DecisionRoundID: {
				EventDecidedYes:          TransactionRoundID,
				EventDecidedNo:           ResetFromObservationRoundID,
				EventGibDetails:          DetailsRoundID,
				engine.EventRoundTimeout: ResetFromObservationRoundID,
				engine.EventNoMajority:   ResetFromObservationRoundID,
			},
			TransactionRoundID: {
				engine.EventDone:         FinishedCollectorBaseRoundID,
				engine.EventRoundTimeout: ResetFromObservationRoundID,
				engine.EventNoMajority:   ResetFromObservationRoundID,
				engine.EventError:        ResetFromObservationRoundID,
			},
			ResetFromObservationRoundID: {
				engine.EventDone:         ObservationRoundID,
				engine.EventResetTimeout: ResetFromObservationRoundID,
				engine.EventNoMajority:   ResetFromObservationRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedCollectorBaseRoundID: true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}
