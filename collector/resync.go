package collector

import (
	"encoding/json"

	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

// Resync round identifiers.
const (
	ResyncRoundID         engine.RoundID = "resync"
	FinishedResyncRoundID engine.RoundID = "finished_resync"
)

// NewResyncRound restores the period state of a rejoining agent from the
// snapshot its peers agree on. Every key of the snapshot is written back,
// and the period counter is taken from the snapshot too.
func NewResyncRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(ResyncRoundID, TxResync, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			encoded, _ := agreed["resync_data"].(string)
			if encoded == "" || encoded == "{}" {
				return r.PeriodState(), engine.EventError
			}
			var snapshot map[string]any
			if err := json.Unmarshal([]byte(encoded), &snapshot); err != nil || len(snapshot) == 0 {
				return r.PeriodState(), engine.EventError
			}
			periodCount := int64(r.PeriodState().PeriodCount())
			if v, ok := asInt64(snapshot["period_count"]); ok {
				periodCount = v
				delete(snapshot, "period_count")
			}
			st := r.PeriodState().UpdateWithPeriodCount(uint64(periodCount), snapshot)
			return st, engine.EventDone
		})
}

// ResyncApp brings a rejoining agent back in sync.
func ResyncApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "resync",
		InitialRound: ResyncRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			ResyncRoundID:         NewResyncRound,
			FinishedResyncRoundID: engine.DegenerateConstructor(FinishedResyncRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			ResyncRoundID: {
				engine.EventDone:         FinishedResyncRoundID,
				engine.EventError:        ResyncRoundID,
				engine.EventRoundTimeout: ResyncRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedResyncRoundID: true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}
