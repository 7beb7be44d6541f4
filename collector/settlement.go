package collector

import (
	"encoding/json"

	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

// Settlement multiplexer round identifiers.
const (
	PostTransactionSettlementRoundID  engine.RoundID = "post_transaction_settlement"
	FinishedCollectorTxRoundID        engine.RoundID = "finished_collector_tx"
	FinishedBasketTxRoundID           engine.RoundID = "finished_basket_tx"
	FinishedVaultTxRoundID            engine.RoundID = "finished_vault_tx"
	FinishedBasketPermissionTxRoundID engine.RoundID = "finished_basket_permission_tx"
	FinishedPayoutTxRoundID           engine.RoundID = "finished_payout_tx"
	FinishedTransferNFTTxRoundID      engine.RoundID = "finished_transfer_nft_tx"
	ErroneousRoundID                  engine.RoundID = "erroneous"
)

// submitterToEvent routes the settled transaction back to the sub-app that
// produced it, keyed by the tx_submitter round.
var submitterToEvent = map[engine.RoundID]engine.Event{
	TransactionRoundID:            EventCollectorTxDone,
	DeployBasketTxRoundID:         EventBasketTxDone,
	DeployVaultTxRoundID:          EventVaultTxDone,
	PermissionVaultFactoryRoundID: EventBasketPermissionTxDone,
	PayoutFractionsRoundID:        EventFractionPayoutTxDone,
	TransferNFTRoundID:            EventTransferNFTTxDone,
}

// postTransactionSettlementRound wraps the collect-same machinery with a
// pre-check: without a recognized tx_submitter there is nothing to route,
// so the round errors out before any votes are counted.
type postTransactionSettlementRound struct {
	*engine.CollectSameUntilThresholdRound
}

// NewPostTransactionSettlementRound accumulates the settlement outcome and
// multiplexes control back to the submitting sub-app.
func NewPostTransactionSettlementRound(st *state.PeriodState) engine.Round {
	return &postTransactionSettlementRound{
		CollectSameUntilThresholdRound: engine.NewCollectSameRound(
			PostTransactionSettlementRoundID, TxPostTx, st, finalizePostTransaction),
	}
}

// EndBlock implements engine.Round.
func (r *postTransactionSettlementRound) EndBlock() (*state.PeriodState, engine.Event, bool) {
	if _, ok := settlementEvent(r.PeriodState()); !ok {
		return r.PeriodState(), engine.EventError, true
	}
	return r.CollectSameUntilThresholdRound.EndBlock()
}

func settlementEvent(st *state.PeriodState) (engine.Event, bool) {
	submitter, err := Wrap(st).TxSubmitter()
	if err != nil {
		return "", false
	}
	event, ok := submitterToEvent[submitter]
	return event, ok
}

func finalizePostTransaction(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
	data, _ := agreed["post_tx_data"].(string)
	if data == "" || data == "{}" {
		return r.PeriodState(), engine.EventError
	}
	var outcome struct {
		AmountSpent int64 `json:"amount_spent"`
	}
	if err := json.Unmarshal([]byte(data), &outcome); err != nil {
		return r.PeriodState(), engine.EventError
	}
	event, ok := settlementEvent(r.PeriodState())
	if !ok {
		return r.PeriodState(), engine.EventError
	}
	st := r.PeriodState().Update(map[string]any{
		KeyAmountSpent: Wrap(r.PeriodState()).AmountSpent() + outcome.AmountSpent,
	})
	return st, event
}

// SettlementMultiplexerApp routes settled transactions back to the sub-app
// that submitted them.
func SettlementMultiplexerApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "settlement_multiplexer",
		InitialRound: PostTransactionSettlementRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			PostTransactionSettlementRoundID:  NewPostTransactionSettlementRound,
			FinishedCollectorTxRoundID:        engine.DegenerateConstructor(FinishedCollectorTxRoundID),
			FinishedBasketTxRoundID:           engine.DegenerateConstructor(FinishedBasketTxRoundID),
			FinishedVaultTxRoundID:            engine.DegenerateConstructor(FinishedVaultTxRoundID),
			FinishedBasketPermissionTxRoundID: engine.DegenerateConstructor(FinishedBasketPermissionTxRoundID),
			FinishedPayoutTxRoundID:           engine.DegenerateConstructor(FinishedPayoutTxRoundID),
			FinishedTransferNFTTxRoundID:      engine.DegenerateConstructor(FinishedTransferNFTTxRoundID),
			ErroneousRoundID:                  engine.DegenerateConstructor(ErroneousRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			PostTransactionSettlementRoundID: {
				EventCollectorTxDone:        FinishedCollectorTxRoundID,
				EventBasketTxDone:           FinishedBasketTxRoundID,
				EventVaultTxDone:            FinishedVaultTxRoundID,
				EventBasketPermissionTxDone: FinishedBasketPermissionTxRoundID,
				EventFractionPayoutTxDone:   FinishedPayoutTxRoundID,
				EventTransferNFTTxDone:      FinishedTransferNFTTxRoundID,
				engine.EventNoMajority:      ErroneousRoundID,
				engine.EventError:           ErroneousRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedCollectorTxRoundID:        true,
			FinishedBasketTxRoundID:           true,
			FinishedVaultTxRoundID:            true,
			FinishedBasketPermissionTxRoundID: true,
			FinishedPayoutTxRoundID:           true,
			FinishedTransferNFTTxRoundID:      true,
			ErroneousRoundID:                  true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}
