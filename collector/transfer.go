package collector

import (
	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

// NFT transfer round identifiers.
const (
	ProcessPurchaseRoundID          engine.RoundID = "process_purchase"
	TransferNFTRoundID              engine.RoundID = "transfer_nft"
	FailedPurchaseProcessingRoundID engine.RoundID = "failed_purchase_processing"
	FinishedWithTransferRoundID     engine.RoundID = "finished_with_transfer"
	FinishedWithoutTransferRoundID  engine.RoundID = "finished_without_transfer"
)

// NewProcessPurchaseRound agrees on the token id minted by the settled
// purchase. The purchased project moves onto the purchased_projects list
// and stops being the pending purchase.
func NewProcessPurchaseRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(ProcessPurchaseRoundID, TxPurchasedNFT, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			tokenID, _ := asInt64(agreed["purchased_nft"])
			if tokenID == -1 {
				return r.PeriodState(), engine.EventError
			}
			purchased := r.PeriodState().Get(KeyProjectToPurchase, nil)
			previous := Wrap(r.PeriodState()).PurchasedProjects()
			all := make([]any, 0, len(previous)+1)
			all = append(all, previous...)
			all = append(all, purchased)
			st := r.PeriodState().Update(map[string]any{
				KeyPurchasedNFT:      tokenID,
				KeyProjectToPurchase: nil,
				KeyPurchasedProjects: all,
			})
			return st, engine.EventDone
		})
}

// NewTransferNFTRound agrees on the transaction moving the purchased NFT
// from the safe into the basket. An empty payload means the token stays
// put. The purchased_nft key is cleared on the assumption that the
// transfer settles.
func NewTransferNFTRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(TransferNFTRoundID, TxTransferNFT, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			transferData, _ := agreed["transfer_data"].(string)
			if transferData == "" {
				return r.PeriodState(), EventNoTransfer
			}
			st := r.PeriodState().Update(map[string]any{
				KeyMostVotedTxHash: transferData,
				KeyPurchasedNFT:    nil,
				KeyTxSubmitter:     string(TransferNFTRoundID),
			})
			return st, engine.EventDone
		})
}

// TransferNFTApp moves freshly purchased NFTs into the basket.
func TransferNFTApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "transfer_nft",
		InitialRound: ProcessPurchaseRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			ProcessPurchaseRoundID:          NewProcessPurchaseRound,
			TransferNFTRoundID:              NewTransferNFTRound,
			FailedPurchaseProcessingRoundID: engine.DegenerateConstructor(FailedPurchaseProcessingRoundID),
			FinishedWithTransferRoundID:     engine.DegenerateConstructor(FinishedWithTransferRoundID),
			FinishedWithoutTransferRoundID:  engine.DegenerateConstructor(FinishedWithoutTransferRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			ProcessPurchaseRoundID: {
				engine.EventDone:         TransferNFTRoundID,
				engine.EventError:        FailedPurchaseProcessingRoundID,
				engine.EventNoMajority:   ProcessPurchaseRoundID,
				engine.EventResetTimeout: ProcessPurchaseRoundID,
			},
			TransferNFTRoundID: {
				engine.EventDone:         FinishedWithTransferRoundID,
				EventNoTransfer:          FinishedWithoutTransferRoundID,
				engine.EventRoundTimeout: TransferNFTRoundID,
				engine.EventNoMajority:   TransferNFTRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FailedPurchaseProcessingRoundID: true,
			FinishedWithTransferRoundID:     true,
			FinishedWithoutTransferRoundID:  true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}
