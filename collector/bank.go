package collector

import (
	"encoding/json"

	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

// Bank and post-payout round identifiers.
const (
	FundingRoundID                    engine.RoundID = "funding"
	PayoutFractionsRoundID            engine.RoundID = "payout_fractions"
	FinishedBankWithoutPayoutsRoundID engine.RoundID = "finished_bank_without_payouts"
	FinishedBankWithPayoutsRoundID    engine.RoundID = "finished_bank_with_payouts"
	PostPayoutRoundID                 engine.RoundID = "post_payout"
	FinishedPostPayoutRoundID         engine.RoundID = "finished_post_payout"
)

// NewFundingRound agrees on the deposits observed since the last period.
func NewFundingRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(FundingRoundID, TxFunding, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			encoded, _ := agreed["address_to_funds"].(string)
			var funds any
			if err := json.Unmarshal([]byte(encoded), &funds); err != nil {
				return r.PeriodState(), engine.EventError
			}
			st := r.PeriodState().Update(map[string]any{
				KeyMostVotedFunds:       funds,
				KeyParticipantToFunding: r.Collection(),
			})
			return st, engine.EventDone
		})
}

// NewPayoutFractionsRound agrees on the fraction payout plan: who gets
// paid, and the transaction that pays them.
func NewPayoutFractionsRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(PayoutFractionsRoundID, TxPayoutFractions, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			encoded, _ := agreed["payout_fractions"].(string)
			if encoded == "" || encoded == "{}" {
				return r.PeriodState(), EventNoPayouts
			}
			var plan struct {
				Raw     map[string]int64 `json:"raw"`
				Encoded string           `json:"encoded"`
			}
			if err := json.Unmarshal([]byte(encoded), &plan); err != nil {
				return r.PeriodState(), EventNoPayouts
			}
			st := r.PeriodState().Update(map[string]any{
				KeyParticipantToVotedTxHash: r.Collection(),
				KeyMostVotedTxHash:          plan.Encoded,
				KeyUsersBeingPaid:           plan.Raw,
				KeyTxSubmitter:              string(PayoutFractionsRoundID),
			})
			return st, engine.EventDone
		})
}

// postPayoutRound needs no votes: the payout settled, so the pending plan
// is folded into the paid ledger at the first commit boundary.
type postPayoutRound struct {
	engine.CollectionRound
}

// NewPostPayoutRound merges users_being_paid into paid_users.
func NewPostPayoutRound(st *state.PeriodState) engine.Round {
	return &postPayoutRound{
		CollectionRound: engine.NewCollectionRound(PostPayoutRoundID, TxPaidFractions, st),
	}
}

// EndBlock implements engine.Round.
func (r *postPayoutRound) EndBlock() (*state.PeriodState, engine.Event, bool) {
	view := Wrap(r.PeriodState())
	paid := map[string]int64{}
	for address, amount := range view.PaidUsers() {
		paid[address] = amount
	}
	for address, amount := range view.UsersBeingPaid() {
		paid[address] += amount
	}
	st := r.PeriodState().Update(map[string]any{
		KeyUsersBeingPaid: map[string]int64{},
		KeyPaidUsers:      paid,
	})
	return st, engine.EventDone, true
}

// BankApp watches deposits and pays out fraction holders.
func BankApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "bank",
		InitialRound: FundingRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			FundingRoundID:                    NewFundingRound,
			PayoutFractionsRoundID:            NewPayoutFractionsRound,
			FinishedBankWithoutPayoutsRoundID: engine.DegenerateConstructor(FinishedBankWithoutPayoutsRoundID),
			FinishedBankWithPayoutsRoundID:    engine.DegenerateConstructor(FinishedBankWithPayoutsRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			FundingRoundID: {
				engine.EventDone:         PayoutFractionsRoundID,
				engine.EventError:        FundingRoundID,
				engine.EventRoundTimeout: FundingRoundID,
				engine.EventNoMajority:   FundingRoundID,
			},
			PayoutFractionsRoundID: {
				engine.EventDone:         FinishedBankWithPayoutsRoundID,
				EventNoPayouts:           FinishedBankWithoutPayoutsRoundID,
				engine.EventRoundTimeout: FundingRoundID,
				engine.EventNoMajority:   FundingRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedBankWithoutPayoutsRoundID: true,
			FinishedBankWithPayoutsRoundID:    true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}

// PostFractionPayoutApp settles the payout bookkeeping.
func PostFractionPayoutApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "post_fraction_payout",
		InitialRound: PostPayoutRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			PostPayoutRoundID:         NewPostPayoutRound,
			FinishedPostPayoutRoundID: engine.DegenerateConstructor(FinishedPostPayoutRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			PostPayoutRoundID: {
				engine.EventDone:         FinishedPostPayoutRoundID,
				engine.EventRoundTimeout: PostPayoutRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedPostPayoutRoundID: true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}
