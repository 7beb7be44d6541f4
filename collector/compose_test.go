package collector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/tenderberry/engine"
)

func TestComposeBuildsASingleApp(t *testing.T) {
	spec, err := Compose()
	require.NoError(t, err)

	require.Equal(t, RegistrationStartupRoundID, spec.InitialRound)

	// 56 rounds across the sub-apps, 27 of which are spliced-out finals.
	require.Len(t, spec.Rounds, 29)

	// Every final round is replaced by an entry round of another sub-app,
	// so the composed application loops forever.
	require.Empty(t, spec.FinalRounds)
}

func TestComposeRewiresSubAppBoundaries(t *testing.T) {
	spec, err := Compose()
	require.NoError(t, err)

	tests := []struct {
		from  engine.RoundID
		event engine.Event
		to    engine.RoundID
	}{
		{RegistrationStartupRoundID, engine.EventDone, RandomnessSafeRoundID},
		{ValidateSafeRoundID, engine.EventDone, DeployDecisionRoundID},
		{DeployDecisionRoundID, EventDecidedNo, FundingRoundID},
		{DeployDecisionRoundID, EventDecidedSkip, BasketAddressRoundID},
		{PayoutFractionsRoundID, EventNoPayouts, ObservationRoundID},
		{TransactionRoundID, engine.EventDone, RandomnessTransactionSubmissionRoundID},
		{ValidateTransactionRoundID, engine.EventDone, PostTransactionSettlementRoundID},
		{ValidateTransactionRoundID, EventNegative, RegistrationRoundID},
		{PostTransactionSettlementRoundID, EventCollectorTxDone, ProcessPurchaseRoundID},
		{TransferNFTRoundID, engine.EventDone, RandomnessTransactionSubmissionRoundID},
		{TransferNFTRoundID, EventNoTransfer, DeployDecisionRoundID},
		{RegistrationRoundID, engine.EventDone, ResyncRoundID},
		{ResyncRoundID, engine.EventDone, DeployDecisionRoundID},
		{PostPayoutRoundID, engine.EventDone, ObservationRoundID},
	}
	for _, tc := range tests {
		require.Equal(t, tc.to, spec.Transitions[tc.from][tc.event],
			"%s on %s", tc.from, tc.event)
	}
}

func TestComposedAppConstructs(t *testing.T) {
	spec, err := Compose()
	require.NoError(t, err)

	app, err := engine.NewAbciApp(spec, fourAgentState(), nil)
	require.NoError(t, err)
	app.Setup()
	require.Equal(t, RegistrationStartupRoundID, app.CurrentRoundID())
}

// advance feeds one payload per agent into the running round, ends it, and
// follows the resulting transition.
func advance(t *testing.T, app *engine.AbciApp, senders []string, build func(sender string) *engine.Payload) engine.Event {
	t.Helper()
	for _, sender := range senders {
		tx := engine.NewTransaction(build(sender), "sig_"+sender)
		require.NoError(t, app.CheckTransaction(tx))
		require.NoError(t, app.ProcessTransaction(tx))
	}
	st, event, ok := app.CurrentRound().EndBlock()
	require.True(t, ok, "round %s should have finished", app.CurrentRoundID())
	app.ProcessEvent(event, st)
	return event
}

func TestComposedAppFullPeriod(t *testing.T) {
	spec, err := Compose()
	require.NoError(t, err)

	app, err := engine.NewAbciApp(spec, fourAgentState(), nil)
	require.NoError(t, err)
	app.Setup()

	// Agent registration.
	advance(t, app, testAgents, NewRegistrationPayload)
	require.Equal(t, RandomnessSafeRoundID, app.CurrentRoundID())

	// Safe deployment: randomness, keeper election, deployment, validation.
	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewRandomnessPayload(sender, 1, "d1c29f")
	})
	require.Equal(t, SelectKeeperSafeRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewSelectKeeperPayload(sender, "agent_0x02")
	})
	require.Equal(t, DeploySafeRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[1:2], func(sender string) *engine.Payload {
		return NewDeploySafePayload(sender, "0xsafe")
	})
	require.Equal(t, ValidateSafeRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewValidatePayload(sender, boolPtr(true))
	})
	require.Equal(t, DeployDecisionRoundID, app.CurrentRoundID())

	address, err := Wrap(app.State()).SafeContractAddress()
	require.NoError(t, err)
	require.Equal(t, "0xsafe", address)

	// No token deployment this period, straight to the bank.
	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewDeployDecisionPayload(sender, "dont_deploy")
	})
	require.Equal(t, FundingRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewFundingPayload(sender, `[{"address":"0xuser","funds":1000}]`)
	})
	require.Equal(t, PayoutFractionsRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewPayoutFractionsPayload(sender, "{}")
	})
	require.Equal(t, ObservationRoundID, app.CurrentRoundID())

	// Observe a project and decide to buy it.
	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewObservationPayload(sender, `{"project_id":56}`)
	})
	require.Equal(t, DecisionRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewDecisionPayload(sender, 1)
	})
	require.Equal(t, TransactionRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewTransactionPayload(sender, "0xpurchase")
	})
	require.Equal(t, RandomnessTransactionSubmissionRoundID, app.CurrentRoundID())

	// Submit the purchase transaction through the safe.
	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewRandomnessPayload(sender, 2, "a7")
	})
	require.Equal(t, SelectKeeperTransactionSubmissionRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewSelectKeeperPayload(sender, "agent_0x03")
	})
	require.Equal(t, CollectSignatureRoundID, app.CurrentRoundID())

	advance(t, app, testAgents, func(sender string) *engine.Payload {
		return NewSignaturePayload(sender, "sig_"+sender)
	})
	require.Equal(t, FinalizationRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[2:3], func(sender string) *engine.Payload {
		return NewFinalizationPayload(sender, "0xfinal")
	})
	require.Equal(t, ValidateTransactionRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewValidatePayload(sender, boolPtr(true))
	})
	require.Equal(t, PostTransactionSettlementRoundID, app.CurrentRoundID())

	// Settle, then pick up the purchased token.
	event := advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewPostTxPayload(sender, `{"amount_spent":5}`)
	})
	require.Equal(t, EventCollectorTxDone, event)
	require.Equal(t, ProcessPurchaseRoundID, app.CurrentRoundID())
	require.Equal(t, int64(5), Wrap(app.State()).AmountSpent())

	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewPurchasedNFTPayload(sender, 42)
	})
	require.Equal(t, TransferNFTRoundID, app.CurrentRoundID())

	advance(t, app, testAgents[:3], func(sender string) *engine.Payload {
		return NewTransferNFTPayload(sender, "0xtransfer")
	})
	require.Equal(t, RandomnessTransactionSubmissionRoundID, app.CurrentRoundID())

	require.Equal(t, []any{`{"project_id":56}`}, Wrap(app.State()).PurchasedProjects())
	require.False(t, app.IsFinished())
}
