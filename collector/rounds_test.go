package collector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

var testAgents = []string{"agent_0x01", "agent_0x02", "agent_0x03", "agent_0x04"}

func fourAgentState() *state.PeriodState {
	return state.New(testAgents)
}

// feed applies one payload per sender, built by the given constructor.
func feed(t *testing.T, r engine.Round, senders []string, build func(sender string) *engine.Payload) {
	t.Helper()
	for _, sender := range senders {
		require.NoError(t, r.ProcessPayload(build(sender)))
	}
}

// finish asserts the round has a result and returns it.
func finish(t *testing.T, r engine.Round) (*state.PeriodState, engine.Event) {
	t.Helper()
	st, event, ok := r.EndBlock()
	require.True(t, ok, "round %s should have finished", r.ID())
	return st, event
}

func boolPtr(b bool) *bool { return &b }

func TestRegistrationRoundWaitsForAll(t *testing.T) {
	r := NewRegistrationStartupRound(fourAgentState())

	feed(t, r, testAgents[:3], NewRegistrationPayload)
	_, _, ok := r.EndBlock()
	require.False(t, ok)

	feed(t, r, testAgents[3:], NewRegistrationPayload)
	st, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)
	require.True(t, st.Has(KeyParticipantToRegistration))
}

func TestRandomnessAndKeeperSelection(t *testing.T) {
	r := NewRandomnessSafeRound(fourAgentState())
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewRandomnessPayload(sender, 1, "d1c29f")
	})
	st, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)

	randomness, err := Wrap(st).MostVotedRandomness()
	require.NoError(t, err)
	require.Equal(t, "d1c29f", randomness)

	// 0xd1c29f is 13746847, so the keeper randomness is 0.7.
	keeperRand, err := Wrap(st).KeeperRandomness()
	require.NoError(t, err)
	require.InDelta(t, 0.7, keeperRand, 1e-9)

	sel := NewSelectKeeperSafeRound(st)
	feed(t, sel, testAgents[:3], func(sender string) *engine.Payload {
		return NewSelectKeeperPayload(sender, "agent_0x02")
	})
	st, event = finish(t, sel)
	require.Equal(t, engine.EventDone, event)

	keeper, err := Wrap(st).MostVotedKeeperAddress()
	require.NoError(t, err)
	require.Equal(t, "agent_0x02", keeper)
}

func TestDeploySafeRoundKeeperOnly(t *testing.T) {
	st := fourAgentState().Update(map[string]any{KeyMostVotedKeeper: "agent_0x02"})

	r := NewDeploySafeRound(st)
	require.ErrorIs(t,
		r.ProcessPayload(NewDeploySafePayload("agent_0x01", "0xsafe")),
		engine.ErrTransactionNotValid)

	require.NoError(t, r.ProcessPayload(NewDeploySafePayload("agent_0x02", "0xsafe")))
	next, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)

	address, err := Wrap(next).SafeContractAddress()
	require.NoError(t, err)
	require.Equal(t, "0xsafe", address)
}

func TestDeploySafeRoundEmptyAddressFails(t *testing.T) {
	st := fourAgentState().Update(map[string]any{KeyMostVotedKeeper: "agent_0x02"})

	r := NewDeploySafeRound(st)
	require.NoError(t, r.ProcessPayload(NewDeploySafePayload("agent_0x02", "")))
	_, event := finish(t, r)
	require.Equal(t, EventFailed, event)
}

func TestValidateSafeRoundVerdicts(t *testing.T) {
	r := NewValidateSafeRound(fourAgentState())
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewValidatePayload(sender, boolPtr(true))
	})
	st, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)
	require.True(t, st.Has(KeyParticipantToVotes))

	neg := NewValidateSafeRound(fourAgentState())
	feed(t, neg, testAgents[:3], func(sender string) *engine.Payload {
		return NewValidatePayload(sender, boolPtr(false))
	})
	_, event = finish(t, neg)
	require.Equal(t, EventNegative, event)

	abstain := NewValidateSafeRound(fourAgentState())
	feed(t, abstain, testAgents[:3], func(sender string) *engine.Payload {
		return NewValidatePayload(sender, nil)
	})
	_, event = finish(t, abstain)
	require.Equal(t, EventNone, event)
}

func TestObservationRound(t *testing.T) {
	r := NewObservationRound(fourAgentState())
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewObservationPayload(sender, `{"project_id":56}`)
	})
	st, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)

	project, err := Wrap(st).MostVotedProject()
	require.NoError(t, err)
	require.Equal(t, `{"project_id":56}`, project)

	projectID, err := Wrap(st).LastProcessedProjectID()
	require.NoError(t, err)
	require.Equal(t, int64(56), projectID)
}

func TestObservationRoundEmptyDetailsErrors(t *testing.T) {
	r := NewObservationRound(fourAgentState())
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewObservationPayload(sender, "{}")
	})
	_, event := finish(t, r)
	require.Equal(t, engine.EventError, event)
}

func TestDecisionRoundOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		decision int64
		event    engine.Event
	}{
		{"buy", 1, EventDecidedYes},
		{"pass", 0, EventDecidedNo},
		{"need details", -1, EventGibDetails},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := fourAgentState().Update(map[string]any{
				KeyMostVotedProject: `{"project_id":56}`,
			})
			r := NewDecisionRound(st)
			feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
				return NewDecisionPayload(sender, tc.decision)
			})
			next, event := finish(t, r)
			require.Equal(t, tc.event, event)

			decision, err := Wrap(next).MostVotedDecision()
			require.NoError(t, err)
			require.Equal(t, tc.decision, decision)

			if tc.event == EventDecidedYes {
				require.Equal(t, `{"project_id":56}`, next.Get(KeyProjectToPurchase, ""))
			} else {
				require.False(t, next.Has(KeyProjectToPurchase))
			}
		})
	}
}

func TestTransactionRound(t *testing.T) {
	r := NewTransactionRound(fourAgentState())
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewTransactionPayload(sender, "0xpurchase")
	})
	st, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)

	hash, err := Wrap(st).MostVotedTxHash()
	require.NoError(t, err)
	require.Equal(t, "0xpurchase", hash)

	submitter, err := Wrap(st).TxSubmitter()
	require.NoError(t, err)
	require.Equal(t, TransactionRoundID, submitter)
}

func TestTransactionRoundEmptyPayloadErrors(t *testing.T) {
	r := NewTransactionRound(fourAgentState())
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewTransactionPayload(sender, "")
	})
	_, event := finish(t, r)
	require.Equal(t, engine.EventError, event)
}

func TestResetRoundScrubsTransientKeys(t *testing.T) {
	st := fourAgentState().Update(map[string]any{
		KeyMostVotedRandomness:    "d1c29f",
		KeyMostVotedKeeper:        "agent_0x02",
		KeyMostVotedProject:       `{"project_id":56}`,
		KeyMostVotedDecision:      int64(1),
		KeyMostVotedDetails:       `{"price":100}`,
		KeyLastProcessedProjectID: int64(56),
	})

	r := NewResetFromObservationRound(st)
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewResetPayload(sender, 1)
	})
	next, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)
	require.Equal(t, uint64(1), next.PeriodCount())

	for _, key := range []string{
		KeyMostVotedRandomness,
		KeyMostVotedKeeper,
		KeyMostVotedProject,
		KeyMostVotedDecision,
		KeyMostVotedDetails,
	} {
		_, err := next.GetStrict(key)
		var notSet *state.KeyNotSetError
		require.ErrorAs(t, err, &notSet, "key %s should be scrubbed", key)
	}

	// The last processed project survives the reset.
	projectID, err := Wrap(next).LastProcessedProjectID()
	require.NoError(t, err)
	require.Equal(t, int64(56), projectID)
}

func TestFinalizationRound(t *testing.T) {
	st := fourAgentState().Update(map[string]any{KeyMostVotedKeeper: "agent_0x03"})

	r := NewFinalizationRound(st)
	require.NoError(t, r.ProcessPayload(NewFinalizationPayload("agent_0x03", "0xfinal")))
	next, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)

	hash, err := Wrap(next).FinalTxHash()
	require.NoError(t, err)
	require.Equal(t, "0xfinal", hash)

	failed := NewFinalizationRound(st)
	require.NoError(t, failed.ProcessPayload(NewFinalizationPayload("agent_0x03", "")))
	_, event = finish(t, failed)
	require.Equal(t, EventFailed, event)
}

func TestCollectSignatureRound(t *testing.T) {
	r := NewCollectSignatureRound(fourAgentState())
	feed(t, r, testAgents, func(sender string) *engine.Payload {
		return NewSignaturePayload(sender, "sig_"+sender)
	})
	st, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)
	require.True(t, st.Has(KeyParticipantToSignature))
}

func TestPostTransactionSettlement(t *testing.T) {
	st := fourAgentState().Update(map[string]any{
		KeyTxSubmitter: string(TransactionRoundID),
		KeyAmountSpent: int64(7),
	})

	r := NewPostTransactionSettlementRound(st)
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewPostTxPayload(sender, `{"amount_spent":5}`)
	})
	next, event := finish(t, r)
	require.Equal(t, EventCollectorTxDone, event)
	require.Equal(t, int64(12), Wrap(next).AmountSpent())
}

func TestPostTransactionSettlementUnknownSubmitter(t *testing.T) {
	r := NewPostTransactionSettlementRound(fourAgentState())
	_, event, ok := r.EndBlock()
	require.True(t, ok)
	require.Equal(t, engine.EventError, event)
}

func TestPostTransactionSettlementEmptyOutcome(t *testing.T) {
	st := fourAgentState().Update(map[string]any{
		KeyTxSubmitter: string(DeployBasketTxRoundID),
	})

	r := NewPostTransactionSettlementRound(st)
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewPostTxPayload(sender, "{}")
	})
	_, event := finish(t, r)
	require.Equal(t, engine.EventError, event)
}

func TestDeployDecisionRound(t *testing.T) {
	tests := []struct {
		name     string
		decision string
		event    engine.Event
	}{
		{"full deployment", DeployFull, EventDecidedYes},
		{"skip basket", DeploySkipBasket, EventDecidedSkip},
		{"no deployment", "dont_deploy", EventDecidedNo},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := fourAgentState().Update(map[string]any{KeyAmountSpent: int64(100)})
			r := NewDeployDecisionRound(st)
			feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
				return NewDeployDecisionPayload(sender, tc.decision)
			})
			next, event := finish(t, r)
			require.Equal(t, tc.event, event)

			if tc.decision == DeployFull {
				require.Equal(t, int64(0), Wrap(next).AmountSpent())
			} else {
				require.Equal(t, int64(100), Wrap(next).AmountSpent())
			}
		})
	}
}

func TestBasketAndVaultAddressRounds(t *testing.T) {
	basket := NewBasketAddressRound(fourAgentState())
	feed(t, basket, testAgents[:3], func(sender string) *engine.Payload {
		return NewBasketAddressesPayload(sender, `["0xbasket1","0xbasket2"]`)
	})
	st, event := finish(t, basket)
	require.Equal(t, engine.EventDone, event)
	require.Equal(t, []string{"0xbasket1", "0xbasket2"}, Wrap(st).BasketAddresses())

	vault := NewVaultAddressRound(fourAgentState())
	feed(t, vault, testAgents[:3], func(sender string) *engine.Payload {
		return NewVaultAddressesPayload(sender, `["0xvault"]`)
	})
	st, event = finish(t, vault)
	require.Equal(t, engine.EventDone, event)
	require.Equal(t, []string{"0xvault"}, Wrap(st).VaultAddresses())

	bad := NewBasketAddressRound(fourAgentState())
	feed(t, bad, testAgents[:3], func(sender string) *engine.Payload {
		return NewBasketAddressesPayload(sender, "")
	})
	_, event = finish(t, bad)
	require.Equal(t, engine.EventError, event)
}

func TestPermissionVaultFactoryRound(t *testing.T) {
	skip := NewPermissionVaultFactoryRound(fourAgentState())
	feed(t, skip, testAgents[:3], func(sender string) *engine.Payload {
		return NewPermissionVaultFactoryPayload(sender, SkipPermission)
	})
	_, event := finish(t, skip)
	require.Equal(t, EventDecidedNo, event)

	grant := NewPermissionVaultFactoryRound(fourAgentState())
	feed(t, grant, testAgents[:3], func(sender string) *engine.Payload {
		return NewPermissionVaultFactoryPayload(sender, "0xpermission")
	})
	st, event := finish(t, grant)
	require.Equal(t, EventDecidedYes, event)

	submitter, err := Wrap(st).TxSubmitter()
	require.NoError(t, err)
	require.Equal(t, PermissionVaultFactoryRoundID, submitter)

	empty := NewPermissionVaultFactoryRound(fourAgentState())
	feed(t, empty, testAgents[:3], func(sender string) *engine.Payload {
		return NewPermissionVaultFactoryPayload(sender, "")
	})
	_, event = finish(t, empty)
	require.Equal(t, engine.EventError, event)
}

func TestProcessPurchaseRound(t *testing.T) {
	st := fourAgentState().Update(map[string]any{
		KeyProjectToPurchase: `{"project_id":56}`,
	})

	r := NewProcessPurchaseRound(st)
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewPurchasedNFTPayload(sender, 42)
	})
	next, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)

	tokenID, err := Wrap(next).PurchasedNFT()
	require.NoError(t, err)
	require.Equal(t, int64(42), tokenID)
	require.Equal(t, []any{`{"project_id":56}`}, Wrap(next).PurchasedProjects())
	require.False(t, next.Has(KeyProjectToPurchase))
}

func TestProcessPurchaseRoundFailure(t *testing.T) {
	r := NewProcessPurchaseRound(fourAgentState())
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewPurchasedNFTPayload(sender, -1)
	})
	_, event := finish(t, r)
	require.Equal(t, engine.EventError, event)
}

func TestTransferNFTRound(t *testing.T) {
	st := fourAgentState().Update(map[string]any{KeyPurchasedNFT: int64(42)})

	r := NewTransferNFTRound(st)
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewTransferNFTPayload(sender, "0xtransfer")
	})
	next, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)
	require.False(t, next.Has(KeyPurchasedNFT))

	submitter, err := Wrap(next).TxSubmitter()
	require.NoError(t, err)
	require.Equal(t, TransferNFTRoundID, submitter)

	none := NewTransferNFTRound(st)
	feed(t, none, testAgents[:3], func(sender string) *engine.Payload {
		return NewTransferNFTPayload(sender, "")
	})
	_, event = finish(t, none)
	require.Equal(t, EventNoTransfer, event)
}

func TestBankRounds(t *testing.T) {
	funding := NewFundingRound(fourAgentState())
	feed(t, funding, testAgents[:3], func(sender string) *engine.Payload {
		return NewFundingPayload(sender, `[{"address":"0xuser","funds":1000}]`)
	})
	st, event := finish(t, funding)
	require.Equal(t, engine.EventDone, event)

	funds, err := Wrap(st).MostVotedFunds()
	require.NoError(t, err)
	require.NotNil(t, funds)

	noPayouts := NewPayoutFractionsRound(st)
	feed(t, noPayouts, testAgents[:3], func(sender string) *engine.Payload {
		return NewPayoutFractionsPayload(sender, "{}")
	})
	_, event = finish(t, noPayouts)
	require.Equal(t, EventNoPayouts, event)

	payouts := NewPayoutFractionsRound(st)
	feed(t, payouts, testAgents[:3], func(sender string) *engine.Payload {
		return NewPayoutFractionsPayload(sender, `{"raw":{"0xuser":500},"encoded":"0xpayout"}`)
	})
	st, event = finish(t, payouts)
	require.Equal(t, engine.EventDone, event)
	require.Equal(t, map[string]int64{"0xuser": 500}, Wrap(st).UsersBeingPaid())

	submitter, err := Wrap(st).TxSubmitter()
	require.NoError(t, err)
	require.Equal(t, PayoutFractionsRoundID, submitter)
}

func TestPostPayoutRoundMergesLedgers(t *testing.T) {
	st := fourAgentState().Update(map[string]any{
		KeyPaidUsers:      map[string]int64{"0xalice": 100},
		KeyUsersBeingPaid: map[string]int64{"0xalice": 50, "0xbob": 30},
	})

	r := NewPostPayoutRound(st)
	next, event, ok := r.EndBlock()
	require.True(t, ok)
	require.Equal(t, engine.EventDone, event)
	require.Equal(t, map[string]int64{"0xalice": 150, "0xbob": 30}, Wrap(next).PaidUsers())
	require.Empty(t, Wrap(next).UsersBeingPaid())
}

func TestResyncRound(t *testing.T) {
	bad := NewResyncRound(fourAgentState())
	feed(t, bad, testAgents[:3], func(sender string) *engine.Payload {
		return NewResyncPayload(sender, "{}")
	})
	_, event := finish(t, bad)
	require.Equal(t, engine.EventError, event)

	r := NewResyncRound(fourAgentState())
	feed(t, r, testAgents[:3], func(sender string) *engine.Payload {
		return NewResyncPayload(sender, `{"period_count":5,"basket_addresses":["0xbasket"],"amount_spent":12}`)
	})
	st, event := finish(t, r)
	require.Equal(t, engine.EventDone, event)
	require.Equal(t, uint64(5), st.PeriodCount())
	require.Equal(t, []string{"0xbasket"}, Wrap(st).BasketAddresses())
	require.Equal(t, int64(12), Wrap(st).AmountSpent())
}
