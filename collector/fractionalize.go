package collector

import (
	"encoding/json"

	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

// Fractionalize deployment round identifiers.
const (
	DeployDecisionRoundID                      engine.RoundID = "deploy_decision"
	DeployBasketTxRoundID                      engine.RoundID = "deploy_basket_tx"
	FinishedDeployBasketTxRoundID              engine.RoundID = "finished_deploy_basket_tx"
	FinishedWithoutDeploymentRoundID           engine.RoundID = "finished_without_deployment"
	FinishedWithBasketDeploymentSkippedRoundID engine.RoundID = "finished_with_basket_deployment_skipped"
	BasketAddressRoundID                       engine.RoundID = "basket_address"
	PermissionVaultFactoryRoundID              engine.RoundID = "permission_vault_factory"
	FinishedPostBasketRoundID                  engine.RoundID = "finished_post_basket"
	FinishedPostBasketWithoutPermissionRoundID engine.RoundID = "finished_post_basket_without_permission"
	DeployVaultTxRoundID                       engine.RoundID = "deploy_vault_tx"
	FinishedDeployVaultTxRoundID               engine.RoundID = "finished_deploy_vault_tx"
	VaultAddressRoundID                        engine.RoundID = "vault_address"
	FinishedPostVaultRoundID                   engine.RoundID = "finished_post_vault"
)

// Deploy decision verdicts. Anything else means no deployment.
const (
	DeployFull       = "deploy_full"
	DeploySkipBasket = "deploy_skip_basket"
)

// SkipPermission is the permission-factory payload value meaning the vault
// factory needs no permissioning on this basket.
const SkipPermission = "no_permissioning"

// NewDeployDecisionRound agrees on whether a fresh basket and vault are
// needed. A full deployment starts a new spending period, so the
// accumulated amount_spent is zeroed.
func NewDeployDecisionRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(DeployDecisionRoundID, TxDeployDecision, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			decision, _ := agreed["deploy_decision"].(string)
			kv := map[string]any{
				KeyParticipantToDeployDecision: r.Collection(),
				KeyMostVotedDeployDecision:     decision,
			}
			switch decision {
			case DeployFull:
				kv[KeyAmountSpent] = int64(0)
				return r.PeriodState().Update(kv), EventDecidedYes
			case DeploySkipBasket:
				return r.PeriodState().Update(kv), EventDecidedSkip
			default:
				return r.PeriodState().Update(kv), EventDecidedNo
			}
		})
}

// finalizeSubmittedTx records an agreed tx hash under the given submitter,
// erroring out on an empty hash. Shared by the deploy-basket, deploy-vault,
// and permission rounds.
func finalizeSubmittedTx(r *engine.CollectSameUntilThresholdRound, txHash string, doneEvent engine.Event) (*state.PeriodState, engine.Event) {
	if txHash == "" {
		return r.PeriodState(), engine.EventError
	}
	st := r.PeriodState().Update(map[string]any{
		KeyParticipantToVotedTxHash: r.Collection(),
		KeyMostVotedTxHash:          txHash,
		KeyTxSubmitter:              string(r.ID()),
	})
	return st, doneEvent
}

// NewDeployBasketTxRound agrees on the basket deployment transaction.
func NewDeployBasketTxRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(DeployBasketTxRoundID, TxDeployBasket, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			txHash, _ := agreed["deploy_basket"].(string)
			return finalizeSubmittedTx(r, txHash, engine.EventDone)
		})
}

// NewBasketAddressRound agrees on the addresses of the deployed baskets,
// carried as a JSON list.
func NewBasketAddressRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(BasketAddressRoundID, TxBasketAddresses, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			encoded, _ := agreed["basket_addresses"].(string)
			if encoded == "" {
				return r.PeriodState(), engine.EventError
			}
			var addresses []string
			if err := json.Unmarshal([]byte(encoded), &addresses); err != nil {
				return r.PeriodState(), engine.EventError
			}
			st := r.PeriodState().Update(map[string]any{
				KeyParticipantToBasketAddresses: r.Collection(),
				KeyBasketAddresses:              addresses,
			})
			return st, engine.EventDone
		})
}

// NewPermissionVaultFactoryRound agrees on the transaction permissioning
// the vault factory on the new basket, or on skipping permissioning.
func NewPermissionVaultFactoryRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(PermissionVaultFactoryRoundID, TxPermissionFactory, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			permission, _ := agreed["permission_factory"].(string)
			if permission == SkipPermission {
				return r.PeriodState(), EventDecidedNo
			}
			return finalizeSubmittedTx(r, permission, EventDecidedYes)
		})
}

// NewDeployVaultTxRound agrees on the vault deployment transaction.
func NewDeployVaultTxRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(DeployVaultTxRoundID, TxDeployVault, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			txHash, _ := agreed["deploy_vault"].(string)
			return finalizeSubmittedTx(r, txHash, engine.EventDone)
		})
}

// NewVaultAddressRound agrees on the addresses of the deployed vaults,
// carried as a JSON list.
func NewVaultAddressRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectSameRound(VaultAddressRoundID, TxVaultAddresses, st,
		func(r *engine.CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, engine.Event) {
			encoded, _ := agreed["vault_addresses"].(string)
			if encoded == "" {
				return r.PeriodState(), engine.EventError
			}
			var addresses []string
			if err := json.Unmarshal([]byte(encoded), &addresses); err != nil {
				return r.PeriodState(), engine.EventError
			}
			st := r.PeriodState().Update(map[string]any{
				KeyParticipantToVaultAddresses: r.Collection(),
				KeyVaultAddresses:              addresses,
			})
			return st, engine.EventDone
		})
}

// DeployBasketApp decides whether to deploy and runs the basket deployment.
func DeployBasketApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "deploy_basket",
		InitialRound: DeployDecisionRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			DeployDecisionRoundID:                      NewDeployDecisionRound,
			DeployBasketTxRoundID:                      NewDeployBasketTxRound,
			FinishedDeployBasketTxRoundID:              engine.DegenerateConstructor(FinishedDeployBasketTxRoundID),
			FinishedWithoutDeploymentRoundID:           engine.DegenerateConstructor(FinishedWithoutDeploymentRoundID),
			FinishedWithBasketDeploymentSkippedRoundID: engine.DegenerateConstructor(FinishedWithBasketDeploymentSkippedRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			DeployDecisionRoundID: {
				EventDecidedYes:        DeployBasketTxRoundID,
				EventDecidedSkip:       FinishedWithBasketDeploymentSkippedRoundID,
				EventDecidedNo:         FinishedWithoutDeploymentRoundID,
				engine.EventNoMajority: DeployDecisionRoundID,
			},
			DeployBasketTxRoundID: {
				engine.EventDone:       FinishedDeployBasketTxRoundID,
				engine.EventError:      FinishedWithoutDeploymentRoundID,
				engine.EventNoMajority: DeployBasketTxRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedDeployBasketTxRoundID:              true,
			FinishedWithoutDeploymentRoundID:           true,
			FinishedWithBasketDeploymentSkippedRoundID: true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}

// PostBasketDeploymentApp records the basket addresses and permissions the
// vault factory on them.
func PostBasketDeploymentApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "post_basket_deployment",
		InitialRound: BasketAddressRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			BasketAddressRoundID:                       NewBasketAddressRound,
			PermissionVaultFactoryRoundID:              NewPermissionVaultFactoryRound,
			FinishedPostBasketRoundID:                  engine.DegenerateConstructor(FinishedPostBasketRoundID),
			FinishedPostBasketWithoutPermissionRoundID: engine.DegenerateConstructor(FinishedPostBasketWithoutPermissionRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			BasketAddressRoundID: {
				engine.EventDone:       PermissionVaultFactoryRoundID,
				engine.EventError:      BasketAddressRoundID,
				engine.EventNoMajority: BasketAddressRoundID,
			},
			PermissionVaultFactoryRoundID: {
				EventDecidedYes:        FinishedPostBasketRoundID,
				EventDecidedNo:         FinishedPostBasketWithoutPermissionRoundID,
				engine.EventError:      PermissionVaultFactoryRoundID,
				engine.EventNoMajority: PermissionVaultFactoryRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedPostBasketRoundID:                  true,
			FinishedPostBasketWithoutPermissionRoundID: true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}

// DeployVaultApp runs the vault deployment.
func DeployVaultApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "deploy_vault",
		InitialRound: DeployVaultTxRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			DeployVaultTxRoundID:         NewDeployVaultTxRound,
			FinishedDeployVaultTxRoundID: engine.DegenerateConstructor(FinishedDeployVaultTxRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			DeployVaultTxRoundID: {
				engine.EventDone:       FinishedDeployVaultTxRoundID,
				engine.EventError:      DeployVaultTxRoundID,
				engine.EventNoMajority: DeployVaultTxRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedDeployVaultTxRoundID: true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}

// PostVaultDeploymentApp records the vault addresses.
func PostVaultDeploymentApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "post_vault_deployment",
		InitialRound: VaultAddressRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			VaultAddressRoundID:      NewVaultAddressRound,
			FinishedPostVaultRoundID: engine.DegenerateConstructor(FinishedPostVaultRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			VaultAddressRoundID: {
				engine.EventDone:       FinishedPostVaultRoundID,
				engine.EventError:      VaultAddressRoundID,
				engine.EventNoMajority: VaultAddressRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedPostVaultRoundID: true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}
