package collector

import "github.com/blockberries/tenderberry/engine"

// transitionMapping glues the sub-apps together: every final round of every
// sub-app is spliced into the round that picks up from it. Mirrors the
// service's full life cycle: register, deploy the safe, deploy basket and
// vault, observe and purchase, settle, transfer, bank, and loop.
func transitionMapping() map[engine.RoundID]engine.RoundID {
	return map[engine.RoundID]engine.RoundID{
		// registration
		FinishedRegistrationRoundID:    RandomnessSafeRoundID,
		FinishedRegistrationFFWRoundID: ResyncRoundID,

		// safe deployment and resync both land on the deploy decision
		FinishedSafeRoundID:   DeployDecisionRoundID,
		FinishedResyncRoundID: DeployDecisionRoundID,

		// fractionalize deployment
		FinishedDeployBasketTxRoundID:              RandomnessTransactionSubmissionRoundID,
		FinishedWithoutDeploymentRoundID:           FundingRoundID,
		FinishedWithBasketDeploymentSkippedRoundID: BasketAddressRoundID,
		FinishedPostBasketRoundID:                  RandomnessTransactionSubmissionRoundID,
		FinishedPostBasketWithoutPermissionRoundID: DeployVaultTxRoundID,
		FinishedDeployVaultTxRoundID:               RandomnessTransactionSubmissionRoundID,
		FinishedPostVaultRoundID:                   FundingRoundID,

		// observation and purchase
		FinishedCollectorBaseRoundID: RandomnessTransactionSubmissionRoundID,

		// transaction submission
		FinishedTransactionSubmissionRoundID: PostTransactionSettlementRoundID,
		FailedRoundID:                        RegistrationRoundID,

		// settlement multiplexer
		FinishedCollectorTxRoundID:        ProcessPurchaseRoundID,
		FinishedBasketTxRoundID:           BasketAddressRoundID,
		FinishedVaultTxRoundID:            VaultAddressRoundID,
		FinishedBasketPermissionTxRoundID: DeployVaultTxRoundID,
		FinishedPayoutTxRoundID:           PostPayoutRoundID,
		FinishedTransferNFTTxRoundID:      DeployDecisionRoundID,
		ErroneousRoundID:                  RandomnessTransactionSubmissionRoundID,

		// NFT transfer
		FinishedWithTransferRoundID:     RandomnessTransactionSubmissionRoundID,
		FinishedWithoutTransferRoundID:  DeployDecisionRoundID,
		FailedPurchaseProcessingRoundID: ObservationRoundID,

		// bank and post-payout
		FinishedBankWithPayoutsRoundID:    RandomnessTransactionSubmissionRoundID,
		FinishedBankWithoutPayoutsRoundID: ObservationRoundID,
		FinishedPostPayoutRoundID:         ObservationRoundID,
	}
}

// Compose chains the thirteen sub-apps into the collector application.
func Compose() (*engine.AppSpec, error) {
	return engine.Chain("collector", []*engine.AppSpec{
		RegistrationApp(),
		SafeDeploymentApp(),
		CollectorBaseApp(),
		TransactionSubmissionApp(),
		SettlementMultiplexerApp(),
		DeployVaultApp(),
		PostVaultDeploymentApp(),
		DeployBasketApp(),
		PostBasketDeploymentApp(),
		TransferNFTApp(),
		BankApp(),
		PostFractionPayoutApp(),
		ResyncApp(),
	}, transitionMapping())
}
