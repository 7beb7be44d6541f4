package collector

import "github.com/blockberries/tenderberry/engine"

// Payload kinds accepted by the collector rounds.
const (
	TxRegistration      engine.TxType = "registration"
	TxRandomness        engine.TxType = "randomness"
	TxSelection         engine.TxType = "select_keeper"
	TxDeploySafe        engine.TxType = "deploy_safe"
	TxValidate          engine.TxType = "validate"
	TxObservation       engine.TxType = "observation"
	TxDetails           engine.TxType = "details"
	TxDecision          engine.TxType = "decision"
	TxTransaction       engine.TxType = "transaction"
	TxSignature         engine.TxType = "signature"
	TxFinalization      engine.TxType = "finalization"
	TxDeployDecision    engine.TxType = "deploy_decision"
	TxDeployBasket      engine.TxType = "deploy_basket"
	TxDeployVault       engine.TxType = "deploy_vault"
	TxBasketAddresses   engine.TxType = "basket_addresses"
	TxPermissionFactory engine.TxType = "permission_vault_factory"
	TxVaultAddresses    engine.TxType = "vault_addresses"
	TxFunding           engine.TxType = "funding"
	TxPayoutFractions   engine.TxType = "payout_fractions"
	TxPaidFractions     engine.TxType = "paid_fractions"
	TxPurchasedNFT      engine.TxType = "purchased_nft"
	TxTransferNFT       engine.TxType = "transfer_nft"
	TxPostTx            engine.TxType = "post_tx"
	TxResync            engine.TxType = "resync"
	TxReset             engine.TxType = "reset"
)

// NewRegistrationPayload announces a participant to its peers. The body
// carries the sender's own address, so every contribution is distinct.
func NewRegistrationPayload(sender string) *engine.Payload {
	return engine.NewPayload(sender, TxRegistration, map[string]any{
		"registration": sender,
	})
}

// NewRandomnessPayload proposes shared randomness for keeper election.
func NewRandomnessPayload(sender string, roundID int64, randomness string) *engine.Payload {
	return engine.NewPayload(sender, TxRandomness, map[string]any{
		"round_id":   roundID,
		"randomness": randomness,
	})
}

// NewSelectKeeperPayload proposes a keeper address.
func NewSelectKeeperPayload(sender, keeper string) *engine.Payload {
	return engine.NewPayload(sender, TxSelection, map[string]any{
		"keeper": keeper,
	})
}

// NewDeploySafePayload carries the keeper's deployed safe contract address,
// or "" when the deployment failed.
func NewDeploySafePayload(sender, safeContractAddress string) *engine.Payload {
	return engine.NewPayload(sender, TxDeploySafe, map[string]any{
		"safe_contract_address": safeContractAddress,
	})
}

// NewValidatePayload carries a verification vote. A nil vote is an
// abstention.
func NewValidatePayload(sender string, vote *bool) *engine.Payload {
	body := map[string]any{engine.VoteKey: nil}
	if vote != nil {
		body[engine.VoteKey] = *vote
	}
	return engine.NewPayload(sender, TxValidate, body)
}

// NewObservationPayload carries the observed project details as a JSON
// document.
func NewObservationPayload(sender, projectDetails string) *engine.Payload {
	return engine.NewPayload(sender, TxObservation, map[string]any{
		"project_details": projectDetails,
	})
}

// NewDetailsPayload carries extra project details as a JSON document.
func NewDetailsPayload(sender, details string) *engine.Payload {
	return engine.NewPayload(sender, TxDetails, map[string]any{
		"details": details,
	})
}

// NewDecisionPayload carries a purchase decision: 1 to buy, 0 to pass, -1
// to ask for more details first.
func NewDecisionPayload(sender string, decision int64) *engine.Payload {
	return engine.NewPayload(sender, TxDecision, map[string]any{
		"decision": decision,
	})
}

// NewTransactionPayload carries the encoded purchase transaction hash.
func NewTransactionPayload(sender, purchaseData string) *engine.Payload {
	return engine.NewPayload(sender, TxTransaction, map[string]any{
		"purchase_data": purchaseData,
	})
}

// NewSignaturePayload carries a participant's signature over the agreed
// transaction hash.
func NewSignaturePayload(sender, signature string) *engine.Payload {
	return engine.NewPayload(sender, TxSignature, map[string]any{
		"signature": signature,
	})
}

// NewFinalizationPayload carries the keeper's settled transaction hash, or
// "" when submission failed.
func NewFinalizationPayload(sender, txHash string) *engine.Payload {
	return engine.NewPayload(sender, TxFinalization, map[string]any{
		"tx_hash": txHash,
	})
}

// NewDeployDecisionPayload carries one of DeployFull, DeploySkipBasket, or
// any other value meaning no deployment.
func NewDeployDecisionPayload(sender, deployDecision string) *engine.Payload {
	return engine.NewPayload(sender, TxDeployDecision, map[string]any{
		"deploy_decision": deployDecision,
	})
}

// NewDeployBasketPayload carries the encoded basket deployment tx hash.
func NewDeployBasketPayload(sender, deployBasket string) *engine.Payload {
	return engine.NewPayload(sender, TxDeployBasket, map[string]any{
		"deploy_basket": deployBasket,
	})
}

// NewDeployVaultPayload carries the encoded vault deployment tx hash.
func NewDeployVaultPayload(sender, deployVault string) *engine.Payload {
	return engine.NewPayload(sender, TxDeployVault, map[string]any{
		"deploy_vault": deployVault,
	})
}

// NewBasketAddressesPayload carries the deployed basket addresses as a
// JSON list.
func NewBasketAddressesPayload(sender, basketAddresses string) *engine.Payload {
	return engine.NewPayload(sender, TxBasketAddresses, map[string]any{
		"basket_addresses": basketAddresses,
	})
}

// NewPermissionVaultFactoryPayload carries the permissioning tx hash, or
// SkipPermission when no permissioning is needed.
func NewPermissionVaultFactoryPayload(sender, permissionFactory string) *engine.Payload {
	return engine.NewPayload(sender, TxPermissionFactory, map[string]any{
		"permission_factory": permissionFactory,
	})
}

// NewVaultAddressesPayload carries the deployed vault addresses as a JSON
// list.
func NewVaultAddressesPayload(sender, vaultAddresses string) *engine.Payload {
	return engine.NewPayload(sender, TxVaultAddresses, map[string]any{
		"vault_addresses": vaultAddresses,
	})
}

// NewFundingPayload carries the observed deposits as a JSON document.
func NewFundingPayload(sender, addressToFunds string) *engine.Payload {
	return engine.NewPayload(sender, TxFunding, map[string]any{
		"address_to_funds": addressToFunds,
	})
}

// NewPayoutFractionsPayload carries the fraction payout plan: a JSON object
// with "raw" (address to amount) and "encoded" (the tx hash), or "{}" when
// nothing is due.
func NewPayoutFractionsPayload(sender, payoutFractions string) *engine.Payload {
	return engine.NewPayload(sender, TxPayoutFractions, map[string]any{
		"payout_fractions": payoutFractions,
	})
}

// NewPaidFractionsPayload carries the settled fraction payouts as a JSON
// document.
func NewPaidFractionsPayload(sender, paidFractions string) *engine.Payload {
	return engine.NewPayload(sender, TxPaidFractions, map[string]any{
		"paid_fractions": paidFractions,
	})
}

// NewPurchasedNFTPayload carries the purchased token id, or -1 when the
// purchase could not be processed.
func NewPurchasedNFTPayload(sender string, purchasedNFT int64) *engine.Payload {
	return engine.NewPayload(sender, TxPurchasedNFT, map[string]any{
		"purchased_nft": purchasedNFT,
	})
}

// NewTransferNFTPayload carries the NFT transfer tx hash, or "" when there
// is nothing to transfer.
func NewTransferNFTPayload(sender, transferData string) *engine.Payload {
	return engine.NewPayload(sender, TxTransferNFT, map[string]any{
		"transfer_data": transferData,
	})
}

// NewPostTxPayload carries the settlement outcome as a JSON object with
// "amount_spent", or "{}" when settlement data is unavailable.
func NewPostTxPayload(sender, postTxData string) *engine.Payload {
	return engine.NewPayload(sender, TxPostTx, map[string]any{
		"post_tx_data": postTxData,
	})
}

// NewResyncPayload carries a full state snapshot as a JSON object, or "{}"
// when the sender has nothing to restore from.
func NewResyncPayload(sender, resyncData string) *engine.Payload {
	return engine.NewPayload(sender, TxResync, map[string]any{
		"resync_data": resyncData,
	})
}

// NewResetPayload proposes the period counter for the next period.
func NewResetPayload(sender string, periodCount uint64) *engine.Payload {
	return engine.NewPayload(sender, TxReset, map[string]any{
		"period_count": periodCount,
	})
}
