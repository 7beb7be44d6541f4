// Package collector defines the composed replicated application: thirteen
// sub-apps over the engine toolkit covering agent registration, safe
// deployment, project observation and purchase, transaction submission and
// settlement, basket and vault deployment, NFT transfer, deposits and
// payouts, and state resync. Compose chains them into the single app the
// node schedules behind the consensus engine.
package collector

import "github.com/blockberries/tenderberry/engine"

// Events beyond the engine base set.
const (
	// EventDecidedYes and EventDecidedNo carry a positive or negative
	// agreed decision out of a decision round.
	EventDecidedYes engine.Event = "decided_yes"
	EventDecidedNo  engine.Event = "decided_no"

	// EventDecidedSkip signals that only the basket deployment should be
	// skipped.
	EventDecidedSkip engine.Event = "decided_skip"

	// EventGibDetails asks for another pass over the project details
	// before deciding.
	EventGibDetails engine.Event = "gib_details"

	// EventNoPayouts signals that no fraction payouts are due.
	EventNoPayouts engine.Event = "no_payouts"

	// EventNoTransfer signals that there is no NFT to move to the basket.
	EventNoTransfer engine.Event = "no_transfer"

	// EventFailed signals that the keeper could not finalize.
	EventFailed engine.Event = "failed"

	// EventNegative and EventNone carry the losing verdicts of a voting
	// round.
	EventNegative engine.Event = "negative"
	EventNone     engine.Event = "none"

	// EventDeployTimeout and EventValidateTimeout are the timed events of
	// the keeper deployment and validation rounds.
	EventDeployTimeout   engine.Event = "deploy_timeout"
	EventValidateTimeout engine.Event = "validate_timeout"
)

// Settlement events, one per transaction submitter the multiplexer routes.
const (
	EventCollectorTxDone        engine.Event = "collector_tx_done"
	EventVaultTxDone            engine.Event = "vault_done"
	EventBasketTxDone           engine.Event = "basket_done"
	EventBasketPermissionTxDone engine.Event = "basket_permission"
	EventFractionPayoutTxDone   engine.Event = "fraction_payout"
	EventTransferNFTTxDone      engine.Event = "transfer_nft_done"
)
