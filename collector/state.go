package collector

import (
	"encoding/json"
	"math/big"

	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

// State keys written by the collector rounds. The "participant_to" keys
// hold the full collection of the round that wrote them.
const (
	KeyParticipantToRegistration    = "participant_to_registration"
	KeyParticipantToRandomness      = "participant_to_randomness"
	KeyMostVotedRandomness          = "most_voted_randomness"
	KeyParticipantToSelection       = "participant_to_selection"
	KeyParticipantToVotes           = "participant_to_votes"
	KeySafeContractAddress          = "safe_contract_address"
	KeyParticipantToProject         = "participant_to_project"
	KeyMostVotedProject             = "most_voted_project"
	KeyLastProcessedProjectID       = "last_processed_project_id"
	KeyParticipantToDetails         = "participant_to_details"
	KeyMostVotedDetails             = "most_voted_details"
	KeyParticipantToDecision        = "participant_to_decision"
	KeyMostVotedDecision            = "most_voted_decision"
	KeyProjectToPurchase            = "project_to_purchase"
	KeyParticipantToVotedTxHash     = "participant_to_voted_tx_hash"
	KeyMostVotedTxHash              = "most_voted_tx_hash"
	KeyTxSubmitter                  = "tx_submitter"
	KeyParticipantToSignature       = "participant_to_signature"
	KeyFinalTxHash                  = "final_tx_hash"
	KeyAmountSpent                  = "amount_spent"
	KeyParticipantToDeployDecision  = "participant_to_deploy_decision"
	KeyMostVotedDeployDecision      = "most_voted_deploy_decision"
	KeyParticipantToBasketAddresses = "participant_to_basket_addresses"
	KeyBasketAddresses              = "basket_addresses"
	KeyParticipantToVaultAddresses  = "participant_to_vault_addresses"
	KeyVaultAddresses               = "vault_addresses"
	KeyPurchasedProjects            = "purchased_projects"
	KeyPurchasedNFT                 = "purchased_nft"
	KeyMostVotedFunds               = "most_voted_funds"
	KeyParticipantToFunding         = "participant_to_funding_round"
	KeyUsersBeingPaid               = "users_being_paid"
	KeyPaidUsers                    = "paid_users"
)

// KeyMostVotedKeeper aliases the engine's keeper key, the address
// only-keeper rounds check senders against.
const KeyMostVotedKeeper = engine.KeeperAddressKey

// State wraps a period state snapshot with typed accessors over the
// collector's keys.
type State struct {
	*state.PeriodState
}

// Wrap builds the typed view over a snapshot.
func Wrap(st *state.PeriodState) State {
	return State{PeriodState: st}
}

// MostVotedRandomness returns the agreed randomness hex string.
func (s State) MostVotedRandomness() (string, error) {
	return s.getString(KeyMostVotedRandomness)
}

// KeeperRandomness maps the agreed randomness onto [0, 1): the hex value
// modulo ten, over ten.
func (s State) KeeperRandomness() (float64, error) {
	randomness, err := s.MostVotedRandomness()
	if err != nil {
		return 0, err
	}
	n, ok := new(big.Int).SetString(randomness, 16)
	if !ok {
		return 0, &state.KeyNotSetError{Key: KeyMostVotedRandomness}
	}
	digit := new(big.Int).Mod(n, big.NewInt(10))
	return float64(digit.Int64()) / 10, nil
}

// MostVotedKeeperAddress returns the elected keeper.
func (s State) MostVotedKeeperAddress() (string, error) {
	return s.getString(KeyMostVotedKeeper)
}

// SafeContractAddress returns the deployed safe contract address.
func (s State) SafeContractAddress() (string, error) {
	return s.getString(KeySafeContractAddress)
}

// MostVotedProject returns the agreed project details document.
func (s State) MostVotedProject() (string, error) {
	return s.getString(KeyMostVotedProject)
}

// LastProcessedProjectID returns the id of the last observed project.
func (s State) LastProcessedProjectID() (int64, error) {
	return s.getInt64(KeyLastProcessedProjectID)
}

// MostVotedDetails returns the agreed details document.
func (s State) MostVotedDetails() (string, error) {
	return s.getString(KeyMostVotedDetails)
}

// MostVotedDecision returns the agreed purchase decision.
func (s State) MostVotedDecision() (int64, error) {
	return s.getInt64(KeyMostVotedDecision)
}

// MostVotedTxHash returns the transaction hash awaiting settlement.
func (s State) MostVotedTxHash() (string, error) {
	return s.getString(KeyMostVotedTxHash)
}

// TxSubmitter returns the round that produced the pending transaction.
func (s State) TxSubmitter() (engine.RoundID, error) {
	submitter, err := s.getString(KeyTxSubmitter)
	return engine.RoundID(submitter), err
}

// FinalTxHash returns the settled transaction hash.
func (s State) FinalTxHash() (string, error) {
	return s.getString(KeyFinalTxHash)
}

// AmountSpent returns the accumulated settlement spend in wei.
func (s State) AmountSpent() int64 {
	if v, ok := asInt64(s.Get(KeyAmountSpent, nil)); ok {
		return v
	}
	return 0
}

// BasketAddresses returns the deployed basket addresses.
func (s State) BasketAddresses() []string {
	return asStringSlice(s.Get(KeyBasketAddresses, nil))
}

// VaultAddresses returns the deployed vault addresses.
func (s State) VaultAddresses() []string {
	return asStringSlice(s.Get(KeyVaultAddresses, nil))
}

// PurchasedNFT returns the purchased token id.
func (s State) PurchasedNFT() (int64, error) {
	return s.getInt64(KeyPurchasedNFT)
}

// PurchasedProjects returns the project documents purchased so far.
func (s State) PurchasedProjects() []any {
	if v, ok := s.Get(KeyPurchasedProjects, nil).([]any); ok {
		return v
	}
	return nil
}

// MostVotedFunds returns the agreed deposits document as decoded JSON.
func (s State) MostVotedFunds() (any, error) {
	return s.GetStrict(KeyMostVotedFunds)
}

// UsersBeingPaid returns the payout plan awaiting settlement.
func (s State) UsersBeingPaid() map[string]int64 {
	return asInt64Map(s.Get(KeyUsersBeingPaid, nil))
}

// PaidUsers returns the accumulated settled payouts.
func (s State) PaidUsers() map[string]int64 {
	return asInt64Map(s.Get(KeyPaidUsers, nil))
}

func (s State) getString(key string) (string, error) {
	v, err := s.GetStrict(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", &state.KeyNotSetError{Key: key}
	}
	return str, nil
}

func (s State) getInt64(key string) (int64, error) {
	v, err := s.GetStrict(key)
	if err != nil {
		return 0, err
	}
	n, ok := asInt64(v)
	if !ok {
		return 0, &state.KeyNotSetError{Key: key}
	}
	return n, nil
}

// asInt64 coerces the numeric shapes a value can arrive in: native ints
// from in-process payloads, float64 from JSON decoding.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func asStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

func asInt64Map(v any) map[string]int64 {
	switch m := v.(type) {
	case map[string]int64:
		return m
	case map[string]any:
		out := make(map[string]int64, len(m))
		for k, item := range m {
			if n, ok := asInt64(item); ok {
				out[k] = n
			}
		}
		return out
	default:
		return nil
	}
}
