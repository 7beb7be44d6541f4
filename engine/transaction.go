package engine

import (
	"encoding/json"
	"fmt"
)

// Transaction is a signed payload as gossiped through the consensus engine.
// Cryptographic verification of the signature is the signer capability's
// concern; the engine checks structural validity only.
type Transaction struct {
	Payload   *Payload `json:"payload"`
	Signature string   `json:"signature"`
}

// NewTransaction creates a transaction wrapping payload.
func NewTransaction(payload *Payload, signature string) *Transaction {
	return &Transaction{Payload: payload, Signature: signature}
}

// Encode serializes the transaction deterministically for gossip.
func (t *Transaction) Encode() ([]byte, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}
	return body, nil
}

// DecodeTransaction deserializes a transaction received from the engine.
func DecodeTransaction(b []byte) (*Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal(b, &tx); err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Validate checks the structural validity of the transaction.
func (t *Transaction) Validate() error {
	if t.Payload == nil {
		return fmt.Errorf("%w: missing payload", ErrTransactionNotValid)
	}
	if t.Payload.Sender() == "" {
		return fmt.Errorf("%w: missing sender", ErrTransactionNotValid)
	}
	if t.Payload.Type() == "" {
		return fmt.Errorf("%w: missing transaction type", ErrTransactionNotValid)
	}
	if t.Signature == "" {
		return fmt.Errorf("%w: empty signature", ErrSignatureNotValid)
	}
	return nil
}
