package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPayloadValueKeyDeterministic(t *testing.T) {
	a := NewPayload("agent0", "observation", map[string]any{
		"project_id": 56,
		"source":     "chain",
	})
	b := NewPayload("agent1", "observation", map[string]any{
		"source":     "chain",
		"project_id": 56,
	})

	// Key order in the source map must not matter, and the sender must not
	// leak into the value identity.
	require.Equal(t, a.ValueKey(), b.ValueKey())
	require.Equal(t, a.Hash(), b.Hash())
}

func TestPayloadValueKeyDiffers(t *testing.T) {
	a := NewPayload("agent0", "observation", map[string]any{"project_id": 56})
	b := NewPayload("agent0", "observation", map[string]any{"project_id": 57})
	require.NotEqual(t, a.ValueKey(), b.ValueKey())
}

func TestPayloadDataIsCopied(t *testing.T) {
	src := map[string]any{"k": "v"}
	p := NewPayload("agent0", "observation", src)
	src["k"] = "mutated"
	require.Equal(t, "v", p.Get("k"))
}

func TestTransactionRoundTrip(t *testing.T) {
	payload := NewPayload("agent0", "decision", map[string]any{"decision": 1})
	tx := NewTransaction(payload, "sig")

	raw, err := tx.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTransaction(raw)
	require.NoError(t, err)
	require.Equal(t, "agent0", decoded.Payload.Sender())
	require.Equal(t, TxType("decision"), decoded.Payload.Type())
	require.Equal(t, "sig", decoded.Signature)
	require.Equal(t, tx.Payload.ValueKey(), decoded.Payload.ValueKey())
}

func TestTransactionValidate(t *testing.T) {
	payload := NewPayload("agent0", "decision", nil)

	err := NewTransaction(payload, "").Validate()
	require.ErrorIs(t, err, ErrSignatureNotValid)

	err = (&Transaction{Signature: "sig"}).Validate()
	require.ErrorIs(t, err, ErrTransactionNotValid)

	err = NewTransaction(NewPayload("", "decision", nil), "sig").Validate()
	require.ErrorIs(t, err, ErrTransactionNotValid)

	err = NewTransaction(NewPayload("agent0", "", nil), "sig").Validate()
	require.ErrorIs(t, err, ErrTransactionNotValid)

	require.NoError(t, NewTransaction(payload, "sig").Validate())
}

func TestDecodeTransactionRejectsGarbage(t *testing.T) {
	_, err := DecodeTransaction([]byte("not json"))
	require.Error(t, err)
}
