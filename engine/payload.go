package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// TxType tags the payload kind a round accepts.
type TxType string

// Payload is one participant's proposed value for a round. It is immutable
// once constructed; equality under majority voting is by the deterministic
// encoding of its data, not by sender.
type Payload struct {
	sender string
	txType TxType
	data   map[string]any
}

// NewPayload creates a payload. The data map is copied.
func NewPayload(sender string, txType TxType, data map[string]any) *Payload {
	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = v
	}
	return &Payload{sender: sender, txType: txType, data: copied}
}

// Sender returns the address of the participant that produced the payload.
func (p *Payload) Sender() string {
	return p.sender
}

// Type returns the payload's transaction type tag.
func (p *Payload) Type() TxType {
	return p.txType
}

// Data returns the payload body. The returned map must not be mutated.
func (p *Payload) Data() map[string]any {
	return p.data
}

// Get returns one body value, or nil when absent.
func (p *Payload) Get(key string) any {
	return p.data[key]
}

// ValueKey returns the deterministic encoding of the payload body, the
// identity used when counting agreeing votes. encoding/json emits map keys
// in sorted order, which makes the encoding canonical.
func (p *Payload) ValueKey() string {
	body, err := json.Marshal(p.data)
	if err != nil {
		// Payload bodies hold only JSON-encodable values; a failure here
		// is a programming error in the round that built the payload.
		panic(fmt.Sprintf("payload body not encodable: %v", err))
	}
	return string(body)
}

// Hash returns the hex-encoded SHA-256 of the payload body's deterministic
// encoding, used for deduplication and audit.
func (p *Payload) Hash() string {
	sum := sha256.Sum256([]byte(p.ValueKey()))
	return hex.EncodeToString(sum[:])
}

// payloadJSON is the wire shape of a payload inside a transaction.
type payloadJSON struct {
	Sender string         `json:"sender"`
	Type   TxType         `json:"type"`
	Data   map[string]any `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (p *Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(payloadJSON{Sender: p.sender, Type: p.txType, Data: p.data})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(b []byte) error {
	var raw payloadJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.sender = raw.Sender
	p.txType = raw.Type
	p.data = raw.Data
	if p.data == nil {
		p.data = map[string]any{}
	}
	return nil
}
