package wire

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field append helpers. Scalar fields follow proto3 semantics: zero values
// are not emitted.

func appendVarintField(buf []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func appendBoolField(buf []byte, num protowire.Number, v bool) []byte {
	if !v {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, 1)
}

func appendBytesField(buf []byte, num protowire.Number, b []byte) []byte {
	if len(b) == 0 {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, b)
}

func appendStringField(buf []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendString(buf, s)
}

func appendMessageField(buf []byte, num protowire.Number, body []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, body)
}

// consumeField reads one tag from b. It returns the field number, wire
// type, and tag length, or an error for malformed input.
func consumeField(b []byte) (protowire.Number, protowire.Type, int, error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return 0, 0, 0, protowire.ParseError(n)
	}
	return num, typ, n, nil
}

func consumeVarint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeBytes(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}

func consumeString(b []byte) (string, int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", 0, protowire.ParseError(n)
	}
	return v, n, nil
}

// skipField discards one field value of the given wire type.
func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

// Timestamp helpers. Wall-clock times cross the wire as
// {seconds=1, nanos=2} messages.

func appendTimestamp(buf []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return buf
	}
	var body []byte
	body = appendVarintField(body, 1, uint64(t.Unix()))
	body = appendVarintField(body, 2, uint64(uint32(t.Nanosecond())))
	return appendMessageField(buf, num, body)
}

func unmarshalTimestamp(b []byte) (time.Time, error) {
	var seconds int64
	var nanos int32
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return time.Time{}, err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return time.Time{}, err
			}
			seconds = int64(v)
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return time.Time{}, err
			}
			nanos = int32(v)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return time.Time{}, err
			}
			b = b[n:]
		}
	}
	return time.Unix(seconds, int64(nanos)).UTC(), nil
}

// Version carries the block and app protocol versions of a header.
type Version struct {
	Block uint64
	App   uint64
}

func (v *Version) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, v.Block)
	buf = appendVarintField(buf, 2, v.App)
	return buf
}

func (v *Version) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			val, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			v.Block = val
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			val, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			v.App = val
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// Header is the subset of a block header the application consumes.
// Hash fields the application never reads are skipped on decode.
type Header struct {
	Version         Version
	ChainID         string
	Height          int64
	Time            time.Time
	AppHash         []byte
	ProposerAddress []byte
}

func (h *Header) marshal() []byte {
	var buf []byte
	if h.Version != (Version{}) {
		buf = appendMessageField(buf, 1, h.Version.marshal())
	}
	buf = appendStringField(buf, 2, h.ChainID)
	buf = appendVarintField(buf, 3, uint64(h.Height))
	buf = appendTimestamp(buf, 4, h.Time)
	buf = appendBytesField(buf, 11, h.AppHash)
	buf = appendBytesField(buf, 14, h.ProposerAddress)
	return buf
}

func (h *Header) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			if err := h.Version.unmarshal(body); err != nil {
				return err
			}
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			h.ChainID = v
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			h.Height = int64(v)
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			t, err := unmarshalTimestamp(body)
			if err != nil {
				return err
			}
			h.Time = t
			b = b[n:]
		case num == 11 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			h.AppHash = v
			b = b[n:]
		case num == 14 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			h.ProposerAddress = v
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// Validator identifies a validator by address and voting power.
type Validator struct {
	Address []byte
	Power   int64
}

func (v *Validator) marshal() []byte {
	var buf []byte
	buf = appendBytesField(buf, 1, v.Address)
	buf = appendVarintField(buf, 3, uint64(v.Power))
	return buf
}

func (v *Validator) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			val, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			v.Address = val
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			val, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			v.Power = int64(val)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// PublicKey is a validator public key, tagged by curve.
type PublicKey struct {
	// Ed25519 holds the key when the ed25519 variant is set.
	Ed25519 []byte

	// Secp256k1 holds the key when the secp256k1 variant is set.
	Secp256k1 []byte
}

func (k *PublicKey) marshal() []byte {
	var buf []byte
	buf = appendBytesField(buf, 1, k.Ed25519)
	buf = appendBytesField(buf, 2, k.Secp256k1)
	return buf
}

func (k *PublicKey) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			k.Ed25519 = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			k.Secp256k1 = v
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// ValidatorUpdate changes a validator's power in the active set.
type ValidatorUpdate struct {
	PubKey PublicKey
	Power  int64
}

func (v *ValidatorUpdate) marshal() []byte {
	var buf []byte
	buf = appendMessageField(buf, 1, v.PubKey.marshal())
	buf = appendVarintField(buf, 2, uint64(v.Power))
	return buf
}

func (v *ValidatorUpdate) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			if err := v.PubKey.unmarshal(body); err != nil {
				return err
			}
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			val, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			v.Power = int64(val)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// VoteInfo reports whether a validator signed the last block.
type VoteInfo struct {
	Validator       Validator
	SignedLastBlock bool
}

func (v *VoteInfo) marshal() []byte {
	var buf []byte
	buf = appendMessageField(buf, 1, v.Validator.marshal())
	buf = appendBoolField(buf, 2, v.SignedLastBlock)
	return buf
}

func (v *VoteInfo) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			if err := v.Validator.unmarshal(body); err != nil {
				return err
			}
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			val, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			v.SignedLastBlock = val != 0
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// LastCommitInfo describes the voting on the previous block.
type LastCommitInfo struct {
	Round int32
	Votes []VoteInfo
}

func (l *LastCommitInfo) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(uint32(l.Round)))
	for i := range l.Votes {
		buf = appendMessageField(buf, 2, l.Votes[i].marshal())
	}
	return buf
}

func (l *LastCommitInfo) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			l.Round = int32(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			var vote VoteInfo
			if err := vote.unmarshal(body); err != nil {
				return err
			}
			l.Votes = append(l.Votes, vote)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// EvidenceType classifies byzantine behaviour.
type EvidenceType int32

// Evidence types.
const (
	EvidenceUnknown        EvidenceType = 0
	EvidenceDuplicateVote  EvidenceType = 1
	EvidenceLightClientAtt EvidenceType = 2
)

// Evidence reports byzantine behaviour by a validator.
type Evidence struct {
	Type             EvidenceType
	Validator        Validator
	Height           int64
	Time             time.Time
	TotalVotingPower int64
}

func (e *Evidence) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(e.Type))
	buf = appendMessageField(buf, 2, e.Validator.marshal())
	buf = appendVarintField(buf, 3, uint64(e.Height))
	buf = appendTimestamp(buf, 4, e.Time)
	buf = appendVarintField(buf, 5, uint64(e.TotalVotingPower))
	return buf
}

func (e *Evidence) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			e.Type = EvidenceType(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			if err := e.Validator.unmarshal(body); err != nil {
				return err
			}
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			e.Height = int64(v)
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			t, err := unmarshalTimestamp(body)
			if err != nil {
				return err
			}
			e.Time = t
			b = b[n:]
		case num == 5 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			e.TotalVotingPower = int64(v)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// EventAttribute is a key/value pair attached to an Event.
type EventAttribute struct {
	Key   []byte
	Value []byte
	Index bool
}

func (a *EventAttribute) marshal() []byte {
	var buf []byte
	buf = appendBytesField(buf, 1, a.Key)
	buf = appendBytesField(buf, 2, a.Value)
	buf = appendBoolField(buf, 3, a.Index)
	return buf
}

func (a *EventAttribute) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			a.Key = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			a.Value = v
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			a.Index = v != 0
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// Event is a typed attribute bag emitted by block and transaction handlers.
type Event struct {
	Type       string
	Attributes []EventAttribute
}

func (e *Event) marshal() []byte {
	var buf []byte
	buf = appendStringField(buf, 1, e.Type)
	for i := range e.Attributes {
		buf = appendMessageField(buf, 2, e.Attributes[i].marshal())
	}
	return buf
}

func (e *Event) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			e.Type = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			var attr EventAttribute
			if err := attr.unmarshal(body); err != nil {
				return err
			}
			e.Attributes = append(e.Attributes, attr)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// Snapshot describes an application state snapshot offered for state sync.
type Snapshot struct {
	Height   uint64
	Format   uint32
	Chunks   uint32
	Hash     []byte
	Metadata []byte
}

func (s *Snapshot) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, s.Height)
	buf = appendVarintField(buf, 2, uint64(s.Format))
	buf = appendVarintField(buf, 3, uint64(s.Chunks))
	buf = appendBytesField(buf, 4, s.Hash)
	buf = appendBytesField(buf, 5, s.Metadata)
	return buf
}

func (s *Snapshot) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			s.Height = v
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			s.Format = uint32(v)
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			s.Chunks = uint32(v)
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			s.Hash = v
			b = b[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			s.Metadata = v
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// ConsensusParams crosses the wire unmodified. The application treats the
// engine's consensus parameters as opaque and echoes them back verbatim.
type ConsensusParams struct {
	Raw []byte
}
