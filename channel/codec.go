package channel

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC codec name for the hand-written wire encoding.
// Clients select it with grpc.ForceCodec or a matching content-subtype.
const CodecName = "abciwire"

// marshaler is implemented by wire messages that encode themselves.
type marshaler interface {
	Marshal() ([]byte, error)
}

// unmarshaler is implemented by wire messages that decode themselves.
type unmarshaler interface {
	Unmarshal([]byte) error
}

// wireCodec adapts the hand-written wire encoding to the gRPC codec
// interface. It only carries types that marshal themselves; there is no
// reflection fallback.
type wireCodec struct{}

var _ encoding.Codec = wireCodec{}

func (wireCodec) Marshal(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(marshaler)
	if !ok {
		return nil, fmt.Errorf("codec %s: cannot marshal %T", CodecName, v)
	}
	return m.Marshal()
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	if v == nil {
		return fmt.Errorf("codec %s: cannot unmarshal into nil", CodecName)
	}
	u, ok := v.(unmarshaler)
	if !ok {
		return fmt.Errorf("codec %s: cannot unmarshal into %T", CodecName, v)
	}
	return u.Unmarshal(data)
}

func (wireCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(wireCodec{})
}
