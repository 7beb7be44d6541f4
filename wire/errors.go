package wire

import (
	"errors"
	"fmt"
)

// Errors returned by the wire codec.
var (
	// ErrEmptyRequest is returned when a request frame carries no variant.
	ErrEmptyRequest = errors.New("request has no value")

	// ErrEmptyResponse is returned when a response frame carries no variant.
	ErrEmptyResponse = errors.New("response has no value")
)

// DecodeVarintError is returned when the buffer ends in the middle of a
// length prefix. The remaining bytes are not consumed; the caller may retry
// once more data has arrived.
type DecodeVarintError struct {
	// Read is the number of prefix bytes seen before the buffer ran out.
	Read int
}

// Error implements the error interface.
func (e *DecodeVarintError) Error() string {
	return fmt.Sprintf("varint terminated early after %d bytes", e.Read)
}

// ShortBufferLengthError is returned when a frame declares more bytes than
// the buffer holds. The frame is not consumed; the caller may retry once
// more data has arrived.
type ShortBufferLengthError struct {
	// Declared is the length announced by the prefix.
	Declared uint64

	// Available is the number of bytes actually present.
	Available int
}

// Error implements the error interface.
func (e *ShortBufferLengthError) Error() string {
	return fmt.Sprintf("frame declares %d bytes but only %d available", e.Declared, e.Available)
}
