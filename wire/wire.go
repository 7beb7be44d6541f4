// Package wire implements the varint length-prefixed framing and the
// request/response message schema spoken between a consensus engine and
// the application it drives.
//
// Messages are encoded in protobuf wire format with hand-written
// marshalers; there is no generated code. Frames on the socket transport
// are a varint length prefix followed by exactly that many body bytes.
// The length prefix is shifted left one bit before encoding, keeping the
// low bit reserved, so readers must shift right once after decoding.
package wire

import (
	"fmt"
	"io"
)

// maxVarintLen is the longest permitted length prefix in bytes.
const maxVarintLen = 10

// Marshaler is implemented by messages that encode themselves.
type Marshaler interface {
	Marshal() ([]byte, error)
}

// AppendVarint appends the length-prefix encoding of n to buf.
// The value is shifted left one bit first; seven data bits per byte,
// high bit set on every byte except the last.
func AppendVarint(buf []byte, n uint64) []byte {
	v := n << 1
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// DecodeVarint decodes a length prefix from the front of b. It returns the
// decoded value and the number of bytes consumed. A buffer that ends
// mid-prefix yields a *DecodeVarintError.
func DecodeVarint(b []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		if i == maxVarintLen {
			return 0, 0, fmt.Errorf("varint longer than %d bytes", maxVarintLen)
		}
		c := b[i]
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return v >> 1, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, &DecodeVarintError{Read: len(b)}
}

// WriteMessage writes m to w as a single length-prefixed frame.
func WriteMessage(w io.Writer, m Marshaler) error {
	body, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	frame := AppendVarint(make([]byte, 0, len(body)+maxVarintLen), uint64(len(body)))
	frame = append(frame, body...)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Reader decodes length-prefixed requests from an in-memory buffer.
// Transports accumulate raw reads into the buffer and drain every complete
// frame; a truncation error leaves the partial frame unconsumed so it can
// be retried after the next read.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a Reader over buf. The Reader takes ownership of buf
// until Rest is called.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Next decodes the next complete frame. It returns io.EOF when the buffer
// ends exactly on a frame boundary, *DecodeVarintError when it ends inside
// a length prefix, and *ShortBufferLengthError when it ends inside a frame
// body. On any error the partial frame remains unconsumed.
func (r *Reader) Next() (*Request, error) {
	if r.off >= len(r.buf) {
		return nil, io.EOF
	}
	mark := r.off

	length, n, err := DecodeVarint(r.buf[r.off:])
	if err != nil {
		return nil, err
	}
	r.off += n

	if uint64(len(r.buf)-r.off) < length {
		available := len(r.buf) - r.off
		r.off = mark
		return nil, &ShortBufferLengthError{Declared: length, Available: available}
	}

	body := r.buf[r.off : r.off+int(length)]
	r.off += int(length)

	req := new(Request)
	if err := req.Unmarshal(body); err != nil {
		return nil, fmt.Errorf("unmarshaling request: %w", err)
	}
	return req, nil
}

// Rest returns the unconsumed tail of the buffer.
func (r *Reader) Rest() []byte {
	return r.buf[r.off:]
}
