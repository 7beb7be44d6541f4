package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendVarint_ShiftsLowBit(t *testing.T) {
	// The prefix value is doubled before uvarint encoding.
	require.Equal(t, []byte{0x00}, AppendVarint(nil, 0))
	require.Equal(t, []byte{0x02}, AppendVarint(nil, 1))
	require.Equal(t, []byte{0x08}, AppendVarint(nil, 4))
	// 64 << 1 = 128 needs a continuation byte.
	require.Equal(t, []byte{0x80, 0x01}, AppendVarint(nil, 64))
}

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 2, 63, 64, 127, 128, 300, 16384, 1<<32 - 1, 1 << 40}

	for _, v := range values {
		buf := AppendVarint(nil, v)
		got, n, err := DecodeVarint(buf)
		require.NoError(t, err, "value %d", v)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
}

func TestDecodeVarint_Truncated(t *testing.T) {
	buf := AppendVarint(nil, 1<<40)
	_, _, err := DecodeVarint(buf[:2])

	var vErr *DecodeVarintError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, 2, vErr.Read)
}

func TestDecodeVarint_Empty(t *testing.T) {
	_, _, err := DecodeVarint(nil)

	var vErr *DecodeVarintError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, 0, vErr.Read)
}

func TestWriteMessage_RoundTrip(t *testing.T) {
	req := &Request{Value: &RequestEcho{Message: "hello"}}

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, req))

	rd := NewReader(buf.Bytes())
	got, err := rd.Next()
	require.NoError(t, err)
	echo, ok := got.Value.(*RequestEcho)
	require.True(t, ok)
	require.Equal(t, "hello", echo.Message)

	_, err = rd.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_MultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, &Request{Value: &RequestInfo{Version: "0.34.19"}}))
	require.NoError(t, WriteMessage(&buf, &Request{Value: &RequestFlush{}}))
	require.NoError(t, WriteMessage(&buf, &Request{Value: &RequestEndBlock{Height: 7}}))

	rd := NewReader(buf.Bytes())

	first, err := rd.Next()
	require.NoError(t, err)
	require.IsType(t, &RequestInfo{}, first.Value)

	second, err := rd.Next()
	require.NoError(t, err)
	require.IsType(t, &RequestFlush{}, second.Value)

	third, err := rd.Next()
	require.NoError(t, err)
	require.Equal(t, int64(7), third.Value.(*RequestEndBlock).Height)

	_, err = rd.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_FrameSplitAcrossReads(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, &Request{Value: &RequestDeliverTx{Tx: []byte("payload bytes")}}))
	frame := buf.Bytes()

	// First read only delivers half the frame.
	rd := NewReader(frame[:len(frame)/2])
	_, err := rd.Next()

	var shortErr *ShortBufferLengthError
	require.ErrorAs(t, err, &shortErr)
	require.Greater(t, shortErr.Declared, uint64(shortErr.Available))

	// The partial frame stays in the buffer for the next attempt.
	pending := append(rd.Rest(), frame[len(frame)/2:]...)
	rd = NewReader(pending)
	got, err := rd.Next()
	require.NoError(t, err)
	require.Equal(t, []byte("payload bytes"), got.Value.(*RequestDeliverTx).Tx)
}

func TestReader_SplitInsidePrefix(t *testing.T) {
	body, err := (&Request{Value: &RequestDeliverTx{Tx: make([]byte, 1<<14)}}).Marshal()
	require.NoError(t, err)
	frame := AppendVarint(nil, uint64(len(body)))
	frame = append(frame, body...)
	require.Greater(t, len(AppendVarint(nil, uint64(len(body)))), 1)

	// Cut inside the multi-byte length prefix.
	rd := NewReader(frame[:1])
	_, err = rd.Next()

	var vErr *DecodeVarintError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, rd.Rest(), 1)
}

func TestReader_EmptyBuffer(t *testing.T) {
	rd := NewReader(nil)
	_, err := rd.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_MalformedBodyIsConsumed(t *testing.T) {
	// A frame whose body is not valid wire data: the reader reports the
	// error but moves past the frame so later frames still decode.
	frame := AppendVarint(nil, 3)
	frame = append(frame, 0xff, 0xff, 0xff)

	var buf bytes.Buffer
	buf.Write(frame)
	require.NoError(t, WriteMessage(&buf, &Request{Value: &RequestCommit{}}))

	rd := NewReader(buf.Bytes())
	_, err := rd.Next()
	require.Error(t, err)

	got, err := rd.Next()
	require.NoError(t, err)
	require.IsType(t, &RequestCommit{}, got.Value)
}
