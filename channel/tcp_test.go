package channel

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/tenderberry/abci"
	"github.com/blockberries/tenderberry/config"
	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/metrics"
	"github.com/blockberries/tenderberry/tracing"
	"github.com/blockberries/tenderberry/wire"
)

func newTestTCPChannel(t *testing.T) (*TCPServerChannel, *abci.Translator) {
	t.Helper()
	cfg := config.DefaultConfig().ABCI
	cfg.ListenAddress = "127.0.0.1:0"
	tr := abci.NewTranslator("app", logging.NewNopLogger())
	ch := NewTCPServerChannel(cfg, tr, logging.NewNopLogger(), metrics.NewNopMetrics(), tracing.NewNopTracer())
	require.NoError(t, ch.Connect(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, ch.Disconnect())
	})
	return ch, tr
}

func dialEngine(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrame reads one length-prefixed response frame from conn.
func readFrame(t *testing.T, conn net.Conn) *wire.Response {
	t.Helper()
	var buf []byte
	chunk := make([]byte, 512)
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, err := conn.Read(chunk)
		require.NoError(t, err)
		buf = append(buf, chunk[:n]...)

		length, consumed, err := wire.DecodeVarint(buf)
		var trunc *wire.DecodeVarintError
		if errors.As(err, &trunc) {
			continue
		}
		require.NoError(t, err)
		if uint64(len(buf)-consumed) < length {
			continue
		}
		resp := new(wire.Response)
		require.NoError(t, resp.Unmarshal(buf[consumed:consumed+int(length)]))
		return resp
	}
}

func receiveEnvelope(t *testing.T, ch Channel) abci.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	env, err := ch.Receive(ctx)
	require.NoError(t, err)
	return env
}

func TestTCPChannelRequestResponse(t *testing.T) {
	ch, _ := newTestTCPChannel(t)
	conn := dialEngine(t, ch.Addr())

	req := &wire.Request{Value: &wire.RequestInfo{Version: "0.34.11"}}
	require.NoError(t, wire.WriteMessage(conn, req))

	env := receiveEnvelope(t, ch)
	require.Equal(t, abci.RequestInfo, env.Message.Performative)
	info, ok := env.Message.Value.(*wire.RequestInfo)
	require.True(t, ok)
	require.Equal(t, "0.34.11", info.Version)
	require.Equal(t, "app", env.Recipient)

	reply := abci.Envelope{
		Sender:    env.Recipient,
		Recipient: env.Sender,
		Label:     env.Label,
		Message: abci.NewMessage(abci.ResponseInfo, &wire.ResponseInfo{
			Data:            "tenderberry",
			LastBlockHeight: 7,
		}),
	}
	require.NoError(t, ch.Send(reply))

	resp := readFrame(t, conn)
	ri, ok := resp.Value.(*wire.ResponseInfo)
	require.True(t, ok)
	require.Equal(t, "tenderberry", ri.Data)
	require.Equal(t, int64(7), ri.LastBlockHeight)
}

func TestTCPChannelEchoAnsweredInline(t *testing.T) {
	ch, _ := newTestTCPChannel(t)
	conn := dialEngine(t, ch.Addr())

	require.NoError(t, wire.WriteMessage(conn, &wire.Request{Value: &wire.RequestEcho{Message: "ping"}}))
	resp := readFrame(t, conn)
	echo, ok := resp.Value.(*wire.ResponseEcho)
	require.True(t, ok)
	require.Equal(t, "ping", echo.Message)

	// The echo never reaches the inbound queue: the next envelope out is
	// the flush sent after it.
	require.NoError(t, wire.WriteMessage(conn, &wire.Request{Value: &wire.RequestFlush{}}))
	env := receiveEnvelope(t, ch)
	require.Equal(t, abci.RequestFlush, env.Message.Performative)
}

func TestTCPChannelFrameAcrossReads(t *testing.T) {
	ch, _ := newTestTCPChannel(t)
	conn := dialEngine(t, ch.Addr())

	req := &wire.Request{Value: &wire.RequestCheckTx{Tx: []byte("tx-bytes")}}
	body, err := req.Marshal()
	require.NoError(t, err)
	frame := wire.AppendVarint(nil, uint64(len(body)))
	frame = append(frame, body...)

	_, err = conn.Write(frame[:3])
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = conn.Write(frame[3:])
	require.NoError(t, err)

	env := receiveEnvelope(t, ch)
	require.Equal(t, abci.RequestCheckTx, env.Message.Performative)
	checkTx, ok := env.Message.Value.(*wire.RequestCheckTx)
	require.True(t, ok)
	require.Equal(t, []byte("tx-bytes"), checkTx.Tx)
}

func TestTCPChannelMalformedFrameSkipped(t *testing.T) {
	ch, _ := newTestTCPChannel(t)
	conn := dialEngine(t, ch.Addr())

	// One frame whose body is not a valid request, then a valid commit.
	bad := wire.AppendVarint(nil, 1)
	bad = append(bad, 0x00)
	_, err := conn.Write(bad)
	require.NoError(t, err)
	require.NoError(t, wire.WriteMessage(conn, &wire.Request{Value: &wire.RequestCommit{}}))

	env := receiveEnvelope(t, ch)
	require.Equal(t, abci.RequestCommit, env.Message.Performative)
}

func TestTCPChannelConnectionLimit(t *testing.T) {
	ch, _ := newTestTCPChannel(t)

	// Fill the four slots, proving each registered with an echo round trip.
	for i := 0; i < maxTCPConnections; i++ {
		conn := dialEngine(t, ch.Addr())
		require.NoError(t, wire.WriteMessage(conn, &wire.Request{Value: &wire.RequestEcho{Message: "hold"}}))
		readFrame(t, conn)
	}

	extra := dialEngine(t, ch.Addr())
	require.NoError(t, extra.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := extra.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
}

func TestTCPChannelSendUnknownCorrelation(t *testing.T) {
	ch, _ := newTestTCPChannel(t)

	env := abci.Envelope{
		Label:   abci.DialogueLabel{ConversationID: "nobody/9", MessageSeq: 1},
		Message: abci.NewMessage(abci.ResponseFlush, &wire.ResponseFlush{}),
	}
	// Dropped with a warning, not an error.
	require.NoError(t, ch.Send(env))
}

func TestTCPChannelConnectDisconnectIdempotent(t *testing.T) {
	cfg := config.DefaultConfig().ABCI
	cfg.ListenAddress = "127.0.0.1:0"
	tr := abci.NewTranslator("app", logging.NewNopLogger())
	ch := NewTCPServerChannel(cfg, tr, logging.NewNopLogger(), metrics.NewNopMetrics(), tracing.NewNopTracer())

	require.NoError(t, ch.Connect(context.Background()))
	require.NoError(t, ch.Connect(context.Background()))
	require.NoError(t, ch.Disconnect())
	require.NoError(t, ch.Disconnect())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := ch.Receive(ctx)
	require.ErrorIs(t, err, ErrChannelClosed)
}

func TestTCPChannelDisconnectClearsDialogues(t *testing.T) {
	cfg := config.DefaultConfig().ABCI
	cfg.ListenAddress = "127.0.0.1:0"
	tr := abci.NewTranslator("app", logging.NewNopLogger())
	ch := NewTCPServerChannel(cfg, tr, logging.NewNopLogger(), metrics.NewNopMetrics(), tracing.NewNopTracer())
	require.NoError(t, ch.Connect(context.Background()))

	conn := dialEngine(t, ch.Addr())
	require.NoError(t, wire.WriteMessage(conn, &wire.Request{Value: &wire.RequestInfo{}}))
	receiveEnvelope(t, ch)
	require.Equal(t, 1, tr.Dialogues().Len())

	require.NoError(t, ch.Disconnect())
	require.Equal(t, 0, tr.Dialogues().Len())
}

func TestTCPChannelReceiveHonorsContext(t *testing.T) {
	ch, _ := newTestTCPChannel(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ch.Receive(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
