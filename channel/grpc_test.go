package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/blockberries/tenderberry/abci"
	"github.com/blockberries/tenderberry/config"
	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/metrics"
	"github.com/blockberries/tenderberry/tracing"
	"github.com/blockberries/tenderberry/wire"
)

func newTestGRPCChannel(t *testing.T) *GRPCServerChannel {
	t.Helper()
	cfg := config.DefaultConfig().ABCI
	cfg.ListenAddress = "127.0.0.1:0"
	cfg.Transport = config.TransportGRPC
	tr := abci.NewTranslator("app", logging.NewNopLogger())
	ch := NewGRPCServerChannel(cfg, tr, logging.NewNopLogger(), metrics.NewNopMetrics(), tracing.NewNopTracer())
	require.NoError(t, ch.Connect(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, ch.Disconnect())
	})
	return ch
}

func dialGRPC(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wireCodec{})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })
	return cc
}

func TestGRPCChannelEchoAnsweredInline(t *testing.T) {
	ch := newTestGRPCChannel(t)
	cc := dialGRPC(t, ch.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var resp wire.Response
	err := cc.Invoke(ctx, "/abci.ABCIApplication/Echo",
		&wire.Request{Value: &wire.RequestEcho{Message: "ping"}}, &resp)
	require.NoError(t, err)

	echo, ok := resp.Value.(*wire.ResponseEcho)
	require.True(t, ok)
	require.Equal(t, "ping", echo.Message)
}

func TestGRPCChannelRequestResponse(t *testing.T) {
	ch := newTestGRPCChannel(t)
	cc := dialGRPC(t, ch.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var resp wire.Response
	done := make(chan error, 1)
	go func() {
		done <- cc.Invoke(ctx, "/abci.ABCIApplication/Info",
			&wire.Request{Value: &wire.RequestInfo{Version: "0.34.11"}}, &resp)
	}()

	env := receiveEnvelope(t, ch)
	require.Equal(t, abci.RequestInfo, env.Message.Performative)
	info, ok := env.Message.Value.(*wire.RequestInfo)
	require.True(t, ok)
	require.Equal(t, "0.34.11", info.Version)

	reply := abci.Envelope{
		Sender:    env.Recipient,
		Recipient: env.Sender,
		Label:     env.Label,
		Message: abci.NewMessage(abci.ResponseInfo, &wire.ResponseInfo{
			Data:            "tenderberry",
			LastBlockHeight: 12,
		}),
	}
	require.NoError(t, ch.Send(reply))
	require.NoError(t, <-done)

	ri, ok := resp.Value.(*wire.ResponseInfo)
	require.True(t, ok)
	require.Equal(t, "tenderberry", ri.Data)
	require.Equal(t, int64(12), ri.LastBlockHeight)
}

func TestGRPCChannelMethodVariantMismatch(t *testing.T) {
	ch := newTestGRPCChannel(t)
	cc := dialGRPC(t, ch.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var resp wire.Response
	err := cc.Invoke(ctx, "/abci.ABCIApplication/Flush",
		&wire.Request{Value: &wire.RequestInfo{}}, &resp)
	require.Error(t, err)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCChannelDisconnectReleasesHandlers(t *testing.T) {
	cfg := config.DefaultConfig().ABCI
	cfg.ListenAddress = "127.0.0.1:0"
	cfg.Transport = config.TransportGRPC
	tr := abci.NewTranslator("app", logging.NewNopLogger())
	ch := NewGRPCServerChannel(cfg, tr, logging.NewNopLogger(), metrics.NewNopMetrics(), tracing.NewNopTracer())
	require.NoError(t, ch.Connect(context.Background()))

	cc := dialGRPC(t, ch.Addr())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var resp wire.Response
	done := make(chan error, 1)
	go func() {
		done <- cc.Invoke(ctx, "/abci.ABCIApplication/CheckTx",
			&wire.Request{Value: &wire.RequestCheckTx{Tx: []byte("tx")}}, &resp)
	}()

	// The handler is in flight once its envelope surfaces.
	receiveEnvelope(t, ch)
	require.NoError(t, ch.Disconnect())
	require.Error(t, <-done)
	require.NoError(t, ch.Disconnect())
}

func TestGRPCChannelConnectIdempotent(t *testing.T) {
	ch := newTestGRPCChannel(t)
	require.NoError(t, ch.Connect(context.Background()))
}

func TestGRPCChannelSendUnknownCorrelation(t *testing.T) {
	ch := newTestGRPCChannel(t)

	env := abci.Envelope{
		Label:   abci.DialogueLabel{ConversationID: "nobody/3", MessageSeq: 1},
		Message: abci.NewMessage(abci.ResponseCommit, &wire.ResponseCommit{}),
	}
	require.NoError(t, ch.Send(env))
}

func TestNewSelectsTransport(t *testing.T) {
	tr := abci.NewTranslator("app", logging.NewNopLogger())
	logger := logging.NewNopLogger()
	m := metrics.NewNopMetrics()
	tracer := tracing.NewNopTracer()

	cfg := config.DefaultConfig().ABCI
	cfg.ListenAddress = "127.0.0.1:0"

	ch, err := New(cfg, tr, logger, m, tracer)
	require.NoError(t, err)
	require.IsType(t, &TCPServerChannel{}, ch)

	cfg.Transport = config.TransportGRPC
	ch, err = New(cfg, tr, logger, m, tracer)
	require.NoError(t, err)
	require.IsType(t, &GRPCServerChannel{}, ch)

	cfg.Transport = "carrier-pigeon"
	_, err = New(cfg, tr, logger, m, tracer)
	require.Error(t, err)
}
