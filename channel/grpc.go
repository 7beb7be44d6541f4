package channel

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/blockberries/tenderberry/abci"
	"github.com/blockberries/tenderberry/config"
	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/metrics"
	"github.com/blockberries/tenderberry/tracing"
	"github.com/blockberries/tenderberry/wire"
)

// ABCIApplicationServer is the gRPC service surface the consensus engine
// calls. Every method is unary; the request union selects the variant and
// the method name must agree with it.
type ABCIApplicationServer interface {
	Echo(ctx context.Context, req *wire.Request) (*wire.Response, error)
	Flush(ctx context.Context, req *wire.Request) (*wire.Response, error)
	Info(ctx context.Context, req *wire.Request) (*wire.Response, error)
	SetOption(ctx context.Context, req *wire.Request) (*wire.Response, error)
	InitChain(ctx context.Context, req *wire.Request) (*wire.Response, error)
	Query(ctx context.Context, req *wire.Request) (*wire.Response, error)
	BeginBlock(ctx context.Context, req *wire.Request) (*wire.Response, error)
	CheckTx(ctx context.Context, req *wire.Request) (*wire.Response, error)
	DeliverTx(ctx context.Context, req *wire.Request) (*wire.Response, error)
	EndBlock(ctx context.Context, req *wire.Request) (*wire.Response, error)
	Commit(ctx context.Context, req *wire.Request) (*wire.Response, error)
	ListSnapshots(ctx context.Context, req *wire.Request) (*wire.Response, error)
	OfferSnapshot(ctx context.Context, req *wire.Request) (*wire.Response, error)
	LoadSnapshotChunk(ctx context.Context, req *wire.Request) (*wire.Response, error)
	ApplySnapshotChunk(ctx context.Context, req *wire.Request) (*wire.Response, error)
}

// GRPCServerChannel serves the gRPC variant of the protocol.
//
// Handlers decode into the shared inbound queue like the socket transport,
// then block until the application's reply for that request kind arrives.
// The reply path is a per-kind queue rather than a per-socket write since
// gRPC keeps the response stream open for us.
type GRPCServerChannel struct {
	address        string
	queueSize      int
	maxRecvMsgSize int
	maxSendMsgSize int
	translator     *abci.Translator
	logger         *logging.Logger
	metrics        metrics.Metrics
	tracer         tracing.Tracer

	running  atomic.Bool
	listener net.Listener
	server   *grpc.Server
	queue    *inboundQueue
	wg       sync.WaitGroup

	mu      sync.Mutex
	replies map[abci.Performative]chan *wire.Response
}

var (
	_ Channel                = (*GRPCServerChannel)(nil)
	_ ABCIApplicationServer = (*GRPCServerChannel)(nil)
)

// NewGRPCServerChannel creates a gRPC channel from the server configuration.
func NewGRPCServerChannel(cfg config.ABCIConfig, translator *abci.Translator, logger *logging.Logger, m metrics.Metrics, tracer tracing.Tracer) *GRPCServerChannel {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	if tracer == nil {
		tracer = tracing.NewNopTracer()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &GRPCServerChannel{
		address:        cfg.ListenAddress,
		queueSize:      queueSize,
		maxRecvMsgSize: cfg.MaxRecvMsgSize,
		maxSendMsgSize: cfg.MaxSendMsgSize,
		translator:     translator,
		logger:         logger.WithComponent("grpc_channel"),
		metrics:        m,
		tracer:         tracer,
		queue:          newInboundQueue(queueSize, m),
		replies:        make(map[abci.Performative]chan *wire.Response),
	}
}

// Connect binds the listener and starts the gRPC server. Calling it on a
// connected channel is a no-op.
func (c *GRPCServerChannel) Connect(_ context.Context) error {
	if c.running.Swap(true) {
		return nil
	}
	ln, err := net.Listen("tcp", c.address)
	if err != nil {
		c.running.Store(false)
		return fmt.Errorf("listening on %s: %w", c.address, err)
	}
	c.listener = ln

	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(wireCodec{}),
	}
	if c.maxRecvMsgSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(c.maxRecvMsgSize))
	}
	if c.maxSendMsgSize > 0 {
		opts = append(opts, grpc.MaxSendMsgSize(c.maxSendMsgSize))
	}
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&abciApplicationServiceDesc, c)
	c.server = srv

	c.logger.Info("transport listening", logging.Address(ln.Addr().String()))
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := srv.Serve(ln); err != nil && c.running.Load() {
			c.logger.Error("grpc serve failed", logging.Error(err))
		}
	}()
	return nil
}

// Disconnect drains handlers, stops the server, and drops all correlation
// state. Calling it on a stopped channel is a no-op.
func (c *GRPCServerChannel) Disconnect() error {
	if !c.running.Swap(false) {
		return nil
	}
	// Close the queue first so in-flight handlers blocked on replies
	// release; GracefulStop waits for them.
	c.queue.close()
	if c.server != nil {
		c.server.GracefulStop()
	}
	c.wg.Wait()
	c.translator.Dialogues().Clear()
	c.metrics.SetConnectionsActive(0)
	c.logger.Info("transport stopped")
	return nil
}

// Addr reports the bound listen address.
func (c *GRPCServerChannel) Addr() string {
	if c.listener != nil {
		return c.listener.Addr().String()
	}
	return c.address
}

// Receive blocks until a decoded request envelope is available.
func (c *GRPCServerChannel) Receive(ctx context.Context) (abci.Envelope, error) {
	return c.queue.get(ctx)
}

// Send encodes a reply envelope and hands it to the handler waiting on
// that request kind. An unknown correlation is logged and dropped.
func (c *GRPCServerChannel) Send(env abci.Envelope) error {
	if !c.running.Load() {
		return ErrChannelClosed
	}
	d, ok := c.translator.Dialogues().Get(env.Label)
	if !ok {
		c.logger.Warn("no dialogue for reply",
			logging.MsgType(string(env.Message.Performative)),
			logging.Reason(env.Label.String()))
		return nil
	}
	resp, err := c.translator.Encode(env.Message, d)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	select {
	case c.replyQueue(d.Request()) <- resp:
		return nil
	case <-c.queue.closed():
		return ErrChannelClosed
	}
}

func (c *GRPCServerChannel) replyQueue(p abci.Performative) chan *wire.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.replies[p]
	if !ok {
		q = make(chan *wire.Response, c.queueSize)
		c.replies[p] = q
	}
	return q
}

func (c *GRPCServerChannel) peerID(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "grpc"
}

// handleUnary is the shared body of every service method: verify the
// request variant matches the method, enqueue its envelope, and wait for
// the application's reply.
func (c *GRPCServerChannel) handleUnary(ctx context.Context, p abci.Performative, req *wire.Request) (*wire.Response, error) {
	if !c.running.Load() {
		return nil, status.Error(codes.Unavailable, "channel is closed")
	}
	kind := req.Kind()
	c.metrics.IncFramesDecoded(kind)

	ctx, span := c.tracer.StartSpan(ctx, "channel.grpc."+kind)
	defer span.End()

	// Echo is answered by the transport itself.
	if echo, ok := req.Value.(*wire.RequestEcho); ok && p == abci.RequestEcho {
		resp := &wire.Response{Value: &wire.ResponseEcho{Message: echo.Message}}
		c.metrics.IncResponsesSent(resp.Kind())
		return resp, nil
	}

	env, d, err := c.translator.Decode(req, c.peerID(ctx))
	if err != nil {
		c.metrics.IncDecodeErrors("translate")
		span.RecordError(err)
		return nil, status.Errorf(codes.InvalidArgument, "decoding request: %v", err)
	}
	if env.Message.Performative != p {
		c.translator.Dialogues().Retire(d.Label())
		c.metrics.IncDecodeErrors("method_mismatch")
		return nil, status.Errorf(codes.InvalidArgument,
			"%s request sent to %s method", env.Message.Performative, p)
	}

	c.metrics.IncRequestsReceived(kind)
	replies := c.replyQueue(p)
	if !c.queue.put(env) {
		return nil, status.Error(codes.Unavailable, "channel is closed")
	}
	select {
	case resp := <-replies:
		c.metrics.IncResponsesSent(resp.Kind())
		return resp, nil
	case <-c.queue.closed():
		return nil, status.Error(codes.Unavailable, "channel is closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Service methods delegate to handleUnary with their performative.

func (c *GRPCServerChannel) Echo(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestEcho, req)
}

func (c *GRPCServerChannel) Flush(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestFlush, req)
}

func (c *GRPCServerChannel) Info(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestInfo, req)
}

func (c *GRPCServerChannel) SetOption(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestSetOption, req)
}

func (c *GRPCServerChannel) InitChain(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestInitChain, req)
}

func (c *GRPCServerChannel) Query(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestQuery, req)
}

func (c *GRPCServerChannel) BeginBlock(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestBeginBlock, req)
}

func (c *GRPCServerChannel) CheckTx(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestCheckTx, req)
}

func (c *GRPCServerChannel) DeliverTx(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestDeliverTx, req)
}

func (c *GRPCServerChannel) EndBlock(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestEndBlock, req)
}

func (c *GRPCServerChannel) Commit(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestCommit, req)
}

func (c *GRPCServerChannel) ListSnapshots(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestListSnapshots, req)
}

func (c *GRPCServerChannel) OfferSnapshot(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestOfferSnapshot, req)
}

func (c *GRPCServerChannel) LoadSnapshotChunk(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestLoadSnapshotChunk, req)
}

func (c *GRPCServerChannel) ApplySnapshotChunk(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return c.handleUnary(ctx, abci.RequestApplySnapshotChunk, req)
}
