package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/blockberries/tenderberry/abci"
	"github.com/blockberries/tenderberry/config"
	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/metrics"
	"github.com/blockberries/tenderberry/tracing"
	"github.com/blockberries/tenderberry/wire"
)

const (
	// maxTCPConnections bounds concurrent engine connections. The engine
	// opens one socket per ABCI connection class, four at most.
	maxTCPConnections = 4

	// readChunkSize is the per-read buffer size. Frames larger than one
	// chunk accumulate across reads.
	readChunkSize = 64 * 1024
)

// TCPServerChannel serves the varint length-prefixed socket protocol.
//
// Each accepted connection gets its own read loop that accumulates raw
// bytes, drains complete frames, and enqueues decoded envelopes on the
// shared inbound queue. Replies are written back to the socket the request
// arrived on, found through the dialogue label.
type TCPServerChannel struct {
	address    string
	translator *abci.Translator
	logger     *logging.Logger
	metrics    metrics.Metrics
	tracer     tracing.Tracer

	running  atomic.Bool
	listener net.Listener
	queue    *inboundQueue
	wg       sync.WaitGroup

	mu            sync.Mutex
	conns         map[string]net.Conn
	labelToSocket map[abci.DialogueLabel]string
}

var _ Channel = (*TCPServerChannel)(nil)

// NewTCPServerChannel creates a TCP channel from the server configuration.
func NewTCPServerChannel(cfg config.ABCIConfig, translator *abci.Translator, logger *logging.Logger, m metrics.Metrics, tracer tracing.Tracer) *TCPServerChannel {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	if tracer == nil {
		tracer = tracing.NewNopTracer()
	}
	return &TCPServerChannel{
		address:       cfg.ListenAddress,
		translator:    translator,
		logger:        logger.WithComponent("tcp_channel"),
		metrics:       m,
		tracer:        tracer,
		queue:         newInboundQueue(cfg.QueueSize, m),
		conns:         make(map[string]net.Conn),
		labelToSocket: make(map[abci.DialogueLabel]string),
	}
}

// Connect binds the listener and starts accepting engine connections.
// Calling it on a connected channel is a no-op.
func (c *TCPServerChannel) Connect(_ context.Context) error {
	if c.running.Swap(true) {
		return nil
	}
	ln, err := net.Listen("tcp", c.address)
	if err != nil {
		c.running.Store(false)
		return fmt.Errorf("listening on %s: %w", c.address, err)
	}
	c.listener = ln
	c.logger.Info("transport listening", logging.Address(ln.Addr().String()))

	c.wg.Add(1)
	go c.acceptLoop()
	return nil
}

// Disconnect stops the listener, closes every connection, and drops all
// correlation state. Calling it on a stopped channel is a no-op.
func (c *TCPServerChannel) Disconnect() error {
	if !c.running.Swap(false) {
		return nil
	}
	if c.listener != nil {
		c.listener.Close()
	}
	c.mu.Lock()
	for _, conn := range c.conns {
		conn.Close()
	}
	c.mu.Unlock()
	// Close the queue before waiting so read loops blocked on a full
	// queue can finish.
	c.queue.close()
	c.wg.Wait()

	c.mu.Lock()
	c.conns = make(map[string]net.Conn)
	c.labelToSocket = make(map[abci.DialogueLabel]string)
	c.mu.Unlock()
	c.translator.Dialogues().Clear()
	c.metrics.SetConnectionsActive(0)
	c.logger.Info("transport stopped")
	return nil
}

// Addr reports the bound listen address.
func (c *TCPServerChannel) Addr() string {
	if c.listener != nil {
		return c.listener.Addr().String()
	}
	return c.address
}

// Receive blocks until a decoded request envelope is available.
func (c *TCPServerChannel) Receive(ctx context.Context) (abci.Envelope, error) {
	return c.queue.get(ctx)
}

// Send encodes a reply envelope and writes it to the socket its request
// came from. An unknown correlation is logged and dropped.
func (c *TCPServerChannel) Send(env abci.Envelope) error {
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

	c.mu.Lock()
	socket, ok := c.labelToSocket[env.Label]
	conn := c.conns[socket]
	delete(c.labelToSocket, env.Label)
	c.mu.Unlock()
	if !ok || conn == nil {
		c.logger.Warn("connection for reply is gone",
			logging.MsgType(string(env.Message.Performative)),
			logging.Conn(socket))
		return nil
	}

	resp, err := c.translator.Encode(env.Message, d)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	if err := wire.WriteMessage(conn, resp); err != nil {
		return fmt.Errorf("writing response to %s: %w", socket, err)
	}
	c.metrics.IncResponsesSent(resp.Kind())
	return nil
}

func (c *TCPServerChannel) acceptLoop() {
	defer c.wg.Done()
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			if c.running.Load() && !errors.Is(err, net.ErrClosed) {
				c.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			return
		}
		id := conn.RemoteAddr().String()

		c.mu.Lock()
		if len(c.conns) >= maxTCPConnections {
			c.mu.Unlock()
			c.logger.Warn("rejecting connection, limit reached",
				logging.Conn(id), logging.Count(maxTCPConnections))
			c.metrics.IncConnections("rejected")
			conn.Close()
			continue
		}
		c.conns[id] = conn
		active := len(c.conns)
		c.mu.Unlock()

		c.metrics.IncConnections("accepted")
		c.metrics.SetConnectionsActive(active)
		c.logger.Info("engine connected", logging.Conn(id))

		c.wg.Add(1)
		go c.readLoop(id, conn)
	}
}

// readLoop accumulates raw reads into a growing buffer and drains every
// complete frame. A closed or failed socket ends only this loop; the
// channel and its other connections keep running.
func (c *TCPServerChannel) readLoop(id string, conn net.Conn) {
	defer c.wg.Done()
	defer c.dropConn(id, conn)

	var buf []byte
	chunk := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			var fatal bool
			buf, fatal = c.drainFrames(id, conn, buf)
			if fatal {
				return
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				c.metrics.IncDisconnections("eof")
			case !c.running.Load() || errors.Is(err, net.ErrClosed):
				c.metrics.IncDisconnections("shutdown")
			default:
				c.logger.Warn("connection read failed", logging.Conn(id), logging.Error(err))
				c.metrics.IncDisconnections("read_error")
			}
			return
		}
	}
}

// drainFrames decodes every complete frame in buf and returns the
// unconsumed tail. A frame body that fails to unmarshal is dropped and the
// stream continues; an undecodable length prefix loses framing entirely,
// which is fatal for the connection.
func (c *TCPServerChannel) drainFrames(id string, conn net.Conn, buf []byte) (rest []byte, fatal bool) {
	r := wire.NewReader(buf)
	for {
		before := len(r.Rest())
		req, err := r.Next()

		var truncPrefix *wire.DecodeVarintError
		var truncBody *wire.ShortBufferLengthError
		switch {
		case err == nil:
			c.handleRequest(id, conn, req)
		case errors.Is(err, io.EOF):
			return nil, false
		case errors.As(err, &truncPrefix), errors.As(err, &truncBody):
			// Partial frame, wait for more bytes.
			return r.Rest(), false
		default:
			c.logger.Warn("dropping malformed frame", logging.Conn(id), logging.Error(err))
			c.metrics.IncDecodeErrors("unmarshal")
			if len(r.Rest()) == before {
				c.logger.Error("stream framing lost, closing connection", logging.Conn(id))
				conn.Close()
				return nil, true
			}
		}
	}
}

func (c *TCPServerChannel) handleRequest(id string, conn net.Conn, req *wire.Request) {
	kind := req.Kind()
	c.metrics.IncFramesDecoded(kind)

	_, span := c.tracer.StartSpan(context.Background(), "channel.tcp."+kind)
	defer span.End()
	span.SetAttribute("conn", id)

	// Echo is a transport liveness probe; answer it without involving
	// the application.
	if echo, ok := req.Value.(*wire.RequestEcho); ok {
		resp := &wire.Response{Value: &wire.ResponseEcho{Message: echo.Message}}
		if err := wire.WriteMessage(conn, resp); err != nil {
			c.logger.Warn("writing echo response", logging.Conn(id), logging.Error(err))
			span.RecordError(err)
			return
		}
		c.metrics.IncResponsesSent(resp.Kind())
		return
	}

	env, d, err := c.translator.Decode(req, id)
	if err != nil {
		c.logger.Warn("dropping undecodable request",
			logging.Conn(id), logging.MsgType(kind), logging.Error(err))
		c.metrics.IncDecodeErrors("translate")
		span.RecordError(err)
		return
	}

	c.mu.Lock()
	c.labelToSocket[d.Label()] = id
	c.mu.Unlock()

	c.metrics.IncRequestsReceived(kind)
	if !c.queue.put(env) {
		c.logger.Warn("dropping request, channel closed",
			logging.Conn(id), logging.MsgType(kind))
	}
}

func (c *TCPServerChannel) dropConn(id string, conn net.Conn) {
	conn.Close()
	c.mu.Lock()
	delete(c.conns, id)
	active := len(c.conns)
	c.mu.Unlock()
	c.metrics.SetConnectionsActive(active)
	if c.running.Load() {
		c.logger.Info("engine disconnected", logging.Conn(id))
	}
}
