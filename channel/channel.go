// Package channel implements the transport servers a consensus engine
// connects to. A channel owns the listener, decodes incoming requests into
// envelopes on a shared inbound queue, and routes reply envelopes back to
// the connection that asked, using the dialogue label as the correlation
// key. Two variants exist: the varint-framed TCP socket protocol and the
// gRPC unary protocol.
package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/tenderberry/abci"
	"github.com/blockberries/tenderberry/config"
	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/metrics"
	"github.com/blockberries/tenderberry/tracing"
)

// ErrChannelClosed is returned by Receive and Send after Disconnect.
var ErrChannelClosed = errors.New("channel is closed")

// Channel is a transport server for consensus engine connections.
//
// Connect and Disconnect are idempotent. Receive blocks until a decoded
// request envelope is available; Send routes a reply envelope back to the
// originating connection. A reply whose dialogue is no longer known is
// logged and dropped, not failed, since the peer may simply have gone away.
type Channel interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Send(env abci.Envelope) error
	Receive(ctx context.Context) (abci.Envelope, error)

	// Addr reports the bound listen address, useful when the configured
	// address carries port zero.
	Addr() string
}

// New builds the channel selected by the transport setting.
func New(cfg config.ABCIConfig, translator *abci.Translator, logger *logging.Logger, m metrics.Metrics, tracer tracing.Tracer) (Channel, error) {
	switch cfg.Transport {
	case config.TransportTCP:
		return NewTCPServerChannel(cfg, translator, logger, m, tracer), nil
	case config.TransportGRPC:
		return NewGRPCServerChannel(cfg, translator, logger, m, tracer), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// inboundQueue is the buffered queue of decoded request envelopes shared by
// all connections of a channel. Closing it releases blocked readers and
// writers with ErrChannelClosed.
type inboundQueue struct {
	ch      chan abci.Envelope
	done    chan struct{}
	metrics metrics.Metrics
}

func newInboundQueue(size int, m metrics.Metrics) *inboundQueue {
	if size <= 0 {
		size = 256
	}
	return &inboundQueue{
		ch:      make(chan abci.Envelope, size),
		done:    make(chan struct{}),
		metrics: m,
	}
}

// put enqueues an envelope, blocking while the queue is full. It reports
// false once the queue has been closed.
func (q *inboundQueue) put(env abci.Envelope) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ch <- env:
		q.metrics.SetQueueDepth(len(q.ch))
		return true
	case <-q.done:
		return false
	}
}

// get dequeues the next envelope. Envelopes already queued are still
// delivered after close; only an empty closed queue reports ErrChannelClosed.
func (q *inboundQueue) get(ctx context.Context) (abci.Envelope, error) {
	select {
	case env := <-q.ch:
		q.metrics.SetQueueDepth(len(q.ch))
		return env, nil
	default:
	}
	select {
	case env := <-q.ch:
		q.metrics.SetQueueDepth(len(q.ch))
		return env, nil
	case <-q.done:
		select {
		case env := <-q.ch:
			return env, nil
		default:
			return abci.Envelope{}, ErrChannelClosed
		}
	case <-ctx.Done():
		return abci.Envelope{}, ctx.Err()
	}
}

func (q *inboundQueue) close() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}

func (q *inboundQueue) closed() <-chan struct{} { return q.done }
