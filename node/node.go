// Package node assembles the service: configuration, logging, metrics,
// tracing, block store, the composed round application, the transport
// channel the consensus engine dials, and optionally the supervised engine
// process itself.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/blockberries/tenderberry/abci"
	"github.com/blockberries/tenderberry/benchmark"
	"github.com/blockberries/tenderberry/blockstore"
	"github.com/blockberries/tenderberry/channel"
	"github.com/blockberries/tenderberry/collector"
	"github.com/blockberries/tenderberry/config"
	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/metrics"
	"github.com/blockberries/tenderberry/state"
	"github.com/blockberries/tenderberry/tendermint"
	"github.com/blockberries/tenderberry/tracing"
)

// Lifecycle errors.
var (
	ErrAlreadyStarted = errors.New("node already started")
	ErrNotStarted     = errors.New("node not started")
)

// Node is the assembled service. It owns every component's lifecycle and
// runs the single consumer loop that answers the consensus engine.
type Node struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics metrics.Metrics
	tracer  tracing.Tracer

	spec    *engine.AppSpec
	store   blockstore.BlockStore
	period  *engine.Period
	channel channel.Channel
	engine  *tendermint.Node
	bench   *benchmark.Tool

	// benchRound is the round whose consensus block is currently open.
	benchRound engine.RoundID

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Node, overriding a component the config would
// otherwise build.
type Option func(*Node)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(n *Node) { n.logger = logger }
}

// WithMetrics sets the metrics implementation.
func WithMetrics(m metrics.Metrics) Option {
	return func(n *Node) { n.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t tracing.Tracer) Option {
	return func(n *Node) { n.tracer = t }
}

// WithChannel sets the transport channel, used by tests.
func WithChannel(ch channel.Channel) Option {
	return func(n *Node) { n.channel = ch }
}

// WithBlockStore sets the block archive.
func WithBlockStore(store blockstore.BlockStore) Option {
	return func(n *Node) { n.store = store }
}

// WithAppSpec replaces the composed application, used by tests.
func WithAppSpec(spec *engine.AppSpec) Option {
	return func(n *Node) { n.spec = spec }
}

// New builds a node from the configuration. Components not overridden by
// options are constructed from their config sections.
func New(cfg *config.Config, opts ...Option) (*Node, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	n := &Node{cfg: cfg}
	for _, opt := range opts {
		opt(n)
	}

	if n.logger == nil {
		logger, err := loggerFromConfig(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("building logger: %w", err)
		}
		n.logger = logger
	}
	if n.metrics == nil {
		if cfg.Metrics.Enabled {
			n.metrics = metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
		} else {
			n.metrics = metrics.NewNopMetrics()
		}
	}
	if n.tracer == nil {
		n.tracer = tracing.NewNopTracer()
	}

	if n.spec == nil {
		spec, err := collector.Compose()
		if err != nil {
			return nil, fmt.Errorf("composing application: %w", err)
		}
		spec.EventToTimeout[engine.EventRoundTimeout] = cfg.Engine.RoundTimeout.Duration()
		spec.EventToTimeout[engine.EventResetTimeout] = cfg.Engine.ResetTimeout.Duration()
		n.spec = spec
	}

	if n.store == nil {
		store, err := blockstore.New(cfg.BlockStore)
		if err != nil {
			return nil, fmt.Errorf("opening block store: %w", err)
		}
		n.store = blockstore.WithMetrics(store, n.metrics)
	}

	if n.channel == nil {
		translator := abci.NewTranslator(cfg.Node.AgentAddress, n.logger)
		ch, err := channel.New(cfg.ABCI, translator, n.logger, n.metrics, n.tracer)
		if err != nil {
			return nil, fmt.Errorf("building channel: %w", err)
		}
		n.channel = ch
	}

	if cfg.Tendermint.Managed {
		n.engine = tendermint.NewNode(
			tendermint.ParamsFromConfig(cfg),
			n.logger,
			tendermint.WithStopTimeout(cfg.Tendermint.StopTimeout.Duration()),
		)
	}

	if cfg.Benchmark.Enabled {
		n.bench = benchmark.NewTool(
			cfg.Node.AgentAddress, cfg.Node.AgentName, cfg.Benchmark.LogDir, n.logger)
	}

	if err := n.resetPeriod(); err != nil {
		return nil, fmt.Errorf("setting up period: %w", err)
	}
	return n, nil
}

// resetPeriod starts the application over from a fresh chain and the
// configured participant set.
func (n *Node) resetPeriod() error {
	period := engine.NewPeriod(n.spec, n.logger, engine.WithArchiver(n.store))
	if err := period.Setup(state.New(n.cfg.Node.Participants)); err != nil {
		return err
	}
	n.period = period
	n.metrics.SetPeriodCount(n.period.LatestResult().PeriodCount())
	return nil
}

// Period returns the running block FSM.
func (n *Node) Period() *engine.Period { return n.period }

// Start connects the channel, spawns the consensus engine when managed,
// and launches the consumer loop.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return ErrAlreadyStarted
	}

	if err := n.channel.Connect(ctx); err != nil {
		return fmt.Errorf("connecting channel: %w", err)
	}
	n.logger.Info("channel connected",
		logging.Conn(n.channel.Addr()),
		logging.Component("node"))

	if n.engine != nil {
		if err := n.engine.Start(ctx); err != nil {
			_ = n.channel.Disconnect()
			return fmt.Errorf("starting consensus engine: %w", err)
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.wg.Add(1)
	go n.consumeLoop(loopCtx)

	n.started = true
	return nil
}

// Stop tears the node down in reverse start order: engine, channel,
// consumer loop, benchmark dump, block store.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started {
		return ErrNotStarted
	}

	var firstErr error
	if n.engine != nil {
		if err := n.engine.Stop(); err != nil {
			n.logger.Error("failed to stop consensus engine", logging.Error(err))
			firstErr = err
		}
	}

	if err := n.channel.Disconnect(); err != nil && firstErr == nil {
		firstErr = err
	}
	n.cancel()
	n.wg.Wait()

	if n.bench != nil {
		n.bench.Save()
	}

	if err := n.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	n.started = false
	n.logger.Info("node stopped", logging.Component("node"))
	return firstErr
}

// consumeLoop is the single consumer of the channel: one envelope at a
// time, in arrival order, so the block FSM never sees interleaved requests.
func (n *Node) consumeLoop(ctx context.Context) {
	defer n.wg.Done()
	for {
		env, err := n.channel.Receive(ctx)
		if err != nil {
			if errors.Is(err, channel.ErrChannelClosed) || errors.Is(err, context.Canceled) {
				return
			}
			n.logger.Error("receive failed", logging.Error(err))
			return
		}

		reply := n.handleEnvelope(ctx, env)
		if err := n.channel.Send(reply); err != nil {
			if errors.Is(err, channel.ErrChannelClosed) {
				return
			}
			n.logger.Error("send failed",
				logging.Error(err),
				logging.MsgType(string(reply.Message.Performative)))
		}
	}
}

// loggerFromConfig builds the logger the logging config describes.
func loggerFromConfig(cfg config.LoggingConfig) (*logging.Logger, error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}

	var out io.Writer
	switch cfg.Output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log output: %w", err)
		}
		out = f
	}

	if cfg.Format == "json" {
		return logging.NewJSONLogger(out, level), nil
	}
	return logging.NewTextLogger(out, level), nil
}
