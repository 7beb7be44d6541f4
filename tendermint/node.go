package tendermint

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/facebookgo/clock"

	"github.com/blockberries/tenderberry/logging"
)

const (
	// defaultStopTimeout is how long Stop waits after SIGTERM before
	// escalating to Kill.
	defaultStopTimeout = 30 * time.Second

	// killWait bounds the wait after Kill.
	killWait = 2 * time.Second
)

// Node supervises the consensus engine child process.
type Node struct {
	params      Params
	logger      *logging.Logger
	clock       clock.Clock
	stopTimeout time.Duration

	mu     sync.Mutex
	cmd    *exec.Cmd
	waitCh chan error
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithClock injects the clock, used by tests.
func WithClock(c clock.Clock) NodeOption {
	return func(n *Node) { n.clock = c }
}

// WithStopTimeout overrides the SIGTERM grace period.
func WithStopTimeout(d time.Duration) NodeOption {
	return func(n *Node) {
		if d > 0 {
			n.stopTimeout = d
		}
	}
}

// NewNode creates a supervisor for the engine described by params.
func NewNode(params Params, logger *logging.Logger, opts ...NodeOption) *Node {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	n := &Node{
		params:      params,
		logger:      logger.WithComponent("tendermint"),
		clock:       clock.New(),
		stopTimeout: defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Init runs the engine's one-shot init subcommand to completion.
func (n *Node) Init(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, n.params.BinaryPath, n.params.BuildInitArgs()...)
	cmd.Stdout = newLogWriter(n.logger, false)
	cmd.Stderr = newLogWriter(n.logger, true)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s init: %w", n.params.BinaryPath, err)
	}
	return nil
}

// Start spawns the engine node process. Starting an already running node is
// a no-op; a binary that cannot launch fails startup.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cmd != nil {
		return nil
	}

	cmd := exec.CommandContext(ctx, n.params.BinaryPath, n.params.BuildNodeArgs()...)
	cmd.Stdout = newLogWriter(n.logger, false)
	cmd.Stderr = newLogWriter(n.logger, true)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s node: %w", n.params.BinaryPath, err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()
	n.cmd = cmd
	n.waitCh = waitCh
	n.logger.Info("engine started",
		logging.Address(n.params.ProxyApp),
		logging.Count(cmd.Process.Pid))
	return nil
}

// Stop terminates the engine process: SIGTERM, a bounded grace period,
// then Kill with a short final wait. Stopping a stopped node is a no-op.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cmd == nil {
		return nil
	}
	cmd, waitCh := n.cmd, n.waitCh
	n.cmd, n.waitCh = nil, nil

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone.
		return nil
	}
	select {
	case <-waitCh:
		n.logger.Info("engine stopped")
		return nil
	case <-n.clock.After(n.stopTimeout):
	}

	n.logger.Warn("engine ignored SIGTERM, killing",
		logging.DurationSeconds(n.stopTimeout))
	_ = cmd.Process.Kill()
	select {
	case <-waitCh:
		n.logger.Info("engine stopped")
	case <-n.clock.After(killWait):
		n.logger.Error("engine did not exit after kill")
	}
	return nil
}

// IsRunning reports whether the child process is being supervised.
func (n *Node) IsRunning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cmd != nil
}

// logWriter splits child process output into lines and forwards each one
// to the structured logger.
type logWriter struct {
	logger *logging.Logger
	stderr bool

	mu  sync.Mutex
	buf []byte
}

func newLogWriter(logger *logging.Logger, stderr bool) *logWriter {
	return &logWriter{logger: logger, stderr: stderr}
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			return len(p), nil
		}
		line := string(bytes.TrimSpace(w.buf[:i]))
		w.buf = w.buf[i+1:]
		if line == "" {
			continue
		}
		if w.stderr {
			w.logger.Warn(line)
		} else {
			w.logger.Info(line)
		}
	}
}
