// Package benchmark measures how long each behaviour spends in local
// computation versus waiting for consensus. Measurements accumulate in an
// explicit Tool instance and are dumped as one JSON document per agent.
package benchmark

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"github.com/blockberries/tenderberry/logging"
)

// Block kinds.
const (
	blockLocal     = "local"
	blockConsensus = "consensus"
)

// Tool collects behaviour timings for one agent.
type Tool struct {
	agentAddress string
	agentName    string
	logDir       string
	logger       *logging.Logger
	clock        clock.Clock

	mu         sync.Mutex
	behaviours map[string]*Behaviour
	order      []string
}

// ToolOption configures a Tool.
type ToolOption func(*Tool)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) ToolOption {
	return func(t *Tool) { t.clock = c }
}

// NewTool creates a benchmark tool writing dumps under logDir.
func NewTool(agentAddress, agentName, logDir string, logger *logging.Logger, opts ...ToolOption) *Tool {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	t := &Tool{
		agentAddress: agentAddress,
		agentName:    agentName,
		logDir:       logDir,
		logger:       logger.WithComponent("benchmark"),
		clock:        clock.New(),
		behaviours:   make(map[string]*Behaviour),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Measure returns the timing handle for a behaviour, creating it on first
// use. Repeated measurements of the same behaviour overwrite its blocks.
func (t *Tool) Measure(behaviourID string) *Behaviour {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.behaviours[behaviourID]
	if !ok {
		b = &Behaviour{id: behaviourID, clock: t.clock}
		t.behaviours[behaviourID] = b
		t.order = append(t.order, behaviourID)
	}
	return b
}

// BehaviourData is the dumped timing of one behaviour, in seconds.
type BehaviourData struct {
	Local     float64 `json:"local"`
	Consensus float64 `json:"consensus"`
	Total     float64 `json:"total"`
}

// BehaviourDump pairs a behaviour with its timing.
type BehaviourDump struct {
	Behaviour string        `json:"behaviour"`
	Data      BehaviourData `json:"data"`
}

// AgentDump is the per-agent JSON document.
type AgentDump struct {
	AgentAddress string          `json:"agent_address"`
	Agent        string          `json:"agent"`
	Data         []BehaviourDump `json:"data"`
}

// Data assembles the dump document in measurement order.
func (t *Tool) Data() AgentDump {
	t.mu.Lock()
	defer t.mu.Unlock()
	dump := AgentDump{
		AgentAddress: t.agentAddress,
		Agent:        t.agentName,
		Data:         make([]BehaviourDump, 0, len(t.order)),
	}
	for _, id := range t.order {
		b := t.behaviours[id]
		local := b.blockDuration(blockLocal).Seconds()
		consensus := b.blockDuration(blockConsensus).Seconds()
		dump.Data = append(dump.Data, BehaviourDump{
			Behaviour: id,
			Data: BehaviourData{
				Local:     local,
				Consensus: consensus,
				Total:     local + consensus,
			},
		})
	}
	return dump
}

// Save writes the dump to <logDir>/<agent_address>.json. Failures are
// logged and swallowed so instrumentation never takes the agent down.
func (t *Tool) Save() {
	data, err := json.MarshalIndent(t.Data(), "", "    ")
	if err != nil {
		t.logger.Error("failed to encode benchmark data", logging.Error(err))
		return
	}
	path := filepath.Join(t.logDir, t.agentAddress+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.logger.Error("failed to save benchmark data",
			logging.Error(err),
			logging.Address(t.agentAddress))
		return
	}
	t.logger.Info("saved benchmark data", logging.Address(t.agentAddress))
}

// Behaviour accumulates the timing blocks of one behaviour.
type Behaviour struct {
	id    string
	clock clock.Clock

	mu     sync.Mutex
	blocks map[string]*timeBlock
}

// Local returns the block timing local computation.
func (b *Behaviour) Local() *TimeBlock { return b.block(blockLocal) }

// Consensus returns the block timing the wait for consensus.
func (b *Behaviour) Consensus() *TimeBlock { return b.block(blockConsensus) }

func (b *Behaviour) block(kind string) *TimeBlock {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.blocks == nil {
		b.blocks = make(map[string]*timeBlock)
	}
	tb, ok := b.blocks[kind]
	if !ok {
		tb = &timeBlock{clock: b.clock}
		b.blocks[kind] = tb
	}
	return &TimeBlock{inner: tb}
}

func (b *Behaviour) blockDuration(kind string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	tb, ok := b.blocks[kind]
	if !ok {
		return 0
	}
	return tb.duration()
}

// TimeBlock measures one wall-clock span. Begin/End bracket the span
// manually; Time runs a function inside it.
type TimeBlock struct {
	inner *timeBlock
}

// Begin starts the span, discarding any prior measurement of this block.
func (t *TimeBlock) Begin() { t.inner.begin() }

// End closes the span. Calling End without Begin records nothing.
func (t *TimeBlock) End() { t.inner.end() }

// Time measures fn.
func (t *TimeBlock) Time(fn func()) {
	t.inner.begin()
	fn()
	t.inner.end()
}

type timeBlock struct {
	clock clock.Clock

	mu      sync.Mutex
	started time.Time
	running bool
	total   time.Duration
}

func (t *timeBlock) begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = t.clock.Now()
	t.running = true
	t.total = 0
}

func (t *timeBlock) end() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.total = t.clock.Now().Sub(t.started)
	t.running = false
}

func (t *timeBlock) duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}
