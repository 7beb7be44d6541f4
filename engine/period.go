package engine

import (
	"time"

	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/state"
)

// BlockPhase is the position of the application in the consensus engine's
// block construction cycle.
type BlockPhase string

// Block construction phases. Requests arriving out of phase are rejected
// with a PhaseError.
const (
	// WaitingForBeginBlock accepts begin-block requests.
	WaitingForBeginBlock BlockPhase = "waiting_for_begin_block"
	// WaitingForDeliverTx accepts deliver-tx requests until end-block.
	WaitingForDeliverTx BlockPhase = "waiting_for_deliver_tx"
	// WaitingForCommit accepts only the commit request.
	WaitingForCommit BlockPhase = "waiting_for_commit"
)

// BlockArchiver persists committed blocks. Persistence is best effort: a
// failed save is logged and never stalls consensus.
type BlockArchiver interface {
	SaveBlock(block *Block) error
}

// Period sequences the rounds of one application run. It receives the
// consensus engine's block lifecycle requests, enforces their ordering,
// forwards transactions to the active round, and moves the application to
// the next round whenever the current one completes.
type Period struct {
	spec       *AppSpec
	logger     *logging.Logger
	blockchain *Blockchain
	builder    *BlockBuilder
	phase      BlockPhase
	app        *AbciApp
	archiver   BlockArchiver
}

// PeriodOption configures a Period.
type PeriodOption func(*Period)

// WithArchiver sets the block archive for committed blocks.
func WithArchiver(archiver BlockArchiver) PeriodOption {
	return func(p *Period) { p.archiver = archiver }
}

// NewPeriod creates a period for the given application spec.
func NewPeriod(spec *AppSpec, logger *logging.Logger, opts ...PeriodOption) *Period {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	p := &Period{
		spec:       spec,
		logger:     logger,
		blockchain: NewBlockchain(),
		builder:    NewBlockBuilder(),
		phase:      WaitingForBeginBlock,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Setup builds the application over the initial state and enters its
// initial round. It must be called before any block request.
func (p *Period) Setup(initialState *state.PeriodState) error {
	app, err := NewAbciApp(p.spec, initialState, p.logger)
	if err != nil {
		return err
	}
	app.Setup()
	p.app = app
	return nil
}

// App returns the underlying application.
func (p *Period) App() *AbciApp { return p.app }

// Height returns the height of the last committed block.
func (p *Period) Height() int64 { return p.blockchain.Height() }

// Phase returns the current block construction phase.
func (p *Period) Phase() BlockPhase { return p.phase }

// IsFinished reports whether the application has reached a dead end.
func (p *Period) IsFinished() bool { return p.app == nil || p.app.IsFinished() }

// CurrentRoundID returns the active round's identifier.
func (p *Period) CurrentRoundID() RoundID { return p.app.CurrentRoundID() }

// LastRoundID returns the previous round's identifier.
func (p *Period) LastRoundID() RoundID { return p.app.LastRoundID() }

// CurrentRoundHeight returns how many rounds have completed.
func (p *Period) CurrentRoundHeight() int { return p.app.CurrentRoundHeight() }

// LatestResult returns the state left by the last completed round.
func (p *Period) LatestResult() *state.PeriodState { return p.app.State() }

// LastTimestamp returns the timestamp of the last committed block, or
// false when no block has been committed yet.
func (p *Period) LastTimestamp() (time.Time, bool) {
	blocks := p.blockchain.Blocks()
	if len(blocks) == 0 {
		return time.Time{}, false
	}
	return blocks[len(blocks)-1].Header.Time, true
}

// BeginBlock opens a new block, feeding the header timestamp to the
// application so pending timeouts fire deterministically.
func (p *Period) BeginBlock(header BlockHeader) error {
	if p.IsFinished() {
		return ErrPeriodFinished
	}
	if p.phase != WaitingForBeginBlock {
		return &PhaseError{Request: "begin_block", Phase: p.phase}
	}
	p.phase = WaitingForDeliverTx
	p.builder.Reset()
	if err := p.builder.SetHeader(header); err != nil {
		return err
	}
	p.app.UpdateTime(header.Time)
	return nil
}

// CheckTx validates a transaction against the active round without
// applying it.
func (p *Period) CheckTx(tx *Transaction) error {
	if p.IsFinished() {
		return ErrPeriodFinished
	}
	return p.app.CheckTransaction(tx)
}

// DeliverTx applies a transaction to the active round and records it in
// the block under construction.
func (p *Period) DeliverTx(tx *Transaction) error {
	if p.phase != WaitingForDeliverTx {
		return &PhaseError{Request: "deliver_tx", Phase: p.phase}
	}
	if err := p.app.CheckTransaction(tx); err != nil {
		return err
	}
	if err := p.app.ProcessTransaction(tx); err != nil {
		return err
	}
	p.builder.AddTransaction(tx)
	return nil
}

// EndBlock closes the block's transaction window.
func (p *Period) EndBlock() error {
	if p.phase != WaitingForDeliverTx {
		return &PhaseError{Request: "end_block", Phase: p.phase}
	}
	p.phase = WaitingForCommit
	return nil
}

// Commit appends the built block to the chain, archives it, and lets the
// active round decide whether it has completed.
func (p *Period) Commit() error {
	if p.phase != WaitingForCommit {
		return &PhaseError{Request: "commit", Phase: p.phase}
	}
	block, err := p.builder.Build()
	if err != nil {
		return err
	}
	if err := p.blockchain.AddBlock(block); err != nil {
		return err
	}
	if p.archiver != nil {
		if err := p.archiver.SaveBlock(block); err != nil {
			p.logger.Error("failed to archive block",
				logging.Height(block.Header.Height),
				logging.Error(err))
		}
	}
	p.updateRound()
	p.phase = WaitingForBeginBlock
	return nil
}

// updateRound asks the active round whether it finished and, if so, feeds
// the resulting event through the transition graph.
func (p *Period) updateRound() {
	round := p.app.CurrentRound()
	if round == nil {
		return
	}
	result, event, done := round.EndBlock()
	if !done {
		return
	}
	p.app.ProcessEvent(event, result)
}
