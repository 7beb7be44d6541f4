package node

import (
	"context"
	"strconv"
	"time"

	"github.com/blockberries/tenderberry/abci"
	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/tracing"
	"github.com/blockberries/tenderberry/wire"
)

// version is reported to the consensus engine on handshake.
const version = "0.1.0"

// appVersion is the application protocol version.
const appVersion uint64 = 1

// Response codes for check-tx and deliver-tx.
const (
	codeOK    uint32 = 0
	codeError uint32 = 1
)

// handleEnvelope answers one request envelope. Every path logs, counts,
// and traces; failures surface as exception responses rather than taking
// the consumer loop down.
func (n *Node) handleEnvelope(ctx context.Context, env abci.Envelope) abci.Envelope {
	kind := string(env.Message.Performative)
	start := time.Now()
	ctx, span := n.tracer.StartSpan(ctx, "abci/"+kind)
	defer span.End()

	msg := n.dispatch(ctx, env.Message)
	if msg.Performative == abci.ResponseException {
		span.SetStatus(tracing.StatusError, "request failed")
	}
	n.metrics.ObserveRequestLatency(kind, time.Since(start))

	return abci.Envelope{
		Sender:    env.Recipient,
		Recipient: env.Sender,
		Label:     env.Label,
		Message:   msg,
	}
}

func (n *Node) dispatch(ctx context.Context, msg abci.Message) abci.Message {
	switch msg.Performative {
	case abci.RequestEcho:
		req, ok := msg.Value.(*wire.RequestEcho)
		if !ok {
			return exception("malformed echo request")
		}
		return abci.NewMessage(abci.ResponseEcho, &wire.ResponseEcho{Message: req.Message})

	case abci.RequestFlush:
		return abci.NewMessage(abci.ResponseFlush, &wire.ResponseFlush{})

	case abci.RequestInfo:
		return n.handleInfo(msg)

	case abci.RequestSetOption:
		return n.handleSetOption(msg)

	case abci.RequestInitChain:
		return n.handleInitChain(msg)

	case abci.RequestQuery:
		return n.handleQuery(msg)

	case abci.RequestBeginBlock:
		return n.handleBeginBlock(msg)

	case abci.RequestCheckTx:
		return n.handleCheckTx(msg)

	case abci.RequestDeliverTx:
		return n.handleDeliverTx(msg)

	case abci.RequestEndBlock:
		return n.handleEndBlock(msg)

	case abci.RequestCommit:
		return n.handleCommit()

	case abci.RequestListSnapshots:
		// No state sync: nothing to offer.
		return abci.NewMessage(abci.ResponseListSnapshots, &wire.ResponseListSnapshots{})

	case abci.RequestOfferSnapshot:
		return abci.NewMessage(abci.ResponseOfferSnapshot,
			&wire.ResponseOfferSnapshot{Result: wire.OfferSnapshotAbort})

	case abci.RequestLoadSnapshotChunk:
		return abci.NewMessage(abci.ResponseLoadSnapshotChunk, &wire.ResponseLoadSnapshotChunk{})

	case abci.RequestApplySnapshotChunk:
		return abci.NewMessage(abci.ResponseApplySnapshotChunk,
			&wire.ResponseApplySnapshotChunk{Result: wire.ApplySnapshotChunkAbort})

	default:
		n.logger.Warn("unhandled request",
			logging.MsgType(string(msg.Performative)))
		return exception("unhandled request " + string(msg.Performative))
	}
}

func (n *Node) handleInfo(msg abci.Message) abci.Message {
	req, ok := msg.Value.(*wire.RequestInfo)
	if !ok {
		return exception("malformed info request")
	}
	n.logger.Info("engine handshake",
		logging.Version(req.Version),
		logging.Height(n.period.Height()))
	return abci.NewMessage(abci.ResponseInfo, &wire.ResponseInfo{
		Data:            n.cfg.Node.AgentName,
		Version:         version,
		AppVersion:      appVersion,
		LastBlockHeight: n.period.Height(),
	})
}

func (n *Node) handleSetOption(msg abci.Message) abci.Message {
	req, ok := msg.Value.(*wire.RequestSetOption)
	if !ok {
		return exception("malformed set-option request")
	}
	// Options are acknowledged but never change behaviour; configuration
	// is owned by the config file.
	n.logger.Debug("set option ignored", "key", req.Key, "value", req.Value)
	return abci.NewMessage(abci.ResponseSetOption, &wire.ResponseSetOption{
		Code: codeOK,
		Log:  "ignored",
	})
}

func (n *Node) handleInitChain(msg abci.Message) abci.Message {
	req, ok := msg.Value.(*wire.RequestInitChain)
	if !ok {
		return exception("malformed init-chain request")
	}
	if err := n.resetPeriod(); err != nil {
		n.logger.Error("failed to reset period", logging.Error(err))
		return exception(err.Error())
	}
	n.logger.Info("chain initialized",
		logging.ChainID(req.ChainID),
		logging.Round(string(n.period.CurrentRoundID())))
	return abci.NewMessage(abci.ResponseInitChain, &wire.ResponseInitChain{})
}

func (n *Node) handleQuery(msg abci.Message) abci.Message {
	req, ok := msg.Value.(*wire.RequestQuery)
	if !ok {
		return exception("malformed query request")
	}
	resp := &wire.ResponseQuery{Height: n.period.Height()}
	switch req.Path {
	case "height":
		resp.Value = []byte(strconv.FormatInt(n.period.Height(), 10))
	case "app_hash":
		// The application commits no state hash.
		resp.Value = nil
	case "round":
		resp.Value = []byte(n.period.CurrentRoundID())
	default:
		resp.Code = codeError
		resp.Log = "unknown query path " + req.Path
	}
	return abci.NewMessage(abci.ResponseQuery, resp)
}

func (n *Node) handleBeginBlock(msg abci.Message) abci.Message {
	req, ok := msg.Value.(*wire.RequestBeginBlock)
	if !ok {
		return exception("malformed begin-block request")
	}
	header := engine.BlockHeader{
		Height:          req.Header.Height,
		Time:            req.Header.Time,
		ChainID:         req.Header.ChainID,
		Hash:            req.Hash,
		ProposerAddress: req.Header.ProposerAddress,
	}
	if err := n.period.BeginBlock(header); err != nil {
		n.logger.Error("begin block rejected",
			logging.Height(header.Height),
			logging.Error(err))
		return exception(err.Error())
	}
	n.beginBenchmark()
	return abci.NewMessage(abci.ResponseBeginBlock, &wire.ResponseBeginBlock{})
}

func (n *Node) handleCheckTx(msg abci.Message) abci.Message {
	req, ok := msg.Value.(*wire.RequestCheckTx)
	if !ok {
		return exception("malformed check-tx request")
	}
	resp := &wire.ResponseCheckTx{Code: codeOK, Info: "check_tx succeeded"}
	tx, err := engine.DecodeTransaction(req.Tx)
	if err == nil {
		err = n.period.CheckTx(tx)
	}
	if err != nil {
		n.metrics.IncTxsRejected("check_tx")
		resp.Code = codeError
		resp.Log = err.Error()
		resp.Info = "check_tx failed"
	}
	return abci.NewMessage(abci.ResponseCheckTx, resp)
}

func (n *Node) handleDeliverTx(msg abci.Message) abci.Message {
	req, ok := msg.Value.(*wire.RequestDeliverTx)
	if !ok {
		return exception("malformed deliver-tx request")
	}
	resp := &wire.ResponseDeliverTx{Code: codeOK, Info: "deliver_tx succeeded"}
	tx, err := engine.DecodeTransaction(req.Tx)
	if err == nil {
		err = n.period.DeliverTx(tx)
	}
	if err != nil {
		n.metrics.IncTxsRejected("deliver_tx")
		resp.Code = codeError
		resp.Log = err.Error()
		resp.Info = "deliver_tx failed"
	} else {
		n.metrics.IncTxsDelivered()
	}
	return abci.NewMessage(abci.ResponseDeliverTx, resp)
}

func (n *Node) handleEndBlock(msg abci.Message) abci.Message {
	if _, ok := msg.Value.(*wire.RequestEndBlock); !ok {
		return exception("malformed end-block request")
	}
	if err := n.period.EndBlock(); err != nil {
		n.logger.Error("end block rejected", logging.Error(err))
		return exception(err.Error())
	}
	return abci.NewMessage(abci.ResponseEndBlock, &wire.ResponseEndBlock{})
}

func (n *Node) handleCommit() abci.Message {
	before := n.period.CurrentRoundID()
	if err := n.period.Commit(); err != nil {
		n.logger.Error("commit rejected", logging.Error(err))
		return exception(err.Error())
	}

	n.metrics.IncBlocksCommitted()
	n.metrics.SetBlockHeight(n.period.Height())
	n.metrics.SetPeriodCount(n.period.LatestResult().PeriodCount())

	after := n.period.CurrentRoundID()
	if after != before {
		n.metrics.IncRoundTransitions(string(after))
		n.endBenchmark(before)
		n.logger.Info("round transition",
			logging.Round(string(after)),
			logging.Height(n.period.Height()))
	}
	return abci.NewMessage(abci.ResponseCommit, &wire.ResponseCommit{})
}

// beginBenchmark opens the consensus timing block for the active round the
// first time a block is begun inside it.
func (n *Node) beginBenchmark() {
	if n.bench == nil {
		return
	}
	current := n.period.CurrentRoundID()
	if n.benchRound == current {
		return
	}
	n.benchRound = current
	n.bench.Measure(string(current)).Consensus().Begin()
}

// endBenchmark closes the consensus timing block of a finished round.
func (n *Node) endBenchmark(round engine.RoundID) {
	if n.bench == nil || n.benchRound != round {
		return
	}
	n.bench.Measure(string(round)).Consensus().End()
	n.benchRound = ""
}

func exception(reason string) abci.Message {
	return abci.NewMessage(abci.ResponseException, &wire.ResponseException{Error: reason})
}
