package abci

import (
	"github.com/blockberries/tenderberry/wire"
)

// Message is the application-internal form of a protocol message: a
// performative plus the typed body it carries. The body is the wire
// variant struct for that performative; handlers type-assert on it.
type Message struct {
	Performative Performative
	Value        any
}

// NewMessage builds a message.
func NewMessage(p Performative, value any) Message {
	return Message{Performative: p, Value: value}
}

// Envelope frames a message between the consensus engine connection and
// the application, carrying the dialogue label that pairs a response with
// its request.
type Envelope struct {
	Sender    string
	Recipient string
	Label     DialogueLabel
	Message   Message
}

// requestPerformative maps a decoded wire variant to its performative.
func requestPerformative(value wire.RequestValue) (Performative, bool) {
	switch value.(type) {
	case *wire.RequestEcho:
		return RequestEcho, true
	case *wire.RequestFlush:
		return RequestFlush, true
	case *wire.RequestInfo:
		return RequestInfo, true
	case *wire.RequestSetOption:
		return RequestSetOption, true
	case *wire.RequestInitChain:
		return RequestInitChain, true
	case *wire.RequestQuery:
		return RequestQuery, true
	case *wire.RequestBeginBlock:
		return RequestBeginBlock, true
	case *wire.RequestCheckTx:
		return RequestCheckTx, true
	case *wire.RequestDeliverTx:
		return RequestDeliverTx, true
	case *wire.RequestEndBlock:
		return RequestEndBlock, true
	case *wire.RequestCommit:
		return RequestCommit, true
	case *wire.RequestListSnapshots:
		return RequestListSnapshots, true
	case *wire.RequestOfferSnapshot:
		return RequestOfferSnapshot, true
	case *wire.RequestLoadSnapshotChunk:
		return RequestLoadSnapshotChunk, true
	case *wire.RequestApplySnapshotChunk:
		return RequestApplySnapshotChunk, true
	default:
		return "", false
	}
}

// responseValue maps a response message body to the wire variant carried
// by a Response union.
func responseValue(msg Message) (wire.ResponseValue, bool) {
	switch v := msg.Value.(type) {
	case *wire.ResponseException:
		return v, msg.Performative == ResponseException
	case *wire.ResponseEcho:
		return v, msg.Performative == ResponseEcho
	case *wire.ResponseFlush:
		return v, msg.Performative == ResponseFlush
	case *wire.ResponseInfo:
		return v, msg.Performative == ResponseInfo
	case *wire.ResponseSetOption:
		return v, msg.Performative == ResponseSetOption
	case *wire.ResponseInitChain:
		return v, msg.Performative == ResponseInitChain
	case *wire.ResponseQuery:
		return v, msg.Performative == ResponseQuery
	case *wire.ResponseBeginBlock:
		return v, msg.Performative == ResponseBeginBlock
	case *wire.ResponseCheckTx:
		return v, msg.Performative == ResponseCheckTx
	case *wire.ResponseDeliverTx:
		return v, msg.Performative == ResponseDeliverTx
	case *wire.ResponseEndBlock:
		return v, msg.Performative == ResponseEndBlock
	case *wire.ResponseCommit:
		return v, msg.Performative == ResponseCommit
	case *wire.ResponseListSnapshots:
		return v, msg.Performative == ResponseListSnapshots
	case *wire.ResponseOfferSnapshot:
		return v, msg.Performative == ResponseOfferSnapshot
	case *wire.ResponseLoadSnapshotChunk:
		return v, msg.Performative == ResponseLoadSnapshotChunk
	case *wire.ResponseApplySnapshotChunk:
		return v, msg.Performative == ResponseApplySnapshotChunk
	default:
		return nil, false
	}
}
