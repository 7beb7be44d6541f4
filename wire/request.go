package wire

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Oneof field numbers for Request variants.
const (
	fieldRequestEcho               protowire.Number = 1
	fieldRequestFlush              protowire.Number = 2
	fieldRequestInfo               protowire.Number = 3
	fieldRequestSetOption          protowire.Number = 4
	fieldRequestInitChain          protowire.Number = 5
	fieldRequestQuery              protowire.Number = 6
	fieldRequestBeginBlock         protowire.Number = 7
	fieldRequestCheckTx            protowire.Number = 8
	fieldRequestDeliverTx          protowire.Number = 9
	fieldRequestEndBlock           protowire.Number = 10
	fieldRequestCommit             protowire.Number = 11
	fieldRequestListSnapshots      protowire.Number = 12
	fieldRequestOfferSnapshot      protowire.Number = 13
	fieldRequestLoadSnapshotChunk  protowire.Number = 14
	fieldRequestApplySnapshotChunk protowire.Number = 15
)

// RequestValue is the closed set of request variants. Exactly one variant
// is carried per Request.
type RequestValue interface {
	requestValue()
}

func (*RequestEcho) requestValue()               {}
func (*RequestFlush) requestValue()              {}
func (*RequestInfo) requestValue()               {}
func (*RequestSetOption) requestValue()          {}
func (*RequestInitChain) requestValue()          {}
func (*RequestQuery) requestValue()              {}
func (*RequestBeginBlock) requestValue()         {}
func (*RequestCheckTx) requestValue()            {}
func (*RequestDeliverTx) requestValue()          {}
func (*RequestEndBlock) requestValue()           {}
func (*RequestCommit) requestValue()             {}
func (*RequestListSnapshots) requestValue()      {}
func (*RequestOfferSnapshot) requestValue()      {}
func (*RequestLoadSnapshotChunk) requestValue()  {}
func (*RequestApplySnapshotChunk) requestValue() {}

// Request is one engine-to-application message.
type Request struct {
	Value RequestValue
}

// Kind returns the variant name for logging and metrics.
func (m *Request) Kind() string {
	switch m.Value.(type) {
	case *RequestEcho:
		return "echo"
	case *RequestFlush:
		return "flush"
	case *RequestInfo:
		return "info"
	case *RequestSetOption:
		return "set_option"
	case *RequestInitChain:
		return "init_chain"
	case *RequestQuery:
		return "query"
	case *RequestBeginBlock:
		return "begin_block"
	case *RequestCheckTx:
		return "check_tx"
	case *RequestDeliverTx:
		return "deliver_tx"
	case *RequestEndBlock:
		return "end_block"
	case *RequestCommit:
		return "commit"
	case *RequestListSnapshots:
		return "list_snapshots"
	case *RequestOfferSnapshot:
		return "offer_snapshot"
	case *RequestLoadSnapshotChunk:
		return "load_snapshot_chunk"
	case *RequestApplySnapshotChunk:
		return "apply_snapshot_chunk"
	default:
		return "unknown"
	}
}

// Marshal encodes the request in protobuf wire format.
func (m *Request) Marshal() ([]byte, error) {
	var buf []byte
	switch v := m.Value.(type) {
	case *RequestEcho:
		buf = appendMessageField(buf, fieldRequestEcho, v.marshal())
	case *RequestFlush:
		buf = appendMessageField(buf, fieldRequestFlush, v.marshal())
	case *RequestInfo:
		buf = appendMessageField(buf, fieldRequestInfo, v.marshal())
	case *RequestSetOption:
		buf = appendMessageField(buf, fieldRequestSetOption, v.marshal())
	case *RequestInitChain:
		buf = appendMessageField(buf, fieldRequestInitChain, v.marshal())
	case *RequestQuery:
		buf = appendMessageField(buf, fieldRequestQuery, v.marshal())
	case *RequestBeginBlock:
		buf = appendMessageField(buf, fieldRequestBeginBlock, v.marshal())
	case *RequestCheckTx:
		buf = appendMessageField(buf, fieldRequestCheckTx, v.marshal())
	case *RequestDeliverTx:
		buf = appendMessageField(buf, fieldRequestDeliverTx, v.marshal())
	case *RequestEndBlock:
		buf = appendMessageField(buf, fieldRequestEndBlock, v.marshal())
	case *RequestCommit:
		buf = appendMessageField(buf, fieldRequestCommit, v.marshal())
	case *RequestListSnapshots:
		buf = appendMessageField(buf, fieldRequestListSnapshots, v.marshal())
	case *RequestOfferSnapshot:
		buf = appendMessageField(buf, fieldRequestOfferSnapshot, v.marshal())
	case *RequestLoadSnapshotChunk:
		buf = appendMessageField(buf, fieldRequestLoadSnapshotChunk, v.marshal())
	case *RequestApplySnapshotChunk:
		buf = appendMessageField(buf, fieldRequestApplySnapshotChunk, v.marshal())
	case nil:
		return nil, ErrEmptyRequest
	default:
		return nil, fmt.Errorf("unknown request variant %T", v)
	}
	return buf, nil
}

// Unmarshal decodes a request from protobuf wire format. Unknown fields
// are skipped. When several variant fields appear, the last one wins.
func (m *Request) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
			continue
		}

		body, n, err := consumeBytes(b)
		if err != nil {
			return err
		}
		b = b[n:]

		var value RequestValue
		switch num {
		case fieldRequestEcho:
			value = new(RequestEcho)
		case fieldRequestFlush:
			value = new(RequestFlush)
		case fieldRequestInfo:
			value = new(RequestInfo)
		case fieldRequestSetOption:
			value = new(RequestSetOption)
		case fieldRequestInitChain:
			value = new(RequestInitChain)
		case fieldRequestQuery:
			value = new(RequestQuery)
		case fieldRequestBeginBlock:
			value = new(RequestBeginBlock)
		case fieldRequestCheckTx:
			value = new(RequestCheckTx)
		case fieldRequestDeliverTx:
			value = new(RequestDeliverTx)
		case fieldRequestEndBlock:
			value = new(RequestEndBlock)
		case fieldRequestCommit:
			value = new(RequestCommit)
		case fieldRequestListSnapshots:
			value = new(RequestListSnapshots)
		case fieldRequestOfferSnapshot:
			value = new(RequestOfferSnapshot)
		case fieldRequestLoadSnapshotChunk:
			value = new(RequestLoadSnapshotChunk)
		case fieldRequestApplySnapshotChunk:
			value = new(RequestApplySnapshotChunk)
		default:
			continue
		}

		if err := unmarshalRequestValue(value, body); err != nil {
			return err
		}
		m.Value = value
	}
	return nil
}

func unmarshalRequestValue(value RequestValue, body []byte) error {
	switch v := value.(type) {
	case *RequestEcho:
		return v.unmarshal(body)
	case *RequestFlush:
		return v.unmarshal(body)
	case *RequestInfo:
		return v.unmarshal(body)
	case *RequestSetOption:
		return v.unmarshal(body)
	case *RequestInitChain:
		return v.unmarshal(body)
	case *RequestQuery:
		return v.unmarshal(body)
	case *RequestBeginBlock:
		return v.unmarshal(body)
	case *RequestCheckTx:
		return v.unmarshal(body)
	case *RequestDeliverTx:
		return v.unmarshal(body)
	case *RequestEndBlock:
		return v.unmarshal(body)
	case *RequestCommit:
		return v.unmarshal(body)
	case *RequestListSnapshots:
		return v.unmarshal(body)
	case *RequestOfferSnapshot:
		return v.unmarshal(body)
	case *RequestLoadSnapshotChunk:
		return v.unmarshal(body)
	case *RequestApplySnapshotChunk:
		return v.unmarshal(body)
	default:
		return fmt.Errorf("unknown request variant %T", v)
	}
}

// RequestEcho asks the application to echo a message back.
type RequestEcho struct {
	Message string
}

func (r *RequestEcho) marshal() []byte {
	return appendStringField(nil, 1, r.Message)
}

func (r *RequestEcho) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Message = v
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// RequestFlush asks the application to flush buffered responses.
type RequestFlush struct{}

func (r *RequestFlush) marshal() []byte { return nil }

func (r *RequestFlush) unmarshal([]byte) error { return nil }

// RequestInfo asks for application metadata during handshake.
type RequestInfo struct {
	Version      string
	BlockVersion uint64
	P2PVersion   uint64
}

func (r *RequestInfo) marshal() []byte {
	var buf []byte
	buf = appendStringField(buf, 1, r.Version)
	buf = appendVarintField(buf, 2, r.BlockVersion)
	buf = appendVarintField(buf, 3, r.P2PVersion)
	return buf
}

func (r *RequestInfo) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Version = v
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.BlockVersion = v
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.P2PVersion = v
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// RequestSetOption sets a non-consensus application option.
type RequestSetOption struct {
	Key   string
	Value string
}

func (r *RequestSetOption) marshal() []byte {
	var buf []byte
	buf = appendStringField(buf, 1, r.Key)
	buf = appendStringField(buf, 2, r.Value)
	return buf
}

func (r *RequestSetOption) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Key = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Value = v
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// RequestInitChain initializes the application at genesis.
type RequestInitChain struct {
	Time            time.Time
	ChainID         string
	ConsensusParams ConsensusParams
	Validators      []ValidatorUpdate
	AppStateBytes   []byte
	InitialHeight   int64
}

func (r *RequestInitChain) marshal() []byte {
	var buf []byte
	buf = appendTimestamp(buf, 1, r.Time)
	buf = appendStringField(buf, 2, r.ChainID)
	if len(r.ConsensusParams.Raw) > 0 {
		buf = appendMessageField(buf, 3, r.ConsensusParams.Raw)
	}
	for i := range r.Validators {
		buf = appendMessageField(buf, 4, r.Validators[i].marshal())
	}
	buf = appendBytesField(buf, 5, r.AppStateBytes)
	buf = appendVarintField(buf, 6, uint64(r.InitialHeight))
	return buf
}

func (r *RequestInitChain) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			t, err := unmarshalTimestamp(body)
			if err != nil {
				return err
			}
			r.Time = t
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.ChainID = v
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.ConsensusParams = ConsensusParams{Raw: body}
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			var val ValidatorUpdate
			if err := val.unmarshal(body); err != nil {
				return err
			}
			r.Validators = append(r.Validators, val)
			b = b[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.AppStateBytes = v
			b = b[n:]
		case num == 6 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.InitialHeight = int64(v)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// RequestQuery reads application state outside consensus.
type RequestQuery struct {
	Data   []byte
	Path   string
	Height int64
	Prove  bool
}

func (r *RequestQuery) marshal() []byte {
	var buf []byte
	buf = appendBytesField(buf, 1, r.Data)
	buf = appendStringField(buf, 2, r.Path)
	buf = appendVarintField(buf, 3, uint64(r.Height))
	buf = appendBoolField(buf, 4, r.Prove)
	return buf
}

func (r *RequestQuery) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.Data = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Path = v
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.Height = int64(v)
			b = b[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.Prove = v != 0
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// RequestBeginBlock opens a new block for transaction delivery.
type RequestBeginBlock struct {
	Hash                []byte
	Header              Header
	LastCommitInfo      LastCommitInfo
	ByzantineValidators []Evidence
}

func (r *RequestBeginBlock) marshal() []byte {
	var buf []byte
	buf = appendBytesField(buf, 1, r.Hash)
	buf = appendMessageField(buf, 2, r.Header.marshal())
	buf = appendMessageField(buf, 3, r.LastCommitInfo.marshal())
	for i := range r.ByzantineValidators {
		buf = appendMessageField(buf, 4, r.ByzantineValidators[i].marshal())
	}
	return buf
}

func (r *RequestBeginBlock) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.Hash = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			if err := r.Header.unmarshal(body); err != nil {
				return err
			}
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			if err := r.LastCommitInfo.unmarshal(body); err != nil {
				return err
			}
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			var ev Evidence
			if err := ev.unmarshal(body); err != nil {
				return err
			}
			r.ByzantineValidators = append(r.ByzantineValidators, ev)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// CheckTxType distinguishes fresh checks from mempool rechecks.
type CheckTxType int32

// Check types.
const (
	CheckTxNew     CheckTxType = 0
	CheckTxRecheck CheckTxType = 1
)

// RequestCheckTx validates a transaction for mempool admission.
type RequestCheckTx struct {
	Tx   []byte
	Type CheckTxType
}

func (r *RequestCheckTx) marshal() []byte {
	var buf []byte
	buf = appendBytesField(buf, 1, r.Tx)
	buf = appendVarintField(buf, 2, uint64(r.Type))
	return buf
}

func (r *RequestCheckTx) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.Tx = v
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.Type = CheckTxType(v)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// RequestDeliverTx applies a transaction within the open block.
type RequestDeliverTx struct {
	Tx []byte
}

func (r *RequestDeliverTx) marshal() []byte {
	return appendBytesField(nil, 1, r.Tx)
}

func (r *RequestDeliverTx) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.Tx = v
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// RequestEndBlock closes transaction delivery for a block.
type RequestEndBlock struct {
	Height int64
}

func (r *RequestEndBlock) marshal() []byte {
	return appendVarintField(nil, 1, uint64(r.Height))
}

func (r *RequestEndBlock) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.Height = int64(v)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// RequestCommit finalizes the open block.
type RequestCommit struct{}

func (r *RequestCommit) marshal() []byte { return nil }

func (r *RequestCommit) unmarshal([]byte) error { return nil }

// RequestListSnapshots asks for the application's available snapshots.
type RequestListSnapshots struct{}

func (r *RequestListSnapshots) marshal() []byte { return nil }

func (r *RequestListSnapshots) unmarshal([]byte) error { return nil }

// RequestOfferSnapshot offers a peer snapshot for state sync.
type RequestOfferSnapshot struct {
	Snapshot *Snapshot
	AppHash  []byte
}

func (r *RequestOfferSnapshot) marshal() []byte {
	var buf []byte
	if r.Snapshot != nil {
		buf = appendMessageField(buf, 1, r.Snapshot.marshal())
	}
	buf = appendBytesField(buf, 2, r.AppHash)
	return buf
}

func (r *RequestOfferSnapshot) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			s := new(Snapshot)
			if err := s.unmarshal(body); err != nil {
				return err
			}
			r.Snapshot = s
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.AppHash = v
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// RequestLoadSnapshotChunk asks for one chunk of a local snapshot.
type RequestLoadSnapshotChunk struct {
	Height uint64
	Format uint32
	Chunk  uint32
}

func (r *RequestLoadSnapshotChunk) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, r.Height)
	buf = appendVarintField(buf, 2, uint64(r.Format))
	buf = appendVarintField(buf, 3, uint64(r.Chunk))
	return buf
}

func (r *RequestLoadSnapshotChunk) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.Height = v
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.Format = uint32(v)
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.Chunk = uint32(v)
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// RequestApplySnapshotChunk delivers one restored snapshot chunk.
type RequestApplySnapshotChunk struct {
	Index  uint32
	Chunk  []byte
	Sender string
}

func (r *RequestApplySnapshotChunk) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(r.Index))
	buf = appendBytesField(buf, 2, r.Chunk)
	buf = appendStringField(buf, 3, r.Sender)
	return buf
}

func (r *RequestApplySnapshotChunk) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.Index = uint32(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.Chunk = v
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Sender = v
			b = b[n:]
		default:
			n, err := skipField(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}
