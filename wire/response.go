package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Oneof field numbers for Response variants.
const (
	fieldResponseException          protowire.Number = 1
	fieldResponseEcho               protowire.Number = 2
	fieldResponseFlush              protowire.Number = 3
	fieldResponseInfo               protowire.Number = 4
	fieldResponseSetOption          protowire.Number = 5
	fieldResponseInitChain          protowire.Number = 6
	fieldResponseQuery              protowire.Number = 7
	fieldResponseBeginBlock         protowire.Number = 8
	fieldResponseCheckTx            protowire.Number = 9
	fieldResponseDeliverTx          protowire.Number = 10
	fieldResponseEndBlock           protowire.Number = 11
	fieldResponseCommit             protowire.Number = 12
	fieldResponseListSnapshots      protowire.Number = 13
	fieldResponseOfferSnapshot      protowire.Number = 14
	fieldResponseLoadSnapshotChunk  protowire.Number = 15
	fieldResponseApplySnapshotChunk protowire.Number = 16
)

// ResponseValue is the closed set of response variants.
type ResponseValue interface {
	responseValue()
}

func (*ResponseException) responseValue()          {}
func (*ResponseEcho) responseValue()               {}
func (*ResponseFlush) responseValue()              {}
func (*ResponseInfo) responseValue()               {}
func (*ResponseSetOption) responseValue()          {}
func (*ResponseInitChain) responseValue()          {}
func (*ResponseQuery) responseValue()              {}
func (*ResponseBeginBlock) responseValue()         {}
func (*ResponseCheckTx) responseValue()            {}
func (*ResponseDeliverTx) responseValue()          {}
func (*ResponseEndBlock) responseValue()           {}
func (*ResponseCommit) responseValue()             {}
func (*ResponseListSnapshots) responseValue()      {}
func (*ResponseOfferSnapshot) responseValue()      {}
func (*ResponseLoadSnapshotChunk) responseValue()  {}
func (*ResponseApplySnapshotChunk) responseValue() {}

// Response is one application-to-engine message.
type Response struct {
	Value ResponseValue
}

// Kind returns the variant name for logging and metrics.
func (m *Response) Kind() string {
	switch m.Value.(type) {
	case *ResponseException:
		return "exception"
	case *ResponseEcho:
		return "echo"
	case *ResponseFlush:
		return "flush"
	case *ResponseInfo:
		return "info"
	case *ResponseSetOption:
		return "set_option"
	case *ResponseInitChain:
		return "init_chain"
	case *ResponseQuery:
		return "query"
	case *ResponseBeginBlock:
		return "begin_block"
	case *ResponseCheckTx:
		return "check_tx"
	case *ResponseDeliverTx:
		return "deliver_tx"
	case *ResponseEndBlock:
		return "end_block"
	case *ResponseCommit:
		return "commit"
	case *ResponseListSnapshots:
		return "list_snapshots"
	case *ResponseOfferSnapshot:
		return "offer_snapshot"
	case *ResponseLoadSnapshotChunk:
		return "load_snapshot_chunk"
	case *ResponseApplySnapshotChunk:
		return "apply_snapshot_chunk"
	default:
		return "unknown"
	}
}

// Marshal encodes the response in protobuf wire format.
func (m *Response) Marshal() ([]byte, error) {
	var buf []byte
	switch v := m.Value.(type) {
	case *ResponseException:
		buf = appendMessageField(buf, fieldResponseException, v.marshal())
	case *ResponseEcho:
		buf = appendMessageField(buf, fieldResponseEcho, v.marshal())
	case *ResponseFlush:
		buf = appendMessageField(buf, fieldResponseFlush, v.marshal())
	case *ResponseInfo:
		buf = appendMessageField(buf, fieldResponseInfo, v.marshal())
	case *ResponseSetOption:
		buf = appendMessageField(buf, fieldResponseSetOption, v.marshal())
	case *ResponseInitChain:
		buf = appendMessageField(buf, fieldResponseInitChain, v.marshal())
	case *ResponseQuery:
		buf = appendMessageField(buf, fieldResponseQuery, v.marshal())
	case *ResponseBeginBlock:
		buf = appendMessageField(buf, fieldResponseBeginBlock, v.marshal())
	case *ResponseCheckTx:
		buf = appendMessageField(buf, fieldResponseCheckTx, v.marshal())
	case *ResponseDeliverTx:
		buf = appendMessageField(buf, fieldResponseDeliverTx, v.marshal())
	case *ResponseEndBlock:
		buf = appendMessageField(buf, fieldResponseEndBlock, v.marshal())
	case *ResponseCommit:
		buf = appendMessageField(buf, fieldResponseCommit, v.marshal())
	case *ResponseListSnapshots:
		buf = appendMessageField(buf, fieldResponseListSnapshots, v.marshal())
	case *ResponseOfferSnapshot:
		buf = appendMessageField(buf, fieldResponseOfferSnapshot, v.marshal())
	case *ResponseLoadSnapshotChunk:
		buf = appendMessageField(buf, fieldResponseLoadSnapshotChunk, v.marshal())
	case *ResponseApplySnapshotChunk:
		buf = appendMessageField(buf, fieldResponseApplySnapshotChunk, v.marshal())
	case nil:
		return nil, ErrEmptyResponse
	default:
		return nil, fmt.Errorf("unknown response variant %T", v)
	}
	return buf, nil
}

// Unmarshal decodes a response from protobuf wire format. Unknown fields
// are skipped.
func (m *Response) Unmarshal(b []byte) error {
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

		var value ResponseValue
		switch num {
		case fieldResponseException:
			value = new(ResponseException)
		case fieldResponseEcho:
			value = new(ResponseEcho)
		case fieldResponseFlush:
			value = new(ResponseFlush)
		case fieldResponseInfo:
			value = new(ResponseInfo)
		case fieldResponseSetOption:
			value = new(ResponseSetOption)
		case fieldResponseInitChain:
			value = new(ResponseInitChain)
		case fieldResponseQuery:
			value = new(ResponseQuery)
		case fieldResponseBeginBlock:
			value = new(ResponseBeginBlock)
		case fieldResponseCheckTx:
			value = new(ResponseCheckTx)
		case fieldResponseDeliverTx:
			value = new(ResponseDeliverTx)
		case fieldResponseEndBlock:
			value = new(ResponseEndBlock)
		case fieldResponseCommit:
			value = new(ResponseCommit)
		case fieldResponseListSnapshots:
			value = new(ResponseListSnapshots)
		case fieldResponseOfferSnapshot:
			value = new(ResponseOfferSnapshot)
		case fieldResponseLoadSnapshotChunk:
			value = new(ResponseLoadSnapshotChunk)
		case fieldResponseApplySnapshotChunk:
			value = new(ResponseApplySnapshotChunk)
		default:
			continue
		}

		if err := unmarshalResponseValue(value, body); err != nil {
			return err
		}
		m.Value = value
	}
	return nil
}

func unmarshalResponseValue(value ResponseValue, body []byte) error {
	switch v := value.(type) {
	case *ResponseException:
		return v.unmarshal(body)
	case *ResponseEcho:
		return v.unmarshal(body)
	case *ResponseFlush:
		return v.unmarshal(body)
	case *ResponseInfo:
		return v.unmarshal(body)
	case *ResponseSetOption:
		return v.unmarshal(body)
	case *ResponseInitChain:
		return v.unmarshal(body)
	case *ResponseQuery:
		return v.unmarshal(body)
	case *ResponseBeginBlock:
		return v.unmarshal(body)
	case *ResponseCheckTx:
		return v.unmarshal(body)
	case *ResponseDeliverTx:
		return v.unmarshal(body)
	case *ResponseEndBlock:
		return v.unmarshal(body)
	case *ResponseCommit:
		return v.unmarshal(body)
	case *ResponseListSnapshots:
		return v.unmarshal(body)
	case *ResponseOfferSnapshot:
		return v.unmarshal(body)
	case *ResponseLoadSnapshotChunk:
		return v.unmarshal(body)
	case *ResponseApplySnapshotChunk:
		return v.unmarshal(body)
	default:
		return fmt.Errorf("unknown response variant %T", v)
	}
}

// ResponseException reports an unrecoverable application fault.
type ResponseException struct {
	Error string
}

func (r *ResponseException) marshal() []byte {
	return appendStringField(nil, 1, r.Error)
}

func (r *ResponseException) unmarshal(b []byte) error {
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
			r.Error = v
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

// ResponseEcho returns the echoed message.
type ResponseEcho struct {
	Message string
}

func (r *ResponseEcho) marshal() []byte {
	return appendStringField(nil, 1, r.Message)
}

func (r *ResponseEcho) unmarshal(b []byte) error {
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

// ResponseFlush acknowledges a flush.
type ResponseFlush struct{}

func (r *ResponseFlush) marshal() []byte { return nil }

func (r *ResponseFlush) unmarshal([]byte) error { return nil }

// ResponseInfo reports application metadata during handshake.
type ResponseInfo struct {
	Data             string
	Version          string
	AppVersion       uint64
	LastBlockHeight  int64
	LastBlockAppHash []byte
}

func (r *ResponseInfo) marshal() []byte {
	var buf []byte
	buf = appendStringField(buf, 1, r.Data)
	buf = appendStringField(buf, 2, r.Version)
	buf = appendVarintField(buf, 3, r.AppVersion)
	buf = appendVarintField(buf, 4, uint64(r.LastBlockHeight))
	buf = appendBytesField(buf, 5, r.LastBlockAppHash)
	return buf
}

func (r *ResponseInfo) unmarshal(b []byte) error {
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
			r.Data = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Version = v
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.AppVersion = v
			b = b[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.LastBlockHeight = int64(v)
			b = b[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.LastBlockAppHash = v
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

// ResponseSetOption acknowledges a set-option request.
type ResponseSetOption struct {
	Code uint32
	Log  string
	Info string
}

func (r *ResponseSetOption) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(r.Code))
	buf = appendStringField(buf, 3, r.Log)
	buf = appendStringField(buf, 4, r.Info)
	return buf
}

func (r *ResponseSetOption) unmarshal(b []byte) error {
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
			r.Code = uint32(v)
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Log = v
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Info = v
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

// ResponseInitChain returns the genesis validator set and parameters.
type ResponseInitChain struct {
	ConsensusParams ConsensusParams
	Validators      []ValidatorUpdate
	AppHash         []byte
}

func (r *ResponseInitChain) marshal() []byte {
	var buf []byte
	if len(r.ConsensusParams.Raw) > 0 {
		buf = appendMessageField(buf, 1, r.ConsensusParams.Raw)
	}
	for i := range r.Validators {
		buf = appendMessageField(buf, 2, r.Validators[i].marshal())
	}
	buf = appendBytesField(buf, 3, r.AppHash)
	return buf
}

func (r *ResponseInitChain) unmarshal(b []byte) error {
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
			r.ConsensusParams = ConsensusParams{Raw: body}
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
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
		case num == 3 && typ == protowire.BytesType:
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

// ResponseQuery returns a state read.
type ResponseQuery struct {
	Code      uint32
	Log       string
	Info      string
	Index     int64
	Key       []byte
	Value     []byte
	Height    int64
	Codespace string
}

func (r *ResponseQuery) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(r.Code))
	buf = appendStringField(buf, 3, r.Log)
	buf = appendStringField(buf, 4, r.Info)
	buf = appendVarintField(buf, 5, uint64(r.Index))
	buf = appendBytesField(buf, 6, r.Key)
	buf = appendBytesField(buf, 7, r.Value)
	buf = appendVarintField(buf, 9, uint64(r.Height))
	buf = appendStringField(buf, 10, r.Codespace)
	return buf
}

func (r *ResponseQuery) unmarshal(b []byte) error {
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
			r.Code = uint32(v)
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Log = v
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Info = v
			b = b[n:]
		case num == 5 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.Index = int64(v)
			b = b[n:]
		case num == 6 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.Key = v
			b = b[n:]
		case num == 7 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.Value = v
			b = b[n:]
		case num == 9 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.Height = int64(v)
			b = b[n:]
		case num == 10 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.Codespace = v
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

// ResponseBeginBlock acknowledges the opened block.
type ResponseBeginBlock struct {
	Events []Event
}

func (r *ResponseBeginBlock) marshal() []byte {
	var buf []byte
	for i := range r.Events {
		buf = appendMessageField(buf, 1, r.Events[i].marshal())
	}
	return buf
}

func (r *ResponseBeginBlock) unmarshal(b []byte) error {
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
			var ev Event
			if err := ev.unmarshal(body); err != nil {
				return err
			}
			r.Events = append(r.Events, ev)
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

// ResponseCheckTx reports transaction admission.
type ResponseCheckTx struct {
	Code      uint32
	Data      []byte
	Log       string
	Info      string
	GasWanted int64
	GasUsed   int64
	Events    []Event
	Codespace string
}

func (r *ResponseCheckTx) marshal() []byte {
	return marshalTxResult(r.Code, r.Data, r.Log, r.Info, r.GasWanted, r.GasUsed, r.Events, r.Codespace)
}

func (r *ResponseCheckTx) unmarshal(b []byte) error {
	return unmarshalTxResult(b, &r.Code, &r.Data, &r.Log, &r.Info, &r.GasWanted, &r.GasUsed, &r.Events, &r.Codespace)
}

// ResponseDeliverTx reports transaction application.
type ResponseDeliverTx struct {
	Code      uint32
	Data      []byte
	Log       string
	Info      string
	GasWanted int64
	GasUsed   int64
	Events    []Event
	Codespace string
}

func (r *ResponseDeliverTx) marshal() []byte {
	return marshalTxResult(r.Code, r.Data, r.Log, r.Info, r.GasWanted, r.GasUsed, r.Events, r.Codespace)
}

func (r *ResponseDeliverTx) unmarshal(b []byte) error {
	return unmarshalTxResult(b, &r.Code, &r.Data, &r.Log, &r.Info, &r.GasWanted, &r.GasUsed, &r.Events, &r.Codespace)
}

// marshalTxResult encodes the field layout shared by check-tx and
// deliver-tx responses.
func marshalTxResult(code uint32, data []byte, log, info string, gasWanted, gasUsed int64, events []Event, codespace string) []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(code))
	buf = appendBytesField(buf, 2, data)
	buf = appendStringField(buf, 3, log)
	buf = appendStringField(buf, 4, info)
	buf = appendVarintField(buf, 5, uint64(gasWanted))
	buf = appendVarintField(buf, 6, uint64(gasUsed))
	for i := range events {
		buf = appendMessageField(buf, 7, events[i].marshal())
	}
	buf = appendStringField(buf, 8, codespace)
	return buf
}

func unmarshalTxResult(b []byte, code *uint32, data *[]byte, log, info *string, gasWanted, gasUsed *int64, events *[]Event, codespace *string) error {
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
			*code = uint32(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			*data = v
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			*log = v
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			*info = v
			b = b[n:]
		case num == 5 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			*gasWanted = int64(v)
			b = b[n:]
		case num == 6 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			*gasUsed = int64(v)
			b = b[n:]
		case num == 7 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			var ev Event
			if err := ev.unmarshal(body); err != nil {
				return err
			}
			*events = append(*events, ev)
			b = b[n:]
		case num == 8 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			*codespace = v
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

// ResponseEndBlock returns validator set changes for the closed block.
type ResponseEndBlock struct {
	ValidatorUpdates      []ValidatorUpdate
	ConsensusParamUpdates ConsensusParams
	Events                []Event
}

func (r *ResponseEndBlock) marshal() []byte {
	var buf []byte
	for i := range r.ValidatorUpdates {
		buf = appendMessageField(buf, 1, r.ValidatorUpdates[i].marshal())
	}
	if len(r.ConsensusParamUpdates.Raw) > 0 {
		buf = appendMessageField(buf, 2, r.ConsensusParamUpdates.Raw)
	}
	for i := range r.Events {
		buf = appendMessageField(buf, 3, r.Events[i].marshal())
	}
	return buf
}

func (r *ResponseEndBlock) unmarshal(b []byte) error {
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
			var val ValidatorUpdate
			if err := val.unmarshal(body); err != nil {
				return err
			}
			r.ValidatorUpdates = append(r.ValidatorUpdates, val)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.ConsensusParamUpdates = ConsensusParams{Raw: body}
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			body, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			var ev Event
			if err := ev.unmarshal(body); err != nil {
				return err
			}
			r.Events = append(r.Events, ev)
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

// ResponseCommit returns the application hash for the committed block.
// Field 1 is reserved in the canonical schema.
type ResponseCommit struct {
	Data         []byte
	RetainHeight int64
}

func (r *ResponseCommit) marshal() []byte {
	var buf []byte
	buf = appendBytesField(buf, 2, r.Data)
	buf = appendVarintField(buf, 3, uint64(r.RetainHeight))
	return buf
}

func (r *ResponseCommit) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n, err := consumeField(b)
		if err != nil {
			return err
		}
		b = b[n:]
		switch {
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return err
			}
			r.Data = v
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.RetainHeight = int64(v)
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

// ResponseListSnapshots lists the application's snapshots.
type ResponseListSnapshots struct {
	Snapshots []Snapshot
}

func (r *ResponseListSnapshots) marshal() []byte {
	var buf []byte
	for i := range r.Snapshots {
		buf = appendMessageField(buf, 1, r.Snapshots[i].marshal())
	}
	return buf
}

func (r *ResponseListSnapshots) unmarshal(b []byte) error {
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
			var s Snapshot
			if err := s.unmarshal(body); err != nil {
				return err
			}
			r.Snapshots = append(r.Snapshots, s)
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

// OfferSnapshotResult is the application's verdict on an offered snapshot.
type OfferSnapshotResult int32

// Offer results.
const (
	OfferSnapshotUnknown      OfferSnapshotResult = 0
	OfferSnapshotAccept       OfferSnapshotResult = 1
	OfferSnapshotAbort        OfferSnapshotResult = 2
	OfferSnapshotReject       OfferSnapshotResult = 3
	OfferSnapshotRejectFormat OfferSnapshotResult = 4
	OfferSnapshotRejectSender OfferSnapshotResult = 5
)

// ResponseOfferSnapshot answers a snapshot offer.
type ResponseOfferSnapshot struct {
	Result OfferSnapshotResult
}

func (r *ResponseOfferSnapshot) marshal() []byte {
	return appendVarintField(nil, 1, uint64(r.Result))
}

func (r *ResponseOfferSnapshot) unmarshal(b []byte) error {
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
			r.Result = OfferSnapshotResult(v)
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

// ResponseLoadSnapshotChunk returns one snapshot chunk.
type ResponseLoadSnapshotChunk struct {
	Chunk []byte
}

func (r *ResponseLoadSnapshotChunk) marshal() []byte {
	return appendBytesField(nil, 1, r.Chunk)
}

func (r *ResponseLoadSnapshotChunk) unmarshal(b []byte) error {
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
			r.Chunk = v
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

// ApplySnapshotChunkResult is the application's verdict on a restored chunk.
type ApplySnapshotChunkResult int32

// Apply results.
const (
	ApplySnapshotChunkUnknown        ApplySnapshotChunkResult = 0
	ApplySnapshotChunkAccept         ApplySnapshotChunkResult = 1
	ApplySnapshotChunkAbort          ApplySnapshotChunkResult = 2
	ApplySnapshotChunkRetry          ApplySnapshotChunkResult = 3
	ApplySnapshotChunkRetrySnapshot  ApplySnapshotChunkResult = 4
	ApplySnapshotChunkRejectSnapshot ApplySnapshotChunkResult = 5
)

// ResponseApplySnapshotChunk reports the outcome of applying a chunk.
type ResponseApplySnapshotChunk struct {
	Result        ApplySnapshotChunkResult
	RefetchChunks []uint32
	RejectSenders []string
}

func (r *ResponseApplySnapshotChunk) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(r.Result))
	for _, c := range r.RefetchChunks {
		buf = appendVarintField(buf, 2, uint64(c))
	}
	for _, s := range r.RejectSenders {
		buf = appendStringField(buf, 3, s)
	}
	return buf
}

func (r *ResponseApplySnapshotChunk) unmarshal(b []byte) error {
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
			r.Result = ApplySnapshotChunkResult(v)
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return err
			}
			r.RefetchChunks = append(r.RefetchChunks, uint32(v))
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			if err != nil {
				return err
			}
			r.RejectSenders = append(r.RejectSenders, v)
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
