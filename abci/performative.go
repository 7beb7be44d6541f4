package abci

// Performative identifies the intent of a protocol message: one of the
// consensus engine's request kinds or the application's matching response.
type Performative string

// Request performatives, one per consensus engine request kind.
const (
	RequestEcho               Performative = "request_echo"
	RequestFlush              Performative = "request_flush"
	RequestInfo               Performative = "request_info"
	RequestSetOption          Performative = "request_set_option"
	RequestInitChain          Performative = "request_init_chain"
	RequestQuery              Performative = "request_query"
	RequestBeginBlock         Performative = "request_begin_block"
	RequestCheckTx            Performative = "request_check_tx"
	RequestDeliverTx          Performative = "request_deliver_tx"
	RequestEndBlock           Performative = "request_end_block"
	RequestCommit             Performative = "request_commit"
	RequestListSnapshots      Performative = "request_list_snapshots"
	RequestOfferSnapshot      Performative = "request_offer_snapshot"
	RequestLoadSnapshotChunk  Performative = "request_load_snapshot_chunk"
	RequestApplySnapshotChunk Performative = "request_apply_snapshot_chunk"
)

// Response performatives.
const (
	ResponseException          Performative = "response_exception"
	ResponseEcho               Performative = "response_echo"
	ResponseFlush              Performative = "response_flush"
	ResponseInfo               Performative = "response_info"
	ResponseSetOption          Performative = "response_set_option"
	ResponseInitChain          Performative = "response_init_chain"
	ResponseQuery              Performative = "response_query"
	ResponseBeginBlock         Performative = "response_begin_block"
	ResponseCheckTx            Performative = "response_check_tx"
	ResponseDeliverTx          Performative = "response_deliver_tx"
	ResponseEndBlock           Performative = "response_end_block"
	ResponseCommit             Performative = "response_commit"
	ResponseListSnapshots      Performative = "response_list_snapshots"
	ResponseOfferSnapshot      Performative = "response_offer_snapshot"
	ResponseLoadSnapshotChunk  Performative = "response_load_snapshot_chunk"
	ResponseApplySnapshotChunk Performative = "response_apply_snapshot_chunk"
)

// expectedResponse pairs each request performative with the response that
// answers it. ResponseException answers any request.
var expectedResponse = map[Performative]Performative{
	RequestEcho:               ResponseEcho,
	RequestFlush:              ResponseFlush,
	RequestInfo:               ResponseInfo,
	RequestSetOption:          ResponseSetOption,
	RequestInitChain:          ResponseInitChain,
	RequestQuery:              ResponseQuery,
	RequestBeginBlock:         ResponseBeginBlock,
	RequestCheckTx:            ResponseCheckTx,
	RequestDeliverTx:          ResponseDeliverTx,
	RequestEndBlock:           ResponseEndBlock,
	RequestCommit:             ResponseCommit,
	RequestListSnapshots:      ResponseListSnapshots,
	RequestOfferSnapshot:      ResponseOfferSnapshot,
	RequestLoadSnapshotChunk:  ResponseLoadSnapshotChunk,
	RequestApplySnapshotChunk: ResponseApplySnapshotChunk,
}

// IsRequest reports whether the performative is a request kind.
func (p Performative) IsRequest() bool {
	_, ok := expectedResponse[p]
	return ok
}

// IsResponse reports whether the performative is a response kind.
func (p Performative) IsResponse() bool {
	if p == ResponseException {
		return true
	}
	for _, resp := range expectedResponse {
		if resp == p {
			return true
		}
	}
	return false
}

// Answers reports whether the performative is a valid reply to the given
// request performative.
func (p Performative) Answers(request Performative) bool {
	return p == ResponseException || expectedResponse[request] == p
}
