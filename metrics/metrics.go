package metrics

import "time"

// Metrics is the instrumentation surface of the node. Implementations must
// be safe for concurrent use.
type Metrics interface {
	// Wire and channel metrics
	IncFramesDecoded(kind string)
	IncDecodeErrors(reason string)
	IncRequestsReceived(kind string)
	IncResponsesSent(kind string)
	ObserveMessageSize(kind string, size int)
	ObserveRequestLatency(kind string, latency time.Duration)
	SetConnectionsActive(count int)
	IncConnections(result string)
	IncDisconnections(reason string)
	SetQueueDepth(depth int)

	// Round and period metrics
	IncRoundTransitions(event string)
	IncTimeoutsFired(event string)
	SetPeriodCount(count uint64)

	// Block metrics
	SetBlockHeight(height int64)
	IncBlocksCommitted()
	SetBlockSize(size int)
	IncTxsDelivered()
	IncTxsRejected(reason string)

	// Block store metrics
	IncStoreSaves()
	ObserveStoreLatency(op string, latency time.Duration)

	// Handler returns an HTTP handler serving the metrics, or nil.
	Handler() any
}
