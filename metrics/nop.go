package metrics

import (
	"time"
)

// NopMetrics is a no-op implementation of the Metrics interface.
// Use this when metrics collection is disabled.
type NopMetrics struct{}

// NewNopMetrics creates a new NopMetrics instance.
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// Wire metrics (no-op)

func (m *NopMetrics) IncFramesDecoded(kind string)              {}
func (m *NopMetrics) IncDecodeErrors(reason string)             {}
func (m *NopMetrics) ObserveMessageSize(kind string, size int)  {}

// Channel metrics (no-op)

func (m *NopMetrics) IncRequestsReceived(kind string)                            {}
func (m *NopMetrics) IncResponsesSent(kind string)                               {}
func (m *NopMetrics) ObserveRequestLatency(kind string, latency time.Duration)   {}
func (m *NopMetrics) SetConnectionsActive(count int)                             {}
func (m *NopMetrics) IncConnections(result string)                               {}
func (m *NopMetrics) IncDisconnections(reason string)                            {}
func (m *NopMetrics) SetQueueDepth(depth int)                                    {}

// Round metrics (no-op)

func (m *NopMetrics) IncRoundTransitions(event string) {}
func (m *NopMetrics) IncTimeoutsFired(event string)    {}
func (m *NopMetrics) SetPeriodCount(count uint64)      {}

// Block metrics (no-op)

func (m *NopMetrics) SetBlockHeight(height int64)  {}
func (m *NopMetrics) IncBlocksCommitted()          {}
func (m *NopMetrics) SetBlockSize(size int)        {}
func (m *NopMetrics) IncTxsDelivered()             {}
func (m *NopMetrics) IncTxsRejected(reason string) {}

// Block store metrics (no-op)

func (m *NopMetrics) IncStoreSaves()                                        {}
func (m *NopMetrics) ObserveStoreLatency(op string, latency time.Duration)  {}

// Handler returns nil since there's nothing to serve.
func (m *NopMetrics) Handler() any {
	return nil
}
