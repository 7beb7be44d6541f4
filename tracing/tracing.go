// Package tracing defines the tracing surface of the node and a no-op
// implementation. The otel subpackage provides the OpenTelemetry backend.
package tracing

import "context"

// StatusCode is the final status of a span.
type StatusCode int

// Span status codes.
const (
	StatusUnset StatusCode = iota
	StatusOK
	StatusError
)

// SpanAttribute is a key-value pair attached to a span.
type SpanAttribute struct {
	Key   string
	Value any
}

// Attr builds a span attribute.
func Attr(key string, value any) SpanAttribute {
	return SpanAttribute{Key: key, Value: value}
}

// Span is one traced operation.
type Span interface {
	End()
	SetAttribute(key string, value any)
	SetAttributes(attrs ...SpanAttribute)
	AddEvent(name string, attrs ...SpanAttribute)
	RecordError(err error)
	SetStatus(code StatusCode, description string)
	IsRecording() bool
}

// Carrier carries propagated span context across process boundaries, for
// example as gRPC metadata.
type Carrier interface {
	Get(key string) string
	Set(key, value string)
	Keys() []string
}

// MapCarrier is a Carrier backed by a plain map.
type MapCarrier map[string]string

func (c MapCarrier) Get(key string) string { return c[key] }

func (c MapCarrier) Set(key, value string) { c[key] = value }

func (c MapCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Tracer starts spans and propagates span context.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	SpanFromContext(ctx context.Context) Span
	Extract(ctx context.Context, carrier Carrier) context.Context
	Inject(ctx context.Context, carrier Carrier)
}

// NopTracer is a Tracer that records nothing.
type NopTracer struct{}

// NewNopTracer creates a no-op tracer.
func NewNopTracer() *NopTracer { return &NopTracer{} }

func (t *NopTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, nopSpan{}
}

func (t *NopTracer) SpanFromContext(ctx context.Context) Span { return nopSpan{} }

func (t *NopTracer) Extract(ctx context.Context, carrier Carrier) context.Context { return ctx }

func (t *NopTracer) Inject(ctx context.Context, carrier Carrier) {}

type nopSpan struct{}

func (nopSpan) End()                                         {}
func (nopSpan) SetAttribute(key string, value any)           {}
func (nopSpan) SetAttributes(attrs ...SpanAttribute)         {}
func (nopSpan) AddEvent(name string, attrs ...SpanAttribute) {}
func (nopSpan) RecordError(err error)                        {}
func (nopSpan) SetStatus(code StatusCode, description string) {}
func (nopSpan) IsRecording() bool                            { return false }

// Ensure NopTracer implements Tracer.
var _ Tracer = (*NopTracer)(nil)
