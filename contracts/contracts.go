// Package contracts defines the capability domain strategies use to talk
// to on-chain contracts. Implementations are deployment specific; the
// rounds consume the interface opaquely and never interpret call bodies.
package contracts

import (
	"context"
	"fmt"
)

// CallRequest names a contract callable and its keyword arguments.
type CallRequest struct {
	// Address is the target contract address.
	Address string

	// Callable is the method to invoke.
	Callable string

	// Kwargs are the named call arguments.
	Kwargs map[string]any
}

// CallResponse carries the raw response body of a contract call.
type CallResponse struct {
	Body map[string]any
}

// CallError reports a failed contract call.
type CallError struct {
	Address  string
	Callable string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("contract call %s.%s failed: %v", e.Address, e.Callable, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Client performs contract calls.
type Client interface {
	Call(ctx context.Context, req CallRequest) (CallResponse, error)
}
