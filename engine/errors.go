package engine

import (
	"errors"
	"fmt"
)

// Errors raised while validating and processing transactions and blocks.
// Transaction errors surface through check-tx/deliver-tx responses; internal
// errors indicate a consensus/application mismatch and are surfaced loudly.
var (
	// ErrTransactionTypeNotRecognized is returned when a transaction carries
	// a payload type the current round does not accept.
	ErrTransactionTypeNotRecognized = errors.New("transaction type not recognized")

	// ErrTransactionNotValid is returned when a transaction cannot be applied
	// to the current round (double vote, unknown sender, keeper mismatch).
	ErrTransactionNotValid = errors.New("transaction not valid")

	// ErrSignatureNotValid is returned when a transaction's signature is
	// missing or malformed.
	ErrSignatureNotValid = errors.New("signature not valid")

	// ErrInternal indicates a bad application implementation, such as asking
	// for the most voted payload before the threshold is reached.
	ErrInternal = errors.New("internal error")

	// ErrPeriodFinished is returned when a request arrives after the app
	// has reached a dead end.
	ErrPeriodFinished = errors.New("period is finished")
)

// ConfigError reports an inconsistent transition graph. It is raised at
// construction time, before any round runs.
type ConfigError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "invalid app configuration: " + e.Reason
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// AddBlockError reports a block appended out of height order.
type AddBlockError struct {
	Expected int64
	Got      int64
}

// Error implements the error interface.
func (e *AddBlockError) Error() string {
	return fmt.Sprintf("expected block of height %d, got %d", e.Expected, e.Got)
}

// PhaseError reports a consensus request arriving outside its phase of the
// block construction cycle.
type PhaseError struct {
	Request string
	Phase   BlockPhase
}

// Error implements the error interface.
func (e *PhaseError) Error() string {
	return fmt.Sprintf("cannot accept a %q request in phase %q", e.Request, e.Phase)
}
