package engine

// Event selects the outgoing edge of the transition graph when a round
// ends. Applications define their own events on top of the base set.
type Event string

// Base events shared by every application.
const (
	// EventDone signals regular completion of a round.
	EventDone Event = "done"

	// EventRoundTimeout is synthesized when a round exceeds its deadline.
	EventRoundTimeout Event = "round_timeout"

	// EventNoMajority signals that agreement became mathematically
	// impossible for the current round.
	EventNoMajority Event = "no_majority"

	// EventResetTimeout is synthesized when a reset round exceeds its
	// deadline.
	EventResetTimeout Event = "reset_timeout"

	// EventError signals an externally-caused failure routed through the
	// normal transition table.
	EventError Event = "error"
)
