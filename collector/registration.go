package collector

import (
	"time"

	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/state"
)

// Registration round identifiers.
const (
	RegistrationStartupRoundID     engine.RoundID = "registration_startup"
	RegistrationRoundID            engine.RoundID = "registration"
	FinishedRegistrationRoundID    engine.RoundID = "finished_registration"
	FinishedRegistrationFFWRoundID engine.RoundID = "finished_registration_ffw"
)

// defaultTimeouts is shared by every sub-app: a regular round and a reset
// round both get thirty seconds.
func defaultTimeouts() map[engine.Event]time.Duration {
	return map[engine.Event]time.Duration{
		engine.EventRoundTimeout: 30 * time.Second,
		engine.EventResetTimeout: 30 * time.Second,
	}
}

func finalizeRegistration(r *engine.CollectionRound) (*state.PeriodState, engine.Event) {
	st := r.PeriodState().Update(map[string]any{
		KeyParticipantToRegistration: r.Collection(),
	})
	return st, engine.EventDone
}

// NewRegistrationStartupRound collects one registration from every
// participant on a cold start.
func NewRegistrationStartupRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectDifferentRound(RegistrationStartupRoundID, TxRegistration, st, finalizeRegistration)
}

// NewRegistrationRound is the re-entry registration round, reached when an
// agent rejoins a running service and needs to resync.
func NewRegistrationRound(st *state.PeriodState) engine.Round {
	return engine.NewCollectDifferentRound(RegistrationRoundID, TxRegistration, st, finalizeRegistration)
}

// RegistrationApp is the agent registration sub-app.
func RegistrationApp() *engine.AppSpec {
	return &engine.AppSpec{
		Name:         "agent_registration",
		InitialRound: RegistrationStartupRoundID,
		Rounds: map[engine.RoundID]engine.Constructor{
			RegistrationStartupRoundID:     NewRegistrationStartupRound,
			RegistrationRoundID:            NewRegistrationRound,
			FinishedRegistrationRoundID:    engine.DegenerateConstructor(FinishedRegistrationRoundID),
			FinishedRegistrationFFWRoundID: engine.DegenerateConstructor(FinishedRegistrationFFWRoundID),
		},
		Transitions: map[engine.RoundID]map[engine.Event]engine.RoundID{
			RegistrationStartupRoundID: {
				engine.EventDone: FinishedRegistrationRoundID,
			},
			RegistrationRoundID: {
				engine.EventDone: FinishedRegistrationFFWRoundID,
			},
		},
		FinalRounds: map[engine.RoundID]bool{
			FinishedRegistrationRoundID:    true,
			FinishedRegistrationFFWRoundID: true,
		},
		EventToTimeout: defaultTimeouts(),
	}
}
