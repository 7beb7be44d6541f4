package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/state"
)

// threeRoundSpec builds a minimal app: entry -> work -> finished, where the
// work round re-enters itself on a timeout.
func threeRoundSpec() *AppSpec {
	return &AppSpec{
		Name:         "test_app",
		InitialRound: "entry_round",
		Rounds: map[RoundID]Constructor{
			"entry_round":    DegenerateConstructor("entry_round"),
			"work_round":     DegenerateConstructor("work_round"),
			"finished_round": DegenerateConstructor("finished_round"),
		},
		Transitions: map[RoundID]map[Event]RoundID{
			"entry_round": {
				EventDone: "work_round",
			},
			"work_round": {
				EventDone:         "finished_round",
				EventRoundTimeout: "work_round",
			},
		},
		FinalRounds: map[RoundID]bool{"finished_round": true},
		EventToTimeout: map[Event]time.Duration{
			EventRoundTimeout: 30 * time.Second,
		},
	}
}

func TestAppSpecValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppSpec)
	}{
		{"missing initial round", func(s *AppSpec) { s.InitialRound = "" }},
		{"initial round without transitions", func(s *AppSpec) { s.InitialRound = "finished_round" }},
		{"initial round is final", func(s *AppSpec) { s.FinalRounds["entry_round"] = true }},
		{"timed event out of initial round", func(s *AppSpec) {
			s.EventToTimeout[EventDone] = time.Second
		}},
		{"transition to unknown round", func(s *AppSpec) {
			s.Transitions["work_round"][EventError] = "ghost_round"
		}},
		{"final round with outgoing transitions", func(s *AppSpec) {
			s.Transitions["finished_round"] = map[Event]RoundID{EventDone: "entry_round"}
		}},
		{"transition source without constructor", func(s *AppSpec) {
			delete(s.Rounds, "work_round")
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec := threeRoundSpec()
			tc.mutate(spec)
			var confErr *ConfigError
			require.ErrorAs(t, spec.Validate(), &confErr)
		})
	}
	require.NoError(t, threeRoundSpec().Validate())
}

func TestAbciAppTransitions(t *testing.T) {
	st := state.New([]string{"agent0", "agent1"})
	app, err := NewAbciApp(threeRoundSpec(), st, logging.NewNopLogger())
	require.NoError(t, err)
	app.Setup()

	require.Equal(t, RoundID("entry_round"), app.CurrentRoundID())
	require.Equal(t, 0, app.CurrentRoundHeight())
	require.Same(t, st, app.State())

	updated := st.Update(map[string]any{"k": "v"})
	app.ProcessEvent(EventDone, updated)
	require.Equal(t, RoundID("work_round"), app.CurrentRoundID())
	require.Equal(t, RoundID("entry_round"), app.LastRoundID())
	require.Equal(t, 1, app.CurrentRoundHeight())
	require.Same(t, updated, app.State())

	// A nil result carries the previous state forward.
	app.ProcessEvent(EventDone, nil)
	require.Equal(t, RoundID("finished_round"), app.CurrentRoundID())
	require.Same(t, updated, app.State())
}

func TestAbciAppDeadEnd(t *testing.T) {
	st := state.New([]string{"agent0"})
	app, err := NewAbciApp(threeRoundSpec(), st, logging.NewNopLogger())
	require.NoError(t, err)
	app.Setup()

	// The entry round has no edge for an error event.
	app.ProcessEvent(EventError, nil)
	require.True(t, app.IsFinished())
	require.Equal(t, RoundID(""), app.CurrentRoundID())

	tx := NewTransaction(NewPayload("agent0", "observation", nil), "sig")
	require.ErrorIs(t, app.CheckTransaction(tx), ErrPeriodFinished)
	require.ErrorIs(t, app.ProcessTransaction(tx), ErrPeriodFinished)

	// Further events are ignored rather than panicking.
	app.ProcessEvent(EventDone, nil)
	require.True(t, app.IsFinished())
}

func TestAbciAppTimeoutsFireFromBlockTime(t *testing.T) {
	base := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	st := state.New([]string{"agent0"})
	app, err := NewAbciApp(threeRoundSpec(), st, logging.NewNopLogger())
	require.NoError(t, err)
	app.Setup()

	_, err = app.LastTimestamp()
	require.ErrorIs(t, err, ErrInternal)

	app.UpdateTime(base)
	app.ProcessEvent(EventDone, nil) // enter work_round, deadline at base+30s

	// The block at base+95s expires three cascading deadlines: the rewind
	// to each expired deadline re-arms the next one 30s later, at base+30,
	// base+60, and base+90.
	app.UpdateTime(base.Add(95 * time.Second))
	require.Equal(t, RoundID("work_round"), app.CurrentRoundID())
	require.Equal(t, 4, app.CurrentRoundHeight())

	ts, err := app.LastTimestamp()
	require.NoError(t, err)
	require.Equal(t, base.Add(95*time.Second), ts)
}

func TestAbciAppTimeoutCancelledBySwitchingRound(t *testing.T) {
	base := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	st := state.New([]string{"agent0"})
	app, err := NewAbciApp(threeRoundSpec(), st, logging.NewNopLogger())
	require.NoError(t, err)
	app.Setup()

	app.UpdateTime(base)
	app.ProcessEvent(EventDone, nil) // work_round, timeout armed
	app.ProcessEvent(EventDone, nil) // finished_round, timeout cancelled

	app.UpdateTime(base.Add(time.Hour))
	require.Equal(t, RoundID("finished_round"), app.CurrentRoundID())
	require.Equal(t, 2, app.CurrentRoundHeight())
}

func TestChainComposition(t *testing.T) {
	first := &AppSpec{
		Name:         "first",
		InitialRound: "a_round",
		Rounds: map[RoundID]Constructor{
			"a_round":        DegenerateConstructor("a_round"),
			"finished_first": DegenerateConstructor("finished_first"),
		},
		Transitions: map[RoundID]map[Event]RoundID{
			"a_round": {EventDone: "finished_first"},
		},
		FinalRounds: map[RoundID]bool{"finished_first": true},
	}
	second := &AppSpec{
		Name:         "second",
		InitialRound: "b_round",
		Rounds: map[RoundID]Constructor{
			"b_round":         DegenerateConstructor("b_round"),
			"finished_second": DegenerateConstructor("finished_second"),
		},
		Transitions: map[RoundID]map[Event]RoundID{
			"b_round": {EventDone: "finished_second"},
		},
		FinalRounds: map[RoundID]bool{"finished_second": true},
		EventToTimeout: map[Event]time.Duration{
			EventRoundTimeout: 30 * time.Second,
		},
	}

	merged, err := Chain("composed", []*AppSpec{first, second}, map[RoundID]RoundID{
		"finished_first": "b_round",
	})
	require.NoError(t, err)

	require.Equal(t, RoundID("a_round"), merged.InitialRound)
	require.Equal(t, RoundID("b_round"), merged.Transitions["a_round"][EventDone])
	require.NotContains(t, merged.Rounds, RoundID("finished_first"))
	require.Equal(t, map[RoundID]bool{"finished_second": true}, merged.FinalRounds)
	require.Equal(t, 30*time.Second, merged.EventToTimeout[EventRoundTimeout])
}

func TestChainRejectsBadMapping(t *testing.T) {
	app := threeRoundSpec()

	_, err := Chain("composed", []*AppSpec{app}, map[RoundID]RoundID{
		"work_round": "entry_round",
	})
	var confErr *ConfigError
	require.ErrorAs(t, err, &confErr)

	_, err = Chain("composed", []*AppSpec{app}, map[RoundID]RoundID{
		"finished_round": "ghost_round",
	})
	require.ErrorAs(t, err, &confErr)

	_, err = Chain("composed", nil, nil)
	require.ErrorAs(t, err, &confErr)
}
