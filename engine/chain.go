package engine

import "time"

// AppSpec declares a round-based application: which rounds exist, how events
// move between them, which rounds are terminal, and which events carry a
// timeout.
type AppSpec struct {
	Name           string
	InitialRound   RoundID
	Rounds         map[RoundID]Constructor
	Transitions    map[RoundID]map[Event]RoundID
	FinalRounds    map[RoundID]bool
	EventToTimeout map[Event]time.Duration
}

// Validate checks the transition graph for structural defects. The checks
// mirror what NewAbciApp enforces so composed specs fail fast too.
func (s *AppSpec) Validate() error {
	if s.InitialRound == "" {
		return configErrorf("app %q has no initial round", s.Name)
	}
	if _, ok := s.Transitions[s.InitialRound]; !ok {
		return configErrorf("app %q: initial round %q is not a source in the transition graph",
			s.Name, s.InitialRound)
	}
	if s.FinalRounds[s.InitialRound] {
		return configErrorf("app %q: initial round %q cannot be final", s.Name, s.InitialRound)
	}
	for event := range s.Transitions[s.InitialRound] {
		if _, timed := s.EventToTimeout[event]; timed {
			return configErrorf("app %q: initial round %q has timed event %q in its outgoing transitions",
				s.Name, s.InitialRound, event)
		}
	}
	for round, edges := range s.Transitions {
		if _, ok := s.Rounds[round]; !ok {
			return configErrorf("app %q: round %q has transitions but no constructor", s.Name, round)
		}
		for event, target := range edges {
			if _, ok := s.Rounds[target]; !ok {
				return configErrorf("app %q: round %q event %q targets unknown round %q",
					s.Name, round, event, target)
			}
		}
	}
	for final := range s.FinalRounds {
		if _, ok := s.Rounds[final]; !ok {
			return configErrorf("app %q: final round %q has no constructor", s.Name, final)
		}
		if edges := s.Transitions[final]; len(edges) > 0 {
			return configErrorf("app %q: final round %q must not have outgoing transitions",
				s.Name, final)
		}
	}
	return nil
}

// Chain composes applications into one by gluing final rounds of one app to
// rounds of another. mapping keys are final rounds to splice out; values
// are the rounds that replace them, usually an app's initial round but any
// non-spliced round works (a re-entry round, say). Edges into a spliced
// final round are rewritten to its replacement, and the spliced finals are
// dropped from the merged final set.
func Chain(name string, apps []*AppSpec, mapping map[RoundID]RoundID) (*AppSpec, error) {
	if len(apps) == 0 {
		return nil, configErrorf("chain %q: no apps to compose", name)
	}

	merged := &AppSpec{
		Name:           name,
		InitialRound:   apps[0].InitialRound,
		Rounds:         make(map[RoundID]Constructor),
		Transitions:    make(map[RoundID]map[Event]RoundID),
		FinalRounds:    make(map[RoundID]bool),
		EventToTimeout: make(map[Event]time.Duration),
	}

	allFinals := make(map[RoundID]bool)
	for _, app := range apps {
		for round, ctor := range app.Rounds {
			if existing, ok := merged.Rounds[round]; ok && existing != nil {
				return nil, configErrorf("chain %q: round %q defined by more than one app", name, round)
			}
			merged.Rounds[round] = ctor
		}
		for round, edges := range app.Transitions {
			if _, ok := merged.Transitions[round]; ok {
				return nil, configErrorf("chain %q: round %q is a transition source in more than one app",
					name, round)
			}
			copied := make(map[Event]RoundID, len(edges))
			for event, target := range edges {
				copied[event] = target
			}
			merged.Transitions[round] = copied
		}
		for final := range app.FinalRounds {
			allFinals[final] = true
		}
		for event, timeout := range app.EventToTimeout {
			merged.EventToTimeout[event] = timeout
		}
	}

	for final, target := range mapping {
		if !allFinals[final] {
			return nil, configErrorf("chain %q: mapping source %q is not a final round of any app",
				name, final)
		}
		if _, ok := merged.Rounds[target]; !ok {
			return nil, configErrorf("chain %q: mapping target %q is not a round of any app",
				name, target)
		}
		if _, spliced := mapping[target]; spliced {
			return nil, configErrorf("chain %q: mapping target %q is itself spliced out",
				name, target)
		}
	}

	// Rewrite every edge into a spliced final round to its replacement.
	for _, edges := range merged.Transitions {
		for event, target := range edges {
			if replacement, ok := mapping[target]; ok {
				edges[event] = replacement
			}
		}
	}

	// Spliced finals disappear from the graph entirely.
	for final := range allFinals {
		if _, spliced := mapping[final]; spliced {
			delete(merged.Rounds, final)
			delete(merged.Transitions, final)
			continue
		}
		merged.FinalRounds[final] = true
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
