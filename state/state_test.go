package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConsensusThreshold(t *testing.T) {
	require.Equal(t, 1, ConsensusThreshold(1))
	require.Equal(t, 2, ConsensusThreshold(2))
	require.Equal(t, 3, ConsensusThreshold(3))
	require.Equal(t, 3, ConsensusThreshold(4))
	require.Equal(t, 5, ConsensusThreshold(7))
	require.Equal(t, 7, ConsensusThreshold(10))
}

func TestUpdateDoesNotMutateParent(t *testing.T) {
	s1 := New([]string{"a", "b", "c", "d"})
	s2 := s1.Update(map[string]any{"x": 5})

	_, err := s1.GetStrict("x")
	require.Error(t, err)
	require.IsType(t, &KeyNotSetError{}, err)

	v, err := s2.GetStrict("x")
	require.NoError(t, err)
	require.Equal(t, 5, v)
}

func TestUpdateLayering(t *testing.T) {
	s1 := New(nil).Update(map[string]any{"a": 1, "b": 2})
	s2 := s1.Update(map[string]any{"b": 3})

	require.Equal(t, 1, s2.Get("a", 0))
	require.Equal(t, 3, s2.Get("b", 0))
	require.Equal(t, 2, s1.Get("b", 0))
}

func TestScrubbing(t *testing.T) {
	s1 := New(nil).Update(map[string]any{"most_voted_project": "56"})
	s2 := s1.Update(map[string]any{"most_voted_project": nil})

	_, err := s2.GetStrict("most_voted_project")
	require.Error(t, err)
	require.False(t, s2.Has("most_voted_project"))

	// The scrubbed key is still visible in the older snapshot.
	require.True(t, s1.Has("most_voted_project"))

	// Setting it again after a scrub makes it visible again.
	s3 := s2.Update(map[string]any{"most_voted_project": "57"})
	require.Equal(t, "57", s3.Get("most_voted_project", ""))
}

func TestGetDefault(t *testing.T) {
	s := New(nil)
	require.Equal(t, "fallback", s.Get("missing", "fallback"))
	require.Nil(t, s.Get("missing", nil))
}

func TestUpdateWithPeriodCount(t *testing.T) {
	s1 := New(nil)
	require.Equal(t, uint64(0), s1.PeriodCount())

	s2 := s1.UpdateWithPeriodCount(3, map[string]any{"k": "v"})
	require.Equal(t, uint64(3), s2.PeriodCount())
	require.Equal(t, uint64(0), s1.PeriodCount())

	// Plain updates carry the period count forward.
	s3 := s2.Update(map[string]any{"k2": "v2"})
	require.Equal(t, uint64(3), s3.PeriodCount())
}

func TestSortedParticipants(t *testing.T) {
	s := New([]string{"0xB", "0xa", "0xC", "0xd"})
	require.Equal(t, []string{"0xa", "0xB", "0xC", "0xd"}, s.SortedParticipants())

	// Original order preserved.
	require.Equal(t, []string{"0xB", "0xa", "0xC", "0xd"}, s.Participants())
}

func TestParticipantsCopied(t *testing.T) {
	in := []string{"a", "b"}
	s := New(in)
	in[0] = "mutated"
	require.Equal(t, []string{"a", "b"}, s.Participants())
}
