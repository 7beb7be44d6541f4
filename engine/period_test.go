package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/state"
)

// observationSpec builds a one-step app that agrees on an observed project.
func observationSpec() *AppSpec {
	finalize := func(r *CollectSameUntilThresholdRound, agreed map[string]any) (*state.PeriodState, Event) {
		return r.PeriodState().Update(map[string]any{
			"most_voted_project": agreed["project_id"],
		}), EventDone
	}
	return &AppSpec{
		Name:         "observation_app",
		InitialRound: "observation_round",
		Rounds: map[RoundID]Constructor{
			"observation_round": func(st *state.PeriodState) Round {
				return NewCollectSameRound("observation_round", "observation", st, finalize)
			},
			"finished_round": DegenerateConstructor("finished_round"),
		},
		Transitions: map[RoundID]map[Event]RoundID{
			"observation_round": {EventDone: "finished_round"},
		},
		FinalRounds: map[RoundID]bool{"finished_round": true},
	}
}

type memoryArchive struct {
	blocks []*Block
	err    error
}

func (a *memoryArchive) SaveBlock(block *Block) error {
	if a.err != nil {
		return a.err
	}
	a.blocks = append(a.blocks, block)
	return nil
}

func header(height int64, ts time.Time) BlockHeader {
	return BlockHeader{Height: height, Time: ts, ChainID: "test-chain"}
}

func TestPeriodBlockCycle(t *testing.T) {
	base := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	archive := &memoryArchive{}
	period := NewPeriod(observationSpec(), logging.NewNopLogger(), WithArchiver(archive))
	require.NoError(t, period.Setup(state.New([]string{"agent0", "agent1", "agent2", "agent3"})))

	require.Equal(t, WaitingForBeginBlock, period.Phase())
	_, ok := period.LastTimestamp()
	require.False(t, ok)

	require.NoError(t, period.BeginBlock(header(1, base)))
	for _, sender := range []string{"agent0", "agent1", "agent2"} {
		payload := NewPayload(sender, "observation", map[string]any{"project_id": 56})
		tx := NewTransaction(payload, "sig")
		require.NoError(t, period.CheckTx(tx))
		require.NoError(t, period.DeliverTx(tx))
	}
	require.NoError(t, period.EndBlock())
	require.NoError(t, period.Commit())

	require.Equal(t, RoundID("finished_round"), period.CurrentRoundID())
	require.Equal(t, RoundID("observation_round"), period.LastRoundID())
	require.Equal(t, int64(1), period.Height())
	require.EqualValues(t, 56, period.LatestResult().Get("most_voted_project", nil))

	ts, ok := period.LastTimestamp()
	require.True(t, ok)
	require.Equal(t, base, ts)

	require.Len(t, archive.blocks, 1)
	require.Len(t, archive.blocks[0].Transactions, 3)
}

func TestPeriodPhaseEnforcement(t *testing.T) {
	base := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	period := NewPeriod(observationSpec(), nil)
	require.NoError(t, period.Setup(state.New([]string{"agent0"})))

	tx := NewTransaction(NewPayload("agent0", "observation", map[string]any{"project_id": 1}), "sig")

	var phaseErr *PhaseError
	require.ErrorAs(t, period.DeliverTx(tx), &phaseErr)
	require.ErrorAs(t, period.EndBlock(), &phaseErr)
	require.ErrorAs(t, period.Commit(), &phaseErr)

	require.NoError(t, period.BeginBlock(header(1, base)))
	require.ErrorAs(t, period.BeginBlock(header(1, base)), &phaseErr)
	require.ErrorAs(t, period.Commit(), &phaseErr)

	require.NoError(t, period.EndBlock())
	require.ErrorAs(t, period.DeliverTx(tx), &phaseErr)
	require.NoError(t, period.Commit())
}

func TestPeriodRejectsNonContiguousHeights(t *testing.T) {
	base := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	period := NewPeriod(observationSpec(), nil)
	require.NoError(t, period.Setup(state.New([]string{"agent0"})))

	require.NoError(t, period.BeginBlock(header(3, base)))
	require.NoError(t, period.EndBlock())

	var addErr *AddBlockError
	require.ErrorAs(t, period.Commit(), &addErr)
	require.Equal(t, int64(1), addErr.Expected)
	require.Equal(t, int64(3), addErr.Got)
	require.Equal(t, int64(0), period.Height())
}

func TestPeriodRejectsBadTransactions(t *testing.T) {
	base := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	period := NewPeriod(observationSpec(), nil)
	require.NoError(t, period.Setup(state.New([]string{"agent0", "agent1", "agent2", "agent3"})))
	require.NoError(t, period.BeginBlock(header(1, base)))

	wrongType := NewTransaction(NewPayload("agent0", "decision", map[string]any{"decision": 1}), "sig")
	require.ErrorIs(t, period.DeliverTx(wrongType), ErrTransactionTypeNotRecognized)

	stranger := NewTransaction(NewPayload("nobody", "observation", map[string]any{"project_id": 1}), "sig")
	require.ErrorIs(t, period.CheckTx(stranger), ErrTransactionNotValid)

	unsigned := NewTransaction(NewPayload("agent0", "observation", map[string]any{"project_id": 1}), "")
	require.ErrorIs(t, period.DeliverTx(unsigned), ErrSignatureNotValid)
}

func TestPeriodArchiveFailureDoesNotStallConsensus(t *testing.T) {
	base := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	archive := &memoryArchive{err: ErrInternal}
	period := NewPeriod(observationSpec(), logging.NewNopLogger(), WithArchiver(archive))
	require.NoError(t, period.Setup(state.New([]string{"agent0"})))

	require.NoError(t, period.BeginBlock(header(1, base)))
	require.NoError(t, period.EndBlock())
	require.NoError(t, period.Commit())
	require.Equal(t, int64(1), period.Height())
}
