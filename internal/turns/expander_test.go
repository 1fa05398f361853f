package turns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarkesh-labs/transcript-rag/internal/store"
)

func TestGroupTurnsByMaxScoreUsesPerTurnMaxNotGlobalMax(t *testing.T) {
	// t1 is referenced by c1 (score 0.2) and c2 (score 0.9): its score
	// should be 0.9, not some value pulled from t2's own chunk.
	// t2 is referenced only by c3 (score 0.4): its score must stay 0.4,
	// not the global max (0.9) across every input chunk.
	turnRows := []store.TurnWithDoc{
		{Turn: store.Turn{ID: "t1", DocID: "d1"}, ChunkID: "c1"},
		{Turn: store.Turn{ID: "t1", DocID: "d1"}, ChunkID: "c2"},
		{Turn: store.Turn{ID: "t2", DocID: "d1"}, ChunkID: "c3"},
	}
	bestScoreByChunk := map[string]float64{"c1": 0.2, "c2": 0.9, "c3": 0.4}

	views := groupTurnsByMaxScore(turnRows, bestScoreByChunk)

	byID := make(map[string]View, len(views))
	for _, v := range views {
		byID[v.TurnID] = v
	}
	require.Contains(t, byID, "t1")
	require.Contains(t, byID, "t2")
	assert.InDelta(t, 0.9, byID["t1"].Score, 1e-9)
	assert.InDelta(t, 0.4, byID["t2"].Score, 1e-9)
}

func TestGroupTurnsByMaxScoreDedupesToOneViewPerTurn(t *testing.T) {
	turnRows := []store.TurnWithDoc{
		{Turn: store.Turn{ID: "t1"}, ChunkID: "c1"},
		{Turn: store.Turn{ID: "t1"}, ChunkID: "c2"},
	}
	views := groupTurnsByMaxScore(turnRows, map[string]float64{"c1": 0.1, "c2": 0.2})
	assert.Len(t, views, 1)
}

func TestAssembleUnderBudgetStopsAtFirstOverflow(t *testing.T) {
	views := []View{
		{TurnID: "t1", TokenCount: 400, Score: 0.9},
		{TurnID: "t2", TokenCount: 400, Score: 0.8},
		{TurnID: "t3", TokenCount: 400, Score: 0.7},
	}

	out := assembleUnderBudget(views, 900)

	require.Len(t, out, 2)
	assert.Equal(t, "t1", out[0].TurnID)
	assert.Equal(t, "t2", out[1].TurnID)
}

func TestAssembleUnderBudgetIncludesPrecedingQuestionCost(t *testing.T) {
	question := "what do you make of that?"
	views := []View{
		{TurnID: "t1", TokenCount: 300, Score: 1.0, PrecedingQuestion: &question, precedingTokens: 150},
		{TurnID: "t2", TokenCount: 300, Score: 0.9},
	}

	out := assembleUnderBudget(views, 500)

	require.Len(t, out, 1)
	assert.Equal(t, "t1", out[0].TurnID)
}

func TestAssembleUnderBudgetAllFit(t *testing.T) {
	views := []View{
		{TurnID: "t1", TokenCount: 100},
		{TurnID: "t2", TokenCount: 100},
	}

	out := assembleUnderBudget(views, 1000)

	assert.Len(t, out, 2)
}

func TestAssembleUnderBudgetEmptyInput(t *testing.T) {
	assert.Empty(t, assembleUnderBudget(nil, 1000))
}
