package eval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarkesh-labs/transcript-rag/internal/agent"
	"github.com/dwarkesh-labs/transcript-rag/internal/eval/metrics"
)

type fakeAgent struct {
	resp  agent.Response
	err   error
	delay time.Duration
}

func (f *fakeAgent) Generate(ctx context.Context, question string, params agent.Params) (agent.Response, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return agent.Response{}, ctx.Err()
		}
	}
	return f.resp, f.err
}

func TestRunSingleSuccess(t *testing.T) {
	fa := &fakeAgent{resp: agent.Response{
		Answer: "the answer",
		RetrievedChunks: []agent.RetrievedChunk{
			{ChunkID: "c1"}, {ChunkID: "c2"},
		},
		LatencyMS: 42,
		ModelUsed: "gpt-4o-mini",
	}}
	task := Task{ID: "t1", Question: "q", SourceChunkIDs: []string{"c1", "c3"}}

	result := RunSingle(context.Background(), fa, task, agent.Params{}, []int{5}, 0)

	assert.True(t, result.Success)
	assert.Equal(t, "t1", result.EvalID)
	assert.Equal(t, []string{"c1", "c2"}, result.RetrievedChunkIDs)
	require.Contains(t, result.MetricsByK, 5)
	assert.InDelta(t, 0.5, result.MetricsByK[5].RecallAtK, 1e-9)
}

func TestRunSingleAgentError(t *testing.T) {
	fa := &fakeAgent{err: errors.New("boom")}
	task := Task{ID: "t1", Question: "q", SourceChunkIDs: []string{"c1"}}

	result := RunSingle(context.Background(), fa, task, agent.Params{}, []int{5}, 0)

	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
	require.Contains(t, result.MetricsByK, 5)
	assert.Equal(t, 0.0, result.MetricsByK[5].RecallAtK)
}

func TestRunSingleTimeout(t *testing.T) {
	fa := &fakeAgent{delay: 50 * time.Millisecond}
	task := Task{ID: "t1", Question: "q", SourceChunkIDs: []string{"c1"}}

	result := RunSingle(context.Background(), fa, task, agent.Params{}, []int{5}, 5*time.Millisecond)

	assert.False(t, result.Success)
	assert.Equal(t, "timeout", result.Error)
}

func TestAggregateGroupsByDifficultyAndQuestionType(t *testing.T) {
	mk := func(recall float64) metrics.RetrievalMetrics {
		return metrics.RetrievalMetrics{RecallAtK: recall}
	}
	results := []RetrievalResult{
		{EvalID: "a", DifficultyLevel: DifficultyEasy, QuestionType: QuestionFactual, Success: true, MetricsByK: map[int]metrics.RetrievalMetrics{5: mk(1.0)}},
		{EvalID: "b", DifficultyLevel: DifficultyHard, QuestionType: QuestionOpinion, Success: true, MetricsByK: map[int]metrics.RetrievalMetrics{5: mk(0.0)}},
		{EvalID: "c", DifficultyLevel: DifficultyEasy, QuestionType: QuestionFactual, Success: false, Error: "timeout", MetricsByK: map[int]metrics.RetrievalMetrics{5: mk(0.0)}},
	}

	overall, byDifficulty, byQuestionType, errs := Aggregate(results, []int{5})

	require.Contains(t, overall, 5)
	assert.Equal(t, 3, overall[5].Count)

	require.Contains(t, byDifficulty, DifficultyEasy)
	assert.Equal(t, 2, byDifficulty[DifficultyEasy][5].Count)
	require.Contains(t, byDifficulty, DifficultyHard)
	assert.Equal(t, 1, byDifficulty[DifficultyHard][5].Count)
	assert.NotContains(t, byDifficulty, DifficultyMedium)

	require.Contains(t, byQuestionType, QuestionFactual)
	assert.Equal(t, 2, byQuestionType[QuestionFactual][5].Count)

	require.Len(t, errs, 1)
	assert.Equal(t, "c", errs[0].EvalID)
	assert.Equal(t, "timeout", errs[0].Error)
}
