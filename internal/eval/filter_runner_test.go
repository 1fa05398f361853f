package eval

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarkesh-labs/transcript-rag/internal/eval/metrics"
	"github.com/dwarkesh-labs/transcript-rag/internal/llm"
)

type fakeLLM struct {
	resp llm.ChatResponse
	err  error
}

func (f *fakeLLM) Chat(ctx context.Context, systemPrompt, userMessage string) (llm.ChatResponse, error) {
	return f.resp, f.err
}

func (f *fakeLLM) ChatWithTools(ctx context.Context, systemPrompt, userMessage string, tool llm.ToolSpec, history ...llm.Turn) (llm.ChatResponse, error) {
	return f.resp, f.err
}

func (f *fakeLLM) ModelName() string { return "fake-model" }

func toolCallArgs(t *testing.T, args map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return raw
}

func TestFilterHarnessRunExtractsSpeaker(t *testing.T) {
	fl := &fakeLLM{resp: llm.ChatResponse{
		ToolCalls: []llm.ToolCall{
			{Name: filterToolName, Arguments: toolCallArgs(t, map[string]any{
				"query":   "What has Elon Musk said about AI?",
				"speaker": "Elon Musk",
			})},
		},
	}}
	h := &FilterHarness{LLM: fl}
	c := FilterCase{ID: "speaker_001", Query: "What has Elon Musk said about AI?", Expected: metrics.ExpectedFilters{Speaker: strpTest("Elon Musk")}}

	result := h.Run(context.Background(), c)

	require.NotNil(t, result.Applied.Speaker)
	assert.Equal(t, "Elon Musk", *result.Applied.Speaker)
	assert.True(t, result.OverallMatch)
	require.Len(t, result.ToolCalls, 1)
}

func TestFilterHarnessRunNoToolCallLeavesFiltersEmpty(t *testing.T) {
	fl := &fakeLLM{resp: llm.ChatResponse{Text: "no tools called"}}
	h := &FilterHarness{LLM: fl}
	c := FilterCase{ID: "no_speaker_001", Query: "What are the main arguments?", Expected: metrics.ExpectedFilters{}}

	result := h.Run(context.Background(), c)

	assert.Nil(t, result.Applied.Speaker)
	assert.True(t, result.OverallMatch)
}

func TestFilterHarnessRunPropagatesError(t *testing.T) {
	fl := &fakeLLM{err: assertError{"llm unavailable"}}
	h := &FilterHarness{LLM: fl}
	result := h.Run(context.Background(), FilterCase{ID: "x", Query: "q"})
	assert.Equal(t, "llm unavailable", result.Error)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func strpTest(s string) *string { return &s }
