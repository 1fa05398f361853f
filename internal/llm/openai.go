// Package llm wraps langchaingo's chat model interface for the two call
// shapes the agents need: a plain synthesis call, and a tool-calling call
// that lets the model invoke the multi-query retrieval tool.
package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
)

// Usage mirrors the token accounting spec.md §4.7 requires on every
// AgentResponse.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ToolCall is a single function-call the model asked the caller to
// execute, with its arguments kept as the raw JSON the model produced;
// callers decode Arguments themselves.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ChatResponse is what both Chat and ChatWithTools return: either a
// final text answer, or — when WithTools was used and the model chose to
// call one — a non-empty ToolCalls slice with no answer text yet.
type ChatResponse struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}

// Turn is one prior message to replay before the current user message,
// letting a caller reject a malformed tool call and retry within the
// same conversation instead of opening a fresh one.
type Turn struct {
	Role    string // "assistant" or "user"
	Content string
}

// Client is the interface both agents depend on.
type Client interface {
	// Chat runs a plain system+user completion with no tools available.
	Chat(ctx context.Context, systemPrompt, userMessage string) (ChatResponse, error)
	// ChatWithTools runs a completion offering the given tool, returning
	// either a final answer or the tool call(s) the model chose to make.
	// Any history turns are replayed, in order, between the system prompt
	// and userMessage.
	ChatWithTools(ctx context.Context, systemPrompt, userMessage string, tool ToolSpec, history ...Turn) (ChatResponse, error)
	ModelName() string
}

// ToolSpec describes a single callable tool in OpenAI function-calling
// shape (the only shape the multi-query agent needs — one tool, JSON
// schema parameters).
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// OpenAIClient is the langchaingo-backed implementation of Client.
type OpenAIClient struct {
	model llms.Model
	name  string
}

// NewOpenAIClient builds a chat client for the given model name, failing
// fast on provider init errors the way embedding.NewOpenAIEmbedder does.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	m, err := lcopenai.New(
		lcopenai.WithToken(apiKey),
		lcopenai.WithModel(model),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.LLMUnavailable, "init openai chat client", err)
	}
	return &OpenAIClient{model: m, name: model}, nil
}

func (c *OpenAIClient) ModelName() string { return c.name }

func (c *OpenAIClient) Chat(ctx context.Context, systemPrompt, userMessage string) (ChatResponse, error) {
	return c.call(ctx, systemPrompt, userMessage, nil, nil)
}

func (c *OpenAIClient) ChatWithTools(ctx context.Context, systemPrompt, userMessage string, tool ToolSpec, history ...Turn) (ChatResponse, error) {
	return c.call(ctx, systemPrompt, userMessage, &tool, history)
}

func (c *OpenAIClient) call(ctx context.Context, systemPrompt, userMessage string, tool *ToolSpec, history []Turn) (ChatResponse, error) {
	messages := make([]llms.MessageContent, 0, len(history)+3)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userMessage))

	opts := []llms.CallOption{llms.WithTemperature(0)}
	if tool != nil {
		opts = append(opts, llms.WithTools([]llms.Tool{{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}}))
	}

	callCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, 120*time.Second)
		defer cancel()
	}

	resp, err := c.model.GenerateContent(callCtx, messages, opts...)
	if err != nil {
		return ChatResponse{}, apperr.Wrap(apperr.LLMUnavailable, "chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, apperr.New(apperr.LLMUnavailable, "chat completion returned no choices")
	}

	choice := resp.Choices[0]
	usage := extractUsage(resp.Choices[0].GenerationInfo)

	out := ChatResponse{Text: choice.Content, Usage: usage}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: json.RawMessage(tc.FunctionCall.Arguments),
		})
	}
	return out, nil
}

func extractUsage(info map[string]any) Usage {
	asInt := func(key string) int {
		v, ok := info[key]
		if !ok {
			return 0
		}
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
		return 0
	}
	prompt := asInt("PromptTokens")
	completion := asInt("CompletionTokens")
	total := asInt("TotalTokens")
	if total == 0 {
		total = prompt + completion
	}
	return Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}
