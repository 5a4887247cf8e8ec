// Package agent answers chat messages about the book review dataset. With a
// model configured it runs a chat completion loop where the model may call
// the registered tools; without one it falls back to keyword routing so the
// chat surface keeps working offline.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bookwise/bookwise/internal/observability"
	"github.com/bookwise/bookwise/internal/router"
	"github.com/bookwise/bookwise/internal/tools"
)

// maxToolRounds bounds the completion loop so a model that keeps requesting
// tools cannot spin forever.
const maxToolRounds = 4

const systemPrompt = "You are the assistant for a book review dataset. " +
	"Answer questions about books, reviews, ratings and review volume. " +
	"Use query_db for anything that needs data, create_support_ticket when the user reports a problem or asks for a human, " +
	"and get_dataset_overview for broad questions about the dataset. " +
	"Keep answers short and grounded in tool results."

const (
	ModeLLM      = "llm"
	ModeFallback = "fallback"
)

type Reply struct {
	Mode        string          `json:"mode"`
	Message     string          `json:"message,omitempty"`
	ToolResults []tools.Outcome `json:"tool_results,omitempty"`
}

type Agent struct {
	client     *OpenAIClient
	dispatcher *tools.Dispatcher
	logger     *slog.Logger
}

// New builds an agent. client may be nil, in which case every chat request
// takes the fallback path.
func New(client *OpenAIClient, dispatcher *tools.Dispatcher, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{client: client, dispatcher: dispatcher, logger: logger}
}

func (a *Agent) Chat(ctx context.Context, message string) (Reply, error) {
	if a.client == nil {
		return a.chatFallback(ctx, message), nil
	}
	return a.chatLLM(ctx, message)
}

func (a *Agent) chatFallback(ctx context.Context, message string) Reply {
	observability.ObserveChatRequest(ModeFallback)
	intent := router.Route(message)
	a.logger.Debug("routed chat message", "tool", intent.Tool)
	outcome := a.dispatcher.Dispatch(ctx, intent.Tool, intent.Args)
	return Reply{Mode: ModeFallback, ToolResults: []tools.Outcome{outcome}}
}

func (a *Agent) chatLLM(ctx context.Context, message string) (Reply, error) {
	observability.ObserveChatRequest(ModeLLM)

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: message},
	}
	definitions := tools.Definitions()
	var results []tools.Outcome

	for round := 0; round < maxToolRounds; round++ {
		reply, err := a.client.complete(ctx, messages, definitions)
		if err != nil {
			return Reply{}, err
		}
		if len(reply.ToolCalls) == 0 {
			return Reply{Mode: ModeLLM, Message: reply.Content, ToolResults: results}, nil
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			outcome := a.dispatcher.Dispatch(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			results = append(results, outcome)

			encoded, err := json.Marshal(outcome)
			if err != nil {
				return Reply{}, fmt.Errorf("marshal tool outcome: %w", err)
			}
			messages = append(messages, chatMessage{
				Role:       "tool",
				Content:    string(encoded),
				ToolCallID: call.ID,
			})
		}
	}
	return Reply{}, fmt.Errorf("model did not produce a final answer after %d tool rounds", maxToolRounds)
}
