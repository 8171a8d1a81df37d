// Package agent implements the knowledge worker conversation loop. Each turn
// offers the model a tool catalog, executes any requested tool calls, feeds
// the results back, and repeats up to a configured round budget before
// forcing a tool-free final answer. Tool failures flow back to the model as
// payloads; only a failure of the model call itself aborts the turn.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kwa-go/internal/budget"
	"github.com/54b3r/kwa-go/internal/logging"
	"github.com/54b3r/kwa-go/internal/store"
)

// systemPrompt frames the assistant for every conversation turn.
const systemPrompt = `You are a knowledge worker assistant with access to an organization's document knowledge base.

You can search the knowledge base, summarize specific documents, and execute business actions when asked. Use the tools when they help answer the question; answer directly when they do not.

Guidelines:
- Ground answers in retrieved documents and cite document titles when you rely on them.
- If a search returns nothing relevant, say so rather than inventing content.
- If a tool reports an error, tell the user plainly what failed.
- Execute actions only when the user explicitly asks for them.`

// ErrModelUnavailable is wrapped into turn failures caused by the reasoning
// model call itself.
var ErrModelUnavailable = errors.New("agent: reasoning model unavailable")

// ErrModelTimeout is wrapped into turn failures caused by a model call
// exceeding its deadline.
var ErrModelTimeout = errors.New("agent: reasoning model timed out")

// Config holds the dependencies required to construct an Agent.
type Config struct {
	// ChatModel is the reasoning model constructed by the provider factory.
	ChatModel model.ToolCallingChatModel

	// Tools dispatches the agent's tool calls.
	Tools *Toolset

	// History is the optional conversation store used to persist and replay
	// prior turns. If nil, each turn is stateless.
	History store.ConversationStore

	// HistoryDepth is the number of prior turns (user+assistant pairs) to
	// inject per turn. Defaults to 10 if zero.
	HistoryDepth int

	// MaxContextTokens is the estimated token budget for the full input
	// context. History is trimmed oldest-first to fit. Defaults to
	// budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int

	// MaxToolRounds bounds how many times the model may request tools in one
	// turn before the final answer is forced. Defaults to 1 if zero.
	MaxToolRounds int
}

// ToolCallRecord logs one executed tool call for the caller.
type ToolCallRecord struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
}

// Result is the outcome of one conversation turn.
type Result struct {
	// Answer is the model's final text.
	Answer string `json:"answer"`

	// ToolCalls lists every tool call executed during the turn, in order.
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`

	// Rounds is how many tool rounds ran before the final answer.
	Rounds int `json:"rounds"`
}

// Agent runs bounded tool-calling conversation turns.
type Agent struct {
	base             model.ToolCallingChatModel
	tools            *Toolset
	history          store.ConversationStore
	historyDepth     int
	maxContextTokens int
	maxToolRounds    int
}

// New constructs an Agent from the provided Config.
func New(cfg *Config) (*Agent, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("agent: Tools must not be nil")
	}

	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = 10
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	rounds := cfg.MaxToolRounds
	if rounds <= 0 {
		rounds = 1
	}

	return &Agent{
		base:             cfg.ChatModel,
		tools:            cfg.Tools,
		history:          cfg.History,
		historyDepth:     depth,
		maxContextTokens: maxCtx,
		maxToolRounds:    rounds,
	}, nil
}

// Chat runs one conversation turn. conversationID keys the persisted history;
// an empty ID makes the turn stateless even when a store is configured.
func (a *Agent) Chat(ctx context.Context, conversationID, userMessage string) (*Result, error) {
	log := logging.FromContext(ctx)

	messages := a.buildMessages(ctx, conversationID, userMessage)

	catalog := a.tools.Catalog()
	toolModel, err := a.base.WithTools(catalog)
	if err != nil {
		return nil, fmt.Errorf("agent: failed to bind tools: %w", err)
	}

	result := &Result{}
	for round := 0; round < a.maxToolRounds; round++ {
		resp, err := toolModel.Generate(ctx, messages)
		if err != nil {
			return nil, classifyModelError(err)
		}
		messages = append(messages, resp)

		if len(resp.ToolCalls) == 0 {
			result.Answer = resp.Content
			a.persistTurn(ctx, conversationID, userMessage, result.Answer)
			return result, nil
		}

		result.Rounds++
		for _, call := range resp.ToolCalls {
			payload := a.tools.Dispatch(ctx, call)
			result.ToolCalls = append(result.ToolCalls, ToolCallRecord{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
				Result:    payload,
			})
			messages = append(messages, schema.ToolMessage(payload, call.ID))
		}
		log.Info("tool round completed",
			slog.Int("round", result.Rounds),
			slog.Int("calls", len(resp.ToolCalls)),
		)
	}

	// Round budget spent: force a final answer without offering tools.
	resp, err := a.base.Generate(ctx, messages)
	if err != nil {
		return nil, classifyModelError(err)
	}
	result.Answer = resp.Content

	a.persistTurn(ctx, conversationID, userMessage, result.Answer)
	return result, nil
}

// buildMessages assembles system prompt, trimmed prior history, and the
// current user message. History load failures degrade to a stateless turn.
func (a *Agent) buildMessages(ctx context.Context, conversationID, userMessage string) []*schema.Message {
	system := schema.SystemMessage(systemPrompt)
	user := schema.UserMessage(userMessage)

	var historyMsgs []*schema.Message
	if a.history != nil && conversationID != "" {
		prior, err := a.history.Recent(ctx, conversationID, a.historyDepth*2)
		if err != nil {
			logging.FromContext(ctx).Warn("history: failed to load prior messages", slog.Any("error", err))
		} else {
			for _, m := range prior {
				switch m.Role {
				case store.RoleUser:
					historyMsgs = append(historyMsgs, schema.UserMessage(m.Content))
				case store.RoleAssistant:
					historyMsgs = append(historyMsgs, schema.AssistantMessage(m.Content, nil))
				}
			}
		}
	}

	fixed := []*schema.Message{system, user}
	before := len(historyMsgs)
	historyMsgs = budget.TrimHistory(fixed, historyMsgs, a.maxContextTokens)
	if dropped := before - len(historyMsgs); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(historyMsgs)),
		)
	}

	messages := make([]*schema.Message, 0, 2+len(historyMsgs))
	messages = append(messages, system)
	messages = append(messages, historyMsgs...)
	messages = append(messages, user)
	return messages
}

// persistTurn appends the user and assistant messages to the conversation
// store. Persistence failure is non-fatal.
func (a *Agent) persistTurn(ctx context.Context, conversationID, userMessage, answer string) {
	if a.history == nil || conversationID == "" {
		return
	}
	if err := a.history.Append(ctx, conversationID, store.RoleUser, userMessage); err != nil {
		logging.FromContext(ctx).Warn("history: failed to persist user message", slog.Any("error", err))
	}
	if err := a.history.Append(ctx, conversationID, store.RoleAssistant, answer); err != nil {
		logging.FromContext(ctx).Warn("history: failed to persist assistant message", slog.Any("error", err))
	}
}

// classifyModelError maps a failed model call to the turn-level failure the
// caller reports.
func classifyModelError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrModelTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
}
