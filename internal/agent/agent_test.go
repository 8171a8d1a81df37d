package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kwa-go/internal/action"
	"github.com/54b3r/kwa-go/internal/index"
	"github.com/54b3r/kwa-go/internal/retrieve"
)

// fakeModel replays a scripted sequence of replies and records every
// message slice it was asked to complete.
type fakeModel struct {
	replies  []*schema.Message
	err      error
	calls    int
	received [][]*schema.Message
	bound    []*schema.ToolInfo
}

func (f *fakeModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.received = append(f.received, in)
	if f.err != nil {
		return nil, f.err
	}
	reply := f.replies[len(f.replies)-1]
	if f.calls < len(f.replies) {
		reply = f.replies[f.calls]
	}
	f.calls++
	return reply, nil
}

func (f *fakeModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not scripted")
}

func (f *fakeModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	f.bound = tools
	return f, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
func (fakeEmbedder) Dimensions() int    { return 2 }
func (fakeEmbedder) MaxInputChars() int { return 1000 }

type fakeIndex struct {
	index.Store
	results []index.Result
	byID    map[string]*index.Result
}

func (f *fakeIndex) Query(_ context.Context, _ *index.Query) ([]index.Result, error) {
	return f.results, nil
}

func (f *fakeIndex) Get(_ context.Context, id string) (*index.Result, error) {
	if r, ok := f.byID[id]; ok {
		return r, nil
	}
	return nil, index.ErrNotFound
}

func newTestAgent(t *testing.T, m *fakeModel, idx *fakeIndex, rounds int) *Agent {
	t.Helper()
	if idx == nil {
		idx = &fakeIndex{}
	}
	engine := retrieve.NewEngine(fakeEmbedder{}, idx)
	tools := NewToolset(engine, action.NewExecutor("", ""), m)
	a, err := New(&Config{ChatModel: m, Tools: tools, MaxToolRounds: rounds})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func toolCallReply(name, arguments string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call-1",
		Function: schema.FunctionCall{Name: name, Arguments: arguments},
	}})
}

func Test_Chat_DirectAnswer(t *testing.T) {
	t.Parallel()
	m := &fakeModel{replies: []*schema.Message{
		schema.AssistantMessage("Paris is the capital of France.", nil),
	}}
	a := newTestAgent(t, m, nil, 1)

	res, err := a.Chat(context.Background(), "", "What is the capital of France?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Answer != "Paris is the capital of France." {
		t.Fatalf("unexpected answer %q", res.Answer)
	}
	if res.Rounds != 0 || len(res.ToolCalls) != 0 {
		t.Fatalf("expected no tool rounds, got %+v", res)
	}
	if m.calls != 1 {
		t.Fatalf("expected one model call, got %d", m.calls)
	}
}

func Test_Chat_ToolRoundThenAnswer(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{results: []index.Result{
		{ID: "dubai-brochure-bbbb2222", Title: "Dubai Brochure", Score: 0.9},
	}}
	m := &fakeModel{replies: []*schema.Message{
		toolCallReply(ToolSearchDocuments, `{"query":"Dubai"}`),
		schema.AssistantMessage("The Dubai Brochure covers luxury resorts.", nil),
	}}
	a := newTestAgent(t, m, idx, 1)

	res, err := a.Chat(context.Background(), "", "What do we know about Dubai?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Rounds != 1 {
		t.Fatalf("expected 1 tool round, got %d", res.Rounds)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].Name != ToolSearchDocuments {
		t.Fatalf("unexpected tool calls %+v", res.ToolCalls)
	}
	if !strings.Contains(res.ToolCalls[0].Result, "Dubai Brochure") {
		t.Fatalf("expected tool result to carry search hits, got %q", res.ToolCalls[0].Result)
	}
	if res.Answer != "The Dubai Brochure covers luxury resorts." {
		t.Fatalf("unexpected answer %q", res.Answer)
	}

	// The second model call must see the tool result message.
	final := m.received[len(m.received)-1]
	last := final[len(final)-1]
	if last.Role != schema.Tool || !strings.Contains(last.Content, "Dubai Brochure") {
		t.Fatalf("expected tool message fed back to the model, got role=%s content=%q", last.Role, last.Content)
	}
}

func Test_Chat_TerminatesWithinRoundBudget(t *testing.T) {
	t.Parallel()
	// The model asks for a tool on every reply. The loop must still finish.
	m := &fakeModel{replies: []*schema.Message{
		toolCallReply(ToolSearchDocuments, `{"query":"a"}`),
	}}
	a := newTestAgent(t, m, nil, 2)

	res, err := a.Chat(context.Background(), "", "loop forever?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Rounds != 2 {
		t.Fatalf("expected exactly 2 tool rounds, got %d", res.Rounds)
	}
	// Two tool rounds plus the forced tool-free completion.
	if m.calls != 3 {
		t.Fatalf("expected 3 model calls, got %d", m.calls)
	}
}

func Test_Chat_UnknownToolFedBack(t *testing.T) {
	t.Parallel()
	m := &fakeModel{replies: []*schema.Message{
		toolCallReply("delete_everything", `{}`),
		schema.AssistantMessage("That tool is not available.", nil),
	}}
	a := newTestAgent(t, m, nil, 1)

	res, err := a.Chat(context.Background(), "", "wipe the index")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(res.ToolCalls[0].Result, "unknown_tool") {
		t.Fatalf("expected unknown_tool payload, got %q", res.ToolCalls[0].Result)
	}
	if res.Answer != "That tool is not available." {
		t.Fatalf("unexpected answer %q", res.Answer)
	}
}

func Test_Chat_SummarizeMissingDocument(t *testing.T) {
	t.Parallel()
	m := &fakeModel{replies: []*schema.Message{
		toolCallReply(ToolSummarizeDocument, `{"document_id":"missing-id"}`),
		schema.AssistantMessage("I could not find that document.", nil),
	}}
	a := newTestAgent(t, m, &fakeIndex{byID: map[string]*index.Result{}}, 1)

	res, err := a.Chat(context.Background(), "", "summarize missing-id")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(res.ToolCalls[0].Result, "not_found") {
		t.Fatalf("expected not_found payload, got %q", res.ToolCalls[0].Result)
	}
}

func Test_Chat_ModelFailureIsFatal(t *testing.T) {
	t.Parallel()
	m := &fakeModel{err: errors.New("connection refused")}
	a := newTestAgent(t, m, nil, 1)

	_, err := a.Chat(context.Background(), "", "hello")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func Test_Chat_ModelTimeout(t *testing.T) {
	t.Parallel()
	m := &fakeModel{err: context.DeadlineExceeded}
	a := newTestAgent(t, m, nil, 1)

	_, err := a.Chat(context.Background(), "", "hello")
	if !errors.Is(err, ErrModelTimeout) {
		t.Fatalf("expected ErrModelTimeout, got %v", err)
	}
}

func Test_Catalog_OmitsActionWhenUnconfigured(t *testing.T) {
	t.Parallel()
	engine := retrieve.NewEngine(fakeEmbedder{}, &fakeIndex{})

	without := NewToolset(engine, action.NewExecutor("", ""), &fakeModel{})
	for _, info := range without.Catalog() {
		if info.Name == ToolExecuteAction {
			t.Fatal("expected execute_action omitted without an executor")
		}
	}

	with := NewToolset(engine, action.NewExecutor("http://localhost:7071", "k"), &fakeModel{})
	found := false
	for _, info := range with.Catalog() {
		if info.Name == ToolExecuteAction {
			found = true
		}
	}
	if !found {
		t.Fatal("expected execute_action offered with a configured executor")
	}
}

func Test_SearchTool_ResultEnvelope(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{results: []index.Result{
		{ID: "dubai-brochure-bbbb2222", Title: "Dubai Brochure", Score: 0.9},
	}}
	engine := retrieve.NewEngine(fakeEmbedder{}, idx)
	tools := NewToolset(engine, action.NewExecutor("", ""), &fakeModel{})

	out := tools.Dispatch(context.Background(), schema.ToolCall{
		ID:       "call-1",
		Function: schema.FunctionCall{Name: ToolSearchDocuments, Arguments: `{"query":"Dubai"}`},
	})

	var payload struct {
		Success    bool        `json:"success"`
		Query      string      `json:"query"`
		TotalFound int         `json:"total_found"`
		Results    []searchHit `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if !payload.Success {
		t.Error("success = false, want true")
	}
	if payload.Query != "Dubai" {
		t.Errorf("query = %q, want Dubai", payload.Query)
	}
	if payload.TotalFound != 1 || len(payload.Results) != 1 {
		t.Errorf("total_found = %d, results = %d, want 1", payload.TotalFound, len(payload.Results))
	}
}

func Test_SearchTool_FailureEnvelope(t *testing.T) {
	t.Parallel()
	engine := retrieve.NewEngine(fakeEmbedder{}, &fakeIndex{})
	tools := NewToolset(engine, action.NewExecutor("", ""), &fakeModel{})

	out := tools.Dispatch(context.Background(), schema.ToolCall{
		ID:       "call-1",
		Function: schema.FunctionCall{Name: ToolSearchDocuments, Arguments: `{}`},
	})

	var payload struct {
		Success    bool   `json:"success"`
		TotalFound int    `json:"total_found"`
		Error      string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Success {
		t.Error("success = true, want false")
	}
	if payload.TotalFound != 0 {
		t.Errorf("total_found = %d, want 0", payload.TotalFound)
	}
	if payload.Error != "invalid_arguments" {
		t.Errorf("error = %q, want invalid_arguments", payload.Error)
	}
}

func Test_ExecuteAction_NilExecutor(t *testing.T) {
	t.Parallel()
	engine := retrieve.NewEngine(fakeEmbedder{}, &fakeIndex{})
	tools := NewToolset(engine, nil, &fakeModel{})

	out := tools.Dispatch(context.Background(), schema.ToolCall{
		ID:       "call-1",
		Function: schema.FunctionCall{Name: ToolExecuteAction, Arguments: `{"action_type":"create_ticket"}`},
	})
	if !strings.Contains(out, "action_executor_unavailable") {
		t.Fatalf("payload = %q, want action_executor_unavailable", out)
	}
}
