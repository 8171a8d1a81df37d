package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kwa-go/internal/action"
	"github.com/54b3r/kwa-go/internal/budget"
	"github.com/54b3r/kwa-go/internal/index"
	"github.com/54b3r/kwa-go/internal/logging"
	"github.com/54b3r/kwa-go/internal/retrieve"
)

// Tool names offered to the reasoning model.
const (
	ToolSearchDocuments   = "search_documents"
	ToolSummarizeDocument = "summarize_document"
	ToolExecuteAction     = "execute_action"
)

// defaultSearchResults is how many documents a search tool call returns when
// the model does not specify a count.
const defaultSearchResults = 5

// summarizePrompt frames the model call behind the summarize_document tool.
const summarizePrompt = `You are a document analyst. Summarize the document content you are given, covering:
1. Main topics
2. Key insights
3. Important details
4. Action items, if any
Keep the summary concise and focused. Respond with the summary only.`

// Toolset dispatches the agent's tool calls against the retrieval engine and
// the action executor. Dispatch never returns an error: failures become
// structured payloads the reasoning model can relay to the user.
type Toolset struct {
	engine     *retrieve.Engine
	executor   *action.Executor
	summarizer model.ToolCallingChatModel
}

// NewToolset creates a Toolset. executor may be unconfigured; the catalog
// then omits execute_action.
func NewToolset(engine *retrieve.Engine, executor *action.Executor, summarizer model.ToolCallingChatModel) *Toolset {
	return &Toolset{engine: engine, executor: executor, summarizer: summarizer}
}

// Catalog returns the tool descriptions offered to the model. execute_action
// is omitted when no executor is configured, so the model never calls a tool
// that is certain to fail.
func (t *Toolset) Catalog() []*schema.ToolInfo {
	catalog := []*schema.ToolInfo{
		{
			Name: ToolSearchDocuments,
			Desc: "Searches the knowledge base for documents relevant to a query. Returns the top matching documents with titles, scores, and snippets.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "The search query.",
					Required: true,
				},
				"top_results": {
					Type: schema.Integer,
					Desc: "How many results to return. Defaults to 5.",
				},
			}),
		},
		{
			Name: ToolSummarizeDocument,
			Desc: "Produces a short summary of one document identified by its document id, as returned by search_documents.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"document_id": {
					Type:     schema.String,
					Desc:     "The id of the document to summarize.",
					Required: true,
				},
			}),
		},
	}

	if t.executor != nil && t.executor.Configured() {
		catalog = append(catalog, &schema.ToolInfo{
			Name: ToolExecuteAction,
			Desc: "Executes a business action such as creating a ticket or sending a notification. Use only when the user explicitly asks for an action to be performed.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"action_type": {
					Type:     schema.String,
					Desc:     "The action to execute, e.g. 'create_ticket'.",
					Required: true,
				},
				"parameters": {
					Type: schema.Object,
					Desc: "Action-specific parameters.",
				},
			}),
		})
	}

	return catalog
}

// Dispatch executes one tool call and returns the payload to feed back to
// the model. Tool failures are encoded into the payload, never raised.
func (t *Toolset) Dispatch(ctx context.Context, call schema.ToolCall) string {
	log := logging.FromContext(ctx)

	var payload any
	switch call.Function.Name {
	case ToolSearchDocuments:
		payload = t.searchDocuments(ctx, call.Function.Arguments)
	case ToolSummarizeDocument:
		payload = t.summarizeDocument(ctx, call.Function.Arguments)
	case ToolExecuteAction:
		payload = t.executeAction(ctx, call.Function.Arguments)
	default:
		log.Warn("model requested unknown tool", "tool", call.Function.Name)
		payload = errorPayload("unknown_tool", fmt.Sprintf("tool %q does not exist", call.Function.Name))
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return `{"error":"internal","message":"failed to encode tool result"}`
	}
	return string(out)
}

type searchArgs struct {
	Query      string `json:"query"`
	TopResults int    `json:"top_results"`
}

type searchHit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Score   float32 `json:"score"`
	Source  string  `json:"source"`
	Snippet string  `json:"snippet,omitempty"`
}

func (t *Toolset) searchDocuments(ctx context.Context, arguments string) any {
	var args searchArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return searchFailure("invalid_arguments", err.Error())
	}
	if args.Query == "" {
		return searchFailure("invalid_arguments", "query is required")
	}
	if args.TopResults <= 0 {
		args.TopResults = defaultSearchResults
	}

	results := t.engine.Search(ctx, args.Query, args.TopResults, true)

	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{
			ID:      r.ID,
			Title:   r.Title,
			Score:   r.Score,
			Source:  r.Source,
			Snippet: firstCaption(r),
		})
	}
	return map[string]any{
		"success":     true,
		"query":       args.Query,
		"total_found": len(hits),
		"results":     hits,
	}
}

// searchFailure is the search result envelope for a failed call: the model
// always sees the success flag and a count.
func searchFailure(code, message string) map[string]any {
	p := errorPayload(code, message)
	p["success"] = false
	p["total_found"] = 0
	return p
}

type summarizeArgs struct {
	DocumentID string `json:"document_id"`
}

func (t *Toolset) summarizeDocument(ctx context.Context, arguments string) any {
	var args summarizeArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return errorPayload("invalid_arguments", err.Error())
	}
	if args.DocumentID == "" {
		return errorPayload("invalid_arguments", "document_id is required")
	}

	doc, err := t.engine.Get(ctx, args.DocumentID)
	if errors.Is(err, index.ErrNotFound) {
		return errorPayload("not_found", fmt.Sprintf("no document with id %q", args.DocumentID))
	}
	if err != nil {
		return errorPayload("collaborator_unavailable", err.Error())
	}

	content := budget.ClampContent(doc.Content, budget.SummarizeWindowChars)
	resp, err := t.summarizer.Generate(ctx, []*schema.Message{
		schema.SystemMessage(summarizePrompt),
		schema.UserMessage(fmt.Sprintf("Document %q:\n\n%s", doc.Title, content)),
	})
	if err != nil {
		return errorPayload("collaborator_unavailable", err.Error())
	}

	return map[string]any{
		"document_id": doc.ID,
		"title":       doc.Title,
		"summary":     resp.Content,
	}
}

type executeArgs struct {
	ActionType string         `json:"action_type"`
	Parameters map[string]any `json:"parameters"`
}

func (t *Toolset) executeAction(ctx context.Context, arguments string) any {
	var args executeArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return errorPayload("invalid_arguments", err.Error())
	}

	// The catalog omits execute_action without an executor, but the model
	// can still name the tool.
	if t.executor == nil {
		return errorPayload("action_executor_unavailable", "no action executor is configured")
	}

	resp, err := t.executor.Invoke(ctx, args.ActionType, args.Parameters)
	if err != nil {
		var statusErr *action.StatusError
		var timeoutErr *action.TimeoutError
		switch {
		case errors.Is(err, action.ErrUnavailable):
			return errorPayload("action_executor_unavailable", "no action executor is configured")
		case errors.As(err, &timeoutErr):
			return errorPayload("timeout", err.Error())
		case errors.As(err, &statusErr):
			return map[string]any{
				"error":       "action_failed",
				"action_type": args.ActionType,
				"status":      statusErr.Code,
				"body":        statusErr.Body,
			}
		default:
			return errorPayload("action_failed", err.Error())
		}
	}

	return map[string]any{
		"action_type": resp.ActionType,
		"body":        resp.Body,
		"invoked_at":  resp.InvokedAt,
	}
}

func errorPayload(code, message string) map[string]any {
	return map[string]any{"error": code, "message": message}
}

func firstCaption(r index.Result) string {
	if len(r.Captions) > 0 {
		return r.Captions[0]
	}
	return ""
}
