package commands

import (
	"fmt"
	"os"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/kwa-go/internal/agent"
	"github.com/54b3r/kwa-go/internal/embedder"
	"github.com/54b3r/kwa-go/internal/logging"
	"github.com/54b3r/kwa-go/internal/provider"
	"github.com/54b3r/kwa-go/internal/retrieve"
	"github.com/54b3r/kwa-go/internal/store"
)

// NewChatCmd constructs the `kwa chat` command, which runs a single agent
// turn over the knowledge index and prints the grounded answer.
func NewChatCmd() *cobra.Command {
	var conversationID string
	var showTools bool

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the knowledge agent a question",
		Long: `Run one agent turn: the model may search the index, summarize documents
and trigger registered actions before composing its final answer.

Pass --conversation to continue an earlier exchange; history is persisted
in a local SQLite database (~/.kwa/history.db, override with KWA_HISTORY_DB,
set to "disabled" to turn persistence off).

Examples:
  kwa chat "what do our travel brochures say about Dubai?"
  kwa chat --conversation trip-planning "and what about hotel pricing?"
  kwa chat --show-tools "summarize the Q3 sales report"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("chat: failed to initialise model provider: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("chat: failed to initialise embedder: %w", err)
			}

			idx, err := openIndex(ctx)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer idx.Close()

			history, closeHistory := openHistory(log)
			defer closeHistory()

			engine := retrieve.NewEngine(emb, idx)
			toolset := agent.NewToolset(engine, newExecutor(), chatModel)

			kwAgent, err := agent.New(&agent.Config{
				ChatModel:        chatModel,
				Tools:            toolset,
				History:          history,
				MaxToolRounds:    getEnvInt("AGENT_MAX_TOOL_ROUNDS", 0),
				MaxContextTokens: getEnvInt("AGENT_MAX_CONTEXT_TOKENS", 0),
			})
			if err != nil {
				return fmt.Errorf("chat: failed to initialise agent: %w", err)
			}

			result, err := kwAgent.Chat(ctx, conversationID, args[0])
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			if showTools {
				for _, call := range result.ToolCalls {
					fmt.Fprintf(os.Stderr, "[tool] %s %s\n", call.Name, call.Arguments)
				}
			}
			fmt.Println(result.Answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "n", "", "Conversation ID for persisted history")
	cmd.Flags().BoolVar(&showTools, "show-tools", false, "Print tool invocations to stderr")

	return cmd
}

// openHistory opens the conversation history store following KWA_HISTORY_DB.
// Failures disable persistence rather than aborting the command.
func openHistory(log *slog.Logger) (store.ConversationStore, func()) {
	dbPath := os.Getenv("KWA_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via KWA_HISTORY_DB=disabled")
		return nil, func() {}
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
	}

	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil, func() {}
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}
