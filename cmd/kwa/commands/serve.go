package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"

	"github.com/54b3r/kwa-go/internal/agent"
	"github.com/54b3r/kwa-go/internal/embedder"
	"github.com/54b3r/kwa-go/internal/ingest"
	"github.com/54b3r/kwa-go/internal/logging"
	"github.com/54b3r/kwa-go/internal/provider"
	"github.com/54b3r/kwa-go/internal/retrieve"
	"github.com/54b3r/kwa-go/internal/server"
	"github.com/54b3r/kwa-go/internal/status"
	"github.com/54b3r/kwa-go/internal/tracing"
)

// NewServeCmd constructs the `kwa serve` command, which starts the HTTP
// server exposing chat, ingestion, search and health endpoints.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the KWA HTTP server",
		Long: `Start the KWA HTTP server on localhost.

The server exposes a REST API for document ingestion, retrieval, agent chat
and health probes, plus Prometheus metrics on /metrics.

Examples:
  kwa serve
  kwa serve --port 9090
  MODEL_PROVIDER=azure kwa serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			idx, err := openIndex(ctx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer idx.Close()
			log.Info("index ready", slog.String("collection", getEnvOrDefault("QDRANT_COLLECTION", "kwa-docs")))

			archive := newArchive(log)
			executor := newExecutor()

			history, closeHistory := openHistory(log)
			defer closeHistory()

			engine := retrieve.NewEngine(emb, idx)
			pipeline := ingest.New(emb, idx, archive)
			toolset := agent.NewToolset(engine, executor, chatModel)

			kwAgent, err := agent.New(&agent.Config{
				ChatModel:        chatModel,
				Tools:            toolset,
				History:          history,
				MaxToolRounds:    getEnvInt("AGENT_MAX_TOOL_ROUNDS", 0),
				MaxContextTokens: getEnvInt("AGENT_MAX_CONTEXT_TOKENS", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to initialise agent: %w", err)
			}

			probes := []status.Probe{
				{Name: "index", Check: idx.Ping},
				{Name: "embedder", Check: func(ctx context.Context) error {
					_, probeErr := emb.Embed(ctx, []string{"ping"})
					return probeErr
				}},
				{Name: "model", Check: func(ctx context.Context) error {
					_, probeErr := chatModel.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
					return probeErr
				}},
			}
			if executor.Configured() {
				probes = append(probes, status.Probe{Name: "actions", Check: executor.Ping})
			}
			if archive != nil {
				probes = append(probes, status.Probe{Name: "archive", Check: archive.Ping})
			}

			pingers := []server.Pinger{
				server.IndexPinger{Store: idx},
				server.ModelPinger{Model: chatModel},
			}
			if executor.Configured() {
				pingers = append(pingers, server.ActionPinger{Executor: executor})
			}

			srv, err := server.New(server.Deps{
				Chatter:  kwAgent,
				Ingestor: pipeline,
				Searcher: engine,
				Statuser: status.NewAggregator(probes...),
			}, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("KWA_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
