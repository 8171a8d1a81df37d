package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"

	"github.com/54b3r/kwa-go/internal/embedder"
	"github.com/54b3r/kwa-go/internal/logging"
	"github.com/54b3r/kwa-go/internal/provider"
	"github.com/54b3r/kwa-go/internal/status"
)

// NewStatusCmd constructs the `kwa status` command, which probes every
// configured collaborator concurrently and prints per-component health.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check connectivity to the index, model and action endpoint",
		Long: `Probe each configured collaborator (vector index, embedding backend,
chat model, action executor, document archive) and report per-component
health. A failing component never hides the health of the others.

Examples:
  kwa status
  MODEL_PROVIDER=openai kwa status`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()

			var probes []status.Probe

			idx, err := openIndex(ctx)
			if err != nil {
				indexErr := err
				probes = append(probes, status.Probe{Name: "index", Check: func(context.Context) error {
					return indexErr
				}})
			} else {
				defer idx.Close()
				probes = append(probes, status.Probe{Name: "index", Check: idx.Ping})
			}

			if emb, err := embedder.NewFromEnv(); err != nil {
				embErr := err
				probes = append(probes, status.Probe{Name: "embedder", Check: func(context.Context) error {
					return embErr
				}})
			} else {
				probes = append(probes, status.Probe{Name: "embedder", Check: func(ctx context.Context) error {
					_, probeErr := emb.Embed(ctx, []string{"ping"})
					return probeErr
				}})
			}

			if chatModel, err := provider.NewFromEnv(ctx); err != nil {
				modelErr := err
				probes = append(probes, status.Probe{Name: "model", Check: func(context.Context) error {
					return modelErr
				}})
			} else {
				probes = append(probes, status.Probe{Name: "model", Check: func(ctx context.Context) error {
					_, probeErr := chatModel.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
					return probeErr
				}})
			}

			if executor := newExecutor(); executor.Configured() {
				probes = append(probes, status.Probe{Name: "actions", Check: executor.Ping})
			}

			if archive := newArchive(log); archive != nil {
				probes = append(probes, status.Probe{Name: "archive", Check: archive.Ping})
			}

			if idx != nil {
				if stats, err := idx.Stats(ctx); err == nil {
					fmt.Printf("index: %d documents in %d segments\n\n", stats.DocumentCount, stats.SegmentCount)
				}
			}

			results := status.NewAggregator(probes...).Status(ctx)

			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				h := results[name]
				state := "healthy"
				if !h.Healthy {
					state = "UNHEALTHY"
				}
				fmt.Printf("%-10s %-10s %8s", name, state, h.Latency.Round(time.Millisecond))
				if h.Detail != "" {
					fmt.Printf("  %s", h.Detail)
				}
				fmt.Println()
			}

			if !status.Healthy(results) {
				return fmt.Errorf("status: one or more components are unhealthy")
			}
			return nil
		},
	}

	return cmd
}
