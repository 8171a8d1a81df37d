package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/kwa-go/internal/embedder"
	"github.com/54b3r/kwa-go/internal/retrieve"
)

// NewSearchCmd constructs the `kwa search` command, which runs a hybrid
// retrieval query directly, without involving the chat model.
func NewSearchCmd() *cobra.Command {
	var topK int
	var rerank bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge index",
		Long: `Run a hybrid search (vector similarity fused with keyword matching) over
the ingested documents and print the ranked results.

With --rerank the results are reordered by semantic overlap with the query
and each hit includes extractive caption snippets.

Examples:
  kwa search "refund policy"
  kwa search --top-k 10 --rerank "hotels in Dubai"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("search: failed to initialise embedder: %w", err)
			}

			idx, err := openIndex(ctx)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer idx.Close()

			engine := retrieve.NewEngine(emb, idx)
			results := engine.Search(ctx, args[0], topK, rerank)

			if len(results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for i, r := range results {
				fmt.Printf("%2d. %s  (%s, score %.3f", i+1, r.Title, r.ID, r.Score)
				if r.RerankerScore != nil {
					fmt.Printf(", rerank %.3f", *r.RerankerScore)
				}
				fmt.Println(")")
				if r.Source != "" {
					fmt.Printf("    source: %s\n", r.Source)
				}
				for _, caption := range r.Captions {
					fmt.Printf("    > %s\n", caption)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "Maximum number of results")
	cmd.Flags().BoolVarP(&rerank, "rerank", "r", false, "Rerank results and include caption snippets")

	return cmd
}
