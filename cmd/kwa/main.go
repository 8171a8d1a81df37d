// Command kwa is the entry point for the knowledge worker agent.
// It provides a CLI interface (via Cobra) for document ingestion, retrieval
// and chat, plus an optional HTTP server for programmatic use.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/kwa-go/cmd/kwa/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
