// Command legalrag is the entry point for the legal case-intake service.
// It classifies case descriptions by type and urgency using documents
// retrieved from a legal corpus, either over HTTP (serve) or one-shot from
// the command line (predict).
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/legalrag-go/cmd/legalrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
