// Package main is the entry point for the pilot CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nhle/marketing-pilot/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	root := cli.NewRootCommand(version)
	return root.ExecuteContext(context.Background())
}
