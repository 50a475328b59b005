// Package main is the entry point for the CRITs indicator service.
//
// With no arguments it serves the indicator pages. "indicators" runs the
// command-line tools instead:
//
//	crits indicators import feed.csv --source osint
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/0x3a/crits/bootstrap"
	"github.com/0x3a/crits/cmd"
	_ "github.com/0x3a/crits/docs"
)

// run initializes and starts the indicator service.
func run() error {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx, os.Getenv("INTEL_CONFIG"))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	app.WaitForShutdown()
	app.Shutdown()

	return nil
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "indicators" {
		// The command already knows its own name
		os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

		if err := cmd.NewIndicatorsCmd().Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
