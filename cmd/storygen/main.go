// cmd/storygen/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"story-workers/internal/app"
	"story-workers/internal/common/config"
	"story-workers/internal/common/logger"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "-h" {
		help()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// zap writes to stderr, stdout carries the batches
	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open storage: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	c := &cli{
		stores:   stores.Approved,
		approval: app.NewApproval(stores, nil, log),
		in:       os.Stdin,
		out:      os.Stdout,
		newOrchestrator: func() (orchestrator, error) {
			orch, err := app.NewOrchestrator(ctx, cfg, log, nil)
			if err != nil {
				return nil, err
			}
			return orch, nil
		},
	}

	if err := c.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func help() {
	fmt.Println(`
Usage: storygen <command> [flags]

Commands:
  modules    List the modules of a requirement document
  stories    Generate user stories for a module and review them
  testcases  Generate test cases from a module's approved stories and review them
  projects   List projects with approved records
  help       Show this help message

Examples:
  storygen modules -input requirements.txt
  storygen stories -project shop -input requirements.txt -module Login -batch 10 -iterations 2
  storygen testcases -project shop -module Login -instruction "include boundary values"
  storygen projects

Use 'storygen <command> -h' for more information about a command.`)
}
