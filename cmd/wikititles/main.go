// Command wikititles resolves article titles across encyclopedia languages
// using page and language-link tables parsed from SQL dumps.
//
// Subcommands:
//
//	ingest     parse dumps into tables and Title Indexes
//	build      join tables of every language pair into the cluster store
//	translate  resolve a title from one language to another
//	stats      report table sizes and duplicates
//	backlinks  check that links lead back
//	migrate    apply the cluster store schema
//	version    print build information
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := &cliState{}
	root := newRootCommand(state)

	err := root.ExecuteContext(ctx)
	if closeErr := state.close(); closeErr != nil && state.log != nil {
		state.log.Warn("release resources", slog.String("error", closeErr.Error()))
	}
	if err != nil {
		if state.log != nil {
			state.log.Error("command failed", slog.String("error", err.Error()))
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		stop()
		os.Exit(1)
	}
}
