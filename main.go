// Package main is the entry point for the implindex CLI.
package main

import (
	"fmt"
	"os"

	"github.com/zjrosen/implindex/cmd"
	"github.com/zjrosen/implindex/internal/exitcode"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	versionString := fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	cmd.SetVersion(versionString)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(int(exitcode.FromError(err)))
	}
}
