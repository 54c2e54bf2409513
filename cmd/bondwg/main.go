// Command bondwg is the CLI companion to bondwgd: it dials the daemon's
// management socket to list link status and toggle interface exclusions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bondwg/internal/buildinfo"
)

const defaultSocketPath = "/run/bondwgd/bondwgd.sock"

func main() {
	var socketPath string

	root := &cobra.Command{
		Use:           "bondwg",
		Short:         "Inspect and control a running bondwgd",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", defaultSocketPath, "bondwgd management socket path")

	root.AddCommand(listCmd(&socketPath))
	root.AddCommand(includeCmd(&socketPath))
	root.AddCommand(excludeCmd(&socketPath))
	root.AddCommand(resetExclusionsCmd(&socketPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
