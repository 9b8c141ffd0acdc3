// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Command tracingctl is the library's optional external CLI
// collaborator: it loads configuration, initializes tracing for
// a child process, execs that process with the guard held open for
// its lifetime, and reports the worker's eventual error (if any) as
// the process exit code.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bp3d-tracing/tracing/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tracingctl",
		Short: "Run a command under bp3d-tracing's profiler or log sink",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run -- cmd args...",
		Short: "Initialize tracing, then exec the given command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChild(args)
		},
	}
	config.BindFlags(cmd.Flags())
	return cmd
}
