// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bp3d-tracing/tracing"
)

// runChild initializes tracing, execs argv as a child process with
// the guard held open for its lifetime, and surfaces the worker's
// eventual error (if any) once the child has exited.
func runChild(argv []string) error {
	appName := filepath.Base(argv[0])

	guard, err := tracing.Setup(appName)
	if err != nil {
		return fmt.Errorf("tracingctl: initialize: %w", err)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	runErr := cmd.Run()
	guard.Close()

	if workerErr := guard.Wait(); workerErr != nil {
		return fmt.Errorf("tracingctl: profiler worker: %w", workerErr)
	}
	if runErr != nil {
		return fmt.Errorf("tracingctl: child exited: %w", runErr)
	}
	return nil
}
