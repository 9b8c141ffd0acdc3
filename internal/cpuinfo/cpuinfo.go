// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package cpuinfo wraps gopsutil's CPU probe behind the single call
// the wire Project message needs, so the worker package doesn't carry
// the platform-probing details inline.
package cpuinfo

import (
	"github.com/shirou/gopsutil/v3/cpu"

	internallog "github.com/bp3d-tracing/tracing/internal/log"
)

// Info is the subset of gopsutil's cpu.InfoStat the wire Project
// message reports.
type Info struct {
	Name      string
	CoreCount uint32
}

// Probe returns the local CPU info, or false if gopsutil couldn't read
// it (logged as a diagnostic warning, never fatal: Project.cpu is
// optional on the wire).
func Probe() (Info, bool) {
	stats, err := cpu.Info()
	if err != nil {
		internallog.Warn("cpuinfo: probe failed: %v", err)
		return Info{}, false
	}
	if len(stats) == 0 {
		return Info{}, false
	}
	return Info{Name: stats[0].ModelName, CoreCount: uint32(len(stats))}, true
}
