// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

//go:build !deadlock
// +build !deadlock

// Package locking re-exports sync.Mutex and sync.RWMutex under this
// module's own name; the subscriber core and the log sink take their
// locks through "internal/locking" rather than "sync". Building with the
// "deadlock" tag swaps these in for instrumented variants (see
// mutex_deadlock.go) without touching call sites.
package locking

import "sync"

// Mutex is sync.Mutex under the default build.
type Mutex = sync.Mutex

// RWMutex is sync.RWMutex under the default build.
type RWMutex = sync.RWMutex
