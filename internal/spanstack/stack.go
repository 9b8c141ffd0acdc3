// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package spanstack is this module's replacement for a thread-local
// current-span stack. Go has no thread-local storage, so the stack
// lives on a *Stack value threaded explicitly through context.Context
// via Bind. Exactly one goroutine is expected to own a bound context
// at a time, but a Stack may be handed to a different goroutine by
// passing the same context onward (cross-goroutine span handoff: a
// span entered on one goroutine, exited on another).
package spanstack

import (
	"context"
	"sync"
	"time"
)

// Frame is one active span entry.
type Frame struct {
	ID        uint64
	EnteredAt time.Time
}

// Stack is the per-goroutine-chain ordered sequence of active spans.
// A mutex guards it because the owning context can be legally handed
// to another goroutine mid-span (e.g. into a worker pool), at which
// point two goroutines may briefly race to push/pop.
type Stack struct {
	mu     sync.Mutex
	frames []Frame
}

type ctxKey struct{}

// Bind attaches a fresh *Stack to ctx. Instrumentation calls this once
// per goroutine it wants a current-span stack for (typically at the
// top of a worker's run loop), then threads the returned context
// through every subsequent Enter/Exit call on that goroutine.
func Bind(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, &Stack{})
}

func fromContext(ctx context.Context) *Stack {
	s, _ := ctx.Value(ctxKey{}).(*Stack)
	return s
}

// Push records id as newly entered, timestamped now. A no-op if ctx
// was never Bind-ed — this is tolerated, not an error, since
// instrumentation may run before setup completes.
func Push(ctx context.Context, id uint64) {
	s := fromContext(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.frames = append(s.frames, Frame{ID: id, EnteredAt: time.Now()})
	s.mu.Unlock()
}

// Pop removes the topmost frame matching id and returns the elapsed
// time since it was pushed. It searches from the top down rather than
// assuming the popped frame is literally the last one pushed, because
// a span entered on one goroutine may be exited from another after an
// unrelated span was pushed in between. A missing frame (exit of a
// span that was never entered, or already exited) returns ok=false
// and must never panic — this is treated as a tolerated
// instrumentation bug, not a fatal condition.
func Pop(ctx context.Context, id uint64) (dur time.Duration, ok bool) {
	s := fromContext(ctx)
	if s == nil {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].ID == id {
			entered := s.frames[i].EnteredAt
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			return time.Since(entered), true
		}
	}
	return 0, false
}

// Current returns the id at the top of the stack, if any.
func Current(ctx context.Context) (uint64, bool) {
	s := fromContext(ctx)
	if s == nil {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return 0, false
	}
	return s.frames[len(s.frames)-1].ID, true
}

// Depth reports the number of active frames, for tests and diagnostics.
func Depth(ctx context.Context) int {
	s := fromContext(ctx)
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}
