// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package spanstack

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopBasic(t *testing.T) {
	ctx := Bind(context.Background())
	Push(ctx, 1)
	cur, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, uint64(1), cur)

	dur, ok := Pop(ctx, 1)
	require.True(t, ok)
	assert.GreaterOrEqual(t, dur, time.Duration(0))

	_, ok = Current(ctx)
	assert.False(t, ok)
}

func TestPopMissingFrameIsNoop(t *testing.T) {
	ctx := Bind(context.Background())
	_, ok := Pop(ctx, 99)
	assert.False(t, ok, "exit of a span that was never entered must not panic and must report ok=false")
}

func TestPopUnboundContextIsNoop(t *testing.T) {
	ctx := context.Background()
	Push(ctx, 1) // no Bind: must not panic
	_, ok := Pop(ctx, 1)
	assert.False(t, ok)
	_, ok = Current(ctx)
	assert.False(t, ok)
}

func TestPopSearchesByIDNotLIFO(t *testing.T) {
	ctx := Bind(context.Background())
	Push(ctx, 1)
	Push(ctx, 2)
	Push(ctx, 3)

	// Exit the middle span out of LIFO order.
	_, ok := Pop(ctx, 2)
	require.True(t, ok)
	assert.Equal(t, 2, Depth(ctx))

	cur, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, uint64(3), cur, "top of stack must still be the most recently pushed remaining frame")
}

func TestPopRemovesTopmostOccurrence(t *testing.T) {
	ctx := Bind(context.Background())
	Push(ctx, 5)
	Push(ctx, 6)
	Push(ctx, 5) // same id pushed twice (e.g. recursive instrumentation)

	_, ok := Pop(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, 2, Depth(ctx))

	cur, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, uint64(6), cur)
}

func TestCrossGoroutineHandoff(t *testing.T) {
	ctx := Bind(context.Background())
	Push(ctx, 42)

	done := make(chan time.Duration)
	go func() {
		dur, ok := Pop(ctx, 42)
		require.True(t, ok)
		done <- dur
	}()

	dur := <-done
	assert.GreaterOrEqual(t, dur, time.Duration(0))
}
