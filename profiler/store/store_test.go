// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatesTrackMinMaxAverage(t *testing.T) {
	s := New(100, time.Minute, time.Millisecond, 1000)
	now := time.Now()

	s.RecordSpanLog(1, 10*time.Millisecond, []byte("a"), now)
	s.RecordSpanLog(1, 30*time.Millisecond, []byte("b"), now)
	upd := s.RecordSpanLog(1, 20*time.Millisecond, []byte("c"), now)

	assert.Equal(t, 10*time.Millisecond, upd.MinTime)
	assert.Equal(t, 30*time.Millisecond, upd.MaxTime)
	assert.True(t, upd.MinTime <= upd.AverageTime)
	assert.True(t, upd.AverageTime <= upd.MaxTime)
}

func TestAverageWindowResetsAtMaxAveragePoints(t *testing.T) {
	s := New(2, time.Minute, time.Millisecond, 1000)
	now := time.Now()

	s.RecordSpanLog(1, 10*time.Millisecond, nil, now)
	upd := s.RecordSpanLog(1, 20*time.Millisecond, nil, now) // hits the window (2 points)

	// window just reset: a third sample alone determines the new average.
	upd2 := s.RecordSpanLog(1, 50*time.Millisecond, nil, now)
	assert.Equal(t, 50*time.Millisecond, upd2.AverageTime)
	_ = upd
}

func TestPushIntervalRespectsEffectivePeriod(t *testing.T) {
	s := New(100, time.Hour, 10*time.Millisecond, 1000) // period clamps up to minPeriod only when configured is smaller
	now := time.Now()

	first := s.RecordSpanLog(1, time.Millisecond, nil, now)
	assert.True(t, first.ShouldPush, "the first observation always pushes (zero last-push time)")

	second := s.RecordSpanLog(1, time.Millisecond, nil, now.Add(time.Millisecond))
	assert.False(t, second.ShouldPush, "too soon since the last push")

	third := s.RecordSpanLog(1, time.Millisecond, nil, now.Add(2*time.Hour))
	assert.True(t, third.ShouldPush)
}

func TestMinPeriodClampsConfiguredPeriod(t *testing.T) {
	s := New(100, time.Millisecond, time.Second, 1000)
	assert.Equal(t, time.Second, s.EffectivePeriod())
}

func TestRecordingBufferCapsAtMaxRows(t *testing.T) {
	s := New(100, time.Minute, time.Millisecond, 1000)
	s.StartRecording(2)
	now := time.Now()

	s.RecordSpanLog(1, time.Millisecond, []byte("row1"), now)
	s.RecordSpanLog(1, time.Millisecond, []byte("row2"), now)
	upd := s.RecordSpanLog(1, time.Millisecond, []byte("row3"), now)
	assert.Equal(t, uint32(2), upd.RunCount, "a third row must not be appended once max_rows is reached")
}

func TestStartRecordingClampsToGlobalMax(t *testing.T) {
	s := New(100, time.Minute, time.Millisecond, 5)
	s.StartRecording(1000)
	assert.Equal(t, uint32(5), s.recordMaxRows)
}

func TestStopRecordingFlushesNonEmptyBuffersOnly(t *testing.T) {
	s := New(100, time.Minute, time.Millisecond, 1000)
	s.StartRecording(10)
	now := time.Now()
	s.RecordSpanLog(1, time.Millisecond, []byte("row"), now)
	s.RecordSpanLog(2, time.Millisecond, nil, now) // recorded but with an empty raw payload still appends a zero-length row

	datasets := s.StopRecording()
	require.Len(t, datasets, 2)

	for _, d := range datasets {
		assert.NotEmpty(t, d.Payload)
	}

	// After stop, buffers are cleared and row counts reset.
	s.mu.Lock()
	for _, n := range s.nodes {
		assert.Equal(t, uint32(0), n.rowCount)
		assert.Nil(t, n.recordingBuffer)
	}
	s.mu.Unlock()
}

func TestQuantileMonotonic(t *testing.T) {
	s := New(1000, time.Minute, time.Millisecond, 1000)
	now := time.Now()
	for i := 1; i <= 100; i++ {
		s.RecordSpanLog(1, time.Duration(i)*time.Millisecond, nil, now)
	}

	p50, ok := s.Quantile(1, 0.5)
	require.True(t, ok)
	p99, ok := s.Quantile(1, 0.99)
	require.True(t, ok)
	assert.LessOrEqual(t, p50, p99)
}

func TestQuantileUnknownNode(t *testing.T) {
	s := New(100, time.Minute, time.Millisecond, 1000)
	_, ok := s.Quantile(42, 0.5)
	assert.False(t, ok)
}
