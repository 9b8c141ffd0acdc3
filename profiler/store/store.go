// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package store implements the profiler's per-node aggregation and
// bounded recording buffer: running min/max/average (with a
// windowed reset to bound drift), an auxiliary quantile sketch, and
// the length-prefixed raw-span-log recording buffer flushed as a
// SpanDataset when recording stops.
package store

import (
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	internallog "github.com/bp3d-tracing/tracing/internal/log"
)

// sketchRelativeAccuracy is the relative accuracy requested from the
// quantile sketch; 2% is the library's own documented default use.
const sketchRelativeAccuracy = 0.02

// node is the per-node_id aggregation and recording state.
type node struct {
	rowCount        uint32
	averageRunCount uint32
	fullRunCount    uint64
	hasSample       bool
	minTime         time.Duration
	maxTime         time.Duration
	totalTime       time.Duration
	lastPushTime    time.Time
	recordingBuffer []byte
	sketch          *ddsketch.DDSketch
}

// Update is the result of recording one SpanLog: the refreshed
// aggregates, and whether enough time has elapsed to push a
// SpanUpdate to the wire.
type Update struct {
	NodeID      uint32
	RunCount    uint32
	AverageTime time.Duration
	MinTime     time.Duration
	MaxTime     time.Duration
	ShouldPush  bool
}

// Dataset is one node's flushed recording buffer, ready to become a
// SpanDataset wire message.
type Dataset struct {
	NodeID   uint32
	RunCount uint32
	Payload  []byte
}

// Store owns the aggregation and recording state for every node_id
// the worker has allocated. The worker is its sole owner, but
// Store's own methods are safe to call from any single goroutine that
// serializes access to it the way the worker loop does.
type Store struct {
	mu               sync.Mutex
	nodes            map[uint32]*node
	maxAveragePoints uint32
	period           time.Duration
	minPeriod        time.Duration
	globalMaxRows    uint32

	recording     bool
	recordMaxRows uint32
}

// New creates a Store. period is the configured push period (clamped
// to minPeriod); globalMaxRows bounds any ClientRecord
// request.
func New(maxAveragePoints uint32, period, minPeriod time.Duration, globalMaxRows uint32) *Store {
	return &Store{
		nodes:            make(map[uint32]*node),
		maxAveragePoints: maxAveragePoints,
		period:           period,
		minPeriod:        minPeriod,
		globalMaxRows:    globalMaxRows,
	}
}

// EffectivePeriod is max(configured period, minPeriod).
func (s *Store) EffectivePeriod() time.Duration {
	if s.period < s.minPeriod {
		return s.minPeriod
	}
	return s.period
}

func (s *Store) nodeFor(id uint32) *node {
	n, ok := s.nodes[id]
	if !ok {
		sketch, err := ddsketch.NewDefaultDDSketch(sketchRelativeAccuracy)
		if err != nil {
			internallog.Error("store: failed to allocate quantile sketch for node %d: %v", id, err)
		}
		n = &node{sketch: sketch}
		s.nodes[id] = n
	}
	return n
}

// RecordSpanLog implements the per-SpanLog aggregate update,
// recording-buffer append, and periodic-push check.
func (s *Store) RecordSpanLog(nodeID uint32, dur time.Duration, raw []byte, now time.Time) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.nodeFor(nodeID)
	n.fullRunCount++

	if !n.hasSample {
		n.hasSample = true
		n.minTime = dur
		n.maxTime = dur
	} else {
		if dur < n.minTime {
			n.minTime = dur
		}
		if dur > n.maxTime {
			n.maxTime = dur
		}
	}

	n.averageRunCount++
	n.totalTime += dur
	if n.averageRunCount >= s.maxAveragePoints {
		n.averageRunCount = 0
		n.totalTime = 0
	}

	if n.sketch != nil {
		if err := n.sketch.Add(dur.Seconds()); err != nil {
			internallog.Error("store: sketch add failed for node %d: %v", nodeID, err)
		}
	}

	if s.recording && n.rowCount < s.recordMaxRows {
		n.recordingBuffer = appendLengthPrefixed(n.recordingBuffer, raw)
		n.rowCount++
	}

	shouldPush := now.Sub(n.lastPushTime) >= s.EffectivePeriod()
	if shouldPush {
		n.lastPushTime = now
	}

	return Update{
		NodeID:      nodeID,
		RunCount:    n.rowCount,
		AverageTime: average(n),
		MinTime:     n.minTime,
		MaxTime:     n.maxTime,
		ShouldPush:  shouldPush,
	}
}

// Quantile reports the sketch's estimate at quantile q for nodeID, if
// at least one sample has been recorded.
func (s *Store) Quantile(nodeID uint32, q float64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[nodeID]
	if !ok || n.sketch == nil || n.fullRunCount == 0 {
		return 0, false
	}
	v, err := n.sketch.GetValueAtQuantile(q)
	if err != nil {
		return 0, false
	}
	return v, true
}

// StartRecording implements the start-recording transition: the
// effective cap is min(requested, globalMaxRows); every node's buffer
// is reset so the new recording window starts empty.
func (s *Store) StartRecording(requestedMaxRows uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maxRows := requestedMaxRows
	if maxRows > s.globalMaxRows {
		maxRows = s.globalMaxRows
	}
	s.recording = true
	s.recordMaxRows = maxRows
	for _, n := range s.nodes {
		n.rowCount = 0
		n.recordingBuffer = nil
	}
}

// StopRecording implements the stop-recording flush: every node
// with a non-empty buffer yields a Dataset, then its buffer is
// cleared and its row count reset.
func (s *Store) StopRecording() []Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = false

	var out []Dataset
	for id, n := range s.nodes {
		if len(n.recordingBuffer) == 0 {
			continue
		}
		out = append(out, Dataset{NodeID: id, RunCount: n.rowCount, Payload: n.recordingBuffer})
		n.recordingBuffer = nil
		n.rowCount = 0
	}
	return out
}

func average(n *node) time.Duration {
	if n.averageRunCount == 0 {
		return 0
	}
	return n.totalTime / time.Duration(n.averageRunCount)
}

func appendLengthPrefixed(buf []byte, raw []byte) []byte {
	var lenBuf [4]byte
	putUint32(lenBuf[:], uint32(len(raw)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, raw...)
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
