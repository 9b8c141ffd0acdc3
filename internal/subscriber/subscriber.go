// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package subscriber implements the subscriber core: span
// allocation, reference-counted lifetime, parent resolution, and
// dispatch to a pluggable sink. It owns the call-site and span-record
// maps behind a single mutex and never holds that mutex while invoking
// the sink, so a sink implementation can safely do its own (possibly
// blocking) work without risking a deadlock against the subscriber —
// provided it never calls back into the subscriber from the
// same goroutine.
package subscriber

import (
	"context"

	"go.uber.org/atomic"

	"github.com/bp3d-tracing/tracing/internal/locking"
	"github.com/bp3d-tracing/tracing/internal/spanstack"
	"github.com/bp3d-tracing/tracing/sink"
)

// callSiteRecord is the per-call-site bookkeeping.
type callSiteRecord struct {
	nodeID         uint32
	nextInstance   uint32
	liveInstances  uint32
	freedInstances []uint32
}

// spanRecord is the per-live-SpanIdentity bookkeeping.
type spanRecord struct {
	refCount atomic.Uint32
	meta     *sink.Metadata
}

// Subscriber is the subscriber core. The zero value is not usable; use New.
type Subscriber struct {
	mu         locking.Mutex
	callSites  map[*sink.Metadata]*callSiteRecord
	spans      map[sink.SpanID]*spanRecord
	nextNodeID atomic.Uint32

	sink sink.Sink
}

// New creates a Subscriber dispatching to the given sink.
func New(s sink.Sink) *Subscriber {
	return &Subscriber{
		callSites: make(map[*sink.Metadata]*callSiteRecord),
		spans:     make(map[sink.SpanID]*spanRecord),
		sink:      s,
	}
}

// Enabled implements the enabled(metadata) check: the sink's own
// on/off switch, then the level-hint comparison with the documented
// inversion (higher severity compares smaller).
func (s *Subscriber) Enabled(meta *sink.Metadata) bool {
	if !s.sink.Enabled() {
		return false
	}
	hint, ok := s.sink.MaxLevelHint()
	if !ok {
		return true
	}
	return meta.Level <= hint
}

// NewSpan allocates an instance id for
// meta's call site (assigning a node id on first sight), resolves the
// parent, and notifies the sink. ctx must have been produced by
// spanstack.Bind on the calling goroutine for parent inference and
// cross-goroutine handoff to work; a ctx that was never bound simply
// yields no inferred parent, which is tolerated.
func (s *Subscriber) NewSpan(ctx context.Context, meta *sink.Metadata, attrs sink.Attrs) sink.SpanID {
	s.mu.Lock()
	cs, ok := s.callSites[meta]
	isNewNode := !ok
	if !ok {
		cs = &callSiteRecord{nodeID: s.nextNodeID.Inc()}
		s.callSites[meta] = cs
	}

	var instance uint32
	if n := len(cs.freedInstances); n > 0 {
		instance = cs.freedInstances[n-1]
		cs.freedInstances = cs.freedInstances[:n-1]
	} else {
		instance = cs.nextInstance
		cs.nextInstance++
	}
	cs.liveInstances++

	id := sink.PackSpanID(cs.nodeID, instance)
	rec := &spanRecord{meta: meta}
	rec.refCount.Store(1)
	s.spans[id] = rec
	s.mu.Unlock()

	if !attrs.IsRoot && !attrs.HasParent {
		if cur, ok := spanstack.Current(ctx); ok {
			attrs.ParentID = sink.SpanID(cur)
			attrs.HasParent = true
		}
	}
	if attrs.IsRoot {
		attrs.HasParent = false
		attrs.ParentID = 0
	}

	s.sink.SpanCreate(id, isNewNode, attrs, meta)
	return id
}

// Record forwards to the sink's SpanRecord.
func (s *Subscriber) Record(id sink.SpanID, fields []sink.Field) {
	s.sink.SpanRecord(id, fields)
}

// RecordFollowsFrom notifies the sink of a follows-from relationship.
func (s *Subscriber) RecordFollowsFrom(id, other sink.SpanID) {
	s.sink.SpanFollows(id, other)
}

// Event resolves the parent from the
// thread-local (here: context-local) current span, then forward.
func (s *Subscriber) Event(ctx context.Context, ev sink.Event) {
	if !ev.HasParent {
		if cur, ok := spanstack.Current(ctx); ok {
			ev.ParentID = sink.SpanID(cur)
			ev.HasParent = true
		}
	}
	s.sink.Event(ev)
}

// Enter pushes onto the context-local stack,
// then notify the sink.
func (s *Subscriber) Enter(ctx context.Context, id sink.SpanID) {
	spanstack.Push(ctx, uint64(id))
	s.sink.SpanEnter(id)
}

// Exit pops the matching frame and notifies the
// sink only if one was found — an exit with no matching entry is a
// tolerated instrumentation bug, never an error.
func (s *Subscriber) Exit(ctx context.Context, id sink.SpanID) {
	if dur, ok := spanstack.Pop(ctx, uint64(id)); ok {
		s.sink.SpanExit(id, dur)
	}
}

// CloneSpan increments the ref count and
// return the same id. A clone of an id the subscriber no longer knows
// about (already destroyed) is a silent no-op, per the infallible
// failure model.
func (s *Subscriber) CloneSpan(id sink.SpanID) sink.SpanID {
	s.mu.Lock()
	if rec, ok := s.spans[id]; ok {
		rec.refCount.Inc()
	}
	s.mu.Unlock()
	return id
}

// TryClose decrements the ref count, and
// when it reaches zero, return the instance to its call site's free
// pool (resetting the pool entirely once the call site quiesces),
// remove the span record, and notify the sink. Returns true iff this
// call caused destruction.
func (s *Subscriber) TryClose(id sink.SpanID) bool {
	s.mu.Lock()
	rec, ok := s.spans[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if remaining := rec.refCount.Dec(); remaining > 0 {
		s.mu.Unlock()
		return false
	}
	delete(s.spans, id)

	if cs, ok := s.callSites[rec.meta]; ok {
		cs.liveInstances--
		if cs.liveInstances == 0 {
			cs.nextInstance = 0
			cs.freedInstances = nil
		} else {
			cs.freedInstances = append(cs.freedInstances, id.InstanceID())
		}
	}
	s.mu.Unlock()

	s.sink.SpanDestroy(id)
	return true
}

// CurrentSpan reports the current span from the context-local stack.
func (s *Subscriber) CurrentSpan(ctx context.Context) (sink.SpanID, *sink.Metadata, bool) {
	cur, ok := spanstack.Current(ctx)
	if !ok {
		return 0, nil, false
	}
	id := sink.SpanID(cur)
	s.mu.Lock()
	rec, ok := s.spans[id]
	s.mu.Unlock()
	if !ok {
		return id, nil, false
	}
	return id, rec.meta, true
}

// LiveInstances reports the number of currently live instances of
// meta's call site, for tests verifying quiescence/reuse behavior.
func (s *Subscriber) LiveInstances(meta *sink.Metadata) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.callSites[meta]; ok {
		return cs.liveInstances
	}
	return 0
}
