// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package profilersink implements the profiler sink: it translates
// subscriber callbacks into messages on two bounded
// channels consumed by the worker loop (package profiler/worker), and
// keeps a per-span-instance scratch used to build the TLV log records
// and to suppress redundant parent updates.
package profilersink

import (
	"sync"
	"time"

	"github.com/bp3d-tracing/tracing/internal/logmsg"
	"github.com/bp3d-tracing/tracing/sink"
)

// SpanMsg is the sealed union of messages carried on the span
// channel: Alloc, UpdateParent, Follows, Log and Event.
type SpanMsg interface{ spanMsg() }

// AllocMsg registers a span's call-site node with the worker; emitted
// once per node id, the first time it is observed.
type AllocMsg struct {
	ID       sink.SpanID
	Metadata *sink.Metadata
}

// UpdateParentMsg reports a change in a node's parent, emitted only
// when it differs from the last value reported for this instance.
type UpdateParentMsg struct {
	ID        sink.SpanID
	Parent    sink.SpanID
	HasParent bool
}

// FollowsMsg reports a follows-from relationship between two spans.
type FollowsMsg struct {
	ID      sink.SpanID
	Follows sink.SpanID
}

// LogMsg carries a finalized span-exit record: the node's TLV field
// log and the measured duration.
type LogMsg struct {
	ID       sink.SpanID
	Log      *logmsg.SpanLog
	Duration time.Duration
}

// EventMsg carries a point-in-time event record.
type EventMsg struct {
	Log *logmsg.EventLog
}

func (AllocMsg) spanMsg()        {}
func (UpdateParentMsg) spanMsg() {}
func (FollowsMsg) spanMsg()      {}
func (LogMsg) spanMsg()          {}
func (EventMsg) spanMsg()        {}

// ControlMsg is the sealed union of messages carried on the control
// channel: Project and Terminate.
type ControlMsg interface{ controlMsg() }

// ProjectMsg identifies the instrumented process to the debugger UI.
type ProjectMsg struct {
	App     string
	Crate   string
	Version string
}

// TerminateMsg requests an orderly shutdown of the worker loop.
type TerminateMsg struct{}

func (ProjectMsg) controlMsg()   {}
func (TerminateMsg) controlMsg() {}

// visitor is the per-SpanIdentity scratch: it holds the node's TLV
// field log under construction and the last parent
// reported to the wire, so span_create can suppress a redundant
// UpdateParent when the parent hasn't actually changed.
type visitor struct {
	mu         sync.Mutex
	meta       *sink.Metadata
	hasParent  bool
	lastParent sink.SpanID
	log        logmsg.SpanLog
}

// Sink is a sink.Sink dispatching to a worker over two bounded,
// blocking channels. Construct with New; Close requests an orderly
// shutdown.
type Sink struct {
	span     chan SpanMsg
	control  chan ControlMsg
	visitors sync.Map // sink.SpanID -> *visitor

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a profiler sink. spanBuf and controlBuf size the two
// channels; the worker loop should read from Span() and Control().
func New(spanBuf, controlBuf int) *Sink {
	return &Sink{
		span:    make(chan SpanMsg, spanBuf),
		control: make(chan ControlMsg, controlBuf),
		done:    make(chan struct{}),
	}
}

// Span returns the channel the worker reads SpanMsg values from.
func (s *Sink) Span() <-chan SpanMsg { return s.span }

// Control returns the channel the worker reads ControlMsg values from.
func (s *Sink) Control() <-chan ControlMsg { return s.control }

// Announce sends the process identification message, blocking until
// accepted or the sink is closed.
func (s *Sink) Announce(app, crate, version string) {
	s.sendControl(ProjectMsg{App: app, Crate: crate, Version: version})
}

// Close requests an orderly shutdown: it makes a best-effort,
// non-blocking attempt to deliver a terminate message, then marks the
// sink closed so any call racing with shutdown — including one
// already blocked in a send — is released instead of blocking
// forever or panicking on a closed channel.
func (s *Sink) Close() {
	select {
	case s.control <- TerminateMsg{}:
	default:
	}
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Sink) Enabled() bool { return true }

// MaxLevelHint: the profiler records everything regardless of level;
// filtering is the log sink's job.
func (s *Sink) MaxLevelHint() (sink.Level, bool) { return 0, false }

func (s *Sink) visitorFor(id sink.SpanID) *visitor {
	v, _ := s.visitors.LoadOrStore(id, &visitor{})
	return v.(*visitor)
}

func (s *Sink) SpanCreate(id sink.SpanID, isNewNode bool, attrs sink.Attrs, meta *sink.Metadata) {
	v := s.visitorFor(id)

	v.mu.Lock()
	v.meta = meta
	v.log.Reset(id.NodeID())
	changed := attrs.HasParent != v.hasParent || (attrs.HasParent && attrs.ParentID != v.lastParent)
	v.hasParent = attrs.HasParent
	v.lastParent = attrs.ParentID
	for _, f := range attrs.Fields {
		v.log.AddField(f)
	}
	v.mu.Unlock()

	if isNewNode {
		s.sendSpan(AllocMsg{ID: id, Metadata: meta})
	}
	if changed {
		s.sendSpan(UpdateParentMsg{ID: id, Parent: attrs.ParentID, HasParent: attrs.HasParent})
	}
}

func (s *Sink) SpanRecord(id sink.SpanID, fields []sink.Field) {
	v := s.visitorFor(id)
	v.mu.Lock()
	for _, f := range fields {
		v.log.AddField(f)
	}
	v.mu.Unlock()
}

func (s *Sink) SpanFollows(id, follows sink.SpanID) {
	s.sendSpan(FollowsMsg{ID: id, Follows: follows})
}

func (s *Sink) Event(ev sink.Event) {
	el := logmsg.NewEventLog(ev.HasParent, ev.ParentID.NodeID(), ev.Timestamp, ev.Level, ev.Target, ev.ModulePath)
	for _, f := range ev.Fields {
		el.AddField(f)
	}
	s.sendSpan(EventMsg{Log: el})
}

func (s *Sink) SpanEnter(id sink.SpanID) {}

func (s *Sink) SpanExit(id sink.SpanID, dur time.Duration) {
	v := s.visitorFor(id)
	v.mu.Lock()
	clone := v.log.Clone()
	v.mu.Unlock()

	s.sendSpan(LogMsg{ID: id, Log: clone, Duration: dur})
}

func (s *Sink) SpanDestroy(id sink.SpanID) {
	s.visitors.Delete(id)
}

func (s *Sink) sendSpan(msg SpanMsg) {
	select {
	case s.span <- msg:
	case <-s.done:
	}
}

func (s *Sink) sendControl(msg ControlMsg) {
	select {
	case s.control <- msg:
	case <-s.done:
	}
}

var _ sink.Sink = (*Sink)(nil)
