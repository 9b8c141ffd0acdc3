// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package tracing

import (
	"time"

	"github.com/bp3d-tracing/tracing/sink"
)

// noopSink backs mode "none": every callback is a no-op and Enabled
// reports false, so the subscriber core's Enabled(meta) short-circuits
// before any work is done on the instrumented path.
type noopSink struct{}

func (noopSink) Enabled() bool                        { return false }
func (noopSink) MaxLevelHint() (sink.Level, bool)      { return 0, false }
func (noopSink) SpanCreate(sink.SpanID, bool, sink.Attrs, *sink.Metadata) {}
func (noopSink) SpanRecord(sink.SpanID, []sink.Field)  {}
func (noopSink) SpanFollows(sink.SpanID, sink.SpanID)  {}
func (noopSink) Event(sink.Event)                      {}
func (noopSink) SpanEnter(sink.SpanID)                 {}
func (noopSink) SpanExit(sink.SpanID, time.Duration)   {}
func (noopSink) SpanDestroy(sink.SpanID)               {}

var _ sink.Sink = noopSink{}
