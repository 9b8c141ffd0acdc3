// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package profilersink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bp3d-tracing/tracing/internal/logmsg"
	"github.com/bp3d-tracing/tracing/internal/spanstack"
	"github.com/bp3d-tracing/tracing/internal/subscriber"
	"github.com/bp3d-tracing/tracing/sink"
)

func TestAllocSentOnlyForNewNode(t *testing.T) {
	s := New(8, 8)
	sub := subscriber.New(s)
	ctx := context.Background()
	meta := &sink.Metadata{Name: "a"}

	first := sub.NewSpan(ctx, meta, sink.Attrs{IsRoot: true})
	second := sub.NewSpan(ctx, meta, sink.Attrs{IsRoot: true})

	msg1 := (<-s.Span()).(AllocMsg)
	assert.Equal(t, first, msg1.ID)

	select {
	case m := <-s.Span():
		t.Fatalf("unexpected second message for existing node: %#v", m)
	default:
	}
	_ = second
}

func TestUpdateParentEmittedOnFirstParentReport(t *testing.T) {
	s := New(8, 8)
	sub := subscriber.New(s)
	ctx := spanstack.Bind(context.Background())

	parent := sub.NewSpan(ctx, &sink.Metadata{Name: "parent"}, sink.Attrs{IsRoot: true})
	<-s.Span() // alloc for parent

	sub.Enter(ctx, parent)
	child := sub.NewSpan(ctx, &sink.Metadata{Name: "child"}, sink.Attrs{})
	<-s.Span() // alloc for child
	upd := (<-s.Span()).(UpdateParentMsg)
	assert.True(t, upd.HasParent)
	assert.Equal(t, parent, upd.Parent)
}

// TestUpdateParentSuppressedWhenUnchanged drives the sink directly
// (bypassing the subscriber, which never calls SpanCreate twice for a
// live instance) to verify the scratch-level suppression: a second
// SpanCreate for the same still-live SpanIdentity with an unchanged
// parent must not re-emit UpdateParent.
func TestUpdateParentSuppressedWhenUnchanged(t *testing.T) {
	s := New(8, 8)
	id := sink.PackSpanID(1, 0)
	meta := &sink.Metadata{Name: "child"}
	parentID := sink.PackSpanID(2, 0)

	s.SpanCreate(id, true, sink.Attrs{HasParent: true, ParentID: parentID}, meta)
	<-s.Span() // alloc
	first := (<-s.Span()).(UpdateParentMsg)
	assert.Equal(t, parentID, first.Parent)

	s.SpanCreate(id, false, sink.Attrs{HasParent: true, ParentID: parentID}, meta)
	select {
	case m := <-s.Span():
		t.Fatalf("unexpected UpdateParent for an unchanged parent: %#v", m)
	default:
	}
}

func TestSpanExitEmitsLogWithFields(t *testing.T) {
	s := New(8, 8)
	sub := subscriber.New(s)
	ctx := spanstack.Bind(context.Background())
	id := sub.NewSpan(ctx, &sink.Metadata{Name: "a"}, sink.Attrs{IsRoot: true})
	<-s.Span() // alloc

	sub.Record(id, []sink.Field{sink.StringField("k", "v")})
	sub.Enter(ctx, id)
	sub.Exit(ctx, id)

	msg := (<-s.Span()).(LogMsg)
	assert.Equal(t, id, msg.ID)
	data := msg.Log.Serialize(msg.Duration)
	nodeID, dur, _, ok := logmsg.ParseSpanLogHeader(data)
	require.True(t, ok)
	assert.Equal(t, id.NodeID(), nodeID)
	assert.Equal(t, msg.Duration, dur)
}

func TestEventEmitsEventLog(t *testing.T) {
	s := New(8, 8)
	sub := subscriber.New(s)
	ctx := context.Background()

	sub.Event(ctx, sink.Event{Level: sink.LevelInfo, Name: "tick", Timestamp: time.Now()})
	msg := (<-s.Span()).(EventMsg)
	require.NotNil(t, msg.Log)
}

func TestCloseStopsBlockingSends(t *testing.T) {
	s := New(0, 0) // unbuffered: any send blocks without a reader
	s.Close()

	done := make(chan struct{})
	go func() {
		s.Announce("app", "crate", "1.0.0")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sendControl did not return after Close")
	}
}

func TestSpanDestroyFreesVisitorScratch(t *testing.T) {
	s := New(8, 8)
	id := sink.PackSpanID(1, 0)
	s.SpanCreate(id, true, sink.Attrs{}, &sink.Metadata{Name: "x"})
	<-s.Span()
	s.SpanDestroy(id)

	_, ok := s.visitors.Load(id)
	assert.False(t, ok)
}
