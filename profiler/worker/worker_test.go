// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package worker

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bp3d-tracing/tracing/internal/version"
	"github.com/bp3d-tracing/tracing/profiler/wire"
	"github.com/bp3d-tracing/tracing/sink"
	"github.com/bp3d-tracing/tracing/sink/profilersink"
)

func freePort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return uint16(port)
}

func TestHandshakeRejectsIncompatiblePeer(t *testing.T) {
	port := freePort(t)
	ps := profilersink.New(8, 8)
	w := New(Config{Port: port, MaxRows: 100, MinPeriod: 10 * time.Millisecond}, ps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond) // let the listener come up

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port))))
	require.NoError(t, err)
	defer conn.Close()

	_, err = wire.ReadHello(conn)
	require.NoError(t, err)
	require.NoError(t, wire.WriteHello(conn, wire.NewHello(version.Major+1, "")))

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not reject the incompatible handshake")
	}
}

func TestFullHandshakeAndProjectMessage(t *testing.T) {
	port := freePort(t)
	ps := profilersink.New(8, 8)
	w := New(Config{Port: port, MaxRows: 100, MinPeriod: 10 * time.Millisecond}, ps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port))))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, clientHandshake(conn))

	ps.Announce("myapp", "mycrate", "1.0.0")

	frame, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	assert.Equal(t, wire.TagProject, frame.Tag)
	proj, ok := wire.DecodeProject(frame.Payload)
	require.True(t, ok)
	assert.Equal(t, "myapp", proj.App)

	ps.Close()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not shut down after Close")
	}
}

func TestSpanAllocFlowsToWire(t *testing.T) {
	port := freePort(t)
	ps := profilersink.New(8, 8)
	w := New(Config{Port: port, MaxRows: 100, MinPeriod: 10 * time.Millisecond}, ps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port))))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, clientHandshake(conn))

	meta := &sink.Metadata{Name: "handler", Target: "myapp"}
	ps.SpanCreate(sink.PackSpanID(1, 0), true, sink.Attrs{IsRoot: true}, meta)

	frame, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	assert.Equal(t, wire.TagSpanAlloc, frame.Tag)
	alloc, ok := wire.DecodeSpanAlloc(frame.Header, frame.Payload)
	require.True(t, ok)
	assert.Equal(t, "handler", alloc.Metadata.Name)
}

func clientHandshake(conn net.Conn) error {
	if _, err := wire.ReadHello(conn); err != nil {
		return err
	}
	if err := wire.WriteHello(conn, wire.NewHello(version.Major, version.PreRelease)); err != nil {
		return err
	}
	if _, err := wire.ReadFrame(conn); err != nil { // ServerConfig
		return err
	}
	return wire.WriteClientConfig(conn, wire.ClientConfig{MaxAveragePoints: 100, Period: 1})
}
