// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package worker implements the profiler's worker loop: a
// single cooperative task that accepts exactly one TCP client,
// performs the handshake and config exchange, then multiplexes
// inbound socket reads against the profiler sink's span and control
// channels until told to terminate.
package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/bp3d-tracing/tracing/internal/cpuinfo"
	internallog "github.com/bp3d-tracing/tracing/internal/log"
	"github.com/bp3d-tracing/tracing/internal/version"
	"github.com/bp3d-tracing/tracing/profiler/store"
	"github.com/bp3d-tracing/tracing/profiler/wire"
	"github.com/bp3d-tracing/tracing/sink"
	"github.com/bp3d-tracing/tracing/sink/profilersink"
)

// errTerminated is returned internally when shutdown was requested
// (Terminate control message, or a closed sink or inbound channel)
// rather than caused by a genuine connection failure; Run translates
// it to nil. Context cancellation surfaces as ctx.Err(), which Run
// also treats as an orderly shutdown.
var errTerminated = errors.New("worker: terminated")

// Config holds the worker's static, pre-handshake settings.
type Config struct {
	Port      uint16
	MaxRows   uint32
	MinPeriod time.Duration
}

// Worker runs the profiler's accept-and-serve loop.
type Worker struct {
	cfg  Config
	sink *profilersink.Sink
}

// New creates a Worker driven by the given profiler sink.
func New(cfg Config, s *profilersink.Sink) *Worker {
	return &Worker{cfg: cfg, sink: s}
}

// Run binds the configured port, accepts one client, and serves it
// until the connection ends, the sink is closed, or ctx is canceled.
// It returns nil on an orderly shutdown.
func (w *Worker) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", w.cfg.Port))
	if err != nil {
		return fmt.Errorf("worker: listen: %w", err)
	}
	defer ln.Close()

	conn, err := acceptWithContext(ctx, ln)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("worker: accept: %w", err)
	}
	defer conn.Close()

	st, err := w.handshake(conn)
	if err != nil {
		return fmt.Errorf("worker: handshake: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	inbound := make(chan wire.Frame)
	var stopped atomic.Bool
	g.Go(func() error {
		err := readInbound(conn, inbound)
		if stopped.Load() {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := w.serve(gctx, conn, inbound, st)
		stopped.Store(true)
		conn.Close() // unblocks the reader goroutine on shutdown
		if errors.Is(err, errTerminated) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func acceptWithContext(ctx context.Context, ln net.Listener) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		ch <- result{conn: c, err: err}
	}()
	select {
	case <-ctx.Done():
		ln.Close()
		<-ch
		return nil, ctx.Err()
	case r := <-ch:
		return r.conn, r.err
	}
}

// handshake performs the Hello exchange and the immediately
// following ServerConfig/ClientConfig negotiation, and constructs the
// store sized by the client's reported max_average_points.
func (w *Worker) handshake(conn net.Conn) (*store.Store, error) {
	hello := wire.NewHello(version.Major, version.PreRelease)
	if err := wire.WriteHello(conn, hello); err != nil {
		return nil, err
	}
	peer, err := wire.ReadHello(conn)
	if err != nil {
		return nil, err
	}
	if !hello.Compatible(peer) {
		return nil, fmt.Errorf("incompatible peer: %+v", peer)
	}

	if err := wire.WriteServerConfig(conn, wire.ServerConfig{
		MaxRows:   w.cfg.MaxRows,
		MinPeriod: uint16(w.cfg.MinPeriod / time.Millisecond),
	}); err != nil {
		return nil, err
	}

	frame, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, err
	}
	if frame.Tag != wire.TagClientConfig {
		return nil, fmt.Errorf("expected ClientConfig, got tag %d", frame.Tag)
	}
	cc, ok := wire.DecodeClientConfig(frame.Header)
	if !ok {
		return nil, fmt.Errorf("malformed ClientConfig")
	}

	st := store.New(cc.MaxAveragePoints, time.Duration(cc.Period)*time.Millisecond, w.cfg.MinPeriod, w.cfg.MaxRows)
	if cc.RecordEnable {
		st.StartRecording(cc.RecordMaxRows)
	}
	return st, nil
}

func readInbound(conn net.Conn, out chan<- wire.Frame) error {
	defer close(out)
	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			return err
		}
		out <- frame
	}
}

// serve is the cooperative multiplexing loop.
func (w *Worker) serve(ctx context.Context, conn net.Conn, inbound <-chan wire.Frame, st *store.Store) error {
	bw := bufio.NewWriter(conn)
	ticker := time.NewTicker(st.EffectivePeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bw.Flush()
			return ctx.Err()

		case frame, ok := <-inbound:
			if !ok {
				bw.Flush()
				return errTerminated
			}
			if frame.Tag == wire.TagClientRecord {
				cr, ok := wire.DecodeClientRecord(frame.Header)
				if !ok {
					internallog.Warn("worker: malformed ClientRecord frame")
					continue
				}
				if cr.Enable {
					st.StartRecording(cr.MaxRows)
				} else {
					for _, ds := range st.StopRecording() {
						writeDataset(bw, ds)
					}
					bw.Flush()
				}
			}

		case msg, ok := <-w.sink.Span():
			if !ok {
				bw.Flush()
				return errTerminated
			}
			if err := w.handleSpanMsg(bw, st, msg); err != nil {
				return err
			}

		case msg, ok := <-w.sink.Control():
			if !ok {
				bw.Flush()
				return errTerminated
			}
			switch m := msg.(type) {
			case profilersink.ProjectMsg:
				if err := wire.WriteProject(bw, buildProject(m)); err != nil {
					return err
				}
				bw.Flush()
			case profilersink.TerminateMsg:
				for _, ds := range st.StopRecording() {
					writeDataset(bw, ds)
				}
				bw.Flush()
				return errTerminated
			}

		case <-ticker.C:
			bw.Flush()
		}
	}
}

// writeDataset compresses the recording-buffer payload above
// wire.CompressThreshold before sending.
func writeDataset(bw *bufio.Writer, ds store.Dataset) error {
	payload, compressed := wire.CompressDataset(ds.Payload)
	return wire.WriteSpanDataset(bw, wire.SpanDataset{
		ID:         uint64(ds.NodeID),
		RunCount:   ds.RunCount,
		Compressed: compressed,
		Payload:    payload,
	})
}

func (w *Worker) handleSpanMsg(bw *bufio.Writer, st *store.Store, msg profilersink.SpanMsg) error {
	switch m := msg.(type) {
	case profilersink.AllocMsg:
		return wire.WriteSpanAlloc(bw, wire.SpanAlloc{ID: uint64(m.ID), Metadata: spanMetadataFrom(m.Metadata)})

	case profilersink.UpdateParentMsg:
		parentNode := uint32(0)
		if m.HasParent {
			parentNode = m.Parent.NodeID()
		}
		return wire.WriteSpanParent(bw, wire.SpanParent{ID: uint64(m.ID), ParentNode: parentNode})

	case profilersink.FollowsMsg:
		return wire.WriteSpanFollows(bw, wire.SpanFollows{ID: uint64(m.ID), Follows: uint64(m.Follows)})

	case profilersink.LogMsg:
		raw := m.Log.Serialize(m.Duration)
		upd := st.RecordSpanLog(m.ID.NodeID(), m.Duration, raw, time.Now())
		if upd.ShouldPush {
			if err := wire.WriteSpanUpdate(bw, wire.SpanUpdate{
				ID:          uint64(upd.NodeID),
				RunCount:    upd.RunCount,
				AverageTime: wire.DurationFromGo(upd.AverageTime),
				MinTime:     wire.DurationFromGo(upd.MinTime),
				MaxTime:     wire.DurationFromGo(upd.MaxTime),
			}); err != nil {
				return err
			}
		}
		return nil

	case profilersink.EventMsg:
		return wire.WriteSpanEvent(bw, wire.SpanEvent{
			ID:                   uint64(m.Log.ParentID),
			TimestampUnixSeconds: uint32(m.Log.Timestamp.Unix()),
			Level:                m.Log.Level,
			Payload:              m.Log.Serialize(),
		})
	}
	return nil
}

func spanMetadataFrom(meta *sink.Metadata) wire.SpanMetadata {
	return wire.SpanMetadata{
		Level:      meta.Level,
		HasLine:    meta.Line != 0,
		Line:       meta.Line,
		Name:       meta.Name,
		Target:     meta.Target,
		HasModule:  meta.ModulePath != "",
		ModulePath: meta.ModulePath,
		HasFile:    meta.File != "",
		File:       meta.File,
	}
}

func buildProject(m profilersink.ProjectMsg) wire.Project {
	p := wire.Project{
		App:     m.App,
		Name:    m.Crate,
		Version: m.Version,
		Target:  wire.Target{OS: runtime.GOOS, Family: family(runtime.GOOS), Arch: runtime.GOARCH},
	}
	if info, ok := cpuinfo.Probe(); ok {
		p.CPU = &wire.CPU{Name: info.Name, CoreCount: info.CoreCount}
	}
	return p
}

func family(goos string) string {
	switch goos {
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "aix":
		return "unix"
	case "windows":
		return "windows"
	default:
		return "unknown"
	}
}
