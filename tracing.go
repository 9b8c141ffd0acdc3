// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package tracing is the library's public entry point: it wires the
// configured sink (log sink, profiler sink, or none) to a subscriber
// core and returns a Guard owning every resource that was allocated.
package tracing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bp3d-tracing/tracing/config"
	internallog "github.com/bp3d-tracing/tracing/internal/log"
	"github.com/bp3d-tracing/tracing/internal/spanstack"
	"github.com/bp3d-tracing/tracing/internal/subscriber"
	"github.com/bp3d-tracing/tracing/internal/version"
	"github.com/bp3d-tracing/tracing/profiler/discovery"
	"github.com/bp3d-tracing/tracing/profiler/worker"
	"github.com/bp3d-tracing/tracing/sink"
	"github.com/bp3d-tracing/tracing/sink/logsink"
	"github.com/bp3d-tracing/tracing/sink/profilersink"
)

// ErrAlreadyInitialized is returned by Initialize when a Guard from an
// earlier call is still open.
var ErrAlreadyInitialized = errors.New("tracing: already initialized")

var (
	initMu sync.Mutex
	active bool
)

// Guard owns every resource Initialize allocated for one process
// lifetime: the worker goroutine, the discovery broadcaster, and any
// open file logger. Close releases them all; calling Close more than
// once is safe.
type Guard struct {
	sub    *subscriber.Subscriber
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce  sync.Once
	fileLogger *internallog.FileLogger
	profSink   *profilersink.Sink
	broadcast  *discovery.Broadcaster

	workerErrMu sync.Mutex
	workerErr   error
}

// Subscriber returns the subscriber core instrumentation calls into.
func (g *Guard) Subscriber() *subscriber.Subscriber { return g.sub }

// Bind attaches a fresh current-span stack to ctx (see
// internal/spanstack), for a goroutine that will call into Subscriber.
func (g *Guard) Bind(ctx context.Context) context.Context { return spanstack.Bind(ctx) }

// Wait blocks until the worker loop and the discovery broadcaster
// (mode "profiler" only) have exited and returns the worker's error,
// or returns nil immediately in any other mode. The broadcaster runs
// until Close, so in profiler mode Wait does not return before Close
// is called, even when the worker has already stopped.
// cmd/tracingctl calls Close and then Wait to surface a profiler
// worker failure as a process exit code.
func (g *Guard) Wait() error {
	g.wg.Wait()
	g.workerErrMu.Lock()
	defer g.workerErrMu.Unlock()
	return g.workerErr
}

// Close releases every resource this Guard owns and clears the
// already-initialized guard so Initialize can be called again.
func (g *Guard) Close() {
	g.closeOnce.Do(func() {
		g.cancel()
		if g.profSink != nil {
			g.profSink.Close()
		}
		if g.broadcast != nil {
			g.broadcast.Close()
		}
		g.wg.Wait()
		if g.fileLogger != nil {
			g.fileLogger.Close()
		}
		internallog.Flush()

		initMu.Lock()
		active = false
		initMu.Unlock()
	})
}

// Initialize loads configuration and wires the selected sink —
// log sink, profiler sink, or none — to a fresh subscriber core.
// Calling Initialize again before the returned Guard is Closed returns
// ErrAlreadyInitialized.
func Initialize(appName, crateName, crateVersion string) (*Guard, error) {
	initMu.Lock()
	if active {
		initMu.Unlock()
		return nil, ErrAlreadyInitialized
	}
	active = true
	initMu.Unlock()

	g, err := initialize(appName, crateName, crateVersion)
	if err != nil {
		initMu.Lock()
		active = false
		initMu.Unlock()
		return nil, err
	}
	return g, nil
}

func initialize(appName, crateName, crateVersion string) (*Guard, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Guard{cancel: cancel}

	if cfg.Logger.File != "" {
		fl, err := internallog.OpenFileAtPath(cfg.Logger.File)
		if err != nil {
			cancel()
			return nil, err
		}
		g.fileLogger = fl
	}

	s, err := buildSink(ctx, g, cfg, appName, crateName, crateVersion)
	if err != nil {
		cancel()
		if g.fileLogger != nil {
			g.fileLogger.Close()
		}
		return nil, err
	}

	g.sub = subscriber.New(s)
	return g, nil
}

func buildSink(ctx context.Context, g *Guard, cfg *config.Config, appName, crateName, crateVersion string) (sink.Sink, error) {
	switch cfg.Mode {
	case config.ModeNone:
		return noopSink{}, nil

	case config.ModeProfiler:
		ps := profilersink.New(256, 16)
		g.profSink = ps

		w := worker.New(worker.Config{
			Port:      cfg.Profiler.Port,
			MaxRows:   cfg.Profiler.MaxRows,
			MinPeriod: time.Duration(cfg.Profiler.MinPeriod) * time.Millisecond,
		}, ps)

		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			if err := w.Run(ctx); err != nil {
				internallog.Error("tracing: worker stopped: %v", err)
				g.workerErrMu.Lock()
				g.workerErr = err
				g.workerErrMu.Unlock()
			}
		}()
		ps.Announce(appName, crateName, crateVersion)

		if b, err := discovery.NewBroadcaster(cfg.Profiler.Port, version.Major, appName); err != nil {
			internallog.Warn("tracing: discovery broadcaster disabled: %v", err)
		} else {
			g.broadcast = b
			g.wg.Add(1)
			go func() {
				defer g.wg.Done()
				b.Run(ctx)
			}()
		}
		return ps, nil

	default: // ModeLogger, and any unrecognized value
		return logsink.New(cfg.Logger.ParsedLevel(), cfg.Logger.ColorEnabled(), !cfg.Logger.ConsoleStderr, g.fileLogger), nil
	}
}

// Setup is a convenience wrapper over Initialize using this module's
// own identity for crateName/crateVersion, mirroring the source's
// setup! macro.
func Setup(appName string) (*Guard, error) {
	return Initialize(appName, "bp3d-tracing", version.Tag)
}
