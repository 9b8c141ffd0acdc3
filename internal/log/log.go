// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package log is this library's own ambient diagnostic logger. It is
// distinct from the log sink: the log sink formats *instrumented*
// spans and events for the application; this package is what the
// worker loop, the span store, the discovery broadcaster and the CPU
// probe use to report their own diagnostics.
package log

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Level is a diagnostic log level. Unlike the instrumentation Level in
// package sink, lower values here are less severe — this is the
// library's own plumbing, not user-facing span/event data, and there
// is no inversion to preserve.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Logger is the sink every diagnostic line is written through.
type Logger interface {
	Log(msg string)
}

type stdLogger struct{}

func (stdLogger) Log(msg string) { fmt.Fprintln(os.Stderr, msg) }

var (
	mu     sync.RWMutex
	logger Logger = stdLogger{}

	levelThreshold = LevelInfo

	// defaultErrorLimit caps how many distinct error messages Flush
	// will emit per window; beyond that, repeats are counted and
	// summarized instead of spamming the sink.
	defaultErrorLimit = 200
	errrate           = time.Minute

	errMu     sync.Mutex
	errFirst  map[string]string
	errExtra  map[string]int
	errOrder  []string
	lastFlush time.Time
)

func init() {
	resetErrors()
}

func resetErrors() {
	errFirst = make(map[string]string)
	errExtra = make(map[string]int)
	errOrder = nil
	lastFlush = time.Time{}
}

// UseLogger replaces the active Logger. Tests use this to capture
// output; applications use it to redirect diagnostics into their own
// logging framework.
func UseLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// CurrentLogger returns the active Logger, so a caller that wraps it
// temporarily (package tracing's LogBuffer, DisableStdoutLogger) can
// restore it afterward.
func CurrentLogger() Logger {
	return current()
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	levelThreshold = l
}

func enabled(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= levelThreshold
}

func current() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func msg(level, text string) string {
	return level + ": " + text
}

func emit(l Level, format string, args ...interface{}) {
	if !enabled(l) {
		return
	}
	current().Log(msg(l.String(), fmt.Sprintf(format, args...)))
}

// Debug logs a debug-level diagnostic.
func Debug(format string, args ...interface{}) { emit(LevelDebug, format, args...) }

// Info logs an info-level diagnostic.
func Info(format string, args ...interface{}) { emit(LevelInfo, format, args...) }

// Warn logs a warn-level diagnostic.
func Warn(format string, args ...interface{}) { emit(LevelWarn, format, args...) }

// DebugEnabled reports whether debug-level diagnostics are currently emitted.
func DebugEnabled() bool { return enabled(LevelDebug) }

// Error rate-limits repeated identical messages (by format string) and
// reports a summary on Flush, so a tight failure loop in the worker
// (e.g. a socket write failing every iteration) cannot flood the sink.
func Error(format string, args ...interface{}) {
	if !enabled(LevelError) {
		return
	}
	text := fmt.Sprintf(format, args...)

	errMu.Lock()
	defer errMu.Unlock()

	if errrate <= 0 {
		current().Log(msg("ERROR", text))
		return
	}

	if lastFlush.IsZero() {
		lastFlush = time.Now()
	}
	if _, ok := errFirst[format]; !ok {
		if len(errOrder) >= defaultErrorLimit {
			// Over the distinct-message cap for this window; fold
			// into the first recorded message instead of growing
			// unbounded maps.
			format = errOrder[0]
			errExtra[format]++
			return
		}
		errFirst[format] = text
		errOrder = append(errOrder, format)
		return
	}
	errExtra[format]++
}

// Flush emits the error summary accumulated since the last Flush (or
// process start) and resets the window.
func Flush() {
	errMu.Lock()
	order := errOrder
	first := errFirst
	extra := errExtra
	resetErrors()
	errMu.Unlock()

	l := current()
	for _, format := range order {
		text := first[format]
		if n := extra[format]; n > 0 {
			text = fmt.Sprintf("%s, %d additional messages skipped", text, n)
		}
		l.Log(msg("ERROR", text))
	}
}

// RecordLogger is a Logger that stores every line in memory, for tests.
type RecordLogger struct {
	mu      sync.Mutex
	lines   []string
	ignored []string
}

func (r *RecordLogger) Log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ig := range r.ignored {
		if len(msg) >= len(ig) {
			for i := 0; i+len(ig) <= len(msg); i++ {
				if msg[i:i+len(ig)] == ig {
					return
				}
			}
		}
	}
	r.lines = append(r.lines, msg)
}

// Ignore suppresses any subsequently logged line containing one of the substrings.
func (r *RecordLogger) Ignore(substrings ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ignored = append(r.ignored, substrings...)
}

// Logs returns the recorded lines.
func (r *RecordLogger) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Reset clears recorded lines (but not ignore patterns).
func (r *RecordLogger) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
}
