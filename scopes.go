// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package tracing

import (
	"sync"

	internallog "github.com/bp3d-tracing/tracing/internal/log"
)

// teeLogger fans diagnostic lines out to both the previously active
// logger and an in-memory recorder, so LogBuffer can capture output
// without silencing it.
type teeLogger struct {
	next internallog.Logger
	rec  *internallog.RecordLogger
}

func (t *teeLogger) Log(msg string) {
	t.next.Log(msg)
	t.rec.Log(msg)
}

var (
	logBufMu   sync.Mutex
	logBufRefs int
	logBufRec  *internallog.RecordLogger
	logBufPrev internallog.Logger
)

// LogBuffer is a reference-counted handle enabling in-memory capture
// of this library's own diagnostic log lines. The first
// outstanding LogBuffer installs a tee in front of whatever logger was
// already active; the last one's Close restores it.
type LogBuffer struct {
	closeOnce sync.Once
}

// NewLogBuffer begins (or joins, if one is already active) capturing
// diagnostic log lines.
func NewLogBuffer() *LogBuffer {
	logBufMu.Lock()
	defer logBufMu.Unlock()
	if logBufRefs == 0 {
		logBufPrev = internallog.CurrentLogger()
		logBufRec = &internallog.RecordLogger{}
		internallog.UseLogger(&teeLogger{next: logBufPrev, rec: logBufRec})
	}
	logBufRefs++
	return &LogBuffer{}
}

// Logs returns every line captured since the first outstanding
// LogBuffer was created.
func (b *LogBuffer) Logs() []string {
	logBufMu.Lock()
	defer logBufMu.Unlock()
	if logBufRec == nil {
		return nil
	}
	return logBufRec.Logs()
}

// Close releases this handle. Once every outstanding LogBuffer has
// been closed, the logger active before the first one is restored.
func (b *LogBuffer) Close() {
	b.closeOnce.Do(func() {
		logBufMu.Lock()
		defer logBufMu.Unlock()
		logBufRefs--
		if logBufRefs <= 0 {
			logBufRefs = 0
			internallog.UseLogger(logBufPrev)
			logBufRec = nil
			logBufPrev = nil
		}
	})
}

type discardLogger struct{}

func (discardLogger) Log(string) {}

var (
	disableMu   sync.Mutex
	disableRefs int
	disablePrev internallog.Logger
)

// DisableStdoutLogger is a reference-counted scope that suppresses
// this library's own diagnostic console/stderr output for its
// lifetime — useful around tests that otherwise drown in
// diagnostic noise.
type DisableStdoutLogger struct {
	closeOnce sync.Once
}

// NewDisableStdoutLogger begins (or joins) a suppression scope.
func NewDisableStdoutLogger() *DisableStdoutLogger {
	disableMu.Lock()
	defer disableMu.Unlock()
	if disableRefs == 0 {
		disablePrev = internallog.CurrentLogger()
		internallog.UseLogger(discardLogger{})
	}
	disableRefs++
	return &DisableStdoutLogger{}
}

// Close releases this handle, restoring the previous logger once the
// last outstanding scope has closed.
func (d *DisableStdoutLogger) Close() {
	d.closeOnce.Do(func() {
		disableMu.Lock()
		defer disableMu.Unlock()
		disableRefs--
		if disableRefs <= 0 {
			disableRefs = 0
			internallog.UseLogger(disablePrev)
			disablePrev = nil
		}
	})
}
