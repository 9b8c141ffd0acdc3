// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package logsink implements the human-readable console/file log sink:
// it turns spans and events into textual log lines, including
// reconstructing each live span's fields into a per-instance partial
// message so the span-exit line can report them alongside the
// measured duration.
package logsink

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/bp3d-tracing/tracing/internal/locking"
	internallog "github.com/bp3d-tracing/tracing/internal/log"
	"github.com/bp3d-tracing/tracing/sink"
)

// partial is the per-live-instance reconstructed text: a prefix built
// once at span_create, with fields appended as span_record calls
// arrive. It is intentionally not cleared on span_exit so repeated
// enter/exit cycles of the same instance keep accumulating onto the
// same prefix.
type partial struct {
	prefix string
	fields []string
}

// Sink is a sink.Sink writing formatted lines to stdout/stderr and,
// optionally, a file.
type Sink struct {
	mu     locking.Mutex
	spans  map[sink.SpanID]*partial
	level  sink.Level
	color  bool
	stdout bool
	file   *internallog.FileLogger
}

// New builds a log sink at the given level. color enables ANSI
// coloring of the level tag when writing to the console; stdout
// selects os.Stdout over os.Stderr for the console stream. file, if
// non-nil, additionally receives every formatted line.
func New(level sink.Level, color, stdout bool, file *internallog.FileLogger) *Sink {
	return &Sink{
		spans:  make(map[sink.SpanID]*partial),
		level:  level,
		color:  color,
		stdout: stdout,
		file:   file,
	}
}

func (s *Sink) Enabled() bool { return true }

func (s *Sink) MaxLevelHint() (sink.Level, bool) { return s.level, true }

func (s *Sink) SpanCreate(id sink.SpanID, isNewNode bool, attrs sink.Attrs, meta *sink.Metadata) {
	p := &partial{prefix: prefixFor(meta)}
	s.mu.Lock()
	s.spans[id] = p
	s.mu.Unlock()
}

func (s *Sink) SpanRecord(id sink.SpanID, fields []sink.Field) {
	s.mu.Lock()
	p, ok := s.spans[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	for _, f := range fields {
		p.fields = append(p.fields, formatField(f))
	}
}

func (s *Sink) SpanFollows(id, follows sink.SpanID) {}

func (s *Sink) Event(ev sink.Event) {
	var b strings.Builder
	b.WriteString(ev.Timestamp.Local().Format("2006-01-02 15:04:05.000 -0700"))
	b.WriteByte(' ')
	if ev.ModulePath != "" {
		b.WriteString(ev.ModulePath)
		b.WriteString(": ")
	}
	b.WriteString(ev.Name)
	for _, f := range ev.Fields {
		b.WriteByte(' ')
		b.WriteString(formatField(f))
	}
	s.write(ev.Level, b.String())
}

func (s *Sink) SpanEnter(id sink.SpanID) {}

func (s *Sink) SpanExit(id sink.SpanID, dur time.Duration) {
	s.mu.Lock()
	p, ok := s.spans[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	var b strings.Builder
	b.WriteString(p.prefix)
	for _, f := range p.fields {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	fmt.Fprintf(&b, " : span finished in %.2fs", dur.Seconds())
	s.write(sink.LevelInfo, b.String())
}

func (s *Sink) SpanDestroy(id sink.SpanID) {
	s.mu.Lock()
	delete(s.spans, id)
	s.mu.Unlock()
}

func (s *Sink) write(level sink.Level, line string) {
	console := s.consoleWriter()
	tag := "[" + level.String() + "] "
	if s.color {
		fmt.Fprint(console, colorForLevel(level).Sprint(tag))
		fmt.Fprintln(console, line)
	} else {
		fmt.Fprintln(console, tag+line)
	}
	if s.file != nil {
		s.file.Log(tag + line)
	}
}

func (s *Sink) consoleWriter() io.Writer {
	if s.stdout {
		return os.Stdout
	}
	return os.Stderr
}

func prefixFor(meta *sink.Metadata) string {
	if meta.ModulePath != "" {
		return meta.ModulePath + ": " + meta.Name
	}
	return meta.Name
}

func formatField(f sink.Field) string {
	switch f.Kind {
	case sink.FieldInt64:
		return fmt.Sprintf("%s=%d", f.Name, f.I)
	case sink.FieldUint64:
		return fmt.Sprintf("%s=%d", f.Name, f.U)
	case sink.FieldFloat64:
		return fmt.Sprintf("%s=%g", f.Name, f.F)
	case sink.FieldString:
		return fmt.Sprintf("%s=%q", f.Name, f.S)
	case sink.FieldBool:
		return fmt.Sprintf("%s=%t", f.Name, f.B)
	default:
		return f.Name
	}
}

func colorForLevel(level sink.Level) *color.Color {
	switch level {
	case sink.LevelError:
		return color.New(color.FgRed)
	case sink.LevelWarn:
		return color.New(color.FgYellow)
	case sink.LevelDebug, sink.LevelTrace:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}

var _ sink.Sink = (*Sink)(nil)
