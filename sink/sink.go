// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package sink defines the plugin boundary between the subscriber
// core (package tracing/internal/subscriber) and whatever consumes
// the spans and events it produces — the console/file log sink or
// the network profiler sink. It holds only types and an interface;
// it has no subscriber-core logic of its own.
package sink

import "time"

// Level is the severity of a span or event. Levels compare so that
// higher severity is numerically smaller: Error < Warn < Info < Debug
// < Trace. A MaxLevelHint of Debug therefore means "Error, Warn, Info
// and Debug are enabled, Trace is not" — callers compare with <=, not
// <. This mirrors the host instrumentation framework this subsystem
// was built against and must not be "fixed" to a more intuitive
// ordering.
type Level int32

const (
	LevelError Level = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warning"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ParseLevel parses the logger.level configuration values.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "error":
		return LevelError, true
	case "warning", "warn":
		return LevelWarn, true
	case "info":
		return LevelInfo, true
	case "debug":
		return LevelDebug, true
	case "trace":
		return LevelTrace, true
	default:
		return 0, false
	}
}

// SpanID is the opaque 64-bit token instrumentation sees: a packed
// (node_id, instance_id) pair. Node id occupies the high 32 bits,
// instance id the low 32 bits, so the token is nonzero whenever
// node id is nonzero.
type SpanID uint64

// PackSpanID packs a call-site node id and a live-instance id into a wire token.
func PackSpanID(nodeID, instanceID uint32) SpanID {
	return SpanID(uint64(nodeID)<<32 | uint64(instanceID))
}

// NodeID returns the call-site component of the token.
func (id SpanID) NodeID() uint32 { return uint32(uint64(id) >> 32) }

// InstanceID returns the live-activation component of the token.
func (id SpanID) InstanceID() uint32 { return uint32(uint64(id)) }

// Metadata is the immutable, per-call-site record shared by every
// activation of that call site. Its pointer identity, not its
// contents, is what the subscriber core hashes on — two distinct
// *Metadata values with identical fields are still distinct call
// sites. Instrumentation is expected to construct exactly one
// Metadata per call site (typically in a package-level var) and reuse
// its address on every call.
type Metadata struct {
	Level      Level
	Name       string
	Target     string
	ModulePath string
	File       string
	Line       uint32
	IsEvent    bool
}

// FieldKind discriminates the value carried by a Field.
type FieldKind uint8

const (
	FieldInt64 FieldKind = iota
	FieldUint64
	FieldFloat64
	FieldString
	FieldBool
)

// Field is one structured key/value pair attached to a span or event.
type Field struct {
	Name string
	Kind FieldKind

	I int64
	U uint64
	F float64
	S string
	B bool
}

func Int64Field(name string, v int64) Field    { return Field{Name: name, Kind: FieldInt64, I: v} }
func Uint64Field(name string, v uint64) Field   { return Field{Name: name, Kind: FieldUint64, U: v} }
func Float64Field(name string, v float64) Field { return Field{Name: name, Kind: FieldFloat64, F: v} }
func StringField(name, v string) Field          { return Field{Name: name, Kind: FieldString, S: v} }
func BoolField(name string, v bool) Field       { return Field{Name: name, Kind: FieldBool, B: v} }

// Attrs carries the information needed to create a new span.
type Attrs struct {
	IsRoot    bool
	ParentID  SpanID
	HasParent bool
	Fields    []Field
}

// Event is a point-in-time log record, optionally attached to a span.
type Event struct {
	ParentID  SpanID
	HasParent bool

	Level      Level
	Name       string
	Target     string
	ModulePath string
	Timestamp  time.Time
	Fields     []Field
}

// Sink is the pluggable consumer of subscriber-core callbacks. Every
// method must be safe for the subscriber core to call from any
// goroutine and must never re-enter the subscriber; doing so would
// deadlock the subscriber's mutex.
type Sink interface {
	// Enabled reports whether this sink is accepting spans/events at all.
	Enabled() bool
	// MaxLevelHint returns the most verbose level this sink currently
	// wants, if it can compute one cheaply; ok is false when there is
	// no useful hint (everything passes through to Enabled per-call).
	MaxLevelHint() (level Level, ok bool)

	SpanCreate(id SpanID, isNewNode bool, attrs Attrs, meta *Metadata)
	SpanRecord(id SpanID, fields []Field)
	SpanFollows(id SpanID, follows SpanID)
	Event(ev Event)
	SpanEnter(id SpanID)
	SpanExit(id SpanID, dur time.Duration)
	SpanDestroy(id SpanID)
}
