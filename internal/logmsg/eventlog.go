// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package logmsg

import (
	"encoding/binary"
	"time"

	"github.com/bp3d-tracing/tracing/sink"
)

// eventLogFixedSize is the fixed portion of an EventLog header:
// has-parent (1) + parent node id (4) + timestamp seconds (4) +
// timestamp nanoseconds (4) + level (1) + field count (2) + payload
// length (4). Target and module path follow as NUL-terminated
// strings, then the TLV field payload.
const eventLogFixedSize = 1 + 4 + 4 + 4 + 1 + 2 + 4

// EventLog is the point-in-time log record variant of LogRecord.
// Unlike SpanLog it is built fresh for every event rather than reused
// across a span's lifetime.
type EventLog struct {
	HasParent bool
	ParentID  uint32
	Timestamp time.Time
	Level     sink.Level
	Target    string
	Module    string

	fieldCount uint16
	body       Buffer
}

// NewEventLog builds an EventLog scratch; fields are added with AddField.
func NewEventLog(hasParent bool, parentID uint32, ts time.Time, level sink.Level, target, module string) *EventLog {
	return &EventLog{HasParent: hasParent, ParentID: parentID, Timestamp: ts, Level: level, Target: target, Module: module}
}

// AddField encodes one field into the event's TLV payload.
func (e *EventLog) AddField(f sink.Field) {
	EncodeField(&e.body, f)
	e.fieldCount++
}

// Serialize returns the on-wire byte sequence: fixed header, target,
// module path, then TLV fields.
func (e *EventLog) Serialize() []byte {
	var payload Buffer
	appendCString(&payload, e.Target)
	appendCString(&payload, e.Module)
	payload.writeBytes(e.body.Bytes())

	var hdr [eventLogFixedSize]byte
	if e.HasParent {
		hdr[0] = 1
	}
	binary.LittleEndian.PutUint32(hdr[1:5], e.ParentID)
	binary.LittleEndian.PutUint32(hdr[5:9], uint32(e.Timestamp.Unix()))
	binary.LittleEndian.PutUint32(hdr[9:13], uint32(e.Timestamp.Nanosecond()))
	hdr[13] = byte(e.Level)
	binary.LittleEndian.PutUint16(hdr[14:16], e.fieldCount)
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(payload.Len()))

	out := make([]byte, 0, eventLogFixedSize+payload.Len())
	out = append(out, hdr[:]...)
	out = append(out, payload.Bytes()...)
	return out
}

// ParsedEventLog is the decoded form of an EventLog, returned by ParseEventLog.
type ParsedEventLog struct {
	HasParent bool
	ParentID  uint32
	Timestamp time.Time
	Level     sink.Level
	Target    string
	Module    string
	Fields    []sink.Field
}

// ParseEventLog decodes a serialized EventLog. It tolerates a
// truncated payload the same way DecodeFields does: a partially
// written tail simply yields fewer fields, never an error.
func ParseEventLog(data []byte) (ParsedEventLog, bool) {
	if len(data) < eventLogFixedSize {
		return ParsedEventLog{}, false
	}
	var p ParsedEventLog
	p.HasParent = data[0] != 0
	p.ParentID = binary.LittleEndian.Uint32(data[1:5])
	secs := binary.LittleEndian.Uint32(data[5:9])
	nanos := binary.LittleEndian.Uint32(data[9:13])
	p.Timestamp = time.Unix(int64(secs), int64(nanos)).UTC()
	p.Level = sink.Level(data[13])
	rest := data[eventLogFixedSize:]

	end := indexByte(rest, 0)
	if end < 0 {
		return p, true
	}
	p.Target = string(rest[:end])
	rest = rest[end+1:]

	end = indexByte(rest, 0)
	if end < 0 {
		return p, true
	}
	p.Module = string(rest[:end])
	rest = rest[end+1:]

	p.Fields = DecodeFields(rest)
	return p, true
}
