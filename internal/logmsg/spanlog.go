// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package logmsg

import (
	"encoding/binary"
	"time"

	"github.com/bp3d-tracing/tracing/sink"
)

// spanLogHeaderSize is the fixed byte size of a SpanLog header: node
// id (4) + duration seconds (4) + duration nanoseconds (4) + field
// count (2) + payload length (4).
const spanLogHeaderSize = 4 + 4 + 4 + 2 + 4

// SpanLog is the span-exit variant of LogRecord: the visitor
// fills in fields while the span is alive (SpanRecord calls), then
// Serialize stamps the measured duration once the span exits.
type SpanLog struct {
	NodeID     uint32
	fieldCount uint16
	fields     Buffer
}

// Reset reinitializes the scratch for reuse by a new span instance of
// the same call site.
func (s *SpanLog) Reset(nodeID uint32) {
	s.NodeID = nodeID
	s.fieldCount = 0
	s.fields.Reset()
}

// AddField encodes one field into the scratch's TLV payload.
func (s *SpanLog) AddField(f sink.Field) {
	EncodeField(&s.fields, f)
	s.fieldCount++
}

// Serialize returns the on-wire byte sequence for this span log: a
// fixed header followed by the TLV field payload. The returned slice
// is a fresh copy and stays valid after a later Reset.
func (s *SpanLog) Serialize(dur time.Duration) []byte {
	var hdr [spanLogHeaderSize]byte
	secs := uint32(dur / time.Second)
	nanos := uint32(dur % time.Second)
	binary.LittleEndian.PutUint32(hdr[0:4], s.NodeID)
	binary.LittleEndian.PutUint32(hdr[4:8], secs)
	binary.LittleEndian.PutUint32(hdr[8:12], nanos)
	binary.LittleEndian.PutUint16(hdr[12:14], s.fieldCount)
	binary.LittleEndian.PutUint32(hdr[14:18], uint32(s.fields.Len()))

	out := make([]byte, 0, spanLogHeaderSize+s.fields.Len())
	out = append(out, hdr[:]...)
	out = append(out, s.fields.Bytes()...)
	return out
}

// Clone returns an independent copy, used when the scratch must be
// handed off to a channel while the producer resets for reuse.
func (s *SpanLog) Clone() *SpanLog {
	c := &SpanLog{NodeID: s.NodeID, fieldCount: s.fieldCount}
	c.fields = s.fields.Clone()
	return c
}

// ParseSpanLogHeader decodes just the fixed header of a serialized
// SpanLog, returning the node id, duration and the byte offset where
// the TLV payload begins.
func ParseSpanLogHeader(data []byte) (nodeID uint32, dur time.Duration, payloadOff int, ok bool) {
	if len(data) < spanLogHeaderSize {
		return 0, 0, 0, false
	}
	nodeID = binary.LittleEndian.Uint32(data[0:4])
	secs := binary.LittleEndian.Uint32(data[4:8])
	nanos := binary.LittleEndian.Uint32(data[8:12])
	dur = time.Duration(secs)*time.Second + time.Duration(nanos)
	return nodeID, dur, spanLogHeaderSize, true
}
