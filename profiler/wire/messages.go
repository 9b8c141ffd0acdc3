// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/bp3d-tracing/tracing/sink"
)

func appendCString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, 0)
}

func readCString(data []byte) (string, []byte, bool) {
	idx := bytes.IndexByte(data, 0)
	if idx < 0 {
		return "", nil, false
	}
	return string(data[:idx]), data[idx+1:], true
}

// Target describes the instrumented process's platform, filled in
// from runtime.GOOS/GOARCH by the caller (package profiler/worker).
type Target struct {
	OS     string
	Family string
	Arch   string
}

// CPU is the optional CPU info reported in Project, sourced from
// gopsutil by the caller.
type CPU struct {
	Name      string
	CoreCount uint32
}

// Project identifies the instrumented process to the debugger UI;
// sent once, immediately after the handshake's ServerConfig/
// ClientConfig exchange.
type Project struct {
	App     string
	Name    string
	Version string
	CmdLine string
	Target  Target
	CPU     *CPU
}

// EncodePayload returns Project's variable-length payload bytes,
// msgpack-encoded (see project_msgp.go).
func (p Project) EncodePayload() []byte {
	b, _ := p.MarshalMsg(nil)
	return b
}

// WriteProject writes a Project message.
func WriteProject(w writer, p Project) error {
	return writeFrame(w, TagProject, nil, p.EncodePayload())
}

// DecodeProject parses a msgpack-encoded Project payload.
func DecodeProject(payload []byte) (Project, bool) {
	var p Project
	if _, err := p.UnmarshalMsg(payload); err != nil {
		return Project{}, false
	}
	return p, true
}

// SpanMetadata mirrors sink.Metadata for the wire, with optional
// fields represented explicitly (`line?`, `module_path?`, `file?`).
type SpanMetadata struct {
	Level      sink.Level
	HasLine    bool
	Line       uint32
	Name       string
	Target     string
	HasModule  bool
	ModulePath string
	HasFile    bool
	File       string
}

// SpanAlloc registers a call-site node with the debugger UI, the
// first time that node id is seen.
type SpanAlloc struct {
	ID       uint64
	Metadata SpanMetadata
}

func (s SpanAlloc) header() []byte {
	var h [8]byte
	binary.LittleEndian.PutUint64(h[:], s.ID)
	return h[:]
}

func (s SpanAlloc) payload() []byte {
	var buf []byte
	buf = append(buf, byte(s.Metadata.Level))
	if s.Metadata.HasLine {
		buf = append(buf, 1)
		var lb [4]byte
		binary.LittleEndian.PutUint32(lb[:], s.Metadata.Line)
		buf = append(buf, lb[:]...)
	} else {
		buf = append(buf, 0)
	}
	buf = appendCString(buf, s.Metadata.Name)
	buf = appendCString(buf, s.Metadata.Target)
	if s.Metadata.HasModule {
		buf = append(buf, 1)
		buf = appendCString(buf, s.Metadata.ModulePath)
	} else {
		buf = append(buf, 0)
	}
	if s.Metadata.HasFile {
		buf = append(buf, 1)
		buf = appendCString(buf, s.Metadata.File)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// WriteSpanAlloc writes a SpanAlloc message.
func WriteSpanAlloc(w writer, s SpanAlloc) error {
	return writeFrame(w, TagSpanAlloc, s.header(), s.payload())
}

// DecodeSpanAlloc parses a SpanAlloc frame's header and payload.
func DecodeSpanAlloc(header, payload []byte) (SpanAlloc, bool) {
	if len(header) != 8 || len(payload) < 2 {
		return SpanAlloc{}, false
	}
	s := SpanAlloc{ID: binary.LittleEndian.Uint64(header)}
	rest := payload
	s.Metadata.Level = sink.Level(rest[0])
	rest = rest[1:]

	s.Metadata.HasLine = rest[0] != 0
	rest = rest[1:]
	if s.Metadata.HasLine {
		if len(rest) < 4 {
			return s, false
		}
		s.Metadata.Line = binary.LittleEndian.Uint32(rest[0:4])
		rest = rest[4:]
	}

	var ok bool
	if s.Metadata.Name, rest, ok = readCString(rest); !ok {
		return s, false
	}
	if s.Metadata.Target, rest, ok = readCString(rest); !ok {
		return s, false
	}
	if len(rest) < 1 {
		return s, true
	}
	s.Metadata.HasModule = rest[0] != 0
	rest = rest[1:]
	if s.Metadata.HasModule {
		if s.Metadata.ModulePath, rest, ok = readCString(rest); !ok {
			return s, true
		}
	}
	if len(rest) < 1 {
		return s, true
	}
	s.Metadata.HasFile = rest[0] != 0
	rest = rest[1:]
	if s.Metadata.HasFile {
		if s.Metadata.File, rest, ok = readCString(rest); !ok {
			return s, true
		}
	}
	return s, true
}

// SpanParent reports a node's current parent (0 = root).
type SpanParent struct {
	ID         uint64
	ParentNode uint32
}

func WriteSpanParent(w writer, m SpanParent) error {
	var h [12]byte
	binary.LittleEndian.PutUint64(h[0:8], m.ID)
	binary.LittleEndian.PutUint32(h[8:12], m.ParentNode)
	return writeFrame(w, TagSpanParent, h[:], nil)
}

func DecodeSpanParent(header []byte) (SpanParent, bool) {
	if len(header) != 12 {
		return SpanParent{}, false
	}
	return SpanParent{
		ID:         binary.LittleEndian.Uint64(header[0:8]),
		ParentNode: binary.LittleEndian.Uint32(header[8:12]),
	}, true
}

// SpanFollows reports a follows-from relationship between two nodes.
type SpanFollows struct {
	ID      uint64
	Follows uint64
}

func WriteSpanFollows(w writer, m SpanFollows) error {
	var h [16]byte
	binary.LittleEndian.PutUint64(h[0:8], m.ID)
	binary.LittleEndian.PutUint64(h[8:16], m.Follows)
	return writeFrame(w, TagSpanFollows, h[:], nil)
}

func DecodeSpanFollows(header []byte) (SpanFollows, bool) {
	if len(header) != 16 {
		return SpanFollows{}, false
	}
	return SpanFollows{
		ID:      binary.LittleEndian.Uint64(header[0:8]),
		Follows: binary.LittleEndian.Uint64(header[8:16]),
	}, true
}

// SpanEvent carries a point-in-time event; Payload is the raw,
// already-serialized internal/logmsg EventLog byte sequence.
type SpanEvent struct {
	ID                  uint64
	TimestampUnixSeconds uint32
	Level               sink.Level
	Payload             []byte
}

func WriteSpanEvent(w writer, m SpanEvent) error {
	var h [13]byte
	binary.LittleEndian.PutUint64(h[0:8], m.ID)
	binary.LittleEndian.PutUint32(h[8:12], m.TimestampUnixSeconds)
	h[12] = byte(m.Level)
	return writeFrame(w, TagSpanEvent, h[:], m.Payload)
}

func DecodeSpanEvent(header, payload []byte) (SpanEvent, bool) {
	if len(header) != 13 {
		return SpanEvent{}, false
	}
	return SpanEvent{
		ID:                   binary.LittleEndian.Uint64(header[0:8]),
		TimestampUnixSeconds: binary.LittleEndian.Uint32(header[8:12]),
		Level:                sink.Level(header[12]),
		Payload:              payload,
	}, true
}

// SpanUpdate is the periodic aggregation push for one node.
type SpanUpdate struct {
	ID          uint64
	RunCount    uint32
	AverageTime Duration
	MinTime     Duration
	MaxTime     Duration
}

func WriteSpanUpdate(w writer, m SpanUpdate) error {
	var h [36]byte
	binary.LittleEndian.PutUint64(h[0:8], m.ID)
	binary.LittleEndian.PutUint32(h[8:12], m.RunCount)
	putDuration(h[12:20], m.AverageTime)
	putDuration(h[20:28], m.MinTime)
	putDuration(h[28:36], m.MaxTime)
	return writeFrame(w, TagSpanUpdate, h[:], nil)
}

func DecodeSpanUpdate(header []byte) (SpanUpdate, bool) {
	if len(header) != 36 {
		return SpanUpdate{}, false
	}
	return SpanUpdate{
		ID:          binary.LittleEndian.Uint64(header[0:8]),
		RunCount:    binary.LittleEndian.Uint32(header[8:12]),
		AverageTime: getDuration(header[12:20]),
		MinTime:     getDuration(header[20:28]),
		MaxTime:     getDuration(header[28:36]),
	}, true
}

// SpanDataset flushes a node's recording buffer: Payload is the raw
// concatenation of length-prefixed SpanLog bodies, optionally
// zstd-compressed (Compressed) when it exceeds the sender's size
// threshold (see profiler/worker).
type SpanDataset struct {
	ID         uint64
	RunCount   uint32
	Compressed bool
	Payload    []byte
}

func WriteSpanDataset(w writer, m SpanDataset) error {
	var h [13]byte
	binary.LittleEndian.PutUint64(h[0:8], m.ID)
	binary.LittleEndian.PutUint32(h[8:12], m.RunCount)
	if m.Compressed {
		h[12] = 1
	}
	return writeFrame(w, TagSpanDataset, h[:], m.Payload)
}

func DecodeSpanDataset(header, payload []byte) (SpanDataset, bool) {
	if len(header) != 13 {
		return SpanDataset{}, false
	}
	return SpanDataset{
		ID:         binary.LittleEndian.Uint64(header[0:8]),
		RunCount:   binary.LittleEndian.Uint32(header[8:12]),
		Compressed: header[12] != 0,
		Payload:    payload,
	}, true
}

// ServerConfig is sent server→client immediately after the handshake.
type ServerConfig struct {
	MaxRows   uint32
	MinPeriod uint16
}

func WriteServerConfig(w writer, m ServerConfig) error {
	var h [6]byte
	binary.LittleEndian.PutUint32(h[0:4], m.MaxRows)
	binary.LittleEndian.PutUint16(h[4:6], m.MinPeriod)
	return writeFrame(w, TagServerConfig, h[:], nil)
}

func DecodeServerConfig(header []byte) (ServerConfig, bool) {
	if len(header) != 6 {
		return ServerConfig{}, false
	}
	return ServerConfig{
		MaxRows:   binary.LittleEndian.Uint32(header[0:4]),
		MinPeriod: binary.LittleEndian.Uint16(header[4:6]),
	}, true
}

// ClientConfig is read by the server immediately after ServerConfig.
type ClientConfig struct {
	MaxAveragePoints uint32
	HasMaxLevel      bool
	MaxLevel         sink.Level
	RecordMaxRows    uint32
	RecordEnable     bool
	Period           uint32
}

func WriteClientConfig(w writer, m ClientConfig) error {
	var h [15]byte
	binary.LittleEndian.PutUint32(h[0:4], m.MaxAveragePoints)
	if m.HasMaxLevel {
		h[4] = 1
	}
	h[5] = byte(m.MaxLevel)
	binary.LittleEndian.PutUint32(h[6:10], m.RecordMaxRows)
	if m.RecordEnable {
		h[10] = 1
	}
	binary.LittleEndian.PutUint32(h[11:15], m.Period)
	return writeFrame(w, TagClientConfig, h[:], nil)
}

func DecodeClientConfig(header []byte) (ClientConfig, bool) {
	if len(header) != 15 {
		return ClientConfig{}, false
	}
	return ClientConfig{
		MaxAveragePoints: binary.LittleEndian.Uint32(header[0:4]),
		HasMaxLevel:      header[4] != 0,
		MaxLevel:         sink.Level(header[5]),
		RecordMaxRows:    binary.LittleEndian.Uint32(header[6:10]),
		RecordEnable:     header[10] != 0,
		Period:           binary.LittleEndian.Uint32(header[11:15]),
	}, true
}

// ClientRecord is an inbound request to start or stop recording.
type ClientRecord struct {
	MaxRows uint32
	Enable  bool
}

func WriteClientRecord(w writer, m ClientRecord) error {
	var h [5]byte
	binary.LittleEndian.PutUint32(h[0:4], m.MaxRows)
	if m.Enable {
		h[4] = 1
	}
	return writeFrame(w, TagClientRecord, h[:], nil)
}

func DecodeClientRecord(header []byte) (ClientRecord, bool) {
	if len(header) != 5 {
		return ClientRecord{}, false
	}
	return ClientRecord{
		MaxRows: binary.LittleEndian.Uint32(header[0:4]),
		Enable:  header[4] != 0,
	}, true
}
