// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Tag identifies a message's wire type: a type_tag byte followed by a
// fixed-layout header and, for types that carry one, a little-endian
// u32 payload length and the payload bytes.
type Tag byte

const (
	TagProject Tag = iota + 1
	TagSpanAlloc
	TagSpanParent
	TagSpanFollows
	TagSpanEvent
	TagSpanUpdate
	TagSpanDataset
	TagServerConfig
	TagClientConfig
	TagClientRecord
)

// layout describes a tag's fixed header size and whether it carries a
// variable-length payload.
type layout struct {
	headerSize int
	hasPayload bool
}

var layouts = map[Tag]layout{
	TagProject:      {headerSize: 0, hasPayload: true},
	TagSpanAlloc:    {headerSize: 8, hasPayload: true},
	TagSpanParent:   {headerSize: 8 + 4, hasPayload: false},
	TagSpanFollows:  {headerSize: 8 + 8, hasPayload: false},
	TagSpanEvent:    {headerSize: 8 + 4 + 1, hasPayload: true},
	TagSpanUpdate:   {headerSize: 8 + 4 + 8 + 8 + 8, hasPayload: false},
	TagSpanDataset:  {headerSize: 8 + 4 + 1, hasPayload: true},
	TagServerConfig: {headerSize: 4 + 2, hasPayload: false},
	TagClientConfig: {headerSize: 4 + 1 + 1 + 4 + 1 + 4, hasPayload: false},
	TagClientRecord: {headerSize: 4 + 1, hasPayload: false},
}

// writer is the minimal interface the per-message Write* helpers need.
type writer = io.Writer

// Frame is one decoded wire message: its tag, fixed header bytes and,
// if present, payload bytes.
type Frame struct {
	Tag     Tag
	Header  []byte
	Payload []byte
}

// encodeFrame builds the raw bytes for one outbound message.
func encodeFrame(tag Tag, header, payload []byte) []byte {
	l, ok := layouts[tag]
	if !ok {
		panic(fmt.Sprintf("wire: unknown tag %d", tag))
	}
	if len(header) != l.headerSize {
		panic(fmt.Sprintf("wire: tag %d expects %d header bytes, got %d", tag, l.headerSize, len(header)))
	}
	size := 1 + len(header)
	if l.hasPayload {
		size += 4 + len(payload)
	}
	out := make([]byte, 0, size)
	out = append(out, byte(tag))
	out = append(out, header...)
	if l.hasPayload {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
		out = append(out, lenBuf[:]...)
		out = append(out, payload...)
	}
	return out
}

// writeFrame writes one outbound message to w.
func writeFrame(w io.Writer, tag Tag, header, payload []byte) error {
	_, err := w.Write(encodeFrame(tag, header, payload))
	return err
}

// ReadFrame reads exactly one message from r, looking up its layout
// by the leading tag byte. An unrecognized tag is a protocol error.
func ReadFrame(r io.Reader) (Frame, error) {
	var tagByte [1]byte
	if _, err := io.ReadFull(r, tagByte[:]); err != nil {
		return Frame{}, err
	}
	tag := Tag(tagByte[0])
	l, ok := layouts[tag]
	if !ok {
		return Frame{}, fmt.Errorf("wire: unknown message tag %d", tag)
	}

	header := make([]byte, l.headerSize)
	if l.headerSize > 0 {
		if _, err := io.ReadFull(r, header); err != nil {
			return Frame{}, err
		}
	}

	var payload []byte
	if l.hasPayload {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Frame{}, err
		}
		n := binary.LittleEndian.Uint32(lenBuf[:])
		payload = make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(r, payload); err != nil {
				return Frame{}, err
			}
		}
	}

	return Frame{Tag: tag, Header: header, Payload: payload}, nil
}
