// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package logmsg

import (
	"encoding/binary"
	"math"

	"github.com/bp3d-tracing/tracing/sink"
)

// Wire tags for TLV-encoded field values. Integers are width-compressed
// on encode to the smallest tag that losslessly represents the value;
// decode always widens back to int64/uint64, so round-tripping a Field
// never has to reproduce the exact tag chosen on encode, only the
// value.
const (
	tagU8 byte = iota
	tagU16
	tagU32
	tagU64
	tagI8
	tagI16
	tagI32
	tagI64
	tagF64
	tagString
	tagBool
)

func appendCString(b *Buffer, s string) {
	b.writeBytes([]byte(s))
	b.writeByte(0)
}

func appendUint(b *Buffer, v uint64) {
	switch {
	case v <= math.MaxUint8:
		b.writeByte(tagU8)
		b.writeByte(byte(v))
	case v <= math.MaxUint16:
		b.writeByte(tagU16)
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(v))
		b.writeBytes(tmp[:])
	case v <= math.MaxUint32:
		b.writeByte(tagU32)
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(v))
		b.writeBytes(tmp[:])
	default:
		b.writeByte(tagU64)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], v)
		b.writeBytes(tmp[:])
	}
}

func appendInt(b *Buffer, v int64) {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		b.writeByte(tagI8)
		b.writeByte(byte(int8(v)))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		b.writeByte(tagI16)
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(int16(v)))
		b.writeBytes(tmp[:])
	case v >= math.MinInt32 && v <= math.MaxInt32:
		b.writeByte(tagI32)
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(int32(v)))
		b.writeBytes(tmp[:])
	default:
		b.writeByte(tagI64)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(v))
		b.writeBytes(tmp[:])
	}
}

// EncodeField appends one TLV-encoded field to b: name, NUL, type tag, value.
func EncodeField(b *Buffer, f sink.Field) {
	appendCString(b, f.Name)
	switch f.Kind {
	case sink.FieldInt64:
		appendInt(b, f.I)
	case sink.FieldUint64:
		appendUint(b, f.U)
	case sink.FieldFloat64:
		b.writeByte(tagF64)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f.F))
		b.writeBytes(tmp[:])
	case sink.FieldString:
		b.writeByte(tagString)
		appendCString(b, f.S)
	case sink.FieldBool:
		b.writeByte(tagBool)
		if f.B {
			b.writeByte(1)
		} else {
			b.writeByte(0)
		}
	}
}

// DecodeFields parses as many complete TLV fields as are present in
// data, stopping (without error) at the first incomplete field. A
// truncated buffer therefore decodes to a valid prefix of fields
// rather than failing outright.
func DecodeFields(data []byte) []sink.Field {
	var fields []sink.Field
	for len(data) > 0 {
		nameEnd := indexByte(data, 0)
		if nameEnd < 0 {
			break
		}
		name := string(data[:nameEnd])
		data = data[nameEnd+1:]
		if len(data) < 1 {
			break
		}
		tag := data[0]
		data = data[1:]

		var f sink.Field
		var ok bool
		f, data, ok = decodeValue(name, tag, data)
		if !ok {
			break
		}
		fields = append(fields, f)
	}
	return fields
}

func decodeValue(name string, tag byte, data []byte) (sink.Field, []byte, bool) {
	need := func(n int) bool { return len(data) >= n }
	switch tag {
	case tagU8:
		if !need(1) {
			return sink.Field{}, data, false
		}
		return sink.Uint64Field(name, uint64(data[0])), data[1:], true
	case tagU16:
		if !need(2) {
			return sink.Field{}, data, false
		}
		return sink.Uint64Field(name, uint64(binary.LittleEndian.Uint16(data))), data[2:], true
	case tagU32:
		if !need(4) {
			return sink.Field{}, data, false
		}
		return sink.Uint64Field(name, uint64(binary.LittleEndian.Uint32(data))), data[4:], true
	case tagU64:
		if !need(8) {
			return sink.Field{}, data, false
		}
		return sink.Uint64Field(name, binary.LittleEndian.Uint64(data)), data[8:], true
	case tagI8:
		if !need(1) {
			return sink.Field{}, data, false
		}
		return sink.Int64Field(name, int64(int8(data[0]))), data[1:], true
	case tagI16:
		if !need(2) {
			return sink.Field{}, data, false
		}
		return sink.Int64Field(name, int64(int16(binary.LittleEndian.Uint16(data)))), data[2:], true
	case tagI32:
		if !need(4) {
			return sink.Field{}, data, false
		}
		return sink.Int64Field(name, int64(int32(binary.LittleEndian.Uint32(data)))), data[4:], true
	case tagI64:
		if !need(8) {
			return sink.Field{}, data, false
		}
		return sink.Int64Field(name, int64(binary.LittleEndian.Uint64(data))), data[8:], true
	case tagF64:
		if !need(8) {
			return sink.Field{}, data, false
		}
		return sink.Float64Field(name, math.Float64frombits(binary.LittleEndian.Uint64(data))), data[8:], true
	case tagBool:
		if !need(1) {
			return sink.Field{}, data, false
		}
		return sink.BoolField(name, data[0] != 0), data[1:], true
	case tagString:
		end := indexByte(data, 0)
		if end < 0 {
			return sink.Field{}, data, false
		}
		return sink.StringField(name, string(data[:end])), data[end+1:], true
	default:
		return sink.Field{}, data, false
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
