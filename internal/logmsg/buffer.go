// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package logmsg implements the fixed-capacity formatted record
// shared by the span-exit and event log records that flow through the
// profiler's bounded channels, plus the TLV field encoding both
// record kinds use for their structured fields. Everything here is
// allocation-free on the write
// path: Buffer is a fixed-size array, not a slice backed by the heap.
package logmsg

// MaxSize is the compile-time capacity of a single log record. Writes
// beyond it are silently truncated; truncation never corrupts the
// outer wire framing because the payload length prefix always
// reflects the number of bytes actually written.
const MaxSize = 512

// Buffer is a bump-allocated, fixed-capacity byte buffer.
type Buffer struct {
	data      [MaxSize]byte
	n         int
	truncated bool
}

// Reset empties the buffer for reuse, avoiding a fresh allocation.
func (b *Buffer) Reset() {
	b.n = 0
	b.truncated = false
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return b.n }

// Bytes returns the written prefix of the buffer. The returned slice
// aliases the buffer's backing array and is only valid until the next
// Reset or write.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Truncated reports whether the last write (or any prior write) hit
// capacity and was clipped.
func (b *Buffer) Truncated() bool { return b.truncated }

// writeByte appends one byte, clamping at capacity.
func (b *Buffer) writeByte(v byte) {
	if b.n >= MaxSize {
		b.truncated = true
		return
	}
	b.data[b.n] = v
	b.n++
}

// writeBytes appends p, copying as many bytes as fit and marking the
// buffer truncated if p did not fit in full. This is what makes
// overflow "silent": callers never see an error, only a shorter
// on-wire payload.
func (b *Buffer) writeBytes(p []byte) {
	room := MaxSize - b.n
	if room <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return
	}
	if len(p) > room {
		copy(b.data[b.n:], p[:room])
		b.n = MaxSize
		b.truncated = true
		return
	}
	copy(b.data[b.n:], p)
	b.n += len(p)
}

// Clone returns an independent copy of the buffer, used when a record
// must be handed off across a channel while the original is reset for
// reuse.
func (b *Buffer) Clone() Buffer {
	return *b
}
