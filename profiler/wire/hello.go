// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package wire implements the profiler's wire codec and handshake
// message framing over the TCP connection to the external
// debugger UI, and the fixed 40-byte Hello exchanged on accept.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HelloSize is the fixed size of a Hello handshake message: 8-byte
// ASCII signature, 8-byte little-endian major version, 24-byte
// NUL-padded pre-release tag.
const HelloSize = 8 + 8 + 24

// Signature identifies this wire protocol. A mismatch on either side
// of the handshake is fatal.
var Signature = [8]byte{'B', 'P', '3', 'D', 'T', 'R', 'C', '1'}

// Hello is the handshake payload exchanged by both ends immediately
// upon TCP accept.
type Hello struct {
	Signature  [8]byte
	Major      uint64
	PreRelease string
}

// NewHello builds the Hello this process sends, using the fixed
// Signature and the given major version / pre-release tag.
func NewHello(major uint64, preRelease string) Hello {
	return Hello{Signature: Signature, Major: major, PreRelease: preRelease}
}

// Encode serializes h into HelloSize bytes.
func (h Hello) Encode() []byte {
	out := make([]byte, HelloSize)
	copy(out[0:8], h.Signature[:])
	binary.LittleEndian.PutUint64(out[8:16], h.Major)
	copy(out[16:40], h.PreRelease) // remaining bytes stay zero (NUL-padded)
	return out
}

// DecodeHello parses a HelloSize-byte buffer.
func DecodeHello(data []byte) (Hello, bool) {
	if len(data) < HelloSize {
		return Hello{}, false
	}
	var h Hello
	copy(h.Signature[:], data[0:8])
	h.Major = binary.LittleEndian.Uint64(data[8:16])
	tag := data[16:40]
	end := 0
	for end < len(tag) && tag[end] != 0 {
		end++
	}
	h.PreRelease = string(tag[:end])
	return h, true
}

// WriteHello writes h's wire encoding to w.
func WriteHello(w io.Writer, h Hello) error {
	_, err := w.Write(h.Encode())
	return err
}

// ReadHello reads a HelloSize-byte Hello from r.
func ReadHello(r io.Reader) (Hello, error) {
	buf := make([]byte, HelloSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Hello{}, err
	}
	h, ok := DecodeHello(buf)
	if !ok {
		return Hello{}, fmt.Errorf("wire: truncated hello")
	}
	return h, nil
}

// Compatible reports whether a peer's Hello matches this process's
// own: equal signature, major version and pre-release tag. A
// mismatch in any of these is fatal to the connection.
func (h Hello) Compatible(peer Hello) bool {
	return h.Signature == peer.Signature && h.Major == peer.Major && h.PreRelease == peer.PreRelease
}
