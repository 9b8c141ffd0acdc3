// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package wire

import (
	"encoding/binary"
	"math"
	"time"
)

// Duration is the wire representation used by SpanUpdate: seconds and
// nanoseconds, each a little-endian u32.
type Duration struct {
	Seconds      uint32
	Nanoseconds  uint32
}

// DurationFromGo converts a time.Duration, saturating at the u32
// range (which at ~136 years is not a practical concern for a span
// duration).
func DurationFromGo(d time.Duration) Duration {
	if d/time.Second > math.MaxUint32 {
		return Duration{Seconds: math.MaxUint32, Nanoseconds: uint32(time.Second - 1)}
	}
	return Duration{
		Seconds:     uint32(d / time.Second),
		Nanoseconds: uint32(d % time.Second),
	}
}

// ToGo converts back to a time.Duration.
func (d Duration) ToGo() time.Duration {
	return time.Duration(d.Seconds)*time.Second + time.Duration(d.Nanoseconds)
}

func putDuration(b []byte, d Duration) {
	binary.LittleEndian.PutUint32(b[0:4], d.Seconds)
	binary.LittleEndian.PutUint32(b[4:8], d.Nanoseconds)
}

func getDuration(b []byte) Duration {
	return Duration{
		Seconds:     binary.LittleEndian.Uint32(b[0:4]),
		Nanoseconds: binary.LittleEndian.Uint32(b[4:8]),
	}
}
