// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package wire

import "github.com/klauspost/compress/zstd"

// CompressThreshold is the recording-buffer payload size above which
// SpanDataset is sent zstd-compressed rather than raw.
const CompressThreshold = 4096

var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

// CompressDataset returns payload unchanged if it's at or below
// CompressThreshold, otherwise its zstd-compressed form plus true.
func CompressDataset(payload []byte) ([]byte, bool) {
	if len(payload) <= CompressThreshold {
		return payload, false
	}
	return encoder.EncodeAll(payload, nil), true
}

// DecompressDataset reverses CompressDataset.
func DecompressDataset(payload []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return payload, nil
	}
	return decoder.DecodeAll(payload, nil)
}
