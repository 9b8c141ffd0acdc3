// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package version exposes the library's own version, injected at build
// time via -ldflags so release tooling never has to edit source.
package version

// Tag is the semantic version of this module. It is overwritten at
// build time with -ldflags "-X .../internal/version.Tag=1.4.0".
var Tag = "dev"

// PreRelease is the pre-release component of Tag, if any (e.g. "rc.1").
// It is injected the same way as Tag and is mirrored onto the wire
// handshake's Hello message (see profiler/wire.Hello).
var PreRelease = ""

// Major is the numeric major version used in the wire handshake.
// It does not parse Tag at runtime; it is set independently so the
// handshake's major version can be bumped without a full release.
var Major uint64 = 1
