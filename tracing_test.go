// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeNoneModeReturnsUsableGuard(t *testing.T) {
	t.Setenv("TRACING_MODE", "none")

	g, err := Initialize("testapp", "testcrate", "0.0.0")
	require.NoError(t, err)
	defer g.Close()

	assert.NotNil(t, g.Subscriber())
	assert.False(t, g.Subscriber().Enabled(nil))
}

func TestInitializeRejectsDoubleInit(t *testing.T) {
	t.Setenv("TRACING_MODE", "none")

	g, err := Initialize("testapp", "testcrate", "0.0.0")
	require.NoError(t, err)
	defer g.Close()

	_, err = Initialize("testapp", "testcrate", "0.0.0")
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestGuardCloseIsIdempotentAndClearsGuard(t *testing.T) {
	t.Setenv("TRACING_MODE", "none")

	g, err := Initialize("testapp", "testcrate", "0.0.0")
	require.NoError(t, err)

	g.Close()
	g.Close() // must not panic or double-decrement

	g2, err := Initialize("testapp", "testcrate", "0.0.0")
	require.NoError(t, err)
	g2.Close()
}

func TestInitializeLoggerMode(t *testing.T) {
	t.Setenv("TRACING_MODE", "logger")
	t.Setenv("TRACING_LOGGER_CONSOLE_STDERR", "true")

	g, err := Initialize("testapp", "testcrate", "0.0.0")
	require.NoError(t, err)
	defer g.Close()

	assert.NotNil(t, g.Subscriber())
}

func TestSetupUsesModuleIdentity(t *testing.T) {
	t.Setenv("TRACING_MODE", "none")

	g, err := Setup("testapp")
	require.NoError(t, err)
	defer g.Close()

	assert.NotNil(t, g.Subscriber())
}
