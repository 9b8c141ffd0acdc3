// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeLogger, cfg.Mode)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "auto", cfg.Logger.ConsoleColor)
	assert.True(t, cfg.Logger.ConsoleStderr)
	assert.Equal(t, uint16(4026), cfg.Profiler.Port)
	assert.Equal(t, uint32(1_000_000), cfg.Profiler.MaxRows)
	assert.Equal(t, uint16(200), cfg.Profiler.MinPeriod)
}

func TestEnvOverridesPrefixed(t *testing.T) {
	t.Setenv("TRACING_PROFILER_PORT", "5000")
	t.Setenv("TRACING_LOGGER_LEVEL", "trace")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint16(5000), cfg.Profiler.Port)
	assert.Equal(t, "trace", cfg.Logger.Level)
}

func TestLegacyProfilerEnvForcesMode(t *testing.T) {
	t.Setenv("PROFILER", "1")
	t.Setenv("PROFILER_PORT", "7000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeProfiler, cfg.Mode)
	assert.Equal(t, uint16(7000), cfg.Profiler.Port)
}

func TestLegacyLogDisableWins(t *testing.T) {
	t.Setenv("PROFILER", "1")
	t.Setenv("LOG_DISABLE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, cfg.Mode, "LOG_DISABLE must win regardless of ordering with PROFILER")
}

func TestLegacyLogColorAndStdout(t *testing.T) {
	t.Setenv("LOG_COLOR", "0")
	t.Setenv("LOG_STDOUT", "1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "never", cfg.Logger.ConsoleColor)
	assert.False(t, cfg.Logger.ConsoleStderr)
}

func TestParsedLevelFallsBackToDebug(t *testing.T) {
	l := LoggerConfig{Level: "not-a-level"}
	assert.Equal(t, 4, int(l.ParsedLevel())) // sink.LevelDebug == 4
}

func TestColorEnabledRespectsExplicitSetting(t *testing.T) {
	assert.True(t, LoggerConfig{ConsoleColor: "always"}.ColorEnabled())
	assert.False(t, LoggerConfig{ConsoleColor: "never"}.ColorEnabled())
}
