// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package log

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	tp := &RecordLogger{}
	UseLogger(tp)
	defer func(old Level) { levelThreshold = old }(levelThreshold)
	SetLevel(LevelDebug)

	t.Run("Warn", func(t *testing.T) {
		tp.Reset()
		Warn("message %d", 1)
		assert.Equal(t, "WARN: message 1", tp.Logs()[0])
	})

	t.Run("Debug", func(t *testing.T) {
		tp.Reset()
		assert.True(t, DebugEnabled())
		Debug("message %d", 3)
		assert.Equal(t, "DEBUG: message 3", tp.Logs()[0])
	})

	t.Run("DebugDisabled", func(t *testing.T) {
		SetLevel(LevelInfo)
		defer SetLevel(LevelDebug)
		tp.Reset()
		assert.False(t, DebugEnabled())
		Debug("message %d", 2)
		assert.Len(t, tp.Logs(), 0)
	})
}

func TestErrorRateLimiting(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	tp := &RecordLogger{}
	UseLogger(tp)
	defer func(old Level) { levelThreshold = old }(levelThreshold)
	SetLevel(LevelDebug)

	defer func(old time.Duration) { errrate = old }(errrate)
	errrate = 10 * time.Hour
	resetErrors()

	Error("a message %d", 1)
	Error("a message %d", 2)
	Error("a message %d", 3)
	Error("b message")

	Flush()
	logs := tp.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, "ERROR: a message 1, 2 additional messages skipped", logs[0])
	assert.Equal(t, "ERROR: b message", logs[1])

	tp.Reset()
	Flush()
	assert.Len(t, tp.Logs(), 0)
}

func TestErrorInstant(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	tp := &RecordLogger{}
	UseLogger(tp)
	defer func(old Level) { levelThreshold = old }(levelThreshold)
	SetLevel(LevelDebug)

	defer func(old time.Duration) { errrate = old }(errrate)
	errrate = 0

	Error("instant message")
	require.Len(t, tp.Logs(), 1)
	assert.Equal(t, "ERROR: instant message", tp.Logs()[0])
}

func TestFileLogger(t *testing.T) {
	dir, err := os.MkdirTemp("", "tracing-log-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	f, err := OpenFileAtPath(dir)
	require.NoError(t, err)
	f.Log("INFO: hello")
	require.NoError(t, f.Close())

	b, err := os.ReadFile(dir + "/" + LoggerFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), "INFO: hello")

	// Closing twice must not panic or error.
	assert.NoError(t, f.Close())
}

func TestRecordLoggerIgnore(t *testing.T) {
	r := &RecordLogger{}
	r.Ignore("appsec:")
	r.Log("appsec: dropped")
	r.Log("kept")
	assert.Equal(t, []string{"kept"}, r.Logs())
}
