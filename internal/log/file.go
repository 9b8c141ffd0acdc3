// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package log

import (
	"os"
	"path/filepath"
	"sync"
)

// LoggerFile is the fixed file name created inside the directory
// passed to OpenFileAtPath.
const LoggerFile = "tracing.log"

// FileLogger is a Logger that appends to a file, used when
// logger.file is configured. It is safe to Close concurrently any
// number of times.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// OpenFileAtPath creates (or appends to) LoggerFile inside dir.
func OpenFileAtPath(dir string) (*FileLogger, error) {
	f, err := os.OpenFile(filepath.Join(dir, LoggerFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{file: f}, nil
}

// Log implements Logger.
func (f *FileLogger) Log(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	_, _ = f.file.WriteString(msg + "\n")
}

// Close closes the underlying file. Safe to call more than once.
func (f *FileLogger) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}
