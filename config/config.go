// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package config loads this library's configuration from file and
// environment: defaults, then an optional config file, then
// environment overrides — using github.com/spf13/viper for the
// file/env merge and github.com/spf13/pflag for the optional CLI flag
// surface bound in cmd/tracingctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bp3d-tracing/tracing/sink"
)

// Mode selects which sink Initialize wires up.
type Mode string

const (
	ModeLogger   Mode = "logger"
	ModeProfiler Mode = "profiler"
	ModeNone     Mode = "none"
)

// LoggerConfig is the logger.* configuration block.
type LoggerConfig struct {
	Level         string
	ConsoleColor  string // auto|always|never
	ConsoleStderr bool
	File          string // empty disables the file sink
	TimeFormat    string
}

// ColorEnabled resolves ConsoleColor's auto setting against the
// terminal's own color support, as reported by fatih/color.
func (l LoggerConfig) ColorEnabled() bool {
	switch l.ConsoleColor {
	case "always":
		return true
	case "never":
		return false
	default:
		return !color.NoColor
	}
}

// ParsedLevel parses Level, falling back to debug on an unrecognized value
// rather than failing configuration load.
func (l LoggerConfig) ParsedLevel() sink.Level {
	if lvl, ok := sink.ParseLevel(l.Level); ok {
		return lvl
	}
	return sink.LevelDebug
}

// ProfilerConfig is the profiler.* configuration block.
type ProfilerConfig struct {
	Port      uint16
	MaxRows   uint32
	MinPeriod uint16 // milliseconds
}

// Config is the fully resolved, layered configuration.
type Config struct {
	Mode     Mode
	Logger   LoggerConfig
	Profiler ProfilerConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeLogger))
	v.SetDefault("logger.level", "debug")
	v.SetDefault("logger.console.color", "auto")
	v.SetDefault("logger.console.stderr", true)
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.time-format", "2006-01-02 15:04:05.000")
	v.SetDefault("profiler.port", 4026)
	v.SetDefault("profiler.max-rows", 1_000_000)
	v.SetDefault("profiler.min-period", 200)
}

// Load resolves configuration from an optional config file (any
// format viper supports: yaml, toml, json, ...) layered under
// TRACING_*-prefixed environment variables, then applies a handful of
// non-prefixed legacy environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TRACING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		Mode: Mode(v.GetString("mode")),
		Logger: LoggerConfig{
			Level:         v.GetString("logger.level"),
			ConsoleColor:  v.GetString("logger.console.color"),
			ConsoleStderr: v.GetBool("logger.console.stderr"),
			File:          v.GetString("logger.file"),
			TimeFormat:    v.GetString("logger.time-format"),
		},
		Profiler: ProfilerConfig{
			Port:      uint16(v.GetUint32("profiler.port")),
			MaxRows:   v.GetUint32("profiler.max-rows"),
			MinPeriod: uint16(v.GetUint32("profiler.min-period")),
		},
	}

	applyLegacyEnv(cfg)
	return cfg, nil
}

// applyLegacyEnv implements a set of non-TRACING_-prefixed overrides,
// which win over everything viper already resolved.
func applyLegacyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("PROFILER"); ok && truthy(v) {
		cfg.Mode = ModeProfiler
	}
	if v, ok := os.LookupEnv("PROFILER_PORT"); ok {
		if port, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.Profiler.Port = uint16(port)
		}
	}
	if v, ok := os.LookupEnv("LOG"); ok {
		cfg.Logger.Level = v
	}
	if v, ok := os.LookupEnv("LOG_DISABLE"); ok && truthy(v) {
		cfg.Mode = ModeNone
	}
	if v, ok := os.LookupEnv("LOG_COLOR"); ok {
		if truthy(v) {
			cfg.Logger.ConsoleColor = "always"
		} else {
			cfg.Logger.ConsoleColor = "never"
		}
	}
	if v, ok := os.LookupEnv("LOG_STDOUT"); ok {
		cfg.Logger.ConsoleStderr = !truthy(v)
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// BindFlags registers the subset of configuration exposed as CLI
// flags onto fs, for cmd/tracingctl. It only registers the flags:
// Load does not read fs, and tracingctl's run command does not apply
// the parsed values, so they do not change the loaded configuration.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("mode", string(ModeLogger), "logger | profiler | none")
	fs.String("log-level", "debug", "trace|debug|info|warning|error")
	fs.Uint16("profiler-port", 4026, "profiler TCP port")
}
