// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

// Package log provides the process-wide logger used by every other
// package in this module. Call InitGlobalLogger once during startup;
// before that, the package logs to a sane development default so that
// library code and tests never need a nil check.
package log

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the global logger. It is part of server/config's
// top-level configuration, not of the core: the core takes no logger
// configuration and only logs a debug message when Topology.RemoveEndpoint
// drops an endpoint.
type Config struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

func (c *Config) level() zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return zap.InfoLevel
	}
	return lvl
}

var globalLogger atomic.Pointer[zap.Logger]

func init() {
	globalLogger.Store(zap.NewNop())
	if l, err := zap.NewDevelopment(); err == nil {
		globalLogger.Store(l)
	}
}

// InitGlobalLogger builds a production zap.Logger from cfg, installs it as
// the package-wide logger, and returns it so the caller can Sync it on
// shutdown.
func InitGlobalLogger(cfg *Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.level())
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	globalLogger.Store(logger)
	return logger, nil
}

func L() *zap.Logger {
	return globalLogger.Load()
}

func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}
