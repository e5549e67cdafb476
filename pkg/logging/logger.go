// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package logging provides the structured logger shared by every package in
// this module. It mirrors the narrow logger contract the rest of this
// codebase's lineage depends on, so callers never import zap directly.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the narrow logging contract used throughout the pipeline
// substrate. It is implemented by a thin wrapper around *zap.SugaredLogger
// (whose own With returns *zap.SugaredLogger, not Logger).
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	With(args ...interface{}) Logger
	Sync() error
}

type sugaredLogger struct {
	*zap.SugaredLogger
}

func (s *sugaredLogger) With(args ...interface{}) Logger {
	return &sugaredLogger{s.SugaredLogger.With(args...)}
}

// Options configures NewLogger.
type Options struct {
	// Development enables human-readable, colorized console output.
	Development bool
	// FilePath, when set, additionally writes JSON logs through a rotating
	// lumberjack writer (100MB / 7 backups / 28 days, matching common
	// defaults for long-running voice-pipeline processes).
	FilePath string
}

// NewLogger builds a Logger. In development mode it logs human-readable
// console output to stderr; in production mode it logs JSON to stderr. In
// either mode a non-empty FilePath additionally tees JSON logs to a
// rotating file sink.
func NewLogger(opts Options) (Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	if opts.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     28,
			Compress:   true,
		}
		encoder := zapcore.NewJSONEncoder(cfg.EncoderConfig)
		fileCore := zapcore.NewCore(encoder, zapcore.AddSync(rotator), cfg.Level)
		base = base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}

	return &sugaredLogger{base.Sugar()}, nil
}

// Noop returns a Logger that discards everything; used by tests and by
// callers that construct a stage without caring about diagnostics.
func Noop() Logger {
	return &sugaredLogger{zap.NewNop().Sugar()}
}
