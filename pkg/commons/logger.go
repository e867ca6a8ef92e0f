// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package commons

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging contract shared by every component.
type Logger interface {
	Level() zapcore.Level

	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	DPanic(args ...interface{})
	DPanicf(template string, args ...interface{})
	Panic(args ...interface{})
	Panicf(template string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})

	Benchmark(functionName string, duration time.Duration)
	Tracef(ctx context.Context, template string, args ...interface{})
	Sync() error
}

type loggerOptions struct {
	name       string
	path       string
	level      string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	console    bool
}

type LoggerOption func(*loggerOptions)

func Name(name string) LoggerOption {
	return func(o *loggerOptions) { o.name = name }
}

// Path sets the directory the rotated log file is written to. An empty path
// keeps the logger on stdout only.
func Path(path string) LoggerOption {
	return func(o *loggerOptions) { o.path = path }
}

func Level(level string) LoggerOption {
	return func(o *loggerOptions) { o.level = level }
}

func Console(enabled bool) LoggerOption {
	return func(o *loggerOptions) { o.console = enabled }
}

type applicationLogger struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

func NewApplicationLogger(opts ...LoggerOption) (Logger, error) {
	options := &loggerOptions{
		name:       "callsight",
		level:      "info",
		maxSizeMB:  50,
		maxBackups: 5,
		maxAgeDays: 14,
		console:    true,
	}
	for _, opt := range opts {
		opt(options)
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(options.level))); err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	if options.console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stdout),
			level,
		))
	}
	if options.path != "" {
		if err := os.MkdirAll(options.path, 0o755); err != nil {
			return nil, err
		}
		rotation := &lumberjack.Logger{
			Filename:   filepath.Join(options.path, options.name+".log"),
			MaxSize:    options.maxSizeMB,
			MaxBackups: options.maxBackups,
			MaxAge:     options.maxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotation),
			level,
		))
	}
	if len(cores) == 0 {
		cores = append(cores, zapcore.NewNopCore())
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(0)).
		Named(options.name)
	return &applicationLogger{SugaredLogger: logger.Sugar(), level: level}, nil
}

// NewNopLogger discards everything; used where a component needs a Logger
// before configuration is available.
func NewNopLogger() Logger {
	return &applicationLogger{
		SugaredLogger: zap.NewNop().Sugar(),
		level:         zap.NewAtomicLevelAt(zapcore.FatalLevel),
	}
}

func (l *applicationLogger) Level() zapcore.Level {
	return l.level.Level()
}

func (l *applicationLogger) Benchmark(functionName string, duration time.Duration) {
	l.SugaredLogger.Debugw("benchmark", "function", functionName, "duration", duration.String())
}

func (l *applicationLogger) Tracef(ctx context.Context, template string, args ...interface{}) {
	if deadline, ok := ctx.Deadline(); ok {
		l.SugaredLogger.With("deadline", time.Until(deadline).String()).Debugf(template, args...)
		return
	}
	l.SugaredLogger.Debugf(template, args...)
}
