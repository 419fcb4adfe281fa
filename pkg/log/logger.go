// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"os"
	"sync"

	"cloudSync/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
	once         sync.Once
)

// Logger is a structured logger backed by zap.
type Logger struct {
	zap    *zap.Logger
	sugar  *zap.SugaredLogger
	config *Config
}

// Config controls encoder and sinks of a Logger.
type Config struct {
	// Level: debug, info, warn, error, dpanic, panic, fatal
	Level string

	// OutputPaths lists sinks, e.g. ["stdout", "/var/log/cloudsync/app.log"]
	OutputPaths []string

	// ErrorOutputPaths receive Error and above only
	ErrorOutputPaths []string

	// Encoding: json or console
	Encoding string

	Development       bool
	DisableCaller     bool
	DisableStacktrace bool

	// EnableColor only applies to console encoding
	EnableColor bool
}

// DefaultConfig is used when no configuration is supplied.
var DefaultConfig = &Config{
	Level:             "info",
	OutputPaths:       []string{"stdout"},
	ErrorOutputPaths:  []string{"stderr"},
	Encoding:          "console",
	Development:       false,
	DisableCaller:     false,
	DisableStacktrace: false,
	EnableColor:       true,
}

// DevelopmentConfig logs everything with colors and stack traces.
var DevelopmentConfig = &Config{
	Level:             "debug",
	OutputPaths:       []string{"stdout"},
	ErrorOutputPaths:  []string{"stderr"},
	Encoding:          "console",
	Development:       true,
	DisableCaller:     false,
	DisableStacktrace: false,
	EnableColor:       true,
}

// NewLogger builds a Logger from cfg. A nil cfg means DefaultConfig.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig
	}

	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.Encoding == "console" && cfg.EnableColor {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	newEncoder := func() zapcore.Encoder {
		if cfg.Encoding == "json" {
			return zapcore.NewJSONEncoder(encoderConfig)
		}
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	var cores []zapcore.Core
	for _, path := range cfg.OutputPaths {
		cores = append(cores, zapcore.NewCore(newEncoder(), getWriter(path), level))
	}
	for _, path := range cfg.ErrorOutputPaths {
		if contains(cfg.OutputPaths, path) {
			continue
		}
		cores = append(cores, zapcore.NewCore(newEncoder(), getWriter(path), zapcore.ErrorLevel))
	}

	var opts []zap.Option
	if !cfg.DisableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if !cfg.DisableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	zapLogger := zap.New(zapcore.NewTee(cores...), opts...)
	return &Logger{
		zap:    zapLogger,
		sugar:  zapLogger.Sugar(),
		config: cfg,
	}, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	z := zap.NewNop()
	return &Logger{zap: z, sugar: z.Sugar(), config: DefaultConfig}
}

// FromZap wraps an existing zap logger, e.g. zaptest.NewLogger(t).
func FromZap(z *zap.Logger) *Logger {
	return &Logger{zap: z, sugar: z.Sugar(), config: DefaultConfig}
}

// InitGlobalLogger initializes the global logger once.
func InitGlobalLogger(cfg *Config) error {
	var err error
	once.Do(func() {
		var l *Logger
		l, err = NewLogger(cfg)
		if err == nil {
			ReplaceGlobalLogger(l)
		}
	})
	return err
}

// InitFromConfig converts config.LogConfig and initializes the global logger.
func InitFromConfig(cfg *config.LogConfig) error {
	if cfg == nil {
		return InitGlobalLogger(DefaultConfig)
	}

	return InitGlobalLogger(&Config{
		Level:            cfg.Level,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
		Encoding:         cfg.Encoding,
		EnableColor:      cfg.Encoding == "console",
	})
}

// GetLogger returns the global logger, initializing it with defaults if needed.
func GetLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	_ = InitGlobalLogger(DefaultConfig)

	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return NewNop()
	}
	return globalLogger
}

// ReplaceGlobalLogger swaps the global logger.
func ReplaceGlobalLogger(logger *Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Zap exposes the underlying zap logger for libraries that want one.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	z := l.zap.With(fields...)
	return &Logger{zap: z, sugar: z.Sugar(), config: l.config}
}

// Named returns a child logger with name appended.
func (l *Logger) Named(name string) *Logger {
	z := l.zap.Named(name)
	return &Logger{zap: z, sugar: z.Sugar(), config: l.config}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.zap.Fatal(msg, fields...) }

func (l *Logger) Debugf(template string, args ...interface{}) { l.sugar.Debugf(template, args...) }
func (l *Logger) Infof(template string, args ...interface{})  { l.sugar.Infof(template, args...) }
func (l *Logger) Warnf(template string, args ...interface{})  { l.sugar.Warnf(template, args...) }
func (l *Logger) Errorf(template string, args ...interface{}) { l.sugar.Errorf(template, args...) }
func (l *Logger) Fatalf(template string, args ...interface{}) { l.sugar.Fatalf(template, args...) }

func getWriter(path string) zapcore.WriteSyncer {
	switch path {
	case "stdout":
		return zapcore.AddSync(os.Stdout)
	case "stderr":
		return zapcore.AddSync(os.Stderr)
	default:
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			// fall back to stdout rather than losing logs
			return zapcore.AddSync(os.Stdout)
		}
		return zapcore.AddSync(file)
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// Package-level helpers on the global logger.

func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { GetLogger().Fatal(msg, fields...) }

func Infof(template string, args ...interface{})  { GetLogger().Infof(template, args...) }
func Errorf(template string, args ...interface{}) { GetLogger().Errorf(template, args...) }
func Fatalf(template string, args ...interface{}) { GetLogger().Fatalf(template, args...) }

// Sync flushes the global logger.
func Sync() error {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}
