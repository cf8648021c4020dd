// Copyright 2025 UMH Systems GmbH
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
//
// Modified from github.com/united-manufacturing-hub/united-manufacturing-hub
// umh-core/pkg/logger for cutplan.

// Package logger configures the process-wide zap logger and hands out named
// component loggers.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the logging level.
type LogLevel string

// LogFormat represents the logging format.
type LogFormat string

const (
	DebugLevel LogLevel = "DEBUG"
	InfoLevel  LogLevel = "INFO"
	WarnLevel  LogLevel = "WARN"
	ErrorLevel LogLevel = "ERROR"
	// ProductionLevel is an alias for InfoLevel.
	ProductionLevel LogLevel = "PRODUCTION"

	// FormatConsole indicates human-readable console format.
	FormatConsole LogFormat = "CONSOLE"
	// FormatJSON indicates structured JSON format.
	FormatJSON LogFormat = "JSON"
	// FormatPretty indicates the compact [LEVEL] [component] format.
	FormatPretty LogFormat = "PRETTY"
)

var (
	initOnce    sync.Once
	initialized bool
	mu          sync.Mutex
)

func getLogLevel(level LogLevel) zapcore.Level {
	switch LogLevel(strings.ToUpper(string(level))) {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseFormat falls back to def for anything unknown.
func ParseFormat(s string, def LogFormat) LogFormat {
	format := LogFormat(strings.ToUpper(strings.TrimSpace(s)))
	if format != FormatConsole && format != FormatJSON && format != FormatPretty {
		return def
	}
	return format
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05 MST"))
}

// New creates a logger writing to stderr. Stdout is kept free for command
// output.
func New(logLevel string, logFormat LogFormat) *zap.Logger {
	return NewWithWriter(os.Stderr, logLevel, logFormat)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, logLevel string, logFormat LogFormat) *zap.Logger {
	level := getLogLevel(LogLevel(logLevel))

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if logFormat == FormatConsole || logFormat == FormatPretty {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = timeEncoder
		encoderConfig.ConsoleSeparator = " | "
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var encoder zapcore.Encoder
	switch logFormat {
	case FormatPretty:
		encoder = NewPrettyConsoleEncoder(encoderConfig)
	case FormatConsole:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller())
}

// Initialize sets up the global logger from LOGGING_LEVEL and LOGGING_FORMAT.
func Initialize() {
	initOnce.Do(func() {
		level := getEnv("LOGGING_LEVEL", string(ProductionLevel))
		format := ParseFormat(getEnv("LOGGING_FORMAT", ""), FormatPretty)
		Configure(level, format)
	})
}

// Configure replaces the global logger. It wins over Initialize.
func Configure(level string, format LogFormat) {
	l := New(level, format)
	ReplaceGlobal(l)
	l.Debug("Logger initialized",
		zap.String("level", level),
		zap.String("format", string(format)))
}

// ReplaceGlobal installs l as the global logger. Tests use it with
// zap.NewNop or an observer core.
func ReplaceGlobal(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	zap.ReplaceGlobals(l)
	initialized = true
}

func ensure() {
	mu.Lock()
	ok := initialized
	mu.Unlock()
	if !ok {
		Initialize()
	}
}

// Sync flushes any buffered log entries.
func Sync() error {
	return zap.L().Sync()
}

// For creates a named logger for a specific component.
func For(component string) *zap.SugaredLogger {
	ensure()
	return zap.S().Named(component)
}
