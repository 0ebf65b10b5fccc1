package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// FilePath is where the JSON log file is written.
	FilePath string
	// FileLevel is the minimum level recorded to the file.
	FileLevel zapcore.Level
	// ConsoleLevel is the minimum level echoed to the console.
	ConsoleLevel zapcore.Level
	// Rotation overrides the default rotation policy when non-nil.
	Rotation *FileWriterConfig
}

// DefaultConfig returns the logger configuration used by the server:
// debug-level file logging to logs/storybook.log with info on the console.
func DefaultConfig() Config {
	return Config{
		FilePath:     "logs/storybook.log",
		FileLevel:    zapcore.DebugLevel,
		ConsoleLevel: zapcore.InfoLevel,
	}
}

// Logger wraps zap with automatic redaction of credential material in
// field values. All logging in the server goes through this type so
// gateway tokens can never reach the log file.
type Logger struct {
	zl *zap.Logger
}

// NewLogger constructs a Logger that tees to a rotating file and the
// console per cfg.
func NewLogger(cfg Config) (*Logger, error) {
	rotation := DefaultFileWriterConfig(cfg.FilePath)
	if cfg.Rotation != nil {
		rotation = *cfg.Rotation
	}
	fw, err := NewFileWriter(rotation)
	if err != nil {
		return nil, fmt.Errorf("creating log file writer: %w", err)
	}
	core := NewMultiCore(zapcore.AddSync(fw), cfg.FileLevel, cfg.ConsoleLevel)
	return &Logger{zl: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}, nil
}

// NewNop returns a Logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// ParseLevel converts a level name from the environment into a
// zapcore.Level, defaulting to info for unknown names.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// redactFields returns a copy of fields with sensitive keys fully redacted
// and credential patterns scrubbed from string values.
func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		switch {
		case IsSensitiveField(f.Key):
			out[i] = zap.String(f.Key, RedactedValue)
		case f.Type == zapcore.StringType:
			out[i] = zap.String(f.Key, RedactString(f.String))
		default:
			out[i] = f
		}
	}
	return out
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zl.Debug(RedactString(msg), redactFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zl.Info(RedactString(msg), redactFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zl.Warn(RedactString(msg), redactFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zl.Error(RedactString(msg), redactFields(fields)...)
}

func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zl.Fatal(RedactString(msg), redactFields(fields)...)
}

// With returns a child logger with the given fields attached to every
// entry. Fields are redacted once here, not per entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zl: l.zl.With(redactFields(fields)...)}
}

// Named returns a child logger with the given name appended to the
// source path.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zl: l.zl.Named(name)}
}

// Sync flushes buffered entries. Call before process exit.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}
