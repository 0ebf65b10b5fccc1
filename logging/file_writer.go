package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileWriterConfig holds the rotation policy for a log file.
type FileWriterConfig struct {
	// Filename is the file to write logs to.
	Filename string
	// MaxSize is the maximum size in megabytes before rotation.
	MaxSize int
	// MaxBackups is the maximum number of rotated files to retain.
	MaxBackups int
	// MaxAge is the maximum number of days to retain rotated files.
	MaxAge int
	// Compress determines whether rotated files are gzipped.
	Compress bool
}

// DefaultFileWriterConfig returns the rotation policy used when none is
// supplied: 10MB files, 5 backups, 30 day retention, compressed.
func DefaultFileWriterConfig(filename string) FileWriterConfig {
	return FileWriterConfig{
		Filename:   filename,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
}

// NewFileWriter creates a rotating file writer backed by lumberjack,
// creating the parent directory if needed.
func NewFileWriter(cfg FileWriterConfig) (*lumberjack.Logger, error) {
	dir := filepath.Dir(cfg.Filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %q: %w", dir, err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}, nil
}
