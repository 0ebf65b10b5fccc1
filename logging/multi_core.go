package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
)

// NewMultiCore builds a zapcore.Core that tees JSON output to a rotating
// file and human-readable output to the console. The console core only
// receives entries at or above consoleLevel so terminal output stays
// readable while the file keeps the full record.
func NewMultiCore(fileWriter zapcore.WriteSyncer, fileLevel, consoleLevel zapcore.Level) zapcore.Core {
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(NewEncoderConfig()),
		fileWriter,
		fileLevel,
	)
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(NewConsoleEncoderConfig()),
		zapcore.Lock(os.Stdout),
		consoleLevel,
	)
	return zapcore.NewTee(fileCore, consoleCore)
}
