package supervisor

import (
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewReportLog creates a JSON slog.Logger writing to a size-rotated file at
// path, along with the rotator itself so hosts can force a rotation per run
// and hand the same path to WithLogPath for crash attachments.
func NewReportLog(path string, level slog.Level) (*slog.Logger, *lumberjack.Logger) {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 2,
	}
	handler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level})
	return slog.New(handler), rotator
}
