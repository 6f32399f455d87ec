// Package logger provides the structured slog logger for the service.
// All logs are written in JSON format, either to stderr or to a
// size-rotated file under the configured log directory.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a JSON slog.Logger. When logDir is empty the logger writes to
// stderr; otherwise it writes to <logDir>/mailroom.log with size-based
// rotation. The directory is created if it does not exist.
func New(logDir string, level slog.Level) (*slog.Logger, error) {
	w, err := output(logDir)
	if err != nil {
		return nil, err
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), nil
}

// output resolves the log destination for the given directory.
func output(logDir string) (io.Writer, error) {
	if logDir == "" {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, fmt.Errorf("creating log directory %q: %w", logDir, err)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "mailroom.log"),
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}, nil
}
