// Package logging builds the process logger: JSON lines to a log file
// for post-hoc analysis, human-readable text on stderr. Debug records go
// to the file only unless debug mode is on.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Nop returns a logger that discards everything. Used in tests and as a
// safe default before configuration is loaded.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Logger couples the configured slog.Logger with the file it writes to.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Close flushes and closes the underlying log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// New creates the process logger. filePath may be empty, in which case
// only the console handler is installed. debug lowers the level of both
// handlers to Debug.
func New(filePath string, debug bool) (*Logger, error) {
	consoleLevel := slog.LevelInfo
	if debug {
		consoleLevel = slog.LevelDebug
	}

	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: consoleLevel})

	if filePath == "" {
		return &Logger{Logger: slog.New(console)}, nil
	}

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: create log dir: %w", err)
		}
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})

	return &Logger{
		Logger: slog.New(tee{console: console, file: fileHandler}),
		file:   file,
	}, nil
}

// tee fans every record out to the console and file handlers, each with
// its own level gate.
type tee struct {
	console slog.Handler
	file    slog.Handler
}

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	return t.console.Enabled(ctx, level) || t.file.Enabled(ctx, level)
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	if t.console.Enabled(ctx, r.Level) {
		firstErr = t.console.Handle(ctx, r.Clone())
	}
	if t.file.Enabled(ctx, r.Level) {
		if err := t.file.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return tee{console: t.console.WithAttrs(attrs), file: t.file.WithAttrs(attrs)}
}

func (t tee) WithGroup(name string) slog.Handler {
	return tee{console: t.console.WithGroup(name), file: t.file.WithGroup(name)}
}
