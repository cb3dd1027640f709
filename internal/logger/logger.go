// Package logger provides structured JSON logging with rotation and a
// ring buffer of recent warnings for the diagnostics endpoint.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogEntry represents a captured log entry for the diagnostics endpoint.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// Format formats a log entry for display.
func (e LogEntry) Format() string {
	levelStr := "INFO"
	switch e.Level {
	case slog.LevelDebug:
		levelStr = "DEBUG"
	case slog.LevelWarn:
		levelStr = "WARN"
	case slog.LevelError:
		levelStr = "ERROR"
	}
	return fmt.Sprintf("%s %-5s %s", e.Time.Format("15:04:05"), levelStr, e.Message)
}

// ringBuffer is a fixed-size circular buffer for log entries.
type ringBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	size    int
	head    int
	count   int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

func (rb *ringBuffer) add(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = entry
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
}

func (rb *ringBuffer) getAll() []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	result := make([]LogEntry, rb.count)
	for i := 0; i < rb.count; i++ {
		idx := (rb.head - rb.count + i + rb.size) % rb.size
		result[i] = rb.entries[idx]
	}
	return result
}

// captureHandler wraps another handler to capture WARN and ERROR entries.
type captureHandler struct {
	inner  slog.Handler
	buffer *ringBuffer
}

func (h *captureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		h.buffer.add(LogEntry{
			Time:    r.Time,
			Level:   r.Level,
			Message: r.Message,
		})
	}
	return h.inner.Handle(ctx, r)
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{
		inner:  h.inner.WithAttrs(attrs),
		buffer: h.buffer,
	}
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	return &captureHandler{
		inner:  h.inner.WithGroup(name),
		buffer: h.buffer,
	}
}

var (
	// Log is the global structured logger
	Log *slog.Logger
	// logWriter is the rotating log writer
	logWriter *lumberjack.Logger
	// LogPath is the path to the current log file
	LogPath string
	// recentBuffer holds recent WARN/ERROR entries
	recentBuffer *ringBuffer
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a config string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// InitLogger initializes the global logger with the specified level and optional path.
// If logPath is empty, defaults to ~/.config/carewatch/carewatch.log
func InitLogger(level LogLevel, logPath string) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}

	if logPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = os.TempDir()
		}
		logDir := filepath.Join(homeDir, ".config", "carewatch")
		_ = os.MkdirAll(logDir, 0755)
		logPath = filepath.Join(logDir, "carewatch.log")
	}

	LogPath = logPath

	// Use lumberjack for log rotation
	var writer io.Writer
	logWriter = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	}
	writer = logWriter

	// Keep the last 100 warnings/errors for the diagnostics endpoint
	recentBuffer = newRingBuffer(100)

	jsonHandler := slog.NewJSONHandler(writer, opts)
	handler := &captureHandler{
		inner:  jsonHandler,
		buffer: recentBuffer,
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

// Close closes the log file
func Close() {
	if logWriter != nil {
		logWriter.Close()
	}
}

// getLogger returns the global logger, or the default slog logger if not initialized.
func getLogger() *slog.Logger {
	if Log != nil {
		return Log
	}
	return slog.Default()
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	getLogger().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	getLogger().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	getLogger().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	getLogger().Error(msg, args...)
}

// With creates a new logger with additional attributes
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// RecentEntries returns the captured WARN/ERROR entries, oldest first.
func RecentEntries() []LogEntry {
	if recentBuffer == nil {
		return nil
	}
	return recentBuffer.getAll()
}
