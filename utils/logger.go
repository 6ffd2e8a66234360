package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level orders log severities; messages below the logger's level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides leveled logging throughout the application.
type Logger struct {
	level Level
	out   *log.Logger
	err   *log.Logger
	color bool
}

// NewLogger creates an info-level Logger writing to stdout/stderr.
func NewLogger() *Logger {
	return &Logger{
		level: LevelInfo,
		out:   log.New(os.Stdout, "", 0),
		err:   log.New(os.Stderr, "", 0),
		color: true,
	}
}

// NewLoggerTo creates a Logger that writes every level to w without colors.
func NewLoggerTo(w io.Writer, level Level) *Logger {
	l := log.New(w, "", 0)
	return &Logger{level: level, out: l, err: l}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, LevelError+1)
}

// SetLevel changes the minimum level that is written.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) write(dst *log.Logger, level Level, tag, color, format string, args ...any) {
	if level < l.level {
		return
	}
	if l.color {
		tag = "\033[" + color + "m" + tag + "\033[0m"
	}
	dst.Printf("[%s] %s %s\n", l.timestamp(), tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.write(l.out, LevelInfo, "INFO ", "32", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.write(l.out, LevelWarn, "WARN ", "33", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.write(l.err, LevelError, "ERROR", "31", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.write(l.out, LevelDebug, "DEBUG", "36", format, args...)
}
