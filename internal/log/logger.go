// SPDX-License-Identifier: MIT
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// --- Global Logger State ---

// currentLevel holds the current global log level atomically.
var currentLevel atomic.Uint32

// sink is the standard logger every component writes through.
// Date and time with microseconds, so per-block debug output can be correlated.
var sink = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

// std is the component-less logger behind the package-level functions.
var std = &Logger{}

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all loggers. Mostly useful in tests.
func SetOutput(w io.Writer) {
	sink.SetOutput(w)
}

func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

// Logger writes leveled messages tagged with a component name, e.g.
//
//	2025/04/13 10:00:00.000000 [INFO]  broadcast: client connected (total clients: 2)
//
// All loggers share the global level and output.
type Logger struct {
	component string
}

// New returns a logger whose messages are prefixed with component.
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) output(level LogLevel, msg string) {
	// INFO and WARN are padded so messages line up with DEBUG/ERROR.
	pad := " "
	if level == LevelInfo || level == LevelWarn {
		pad = "  "
	}
	if l.component != "" {
		msg = l.component + ": " + msg
	}
	if level == LevelFatal {
		sink.Fatalf("[%s]%s%s", level, pad, msg)
	}
	sink.Printf("[%s]%s%s", level, pad, msg)
}

// Debugf logs a formatted debug message if the level is appropriate.
func (l *Logger) Debugf(format string, v ...any) {
	if shouldLog(LevelDebug) {
		l.output(LevelDebug, fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted info message if the level is appropriate.
func (l *Logger) Infof(format string, v ...any) {
	if shouldLog(LevelInfo) {
		l.output(LevelInfo, fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted warning message if the level is appropriate.
func (l *Logger) Warnf(format string, v ...any) {
	if shouldLog(LevelWarn) {
		l.output(LevelWarn, fmt.Sprintf(format, v...))
	}
}

// Errorf logs a formatted error message if the level is appropriate.
func (l *Logger) Errorf(format string, v ...any) {
	if shouldLog(LevelError) {
		l.output(LevelError, fmt.Sprintf(format, v...))
	}
}

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func (l *Logger) Fatalf(format string, v ...any) {
	l.output(LevelFatal, fmt.Sprintf(format, v...))
}

// --- Package-level functions ---

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...any) { std.Debugf(format, v...) }

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...any) { std.Infof(format, v...) }

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...any) { std.Warnf(format, v...) }

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...any) { std.Errorf(format, v...) }

// Fatalf logs a formatted fatal message and exits the application.
func Fatalf(format string, v ...any) { std.Fatalf(format, v...) }
