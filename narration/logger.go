// Package narration prints the human-readable commentary of a sandbox run.
// Nothing in the sandbox parses this output; correctness is checked through
// the instrumentation each demonstrator returns.
package narration

import (
	"fmt"
	"io"
	logpkg "log"
	"strings"
)

// Level defines severity for narration output.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// ParseLevel maps a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelInfo, fmt.Errorf("unknown narration level %q", s)
}

// Logger provides leveled narration. A nil *Logger discards everything, so
// demonstrators can be run silently from tests.
type Logger struct {
	level  Level
	logger *logpkg.Logger
}

// New creates a logger writing to w with the desired level and prefix.
func New(w io.Writer, level Level, prefix string) *Logger {
	return &Logger{
		level:  level,
		logger: logpkg.New(w, prefix, logpkg.Ltime|logpkg.Lmicroseconds),
	}
}

// SetLevel adjusts current logging level.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.level = level
}

// Enabled reports whether messages at target would be printed.
func (l *Logger) Enabled(target Level) bool {
	return l != nil && target <= l.level
}

func (l *Logger) logf(target Level, format string, args ...any) {
	if !l.Enabled(target) {
		return
	}
	l.logger.Output(3, fmt.Sprintf(format, args...))
}

// Debugf prints per-event narration (every acquire, release, wake).
func (l *Logger) Debugf(format string, args ...any) {
	l.logf(LevelDebug, format, args...)
}

// Infof prints demonstrator-level narration.
func (l *Logger) Infof(format string, args ...any) {
	l.logf(LevelInfo, format, args...)
}

// Warnf prints warning messages.
func (l *Logger) Warnf(format string, args ...any) {
	l.logf(LevelWarn, format, args...)
}

// Errorf prints error messages.
func (l *Logger) Errorf(format string, args ...any) {
	l.logf(LevelError, format, args...)
}

// Section prints a header announcing the next demonstration.
func (l *Logger) Section(title string) {
	l.logf(LevelInfo, "━━━ %s ━━━", title)
}
