// Package logging provides the engine's line-oriented logger: a nil-safe
// *Logger that can be passed down through every constructor without a
// caller needing to check for "no logging configured", with leveled,
// colorized output in the shape of the teacher's pkg/logging.
package logging

import (
	"fmt"
	"log"

	"github.com/fatih/color"
)

// Logger is the main logger type. It has the novel property that it still
// functions if nil (logging everything as a no-op), so that collaborators
// can be constructed with an optional logger without a nil check at every
// call site. It is safe for concurrent use.
type Logger struct {
	// prefix is any prefix specified for the logger.
	prefix string
	// level is the minimum level at which this logger (and every logger
	// descended from it via Sublogger) emits output. It is shared by pointer
	// across a logger tree so that a single NewRoot call site controls the
	// verbosity of every sublogger derived from it.
	level *Level
}

// NewRoot creates a new root logger at the given level. A nil *Logger (the
// zero value obtained by declaring "var l *Logger") is also valid and
// behaves as though level were LevelDisabled.
func NewRoot(level Level) *Logger {
	l := level
	return &Logger{level: &l}
}

// Sublogger creates a new sublogger with the specified name, inheriting the
// parent's level.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix, level: l.level}
}

// effectiveLevel reports the logger's effective level, treating a nil logger or a nil
// level pointer as LevelDisabled.
func (l *Logger) effectiveLevel() Level {
	if l == nil || l.level == nil {
		return LevelDisabled
	}
	return *l.level
}

// output is the internal logging method.
func (l *Logger) output(calldepth int, line string) {
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	log.Output(calldepth, line)
}

// Info logs basic execution information, gated by LevelInfo.
func (l *Logger) Info(v ...interface{}) {
	if l != nil && l.effectiveLevel() >= LevelInfo {
		l.output(3, fmt.Sprint(v...))
	}
}

// Infof logs basic execution information with fmt.Printf semantics, gated by
// LevelInfo.
func (l *Logger) Infof(format string, v ...interface{}) {
	if l != nil && l.effectiveLevel() >= LevelInfo {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Debug logs advanced execution information, gated by LevelDebug.
func (l *Logger) Debug(v ...interface{}) {
	if l != nil && l.effectiveLevel() >= LevelDebug {
		l.output(3, fmt.Sprint(v...))
	}
}

// Debugf logs advanced execution information with fmt.Printf semantics,
// gated by LevelDebug.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l != nil && l.effectiveLevel() >= LevelDebug {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Warn logs error information with a warning prefix and yellow color, gated
// by LevelWarn. Used for recovered errors (e.g. a StoreReadFailure treated
// as "no previous record").
func (l *Logger) Warn(err error) {
	if l != nil && l.effectiveLevel() >= LevelWarn {
		l.output(3, color.YellowString("warning: %v", err))
	}
}

// Error logs error information with an error prefix and red color, gated by
// LevelError.
func (l *Logger) Error(err error) {
	if l != nil && l.effectiveLevel() >= LevelError {
		l.output(3, color.RedString("error: %v", err))
	}
}
