// Package debug provides control-side logging. Nothing in it may be
// called from the audio thread.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger writes leveled, timestamped messages. Safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	output io.Writer
	level  Level
	prefix string
}

// New creates a logger writing to output.
func New(output io.Writer, prefix string) *Logger {
	return &Logger{
		output: output,
		prefix: prefix,
		level:  LevelInfo,
	}
}

var defaultLogger = New(os.Stderr, "miditransposer")

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger
}

// SetLevel sets the minimum level that gets written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput redirects the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level || l.output == nil {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(l.output, "%s [%s] %s: %s\n",
		ts, level, l.prefix, fmt.Sprintf(format, args...))
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.log(LevelDebug, format, args...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, format, args...)
}
