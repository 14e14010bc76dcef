package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Level controls which messages a Logger emits.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the level name used in log output.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string to a Level. Unknown names fall
// back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Logger is the leveled logging interface the engine components accept.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	SetLevel(level Level)
	GetLevel() Level
}

// Default is a Logger writing formatted lines to a single writer.
type Default struct {
	level  Level
	mu     sync.Mutex
	output io.Writer
}

// NewDefault creates a Default logger writing to stdout.
func NewDefault(level Level) *Default {
	return &Default{level: level, output: os.Stdout}
}

// NewDefaultWithOutput creates a Default logger writing to output.
func NewDefaultWithOutput(level Level, output io.Writer) *Default {
	return &Default{level: level, output: output}
}

func (l *Default) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Default) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Default) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *Default) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *Default) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *Default) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

func (l *Default) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.output, "[%s] %s\n", level.String(), message)
}

// Nop discards everything. Components use it when no logger is supplied.
type Nop struct{}

func NewNop() *Nop { return &Nop{} }

func (l *Nop) Debug(format string, args ...interface{}) {}
func (l *Nop) Info(format string, args ...interface{})  {}
func (l *Nop) Warn(format string, args ...interface{})  {}
func (l *Nop) Error(format string, args ...interface{}) {}
func (l *Nop) SetLevel(level Level)                     {}
func (l *Nop) GetLevel() Level                          { return LevelInfo }
