package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// LogLevel represents the logging level
type LogLevel int32

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLogLevel parses a string into a LogLevel, falling back to INFO
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger writes level-filtered lines with a UTC timestamp and an optional component tag.
// Loggers derived with Named share the level of their parent.
type Logger struct {
	out       *log.Logger
	errOut    *log.Logger
	level     *atomic.Int32
	component string
}

var defaultLogger *Logger

func init() {
	defaultLogger = New(os.Stdout, os.Stderr, ParseLogLevel(os.Getenv("LOG_LEVEL")))
}

// New creates a logger writing info/debug/warn lines to out and errors to errOut.
func New(out, errOut io.Writer, level LogLevel) *Logger {
	lvl := &atomic.Int32{}
	lvl.Store(int32(level))
	return &Logger{
		out:    log.New(out, "", 0),
		errOut: log.New(errOut, "", 0),
		level:  lvl,
	}
}

// Named returns a logger that tags every line with the given component.
func (l *Logger) Named(component string) *Logger {
	c := *l
	if l.component != "" {
		c.component = l.component + "." + component
	} else {
		c.component = component
	}
	return &c
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

func (l *Logger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

func (l *Logger) enabled(level LogLevel) bool {
	return level >= l.Level()
}

func (l *Logger) write(dst *log.Logger, level LogLevel, format string, args []interface{}) {
	if !l.enabled(level) {
		return
	}
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	message := fmt.Sprintf(format, args...)
	if l.component != "" {
		dst.Printf("[%s] %s [%s]: %s", timestamp, level, l.component, message)
		return
	}
	dst.Printf("[%s] %s: %s", timestamp, level, message)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(l.out, DebugLevel, format, args)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.write(l.out, InfoLevel, format, args)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(l.out, WarnLevel, format, args)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.write(l.errOut, ErrorLevel, format, args)
}

// Package-level convenience functions using the default logger

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger
}

// Named returns a component logger derived from the default logger.
func Named(component string) *Logger {
	return defaultLogger.Named(component)
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

// SetLogLevelFromString changes the level of the default logger and every logger derived from it
func SetLogLevelFromString(level string) {
	lvl := ParseLogLevel(level)
	defaultLogger.SetLevel(lvl)
	defaultLogger.Info("Log level changed to: %s", lvl)
}

// GetLogLevel returns the current log level of the default logger
func GetLogLevel() LogLevel {
	return defaultLogger.Level()
}
