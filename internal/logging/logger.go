// Package logging provides the leveled, named loggers used across boxflow.
//
// Loggers are obtained by component name and write one line per message:
//
//	logger := logging.GetLogger("integration.box")
//	logger.Info("searching Box for %q", prompt)
//	logger.InfoWithFields("tool call finished",
//	    logging.Field("tool", "box_generic_search"),
//	    logging.Field("outcome", "found"),
//	)
//
// Levels can be overridden per component with dotted names or wildcard
// patterns ("agent.*"). DEBUG/INFO/WARN lines go through the standard log
// package (stdout unless redirected with RedirectTo), ERROR/FATAL go to stderr.
//
// When a logger carries a context (WithContext) holding an OpenTelemetry span,
// the trace and span IDs are attached to every line.
package logging

import (
	"context"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

const rootLoggerName = "boxflow"

var (
	globalLogger *Logger
	initOnce     sync.Once
	// exitFunc is swapped in tests so Fatal does not terminate the binary.
	exitFunc = os.Exit
)

// Initialize sets the default level and optional per-component overrides.
// Unknown default levels fall back to INFO.
func Initialize(levelStr string, packageLevels ...map[string]string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	globalLogger = &Logger{
		level: level,
		name:  rootLoggerName,
	}

	if len(packageLevels) > 0 && packageLevels[0] != nil {
		if err := SetPackageLogLevels(packageLevels[0]); err != nil {
			return err
		}
	}

	return nil
}

// RedirectTo sends DEBUG/INFO/WARN output to w. The MCP stdio transport uses
// this to keep stdout free for protocol messages.
func RedirectTo(w io.Writer) {
	log.SetOutput(w)
}

// GetLogger returns a logger for the named component.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			_ = Initialize("info")
		}
	})
	return &Logger{
		level:  globalLogger.level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

func (l *Logger) shouldLog(level LogLevel) bool {
	if pkgLevel := GetPackageLogLevel(l.name); pkgLevel >= 0 {
		return level >= pkgLevel
	}
	return level >= l.level
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf(levelDebug, msg, args...)
	}
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf(levelInfo, msg, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf(levelWarn, msg, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf(levelError, msg, args...)
	}
}

// Fatal logs and exits with code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf(levelFatal, msg, args...)
		exitFunc(1)
	}
}

// ErrorWithErr logs msg followed by err.
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	if l.shouldLog(ERROR) {
		args = append(args, err)
		l.logf(levelError, msg+" - %v", args...)
	}
}

// WithField returns a copy of the logger carrying an extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	next := l.clone()
	next.fields[key] = value
	return next
}

// WithFields returns a copy of the logger carrying the given fields.
func (l *Logger) WithFields(fields ...LogField) *Logger {
	next := l.clone()
	for _, f := range fields {
		next.fields[f.Key] = f.Value
	}
	return next
}

// WithContext returns a copy of the logger that reads trace identifiers from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	next := l.clone()
	next.ctx = ctx
	return next
}

func (l *Logger) clone() *Logger {
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
}

// DebugWithFields logs a debug message with structured fields
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logWithFields(levelDebug, msg, fields...)
	}
}

// InfoWithFields logs an info message with structured fields
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logWithFields(levelInfo, msg, fields...)
	}
}

// WarnWithFields logs a warning message with structured fields
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logWithFields(levelWarn, msg, fields...)
	}
}

// ErrorWithFields logs an error message with structured fields
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logWithFields(levelError, msg, fields...)
	}
}

// IsDebug reports whether debug lines would be written by this logger.
func (l *Logger) IsDebug() bool {
	return l.shouldLog(DEBUG)
}

// LevelFromString validates a level name.
func LevelFromString(s string) (LogLevel, error) {
	return parseLevel(strings.TrimSpace(s))
}
