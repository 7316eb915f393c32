// Package logging provides the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

var logger *log.Logger

// Init initializes the global logger writing text to stderr.
func Init(level string) {
	InitWithOutput(level, os.Stderr)
}

// InitWithOutput initializes the global logger writing to w.
func InitWithOutput(level string, w io.Writer) {
	l := log.New()
	l.SetOutput(w)
	l.SetFormatter(&log.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		DisableSorting:   false,
		QuoteEmptyFields: true,
	})
	l.SetLevel(parseLevel(level))
	logger = l
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Logger returns the global logger instance.
func Logger() *log.Logger {
	if logger == nil {
		Init("info")
	}
	return logger
}

// fields converts alternating key/value pairs to logrus fields.
func fields(kv []any) log.Fields {
	f := make(log.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	if len(kv)%2 == 1 {
		f["!BADKEY"] = kv[len(kv)-1]
	}
	return f
}

// Debug logs a debug message.
func Debug(msg string, kv ...any) {
	Logger().WithFields(fields(kv)).Debug(msg)
}

// Info logs an info message.
func Info(msg string, kv ...any) {
	Logger().WithFields(fields(kv)).Info(msg)
}

// Warn logs a warning message.
func Warn(msg string, kv ...any) {
	Logger().WithFields(fields(kv)).Warn(msg)
}

// Error logs an error message.
func Error(msg string, kv ...any) {
	Logger().WithFields(fields(kv)).Error(msg)
}
