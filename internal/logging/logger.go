// Package logging wraps logrus with the engine's log-file convention: one
// append-only file per calendar week under LOG_DIR, every line timestamped,
// mirrored live to stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"periodic-backup-sync/internal/period"
)

// LogLevel represents the logging level
type LogLevel string

const (
	// LogLevelQuiet suppresses all output except errors
	LogLevelQuiet LogLevel = "quiet"
	// LogLevelNormal shows standard operational messages
	LogLevelNormal LogLevel = "normal"
	// LogLevelVerbose shows detailed operational information
	LogLevelVerbose LogLevel = "verbose"
)

// Logger provides structured logging capabilities
type Logger struct {
	logger *logrus.Logger
	level  LogLevel
	file   *os.File
}

// Config holds logger configuration
type Config struct {
	Level  LogLevel
	Output io.Writer // defaults to os.Stdout
	LogDir string    // when set, also append to the weekly log file
	Now    func() time.Time
}

// NewLogger creates a new logger with the specified configuration. When
// LogDir is set, output is mirrored to LOG_DIR/<ISO-week-tag>.log, created
// on first use and appended to for the rest of the calendar week.
func NewLogger(config Config) (*Logger, error) {
	logger := logrus.New()

	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	switch config.Level {
	case LogLevelQuiet:
		logger.SetLevel(logrus.ErrorLevel)
	case LogLevelVerbose:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	var file *os.File
	if config.LogDir != "" {
		now := time.Now
		if config.Now != nil {
			now = config.Now
		}

		if err := os.MkdirAll(config.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", config.LogDir, err)
		}

		logPath := filepath.Join(config.LogDir, WeeklyFileName(now()))
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}
		file = f
		out = io.MultiWriter(out, f)
	}

	logger.SetOutput(out)

	return &Logger{
		logger: logger,
		level:  config.Level,
		file:   file,
	}, nil
}

// NewDefaultLogger creates a stdout-only logger with default configuration
func NewDefaultLogger() *Logger {
	logger, _ := NewLogger(Config{Level: LogLevelNormal})
	return logger
}

// WeeklyFileName returns the log file name for the calendar week containing
// the given instant, e.g. "2025-week-20.log".
func WeeklyFileName(now time.Time) string {
	return period.WeekValue(now) + ".log"
}

// FilePath returns the path of the weekly log file, or "" for stdout-only
// loggers.
func (l *Logger) FilePath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close releases the weekly log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// WithFields returns an entry with additional structured fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// WithField returns an entry with a single additional field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}
