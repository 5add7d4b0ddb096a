// Package logging provides component-tagged structured logging on top of
// logrus, with optional file output and size-based rotation.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level represents a logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
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

func (l Level) logrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel converts a string to a Level
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field (shorthand for structured logging)
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config holds logger configuration
type Config struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	File       string `mapstructure:"file"`        // log file path (empty = console only)
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // max size before rotation (default: 10)
	MaxBackups int    `mapstructure:"max_backups"` // number of backups to keep (default: 5)
}

// DefaultConfig returns default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  10,
		MaxBackups: 5,
	}
}

// Logger writes component-tagged lines:
//
//	2025-01-02T15:04:05Z [INFO] [linker] created link | path=/x | source=/y
type Logger struct {
	base     *logrus.Logger
	file     *rotatingWriter
	filePath string
}

// New creates a Logger writing to stderr and, when cfg.File is set, to a
// rotating log file.
func New(cfg Config) (*Logger, error) {
	l := &Logger{}
	var out io.Writer = os.Stderr

	if cfg.File != "" {
		if strings.HasPrefix(cfg.File, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("unable to get home dir: %w", err)
			}
			cfg.File = filepath.Join(home, cfg.File[1:])
		}

		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("unable to create log directory: %w", err)
		}

		maxSize := int64(cfg.MaxSizeMB) * 1024 * 1024
		if maxSize == 0 {
			maxSize = 10 * 1024 * 1024
		}
		maxBackups := cfg.MaxBackups
		if maxBackups == 0 {
			maxBackups = 5
		}

		rw, err := newRotatingWriter(cfg.File, maxSize, maxBackups)
		if err != nil {
			return nil, err
		}
		l.file = rw
		l.filePath = cfg.File
		out = io.MultiWriter(os.Stderr, rw)
	}

	l.base = newBase(out, ParseLevel(cfg.Level))
	return l, nil
}

// NewWriter creates a Logger that writes only to w.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{base: newBase(w, level)}
}

// Nop returns a no-operation logger that discards all output
func Nop() *Logger {
	base := newBase(io.Discard, LevelError)
	base.SetLevel(logrus.PanicLevel)
	return &Logger{base: base}
}

func newBase(out io.Writer, level Level) *logrus.Logger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetFormatter(&lineFormatter{})
	base.SetLevel(level.logrus())
	return base
}

func (l *Logger) log(level logrus.Level, component, msg string, err error, fields ...Field) {
	if !l.base.IsLevelEnabled(level) {
		return
	}

	data := logrus.Fields{componentKey: component}
	if err != nil {
		data[errorKey] = err
	}
	if len(fields) > 0 {
		data[fieldsKey] = fields
	}
	l.base.WithFields(data).Log(level, msg)
}

// Debug logs a debug message
func (l *Logger) Debug(component, msg string, fields ...Field) {
	l.log(logrus.DebugLevel, component, msg, nil, fields...)
}

// Info logs an info message
func (l *Logger) Info(component, msg string, fields ...Field) {
	l.log(logrus.InfoLevel, component, msg, nil, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(component, msg string, fields ...Field) {
	l.log(logrus.WarnLevel, component, msg, nil, fields...)
}

// Error logs an error message with an error
func (l *Logger) Error(component, msg string, err error, fields ...Field) {
	l.log(logrus.ErrorLevel, component, msg, err, fields...)
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.base.SetLevel(level.logrus())
}

// FilePath returns the log file path
func (l *Logger) FilePath() string {
	return l.filePath
}
