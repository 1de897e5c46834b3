// Package logging builds the structured logger shared by the CLI, TUI and install pipeline.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultLevel is the log level used when not configured.
const DefaultLevel = log.InfoLevel

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means DefaultLevel.
	Level string
	// File, when set, receives a rotated copy of every record.
	File string
	// Console is where human-readable records go. Nil means os.Stderr.
	Console io.Writer
}

// ParseLevel converts a string log level to log.Level.
// Returns (DefaultLevel, false) if the string is not recognized.
func ParseLevel(s string) (log.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel, true
	case "info":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error":
		return log.ErrorLevel, true
	default:
		return DefaultLevel, false
	}
}

// New creates a logger. The returned closer releases the log file and is
// always non-nil.
func New(opts Options) (*log.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	level, ok := ParseLevel(opts.Level)
	if !ok && opts.Level != "" {
		return nil, nopCloser{}, fmt.Errorf("unknown log level %q", opts.Level)
	}

	out := console
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nopCloser{}, fmt.Errorf("creating log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		}
		out = io.MultiWriter(console, rotating)
		closer = rotating
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "esar",
	})
	return logger, closer, nil
}

// Discard returns a logger that drops everything; handy for tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
