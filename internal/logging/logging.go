// Package logging builds the zerolog logger used by the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Verbose bool
	Quiet   bool
	// File, when set, receives a JSON copy of every entry with rotation.
	File string
	// Console overrides the console writer, mostly for tests.
	Console io.Writer
}

// Logger is a zerolog logger with the file writer it may own.
type Logger struct {
	zerolog.Logger
	file io.Closer
}

// New creates a logger. The console gets a human-readable writer on a TTY
// unless NO_COLOR is set, JSON otherwise.
func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = selectOutput()
	}

	l := &Logger{}
	writer := console
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		l.file = lj
		writer = zerolog.MultiLevelWriter(console, lj)
	}

	l.Logger = zerolog.New(writer).Level(selectLevel(opts.Verbose, opts.Quiet)).With().Timestamp().Logger()
	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stderr
}
