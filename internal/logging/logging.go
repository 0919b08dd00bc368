package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process logger
type Options struct {
	Level      string // debug, info, warn, error
	Format     string // "json" or "text"
	File       string // rotating log file, empty disables
	MaxSizeMB  int
	MaxBackups int
}

// New builds a logger writing to stdout and, when configured, to a
// size-rotated JSON log file. The returned closer releases the file.
func New(opts Options) (*slog.Logger, io.Closer) {
	return newLogger(os.Stdout, opts)
}

func newLogger(console io.Writer, opts Options) (*slog.Logger, io.Closer) {
	level := ParseLevel(opts.Level)

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(console, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(console, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	if opts.File == "" {
		return slog.New(handler), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(slogmulti.Fanout(handler, fileHandler)), file
}

// ParseLevel maps a level name to slog.Level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
