package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 5
)

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, goerr.Wrap(advisor.ErrInvalidConfig, "invalid log level", goerr.V("level", s))
}

// newLogger writes to console and, when LogFile is set, to a rotated log file. The returned
// closer releases the file.
func (c *config) newLogger(console io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := parseLogLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}

	var closer io.Closer = nopCloser{}
	if c.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
		}
		writers = append(writers, lj)
		closer = lj
	}

	w := io.Discard
	if len(writers) > 0 {
		w = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, nil, goerr.Wrap(advisor.ErrInvalidConfig, "invalid log format", goerr.V("format", c.LogFormat))
	}

	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
