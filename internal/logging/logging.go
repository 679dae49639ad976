// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much is logged.
type Options struct {
	Level   string
	Pretty  bool
	File    string
	Console io.Writer
}

// Setup installs the global logger and returns a closer for the log file.
// Pretty console output is meant for development; otherwise JSON is written.
func Setup(opts Options) (io.Closer, error) {
	level, parseErr := zerolog.ParseLevel(opts.Level)
	if parseErr != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}
	}

	var closer io.Closer = nopCloser{}
	out := console
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		closer = rotating
		out = zerolog.MultiLevelWriter(console, rotating)
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	if parseErr != nil {
		log.Warn().Str("level", opts.Level).Msg("unknown log level, using info")
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
