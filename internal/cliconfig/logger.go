package cliconfig

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the CLI logger: human-readable output on stderr and,
// when file is set, JSON lines to a size-rotated log file.
func NewLogger(level, file string) (zerolog.Logger, io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.Logger{}, nil, fmt.Errorf("invalid log level %q", level)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if file == "" {
		return zerolog.New(console).Level(lvl).With().Timestamp().Logger(), nopCloser{}, nil
	}

	rotated := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}
	w := zerolog.MultiLevelWriter(console, rotated)
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), rotated, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
