// Package logging builds the zerolog loggers used across the service.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New returns a logger writing to w at the given level. format is either
// "json" or "console".
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	switch format {
	case FormatJSON, "":
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}

	return zerolog.New(w).
		With().
		Timestamp().
		Str("service", "ws-lock").
		Logger().
		Level(lvl), nil
}

// GormLogger returns the gorm logger matching the service log level. SQL
// statements are only logged at debug.
func GormLogger(log zerolog.Logger) gormlogger.Interface {
	level := gormlogger.Silent
	if log.GetLevel() <= zerolog.DebugLevel {
		level = gormlogger.Info
	}
	return gormlogger.New(&printer{log: log}, gormlogger.Config{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      level,
	})
}

type printer struct {
	log zerolog.Logger
}

func (p *printer) Printf(format string, args ...interface{}) {
	p.log.Debug().Str("component", "gorm").Msgf(format, args...)
}

// Writer adapts a logger to io.Writer for libraries that log lines, such
// as the HTTP access log.
func Writer(log zerolog.Logger, level zerolog.Level) io.Writer {
	return &lineWriter{log: log, level: level}
}

type lineWriter struct {
	log   zerolog.Logger
	level zerolog.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.log.WithLevel(w.level).Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
