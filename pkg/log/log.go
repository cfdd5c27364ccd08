package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
)

// debugLevel is where slog.LevelDebug lands: logr.ToSlogHandler turns it
// into V(4) and zerologr maps V(n) to zerolog level 1-n.
const debugLevel = zerolog.Level(-3)

// New creates the process logger. level is one of debug, info, warn or
// error. Output is JSON on stderr when json is set or when running in
// Kubernetes, human readable on stdout otherwise.
func New(level string, json bool) *zerolog.Logger {
	var output io.Writer
	if json || os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		output = os.Stderr
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02T15:04:05.999Z07:00"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"

	lvl := ParseLevel(level)
	if lvl <= zerolog.DebugLevel {
		zerologr.SetMaxV(4)
		lvl = debugLevel
	}
	logger := zerolog.New(output).Level(lvl).With().Timestamp().Logger()
	return &logger
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logr adapts z for logr consumers.
func Logr(z *zerolog.Logger) logr.Logger {
	return zerologr.New(z)
}

// Slog adapts z for slog consumers.
func Slog(z *zerolog.Logger) *slog.Logger {
	return slog.New(logr.ToSlogHandler(Logr(z)))
}
