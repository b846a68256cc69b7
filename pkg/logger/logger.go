package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/andresuchdata/velorize/backend-go/internal/config"
)

const consoleTimeFormat = "2006-01-02 15:04:05"

var (
	// Log is the global logger instance
	Log zerolog.Logger

	out io.Writer = os.Stdout
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	install(newLogger(config.LogConfig{Level: "info"}, ""))
}

// Configure rebuilds the global logger from cfg. Every log line carries the
// service name when one is given. An unknown level falls back to info.
func Configure(cfg config.LogConfig, service string) {
	l := newLogger(cfg, service)
	install(l)

	if _, err := zerolog.ParseLevel(cfg.Level); err != nil {
		Log.Warn().Str("level", cfg.Level).Msg("invalid log level, defaulting to info")
	}
}

func newLogger(cfg config.LogConfig, service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var w io.Writer = out
	if !strings.EqualFold(cfg.Format, "json") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp().Caller()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Logger()
}

// install publishes l as both logger.Log and the zerolog/log package logger,
// which the rest of the module logs through.
func install(l zerolog.Logger) {
	zerolog.SetGlobalLevel(l.GetLevel())
	Log = l
	log.Logger = l
}
