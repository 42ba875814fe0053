package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the service logger. An empty or unknown level falls back to
// debug in development and info elsewhere.
func New(env, level string) zerolog.Logger {
	return build(os.Stderr, env, level)
}

func build(out io.Writer, env, level string) zerolog.Logger {
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).
		Level(parseLevel(env, level)).
		With().
		Timestamp().
		Str("service", "sipelan").
		Logger()
}

func parseLevel(env, level string) zerolog.Level {
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		return parsed
	}
	if env == "development" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
