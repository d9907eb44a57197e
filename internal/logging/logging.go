package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger from the LOG_LEVEL / LOG_FORMAT settings.
func Init(level, format string) zerolog.Logger {
	return initWithWriter(level, format, os.Stderr)
}

func initWithWriter(level, format string, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(level))

	var writer io.Writer = out
	if strings.EqualFold(strings.TrimSpace(format), "console") {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(writer).With().Timestamp().Str("component", "marketplace-api").Logger()
	log.Logger = logger

	return logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
