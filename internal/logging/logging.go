package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger.
// format is "console" (human-readable, default) or "json".
func Setup(level, format string) error {
	return SetupWriter(os.Stderr, level, format)
}

// SetupWriter is Setup with an explicit destination
func SetupWriter(out io.Writer, level, format string) error {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	var w io.Writer
	switch format {
	case "", "console":
		w = zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
			cw.Out = out
			cw.TimeFormat = time.RFC3339
		})
	case "json":
		w = out
	default:
		return fmt.Errorf("invalid log format %q (expected console or json)", format)
	}

	log.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	// log.Ctx(ctx) falls back to the global logger for contexts without one
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}
