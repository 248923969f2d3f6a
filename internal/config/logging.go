package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging configures the global zerolog logger.
func SetupLogging(cfg LogConfig, out io.Writer) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(cfg.Format) {
	case "json":
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out}
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", cfg.Format)
	}

	log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
	return nil
}
