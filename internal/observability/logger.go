package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLogLevel overrides the default info level
const EnvLogLevel = "SLIDELINK_LOG_LEVEL"

// InitLogger installs a console logger on stdout as the global logger
func InitLogger(app string) zerolog.Logger {
	return InitLoggerTo(os.Stdout, app)
}

// InitLoggerTo is InitLogger with an explicit sink; the terminal client logs
// to a file so the console stays free for the slide view.
func InitLoggerTo(out io.Writer, app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	level, ok := ParseLevel(os.Getenv(EnvLogLevel))
	if !ok {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to a zerolog level; ok is false for unknown names
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
