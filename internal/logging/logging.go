// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// EnvVar selects the log level (debug, info, warn, error). Unset or
// unrecognized values mean warn: the CLI stays quiet unless something needs
// attention.
const EnvVar = "FLYWHEEL_LOG"

// New returns a logger writing to w at the level named by level, falling
// back to the environment, then to warn.
func New(w io.Writer, level string) *log.Logger {
	if level == "" {
		level = os.Getenv(EnvVar)
	}

	logger := log.New(w)
	logger.SetLevel(parseLevel(level))

	return logger
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}
