// Package logger holds the process-wide diagnostic logger. Diagnostics go to
// stderr so they never mix with the exchange printed on stdout.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger *zerolog.Logger
)

// Get returns the logger, initializing it on first call.
func Get() *zerolog.Logger {
	once.Do(func() {
		logger = newLogger(os.Stderr)
	})
	return logger
}

// EnableDebug lowers the global level to debug regardless of LOG_LEVEL.
func EnableDebug() {
	Get()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func newLogger(w io.Writer) *zerolog.Logger {
	level := zerolog.WarnLevel
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(s)); err == nil {
			level = parsed
		} else {
			fmt.Fprintf(os.Stderr, "Invalid LOG_LEVEL \"%s\"; defaulting to 'warn'\n", s)
		}
	}
	zerolog.SetGlobalLevel(level)

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05.000",
	}
	zl := zerolog.New(output).With().Timestamp().Logger()
	return &zl
}
