// Package logging provides structured logging on top of logrus.
//
// A single process-wide logger is configured once at startup (Init) and
// components derive entries tagged with their name via For.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Format selects the log output encoding.
type Format string

const (
	// FormatText is human-readable key=value output.
	FormatText Format = "text"
	// FormatJSON emits one JSON object per line.
	FormatJSON Format = "json"
)

var logger = newLogger(os.Stderr, logrus.InfoLevel, FormatText)

func newLogger(w io.Writer, level logrus.Level, format Format) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	switch format {
	case FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}
	return l
}

// Init replaces the process logger. An unknown level falls back to info and
// is reported on the new logger.
func Init(level string, format Format) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger = newLogger(os.Stderr, lvl, format)
	if err != nil && level != "" {
		logger.WithField("level", level).Warn("logging: unknown level, using info")
	}
}

// SetOutput redirects the process logger, mostly for tests.
func SetOutput(w io.Writer) { logger.SetOutput(w) }

// Logger returns the process logger.
func Logger() *logrus.Logger { return logger }

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return logger.WithField("component", component)
}
