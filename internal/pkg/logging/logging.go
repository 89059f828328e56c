/*
logging.go Builds the process logger. Components receive a *logrus.Entry tagged with a
component field rather than writing to the standard library logger.
*/

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config selects the level and output format.
type Config struct {
	Level  string `json:"Level"`
	Format string `json:"Format"`
}

// New returns a logger writing to stderr. An unknown level falls back to info
// and is reported on the returned logger.
func New(cfg Config) *logrus.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is New with a caller supplied writer.
func NewWithOutput(cfg Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.Out = out

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.Formatter = &logrus.JSONFormatter{}
	default:
		logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			logger.WithField("level", cfg.Level).Warn("unknown log level, using info")
		} else {
			level = parsed
		}
	}
	logger.SetLevel(level)

	return logger
}

// Component returns an entry tagged with the component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}
