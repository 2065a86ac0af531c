package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/simpletex/internal/config"
)

// New builds a logrus logger from configuration. Unknown levels fall back
// to info; format is "json" or text with full timestamps.
func New(cfg config.LoggingConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out != nil {
		logger.SetOutput(out)
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
