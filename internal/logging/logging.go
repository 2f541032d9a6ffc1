package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"quotefeed/internal/config"
)

// New builds a logger from cfg writing to stderr. Unknown levels fall back
// to info, unknown formats to text.
func New(cfg config.Log) *logrus.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

func NewWithOutput(cfg config.Log, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
