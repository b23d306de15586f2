package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the shared application logger. JSON output in production
// so log aggregation can parse it, plain text locally.
func NewLogger(app AppConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if app.Environment == "production" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(app.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return l
}
