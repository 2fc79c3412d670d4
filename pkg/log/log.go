package log

import (
	"time"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
	}
}

// SetDebug switches the process-wide log level between info and debug.
func SetDebug(enabled bool) {
	if enabled {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

// Print returns a log entry scoped to one adapter component.
func Print(component string) *logrus.Entry {
	if component == "" {
		return logger.WithFields(logrus.Fields{})
	}
	return logger.WithField("component", component)
}

// Chat returns a log entry scoped to one component and chat, for
// message-level operations.
func Chat(component string, chatID string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"component": component,
		"chat":      chatID,
	})
}
