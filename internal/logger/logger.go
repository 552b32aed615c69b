package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process wide logger. It starts as the logrus standard logger so
// packages can log before InitLogger runs (tests, CLI tools).
var Log = logrus.StandardLogger()

// InitLogger configures Log from the textual level and format.
// Unknown levels fall back to info; format is "json" or "text".
func InitLogger(level, format string) *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stdout

	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	Log = l
	return l
}
