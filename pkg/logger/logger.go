package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Init configures the standard logger. level must be a valid logrus level
// name. When logFilePath is set, output is mirrored to a rotating log file.
func Init(level string, logFilePath string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse level: %w", err)
	}

	logrus.SetLevel(lvl)
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceFormatting: true,
	})

	if logFilePath != "" {
		logrus.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    25,
			MaxBackups: 5,
			MaxAge:     30,
		}))
	}

	return nil
}

func GetLogger(prefix string) *logrus.Entry {
	if prefix == "" {
		return logrus.NewEntry(logrus.StandardLogger())
	}

	return logrus.WithField("prefix", prefix)
}
