package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetOutput(os.Stderr)
	ConfigureLogger(os.Getenv("SALESBOARD_LOG_FORMAT"), os.Getenv("SALESBOARD_LOG_LEVEL"))
}

// ConfigureLogger switches formatter ("json" or text) and level. Unknown
// levels keep info.
func ConfigureLogger(format, level string) {
	if strings.EqualFold(format, "json") {
		logg.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logg.SetLevel(lvl)
}

// SetLogOutput redirects the logger, e.g. to an analysis log file as well as stderr.
func SetLogOutput(w io.Writer) {
	logg.SetOutput(w)
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	if data != nil {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
			"context":  context,
			"data":     data,
		}).Error(err.Error())
	} else {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
			"context":  context,
		}).Error(err.Error())
	}
}
