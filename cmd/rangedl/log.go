package main

import (
	"io"

	"github.com/sirupsen/logrus"
)

func newLogger(enabled bool) *logrus.Logger {
	l := logrus.New()
	if !enabled {
		l.SetOutput(io.Discard)
		return l
	}
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}
