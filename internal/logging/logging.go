// Package logging sets up the logrus logger. The terminal belongs to the
// renderer, so logs go to a file.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing text lines to w at the named level.
func New(w io.Writer, level string) (*logrus.Logger, error) {
	l, err := logrus.ParseLevel(level)
	if nil != err {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(l)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return logger, nil
}

// Open appends to file. Close the returned file when done.
func Open(file, level string) (*logrus.Logger, *os.File, error) {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if nil != err {
		return nil, nil, fmt.Errorf("unable to open log file: %w", err)
	}
	logger, err := New(f, level)
	if nil != err {
		f.Close()
		return nil, nil, err
	}
	return logger, f, nil
}

// Discard is a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
