// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger builds the logrus logger shared by the CLI and the web server.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/florafind/pkg/types"
)

// New returns a logger writing text lines to stderr and, when cfg.File is
// set, also appending to that file. An unknown level falls back to info.
func New(cfg types.LogConfig) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	writers := []io.Writer{os.Stderr}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
		}
		writers = append(writers, f)
	}
	log.SetOutput(io.MultiWriter(writers...))

	return log, nil
}

// Discard returns a logger that drops everything. Components use it when
// the caller passes no logger.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Discard()
	}
	return l
}
