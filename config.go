package cachefall

import (
	"log/slog"
)

type config struct {
	log            *slog.Logger
	maxConcurrency int
}

// Option is a function that configures a Pipeline
type Option func(*config)

// WithLogger sets the logger for the pipeline
var WithLogger = func(log *slog.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// WithMaxConcurrency bounds how many requests of one batch are dispatched at
// the same time. Zero means unbounded.
var WithMaxConcurrency = func(n int) Option {
	return func(c *config) {
		c.maxConcurrency = n
	}
}

// NullWriter is a writer that discards all data
type NullWriter struct{}

func (NullWriter) Write([]byte) (int, error) { return 0, nil }

// NullLogger creates a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(NullWriter{}, nil))
}
