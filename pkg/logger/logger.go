// Package logger constructs the process-wide zerolog logger.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Option defines a single option function.
type Option func(o *Options)

// Options defines the available options for this package.
type Options struct {
	Output io.Writer
	Mode   string // console or json
	Level  string
}

// WithOutput sets the log destination.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// WithMode sets console or json output.
func WithMode(m string) Option {
	return func(o *Options) {
		o.Mode = m
	}
}

// WithLevel sets the minimum level.
func WithLevel(l string) Option {
	return func(o *Options) {
		o.Level = l
	}
}

// New returns a configured zerolog logger.
func New(opts ...Option) *zerolog.Logger {
	o := Options{
		Output: os.Stderr,
		Mode:   "console",
		Level:  "info",
	}
	for _, opt := range opts {
		opt(&o)
	}

	lvl, err := zerolog.ParseLevel(o.Level)
	if err != nil || o.Level == "" {
		lvl = zerolog.InfoLevel
	}

	out := o.Output
	if o.Mode != "json" {
		out = zerolog.ConsoleWriter{Out: o.Output}
	}

	l := zerolog.New(out).With().Timestamp().Logger().Level(lvl)
	return &l
}
