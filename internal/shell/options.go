// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"io"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/interp"
)

type (
	// Option configures a runner.
	Option func(*options)

	options struct {
		root        string
		logger      *log.Logger
		execHandler interp.ExecHandlerFunc
	}
)

func defaultOptions() options {
	return options{
		root:   "/",
		logger: log.New(io.Discard),
	}
}

// WithRoot sets the filesystem prefix under which redirection targets are
// opened. "/" (the default) means the real filesystem.
func WithRoot(root string) Option {
	return func(o *options) {
		if root != "" {
			o.root = root
		}
	}
}

// WithLogger sets the logger used for per-directive debug output.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithExecHandler replaces the handler that runs external programs in
// VirtualRunner. Tests use it to record modprobe/i2cset invocations.
func WithExecHandler(fn interp.ExecHandlerFunc) Option {
	return func(o *options) {
		o.execHandler = fn
	}
}
