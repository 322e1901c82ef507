// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/accton/as9817util/internal/shell"
)

type (
	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// SleepFunc waits for d or until ctx is done.
	SleepFunc func(ctx context.Context, d time.Duration) error
)

// WithForce makes sequences continue past failing steps.
func WithForce(force bool) Option {
	return func(o *Orchestrator) { o.force = force }
}

// WithLogger sets the logger for step and failure records.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOutput sets where progress messages go.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w != nil {
			o.out = w
		}
	}
}

// WithSleep replaces the settle wait.
func WithSleep(fn SleepFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithRoot resolves every sysfs and scratch path under root.
func WithRoot(root string) Option {
	return func(o *Orchestrator) {
		if root != "" {
			o.root = root
		}
	}
}

// WithRunner sets the runner for directives. The default is a
// shell.VirtualRunner rooted at the orchestrator root.
func WithRunner(r shell.Runner) Option {
	return func(o *Orchestrator) { o.exec = r }
}

// WithDryRun records directives instead of running them. Presence checks
// and the package probe still look at the real system.
func WithDryRun(dry bool) Option {
	return func(o *Orchestrator) { o.dryRun = dry }
}

// WithWheel overrides the platform API package name and wheel path.
func WithWheel(pkg, path string) Option {
	return func(o *Orchestrator) {
		o.wheelPackage = pkg
		o.wheelPath = path
	}
}

// WithSettleDelay overrides the platform's mux settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.settle = &d }
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
