// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/accton/as9817util/pkg/types"
)

const nativeShell = "/bin/sh"

// NativeRunner executes directives with the system shell.
type NativeRunner struct {
	opts options
}

// NewNativeRunner creates a new native runner.
func NewNativeRunner(opts ...Option) *NativeRunner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &NativeRunner{opts: o}
}

// Run executes "/bin/sh -c directive" and captures combined output.
func (r *NativeRunner) Run(ctx context.Context, directive string) *Result {
	cmd := exec.CommandContext(ctx, nativeShell, "-c", directive)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	result := &Result{}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := types.ExitCode(exitErr.ExitCode())
			if validateErr := code.Validate(); validateErr != nil {
				// Killed by a signal: ExitCode() is -1.
				result.ExitCode = 1
				result.Error = fmt.Errorf("directive terminated: %w", err)
			} else {
				result.ExitCode = code
			}
		} else {
			result.ExitCode = 1
			result.Error = fmt.Errorf("failed to execute directive: %w", err)
		}
	}
	result.Output = trimOutput(out.String())

	r.opts.logger.Debug("run", "cmd", directive, "status", result.ExitCode, "output", result.Output)
	return result
}
