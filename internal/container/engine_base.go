// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/accton/as9817util/pkg/types"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the common implementation for CLI-based
	// container engines.
	BaseCLIEngine struct {
		name        string
		binaryPath  string
		execCommand ExecCommandFunc
	}
)

// --- Option Functions ---

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithBinaryPath overrides the engine binary found on PATH.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.binaryPath = path
	}
}

// --- Constructor ---

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Accessor Methods ---

// Name returns the engine name used in error messages.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// --- Argument Builders ---

// ExecArgs constructs arguments for a container exec command.
//
// Generated command: <binary> exec <container> <command...>
func (e *BaseCLIEngine) ExecArgs(id ContainerID, command []string) []string {
	args := []string{"exec", string(id)}
	return append(args, command...)
}

// InspectRunningArgs constructs arguments for the running-state query.
func (e *BaseCLIEngine) InspectRunningArgs(id ContainerID) []string {
	return []string{"container", "inspect", "--format", "{{.State.Running}}", string(id)}
}

// --- Command Execution ---

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// --- Promoted Engine Methods (shared by Docker and Podman) ---

// Exec runs a command in a running container.
// A non-zero exit status of the command is reported through
// ExecResult.ExitCode, not as an error.
func (e *BaseCLIEngine) Exec(ctx context.Context, id ContainerID, command []string, opts ExecOptions) (*ExecResult, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	cmd := e.CreateCommand(ctx, e.ExecArgs(id, command)...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	err := cmd.Run()

	result := &ExecResult{ContainerID: id}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = types.ExitCode(exitErr.ExitCode())
		} else {
			result.ExitCode = 1
			result.Error = err
		}
	}

	return result, nil
}

// ContainerRunning reports whether id exists and is running. A container
// the engine does not know is reported as not running.
func (e *BaseCLIEngine) ContainerRunning(ctx context.Context, id ContainerID) (bool, error) {
	if err := id.Validate(); err != nil {
		return false, err
	}

	out, err := e.RunCommandWithOutput(ctx, e.InspectRunningArgs(id)...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(out) == "true", nil
}

// versionString runs "version --format FORMAT" and trims the result.
func (e *BaseCLIEngine) versionString(ctx context.Context, format string) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", format)
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", e.name, err)
	}
	return strings.TrimSpace(out), nil
}

// available runs "version --format FORMAT" and reports whether it worked.
func (e *BaseCLIEngine) available(format string) bool {
	if e.binaryPath == "" {
		return false
	}
	return e.RunCommandStatus(context.Background(), "version", "--format", format) == nil
}
