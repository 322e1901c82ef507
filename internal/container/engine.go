// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/accton/as9817util/pkg/types"
)

const (
	// EngineTypePodman selects the Podman CLI.
	EngineTypePodman EngineType = "podman"
	// EngineTypeDocker selects the Docker CLI.
	EngineTypeDocker EngineType = "docker"
)

var (
	// ErrEngineNotAvailable is the sentinel error wrapped by EngineNotAvailableError.
	ErrEngineNotAvailable = errors.New("container engine not available")
	// ErrInvalidEngineType is the sentinel error wrapped by InvalidEngineTypeError.
	ErrInvalidEngineType = errors.New("invalid container engine type")
	// ErrInvalidContainerID is the sentinel error wrapped by InvalidContainerIDError.
	ErrInvalidContainerID = errors.New("invalid container ID")
)

type (
	// Engine is a container engine able to exec into a running container.
	Engine interface {
		// Name returns the engine name (docker or podman).
		Name() string
		// Available checks if the engine is available on the system.
		Available() bool
		// Version returns the engine version.
		Version(ctx context.Context) (string, error)
		// ContainerRunning reports whether the named container exists and
		// is running.
		ContainerRunning(ctx context.Context, id ContainerID) (bool, error)
		// Exec runs a command in a running container.
		Exec(ctx context.Context, id ContainerID, command []string, opts ExecOptions) (*ExecResult, error)
	}

	// EngineType identifies the container engine type.
	EngineType string

	// InvalidEngineTypeError is returned when an EngineType is not recognized.
	InvalidEngineTypeError struct {
		Value EngineType
	}

	// ContainerID names a container (name or ID).
	ContainerID string

	// InvalidContainerIDError is returned when a ContainerID is empty.
	InvalidContainerIDError struct {
		Value ContainerID
	}

	// EngineNotAvailableError is returned when neither the preferred engine
	// nor its fallback can be used.
	EngineNotAvailableError struct {
		Engine EngineType
		Reason string
	}

	// ExecOptions carries the output streams of an exec.
	ExecOptions struct {
		// Stdout is where to write standard output.
		Stdout io.Writer
		// Stderr is where to write standard error.
		Stderr io.Writer
	}

	// ExecResult contains the result of an exec.
	ExecResult struct {
		// ContainerID is the container the command ran in.
		ContainerID ContainerID
		// ExitCode is the command's exit status. Codes 125-127 come from
		// the engine itself.
		ExitCode types.ExitCode
		// Error is set when the engine binary could not be run.
		Error error
	}
)

// Error implements the error interface.
func (e *InvalidEngineTypeError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: docker, podman)", e.Value)
}

// Unwrap returns ErrInvalidEngineType for errors.Is() compatibility.
func (e *InvalidEngineTypeError) Unwrap() error { return ErrInvalidEngineType }

// Validate returns an error if the EngineType is not docker or podman.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypeDocker, EngineTypePodman:
		return nil
	default:
		return &InvalidEngineTypeError{Value: t}
	}
}

// String returns the engine name.
func (t EngineType) String() string { return string(t) }

// Error implements the error interface.
func (e *InvalidContainerIDError) Error() string {
	return fmt.Sprintf("invalid container ID %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidContainerID for errors.Is() compatibility.
func (e *InvalidContainerIDError) Unwrap() error { return ErrInvalidContainerID }

// Validate returns an error if the ContainerID is empty or whitespace-only.
func (id ContainerID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return &InvalidContainerIDError{Value: id}
	}
	return nil
}

// String returns the container name.
func (id ContainerID) String() string { return string(id) }

// Error implements the error interface.
func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrEngineNotAvailable for errors.Is() compatibility.
func (e *EngineNotAvailableError) Unwrap() error { return ErrEngineNotAvailable }

// NewEngine creates a container engine of the preferred type, falling back
// to the other type when the preferred one is unavailable.
func NewEngine(preferredType EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	if err := preferredType.Validate(); err != nil {
		return nil, err
	}

	docker := NewDockerEngine(opts...)
	podman := NewPodmanEngine(opts...)

	candidates := []Engine{docker, podman}
	fallback := EngineTypePodman
	if preferredType == EngineTypePodman {
		candidates = []Engine{podman, docker}
		fallback = EngineTypeDocker
	}

	for _, engine := range candidates {
		if engine.Available() {
			return engine, nil
		}
	}
	return nil, &EngineNotAvailableError{
		Engine: preferredType,
		Reason: fmt.Sprintf("%s is not installed or not accessible, and %s fallback is also not available", preferredType, fallback),
	}
}
