// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/accton/as9817util/pkg/types"
)

const (
	// ModeVirtual selects VirtualRunner.
	ModeVirtual Mode = "virtual"
	// ModeNative selects NativeRunner.
	ModeNative Mode = "native"
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid shell mode")

type (
	// Runner executes one directive and reports how it went.
	// A non-zero exit status is reported through Result.ExitCode, never
	// through a Go error; Result.Error is reserved for failures to run the
	// directive at all (parse errors, missing shell).
	Runner interface {
		Run(ctx context.Context, directive string) *Result
	}

	// Result is the outcome of a directive.
	Result struct {
		// ExitCode is the directive's exit status.
		ExitCode types.ExitCode
		// Output is the combined stdout and stderr with the trailing
		// newline removed.
		Output string
		// Error is set when the directive could not be executed.
		Error error
	}

	// Mode names a Runner implementation in configuration.
	Mode string

	// InvalidModeError is returned when a Mode is not recognized.
	InvalidModeError struct {
		Value Mode
	}
)

// Failed reports whether the directive did not succeed.
func (r *Result) Failed() bool {
	return r.Error != nil || !r.ExitCode.IsSuccess()
}

// String returns the mode name.
func (m Mode) String() string { return string(m) }

// Validate returns an error if the mode is not one of the defined modes.
// The zero value is accepted and means ModeVirtual.
func (m Mode) Validate() error {
	switch m {
	case ModeVirtual, ModeNative, "":
		return nil
	default:
		return &InvalidModeError{Value: m}
	}
}

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid shell mode %q (valid: virtual, native)", e.Value)
}

// Unwrap returns ErrInvalidMode for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// New returns the runner for mode. root is the filesystem prefix applied by
// VirtualRunner; NativeRunner ignores it.
func New(mode Mode, root string, opts ...Option) (Runner, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	if mode == ModeNative {
		return NewNativeRunner(opts...), nil
	}
	return NewVirtualRunner(append([]Option{WithRoot(root)}, opts...)...), nil
}

// trimOutput mirrors getstatusoutput: a single trailing newline is dropped.
func trimOutput(s string) string {
	return strings.TrimSuffix(s, "\n")
}
