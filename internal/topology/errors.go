// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"errors"
	"fmt"

	"github.com/accton/as9817util/pkg/types"
)

// ErrStepFailed is the sentinel wrapped by StepError.
var ErrStepFailed = errors.New("step failed")

// StepError reports the step that decided a sequence's outcome.
type StepError struct {
	// Step is the failing step.
	Step Step
	// Status is the directive's exit status. Native steps that fail
	// report 1.
	Status types.ExitCode
	// Output is the captured output of the directive.
	Output string
	// Err is the underlying error when the step could not run at all.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s %q failed with status %d", e.Step.Kind, e.Step.Command, e.Status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrStepFailed and the underlying error, if any.
func (e *StepError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrStepFailed, e.Err}
	}
	return []error{ErrStepFailed}
}

// ExitCode returns the status to exit the process with. It is never zero.
func (e *StepError) ExitCode() types.ExitCode {
	if e.Status.IsSuccess() {
		return 1
	}
	return e.Status
}
