// SPDX-License-Identifier: MPL-2.0

package thermal

import (
	"errors"
	"fmt"

	"github.com/accton/as9817util/pkg/types"
)

const (
	msgHighOrder     = "Invalid Threshold!(High threshold can not be more than or equal to high critical threshold.)"
	msgHighCritOrder = "Invalid Threshold!(High critical threshold can not be less than or equal to high threshold.)"
)

var (
	// ErrUnavailable covers every reason a thermal could not serve a call:
	// the thermal does not exist or the method is not implemented.
	ErrUnavailable = errors.New("thermal unavailable")
	// ErrThermalNotFound means no chassis or PSU thermal has the name.
	ErrThermalNotFound = fmt.Errorf("thermal not found: %w", ErrUnavailable)
	// ErrNotImplemented means the thermal does not support the method.
	ErrNotImplemented = fmt.Errorf("method not implemented: %w", ErrUnavailable)
	// ErrOperationFailed means the platform API or the exec itself failed.
	ErrOperationFailed = errors.New("thermal operation failed")
	// ErrEngineFailure means the container engine could not run the
	// dispatcher at all (exit status 125-127).
	ErrEngineFailure = fmt.Errorf("container engine failure: %w", ErrOperationFailed)
	// ErrTimeout means the service container did not answer in time.
	ErrTimeout = errors.New("thermal call timed out")
	// ErrMalformedResponse means the dispatcher output could not be decoded.
	ErrMalformedResponse = errors.New("malformed dispatcher response")
	// ErrOutOfRange is the sentinel error wrapped by OutOfRangeError.
	ErrOutOfRange = errors.New("threshold out of range")
	// ErrInvalidValue is the sentinel error wrapped by InvalidValueError.
	ErrInvalidValue = errors.New("threshold is not a number")
	// ErrThresholdOrder is the sentinel error wrapped by ThresholdOrderError.
	ErrThresholdOrder = errors.New("high threshold must be below high critical threshold")
	// ErrInvalidMethod is the sentinel error wrapped by InvalidMethodError.
	ErrInvalidMethod = errors.New("invalid thermal method")
)

type (
	// OutOfRangeError is returned for a threshold outside the accepted range.
	OutOfRangeError struct {
		Value float64
		Range Range
	}

	// InvalidValueError is returned when a threshold is not a float literal.
	InvalidValueError struct {
		Value string
	}

	// ThresholdOrderError is returned when a write would leave the high
	// threshold at or above the high-critical threshold.
	ThresholdOrderError struct {
		// Changing is the side being written.
		Changing Method
		// High and HighCritical are the effective values the write would
		// produce.
		High         float64
		HighCritical float64
	}

	// InvalidMethodError is returned for an unknown Method.
	InvalidMethodError struct {
		Value Method
	}

	// CallError describes a failed dispatcher call.
	CallError struct {
		Request Request
		// ExitCode is the dispatcher's exit status as seen through the
		// container engine.
		ExitCode types.ExitCode
		// Message is the dispatcher's message or raw output.
		Message string
		// Err is one of the package sentinels.
		Err error
	}
)

// Error implements the error interface.
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%v not in range %s", e.Value, e.Range)
}

// Unwrap returns ErrOutOfRange for errors.Is() compatibility.
func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%q not a floating-point literal", e.Value)
}

// Unwrap returns ErrInvalidValue for errors.Is() compatibility.
func (e *InvalidValueError) Unwrap() error { return ErrInvalidValue }

// Error returns the user-facing rejection message.
func (e *ThresholdOrderError) Error() string {
	if e.Changing == MethodSetHighCriticalThreshold {
		return msgHighCritOrder
	}
	return msgHighOrder
}

// Unwrap returns ErrThresholdOrder for errors.Is() compatibility.
func (e *ThresholdOrderError) Unwrap() error { return ErrThresholdOrder }

// Error implements the error interface.
func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("invalid thermal method %q", e.Value)
}

// Unwrap returns ErrInvalidMethod for errors.Is() compatibility.
func (e *InvalidMethodError) Unwrap() error { return ErrInvalidMethod }

// Error implements the error interface. Not-implemented errors use the
// platform utility's historical wording.
func (e *CallError) Error() string {
	switch {
	case errors.Is(e.Err, ErrNotImplemented):
		return fmt.Sprintf("Not implement the %s method!", e.Request.Method)
	case errors.Is(e.Err, ErrThermalNotFound):
		return fmt.Sprintf("%s not found!", e.Request.Thermal)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %v: %s", e.Request.Method, e.Request.Thermal, e.Err, e.Message)
	default:
		return fmt.Sprintf("%s %s: %v", e.Request.Method, e.Request.Thermal, e.Err)
	}
}

// Unwrap returns the sentinel describing the failure.
func (e *CallError) Unwrap() error { return e.Err }
