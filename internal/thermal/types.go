// SPDX-License-Identifier: MPL-2.0

package thermal

import (
	"fmt"
	"strconv"
)

const (
	// MethodList returns the names of every chassis and PSU thermal.
	MethodList Method = "list"
	// MethodHighThreshold reads a thermal's high threshold.
	MethodHighThreshold Method = "get_high_threshold"
	// MethodHighCriticalThreshold reads a thermal's high-critical threshold.
	MethodHighCriticalThreshold Method = "get_high_critical_threshold"
	// MethodSetHighThreshold writes a thermal's high threshold.
	MethodSetHighThreshold Method = "set_high_threshold"
	// MethodSetHighCriticalThreshold writes a thermal's high-critical threshold.
	MethodSetHighCriticalThreshold Method = "set_high_critical_threshold"

	// StatusOK means the call succeeded.
	StatusOK Status = "ok"
	// StatusNotFound means no thermal carries the requested name.
	StatusNotFound Status = "not_found"
	// StatusNotImplemented means the thermal does not support the method.
	StatusNotImplemented Status = "not_implemented"
	// StatusFailed means the platform API reported a failure.
	StatusFailed Status = "failed"

	// RangeLow and RangeHigh bound every threshold value, inclusive.
	RangeLow  = 30.0
	RangeHigh = 110.0
)

// DefaultRange is the accepted threshold range.
var DefaultRange = Range{Low: RangeLow, High: RangeHigh}

type (
	// Method names a remote operation.
	Method string

	// Status is the outcome reported by the dispatcher.
	Status string

	// Request is one call to the dispatcher.
	Request struct {
		Method  Method   `json:"method"`
		Thermal string   `json:"thermal,omitempty"`
		Value   *float64 `json:"value,omitempty"`
	}

	// Response is the dispatcher's reply.
	Response struct {
		Status  Status   `json:"status"`
		Value   *float64 `json:"value,omitempty"`
		Names   []string `json:"names,omitempty"`
		Message string   `json:"message,omitempty"`
	}

	// Range is an inclusive threshold interval.
	Range struct {
		Low  float64
		High float64
	}
)

// Validate returns an error if m is not a known method.
func (m Method) Validate() error {
	switch m {
	case MethodList, MethodHighThreshold, MethodHighCriticalThreshold,
		MethodSetHighThreshold, MethodSetHighCriticalThreshold:
		return nil
	default:
		return &InvalidMethodError{Value: m}
	}
}

// IsWrite reports whether m changes a threshold.
func (m Method) IsWrite() bool {
	return m == MethodSetHighThreshold || m == MethodSetHighCriticalThreshold
}

// String returns the method name.
func (m Method) String() string { return string(m) }

// Contains reports whether v lies within r, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Low && v <= r.High
}

// Check returns an OutOfRangeError if v is outside r.
func (r Range) Check(v float64) error {
	if !r.Contains(v) {
		return &OutOfRangeError{Value: v, Range: r}
	}
	return nil
}

// String renders the range as "[30.0 ~ 110.0]".
func (r Range) String() string {
	return fmt.Sprintf("[%.1f ~ %.1f]", r.Low, r.High)
}

// ParseThreshold parses s as a float and checks it against r.
func (r Range) ParseThreshold(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &InvalidValueError{Value: s}
	}
	if err := r.Check(v); err != nil {
		return 0, err
	}
	return v, nil
}
