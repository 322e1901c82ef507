// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"slices"
)

// DryRunner records every directive it is asked to run and reports success.
type DryRunner struct {
	directives []string
}

// NewDryRunner creates an empty DryRunner.
func NewDryRunner() *DryRunner {
	return &DryRunner{}
}

// Run records directive.
func (r *DryRunner) Run(_ context.Context, directive string) *Result {
	r.directives = append(r.directives, directive)
	return &Result{}
}

// Directives returns the recorded directives in execution order.
func (r *DryRunner) Directives() []string {
	return slices.Clone(r.directives)
}
