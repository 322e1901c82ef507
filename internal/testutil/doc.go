// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that fail the test on error
// instead of returning it.
//
// Besides the Must* environment and filesystem helpers, it builds fake
// sysfs trees (Sysfs) so that the topology orchestrator and the shell
// runner can be exercised against a temporary directory standing in for /.
package testutil
