// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown
// troubleshooting pages rendered with glamour for the failures an operator
// can fix: missing drivers, a stopped service container, rejected thresholds.
package issue
