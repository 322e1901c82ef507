// SPDX-License-Identifier: MPL-2.0

// Package topology brings the AS9817-64O-NB kernel driver and sysfs device
// topology up and tears it down again.
//
// A bring-up is an ordered list of Steps: module loads, I2C new_device
// writes, transceiver device creation, reset/low-power pin clears and the
// scratch marker files. Teardown is derived mechanically from the bring-up
// list with Step.Invert. The Orchestrator runs both directions, checks
// driver and device presence first so that install and clean are
// idempotent, and honours force mode: without force the first failing step
// aborts the sequence, with force every step is attempted and the sequence
// reports the status of the last step it attempted.
package topology
