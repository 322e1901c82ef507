// SPDX-License-Identifier: MPL-2.0

// Package shell executes single shell directives (module loads, sysfs
// attribute writes, register pokes) and reports their exit status together
// with their combined output.
//
// Two runners are provided:
//   - VirtualRunner interprets the directive in-process with mvdan/sh.
//     Redirections are opened relative to a configurable root so that a
//     whole bring-up sequence can be replayed against a temporary sysfs tree.
//     Output redirected to a file reaches it as a single write, and a
//     rejected write fails the directive with status 1.
//     External programs (modprobe, i2cset, pip3) go through an exec handler
//     chain that tests can replace.
//   - NativeRunner hands the directive to /bin/sh -c, matching what a
//     plain getstatusoutput call would do.
//
// DryRunner records directives without executing them.
package shell
