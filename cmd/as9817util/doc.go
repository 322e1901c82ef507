// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the as9817util command tree.
//
// install and clean drive internal/topology against the local sysfs; threshold
// talks to the platform API inside the service container through
// internal/thermal. Global flags and the loaded configuration are turned into
// explicit options by App; no command reads package-level state.
package cmd
