// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const moduleDir = "/sys/module"

// Detector answers presence questions by looking at sysfs under a root.
// The checks are heuristics: a matching module name or a sentinel device
// node is taken as proof that the whole layer is installed.
type Detector struct {
	platform *Platform
	root     string
}

// NewDetector returns a Detector for p with paths resolved under root.
func NewDetector(p *Platform, root string) *Detector {
	if root == "" {
		root = "/"
	}
	return &Detector{platform: p, root: root}
}

// DriverPresent reports whether any loaded module matches the platform's
// module pattern.
func (d *Detector) DriverPresent() bool {
	matches, err := filepath.Glob(d.resolve(moduleDir + "/" + d.platform.ModulePattern))
	return err == nil && len(matches) > 0
}

// DeviceExist reports whether every sentinel path matches at least one
// entry.
func (d *Detector) DeviceExist() bool {
	for _, pattern := range d.platform.Sentinels {
		matches, err := filepath.Glob(d.resolve(pattern))
		if err != nil || len(matches) == 0 {
			return false
		}
	}
	return true
}

// SystemReady reports whether both the drivers and the devices are present.
func (d *Detector) SystemReady() bool {
	return d.DriverPresent() && d.DeviceExist()
}

// ScratchPresent reports which scratch files exist, keyed by path.
func (d *Detector) ScratchPresent() map[string]bool {
	out := make(map[string]bool, len(d.platform.ScratchFiles))
	for _, path := range d.platform.ScratchFiles {
		_, err := os.Stat(d.resolve(path))
		out[path] = err == nil
	}
	return out
}

// KernelRelease returns the running kernel's release string.
func (d *Detector) KernelRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Release[:]), nil
}

func (d *Detector) resolve(path string) string {
	return resolve(d.root, path)
}

// resolve joins an absolute platform path onto root.
func resolve(root, path string) string {
	if root == "" || root == "/" {
		return path
	}
	return filepath.Join(root, strings.TrimPrefix(path, "/"))
}
