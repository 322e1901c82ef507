// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Sysfs is a temporary directory laid out like the parts of / that the
// platform utility reads and writes.
type Sysfs struct {
	// Root is the directory standing in for /.
	Root string
	t    testing.TB
}

// NewSysfs creates an empty tree with the fixed top-level directories
// (/sys/module, /sys/bus/i2c/devices, /sys/class/leds,
// /sys/devices/platform and /tmp).
func NewSysfs(t testing.TB) *Sysfs {
	t.Helper()
	s := &Sysfs{Root: t.TempDir(), t: t}
	for _, dir := range []string{
		"/sys/module",
		"/sys/bus/i2c/devices",
		"/sys/class/leds",
		"/sys/devices/platform",
		"/tmp",
	} {
		s.Mkdir(dir)
	}
	return s
}

// Path maps an absolute path onto the tree.
func (s *Sysfs) Path(path string) string {
	return filepath.Join(s.Root, strings.TrimPrefix(path, "/"))
}

// Mkdir creates path (absolute, tree-relative) and its parents.
func (s *Sysfs) Mkdir(path string) {
	s.t.Helper()
	MustMkdirAll(s.t, s.Path(path), 0o755)
}

// WriteFile writes content at path, creating parent directories.
func (s *Sysfs) WriteFile(path, content string) {
	s.t.Helper()
	MustWriteFile(s.t, s.Path(path), content)
}

// ReadFile returns the content at path.
func (s *Sysfs) ReadFile(path string) string {
	s.t.Helper()
	return MustReadFile(s.t, s.Path(path))
}

// Exists reports whether path exists in the tree.
func (s *Sysfs) Exists(path string) bool {
	_, err := os.Stat(s.Path(path))
	return err == nil
}

// AddModule marks a kernel module as loaded.
func (s *Sysfs) AddModule(name string) {
	s.t.Helper()
	s.Mkdir("/sys/module/" + name)
}

// AddBus creates adapter directories i2c-N for every bus.
func (s *Sysfs) AddBus(buses ...int) {
	s.t.Helper()
	for _, bus := range buses {
		s.Mkdir(fmt.Sprintf("/sys/bus/i2c/devices/i2c-%d", bus))
	}
}

// AddBusRange creates adapter directories for buses first..last inclusive.
func (s *Sysfs) AddBusRange(first, last int) {
	s.t.Helper()
	for bus := first; bus <= last; bus++ {
		s.AddBus(bus)
	}
}

// AddClient creates the client node the kernel names "BUS-00AA".
func (s *Sysfs) AddClient(bus int, addr uint8) {
	s.t.Helper()
	s.Mkdir(fmt.Sprintf("/sys/bus/i2c/devices/%d-%04x", bus, addr))
}

// AddAttribute creates an empty writable sysfs attribute.
func (s *Sysfs) AddAttribute(path string) {
	s.t.Helper()
	s.WriteFile(path, "")
}
