// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/accton/as9817util/internal/shell"
)

const (
	// DefaultWheelPackage is the pip name of the platform API package.
	DefaultWheelPackage = "sonic-platform"
	// DefaultWheelPath is where the platform API wheel is shipped.
	DefaultWheelPath = "/usr/share/sonic/device/x86_64-accton_as9817_64o_nb-r0/sonic_platform-1.0-py3-none-any.whl"
)

// Wheel installs and removes the platform API Python package.
type Wheel struct {
	// Package is the pip distribution name.
	Package string
	// Path is the wheel file installed when the package is missing.
	Path string

	probe  shell.Runner
	runner shell.Runner
	out    io.Writer
	root   string
}

// NewWheel returns a Wheel for pkg/path. probe runs the read-only
// "pip3 show" check; runner runs the mutating commands, which lets a dry
// run see the real installed state.
func NewWheel(pkg, path string, probe, runner shell.Runner, out io.Writer, root string) *Wheel {
	if pkg == "" {
		pkg = DefaultWheelPackage
	}
	if path == "" {
		path = DefaultWheelPath
	}
	return &Wheel{Package: pkg, Path: path, probe: probe, runner: runner, out: out, root: root}
}

// Installed reports whether pip knows the package.
func (w *Wheel) Installed(ctx context.Context) bool {
	res := w.probe.Run(ctx, fmt.Sprintf("pip3 show %s > /dev/null 2>&1", w.Package))
	return !res.Failed()
}

// Install installs the wheel if the package is missing. A missing wheel
// file is reported but is not a failure.
func (w *Wheel) Install(ctx context.Context) error {
	name := filepath.Base(w.Path)
	if w.Installed(ctx) {
		fmt.Fprintf(w.out, "%s has installed\n", name)
		return nil
	}
	if _, err := os.Stat(resolve(w.root, w.Path)); err != nil {
		fmt.Fprintf(w.out, "%s is not found\n", name)
		return nil
	}

	st := Step{Kind: KindPackage, Command: "pip3 install " + w.Path}
	res := w.runner.Run(ctx, st.Command)
	if res.Failed() {
		fmt.Fprintf(w.out, "Error: Failed to install %s\n", name)
		return &StepError{Step: st, Status: res.ExitCode, Output: res.Output, Err: res.Error}
	}
	fmt.Fprintf(w.out, "Successfully installed %s package\n", name)
	return nil
}

// Clean uninstalls the package if pip knows it.
func (w *Wheel) Clean(ctx context.Context) error {
	name := filepath.Base(w.Path)
	if !w.Installed(ctx) {
		fmt.Fprintf(w.out, "%s does not install, not need to uninstall\n", name)
		return nil
	}

	st := Step{Kind: KindPackage, Command: fmt.Sprintf("pip3 uninstall %s -y", w.Package)}
	res := w.runner.Run(ctx, st.Command)
	if res.Failed() {
		fmt.Fprintf(w.out, "Error: Failed to uninstall %s\n", name)
		return &StepError{Step: st, Status: res.ExitCode, Output: res.Output, Err: res.Error}
	}
	fmt.Fprintf(w.out, "%s is uninstalled\n", name)
	return nil
}
