// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/accton/as9817util/pkg/types"
)

const (
	// KindModuleLoad loads a kernel module with modprobe.
	KindModuleLoad StepKind = "module-load"
	// KindModuleRemove unloads a kernel module with modprobe -rq.
	KindModuleRemove StepKind = "module-remove"
	// KindDepmod refreshes module dependency data.
	KindDepmod StepKind = "depmod"
	// KindRegisterWrite pokes a controller register with i2cset.
	KindRegisterWrite StepKind = "register-write"
	// KindDeviceCreate writes an I2C new_device directive.
	KindDeviceCreate StepKind = "device-create"
	// KindDeviceDelete writes an I2C delete_device directive.
	KindDeviceDelete StepKind = "device-delete"
	// KindPinWrite clears a transceiver reset or low-power-mode pin.
	KindPinWrite StepKind = "pin-write"
	// KindIndicator switches a front-panel LED off.
	KindIndicator StepKind = "indicator"
	// KindScratchFile creates or removes a scratch marker file.
	KindScratchFile StepKind = "scratch-file"
	// KindPackage probes, installs or removes the platform API package.
	KindPackage StepKind = "package"

	i2cDevicesDir = "/sys/bus/i2c/devices"
)

type (
	// StepKind classifies a Step.
	StepKind string

	// Step is one shell-level bring-up or teardown action.
	Step struct {
		// Kind classifies the action.
		Kind StepKind
		// Command is the directive text handed to the shell runner.
		Command string
		// Settle is how long to wait after the step before the next one.
		// Only multiplexer creation sets it: a new mux exposes its child
		// buses asynchronously.
		Settle time.Duration
		// BestEffort steps are logged on failure but never affect the
		// sequence status.
		BestEffort bool

		module string
		device *Device
		native func(ctx context.Context) error
	}

	// Device is an I2C client instantiated through new_device.
	Device struct {
		// Driver is the kernel driver name written to new_device.
		Driver string
		// Addr is the client address on Bus.
		Addr types.I2CAddress
		// Bus is the adapter the client hangs off.
		Bus types.I2CBus
		// Mux marks multiplexer devices, which need a settle delay.
		Mux bool
	}
)

// ModuleLoadStep returns the step that loads module.
func ModuleLoadStep(module string) Step {
	return Step{Kind: KindModuleLoad, Command: "modprobe " + module, module: module}
}

// DeviceCreateStep returns the step that instantiates d. Multiplexers get
// the settle delay.
func DeviceCreateStep(d Device, settle time.Duration) Step {
	st := Step{Kind: KindDeviceCreate, Command: d.CreateDirective(), device: &d}
	if d.Mux {
		st.Settle = settle
	}
	return st
}

// Module returns the kernel module a module step acts on.
func (s Step) Module() string { return s.module }

// Device returns the I2C device a device step acts on.
func (s Step) Device() (Device, bool) {
	if s.device == nil {
		return Device{}, false
	}
	return *s.device, true
}

// Invert returns the teardown counterpart of s. Module loads become
// module removals and new_device writes become delete_device writes on the
// same bus, trimmed of the driver name. Register writes, pin writes,
// indicators, depmod and scratch files have no inverse.
func (s Step) Invert() (Step, bool) {
	switch s.Kind {
	case KindModuleLoad:
		return Step{Kind: KindModuleRemove, Command: "modprobe -rq " + s.module, module: s.module}, true
	case KindDeviceCreate:
		d := *s.device
		return Step{Kind: KindDeviceDelete, Command: d.DeleteDirective(), device: &d}, true
	default:
		return Step{}, false
	}
}

// String returns the directive text.
func (s Step) String() string { return s.Command }

// Teardown inverts steps and reverses their order, dropping steps that
// have no inverse.
func Teardown(steps []Step) []Step {
	out := make([]Step, 0, len(steps))
	for _, st := range slices.Backward(steps) {
		if inv, ok := st.Invert(); ok {
			out = append(out, inv)
		}
	}
	return out
}

// Validate checks the address and bus.
func (d Device) Validate() error {
	if d.Driver == "" {
		return fmt.Errorf("device %s on %s: empty driver name", d.Addr, d.Bus)
	}
	if err := d.Addr.Validate(); err != nil {
		return err
	}
	return d.Bus.Validate()
}

// BusPath returns the sysfs directory of the adapter.
func (d Device) BusPath() string {
	return i2cDevicesDir + "/" + d.Bus.String()
}

// CreateDirective renders "echo DRIVER ADDR > BUS/new_device".
func (d Device) CreateDirective() string {
	return fmt.Sprintf("echo %s %s > %s/new_device", d.Driver, d.Addr, d.BusPath())
}

// DeleteDirective renders "echo ADDR > BUS/delete_device".
func (d Device) DeleteDirective() string {
	return fmt.Sprintf("echo %s > %s/delete_device", d.Addr, d.BusPath())
}
