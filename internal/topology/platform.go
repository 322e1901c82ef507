// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/accton/as9817util/pkg/types"
)

// DefaultSettleDelay is the wait after each multiplexer is created.
const DefaultSettleDelay = time.Second

// Platform holds the fixed description of one switch's driver and device
// topology. Nothing in it is discovered at runtime.
type Platform struct {
	// Name is the project name, e.g. "as9817_64o_nb".
	Name string
	// ModulePattern is matched against /sys/module entries to decide
	// whether the vendor drivers are loaded.
	ModulePattern string
	// EthernetDriver is loaded before anything else as a precondition.
	EthernetDriver string
	// Modules are loaded in order: core I2C infrastructure, then the
	// bus multiplexer and FPGA, then the CPLD, fan, LED and PSU drivers.
	Modules []string
	// EnableRegister is the i2cset directive that routes the FPGA relay
	// channels to the CPU.
	EnableRegister string
	// Devices are created in order after EnableRegister.
	Devices []Device
	// PortBuses lists the transceiver I2C buses in port order.
	PortBuses []types.I2CBus
	// PortBoundary is the last port index served by LowPortDriver; the
	// remaining ports use HighPortDriver.
	PortBoundary int
	// LowPortDriver and HighPortDriver are the transceiver EEPROM drivers.
	LowPortDriver  string
	HighPortDriver string
	// TransceiverAddr is the EEPROM address on every port bus.
	TransceiverAddr types.I2CAddress
	// PinDir is the FPGA platform device directory holding the
	// module_reset_N and module_lp_mode_N attributes (N is 1-based).
	PinDir string
	// ScratchFiles are created world-writable during bring-up.
	ScratchFiles []string
	// Indicators are LED brightness attributes cleared after install.
	Indicators []string
	// Sentinels are path globs that must all match for the device layer
	// to count as present.
	Sentinels []string
	// SettleDelay is the wait after each multiplexer creation.
	SettleDelay time.Duration
}

// AS9817 returns the AS9817-64O-NB topology.
func AS9817() *Platform {
	ports := make([]types.I2CBus, 0, 66)
	for bus := 2; bus <= 67; bus++ {
		ports = append(ports, types.I2CBus(bus))
	}

	return &Platform{
		Name:           "as9817_64o_nb",
		ModulePattern:  "*accton*",
		EthernetDriver: "ice",
		Modules: []string{
			"i2c_dev",
			"i2c_i801",
			"i2c_ismt",
			"optoe",
			"at24",
			"i2c-ocores",
			"accton_as9817_64_fpga",
			"accton_as9817_64_mux",
			"accton_as9817_64_cpld",
			"accton_as9817_64_fan",
			"accton_as9817_64_led",
			"accton_as9817_64_psu",
		},
		EnableRegister: "i2cset -f -y 0 0x60 0x0f 0x03",
		Devices: []Device{
			// FPGA I2C relay channels and the fan CPLD relay.
			{Driver: "as9817_64_mux", Addr: 0x78, Bus: 0, Mux: true},
			{Driver: "as9817_64_mux", Addr: 0x70, Bus: 0, Mux: true},
			{Driver: "as9817_64_mux", Addr: 0x76, Bus: 76, Mux: true},

			{Driver: "as9817_64_fpga_i2c", Addr: 0x60, Bus: 0},
			{Driver: "24c02", Addr: 0x56, Bus: 68},
			{Driver: "as9817_64_cpld2", Addr: 0x62, Bus: 74},
			{Driver: "as9817_64_cpld3", Addr: 0x63, Bus: 74},

			{Driver: "as9817_64_fan", Addr: 0x33, Bus: 76},
			{Driver: "ps_2302_6l", Addr: 0x58, Bus: 77},
			{Driver: "ps_2302_6l", Addr: 0x59, Bus: 77},
			{Driver: "lm75", Addr: 0x48, Bus: 78},
			{Driver: "lm75", Addr: 0x49, Bus: 79},
			{Driver: "lm75", Addr: 0x4a, Bus: 78},
			{Driver: "lm75", Addr: 0x4b, Bus: 78},
			{Driver: "lm75", Addr: 0x4c, Bus: 78},
			{Driver: "lm75", Addr: 0x4d, Bus: 79},
			// Fan board
			{Driver: "lm75", Addr: 0x4d, Bus: 84},
			{Driver: "lm75", Addr: 0x4e, Bus: 85},
		},
		PortBuses:       ports,
		PortBoundary:    63,
		LowPortDriver:   "optoe3",
		HighPortDriver:  "optoe2",
		TransceiverAddr: 0x50,
		PinDir:          "/sys/devices/platform/as9817_64_fpga",
		ScratchFiles: []string{
			"/tmp/device_threshold.json",
			"/tmp/device_threshold.json.lock",
		},
		Indicators: []string{
			"/sys/class/leds/as9817_64_led::loc/brightness",
			"/sys/class/leds/as9817_64_led::alarm/brightness",
		},
		Sentinels: []string{
			i2cDevicesDir + "/*0070",
			i2cDevicesDir + "/i2c-2",
		},
		SettleDelay: DefaultSettleDelay,
	}
}

// DisplayName is the upper-case project name used in progress messages.
func (p *Platform) DisplayName() string {
	return strings.ToUpper(p.Name)
}

// Validate checks every device and the port partition.
func (p *Platform) Validate() error {
	var errs []error
	for i, d := range p.Devices {
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("devices[%d]: %w", i, err))
		}
	}
	if p.PortBoundary < -1 || p.PortBoundary >= len(p.PortBuses) {
		errs = append(errs, fmt.Errorf("port boundary %d outside 0..%d", p.PortBoundary, len(p.PortBuses)-1))
	}
	if err := p.TransceiverAddr.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// EthernetStep loads the 10G ethernet driver.
func (p *Platform) EthernetStep() Step {
	return ModuleLoadStep(p.EthernetDriver)
}

// DepmodStep refreshes module dependencies. Its status is ignored.
func (p *Platform) DepmodStep() Step {
	return Step{Kind: KindDepmod, Command: "depmod -ae", BestEffort: true}
}

// ModuleSteps loads the vendor modules in dependency order.
func (p *Platform) ModuleSteps() []Step {
	steps := make([]Step, 0, len(p.Modules))
	for _, m := range p.Modules {
		steps = append(steps, ModuleLoadStep(m))
	}
	return steps
}

// DriverSteps is the full driver bring-up: ethernet driver, depmod, modules.
func (p *Platform) DriverSteps() []Step {
	return append([]Step{p.EthernetStep(), p.DepmodStep()}, p.ModuleSteps()...)
}

// DriverTeardown removes the vendor modules in reverse order. The ethernet
// driver stays loaded.
func (p *Platform) DriverTeardown() []Step {
	return Teardown(p.ModuleSteps())
}

// EnableStep routes the relay channels to the CPU.
func (p *Platform) EnableStep() Step {
	return Step{Kind: KindRegisterWrite, Command: p.EnableRegister}
}

// DeviceSteps creates the mux, CPLD, fan, PSU and sensor devices.
func (p *Platform) DeviceSteps() []Step {
	steps := make([]Step, 0, len(p.Devices))
	for _, d := range p.Devices {
		steps = append(steps, DeviceCreateStep(d, p.SettleDelay))
	}
	return steps
}

// DeviceTeardown deletes the devices created by DeviceSteps, last first.
func (p *Platform) DeviceTeardown() []Step {
	return Teardown(p.DeviceSteps())
}

// PortDriver returns the transceiver driver for port index i (0-based).
func (p *Platform) PortDriver(i int) string {
	if i > p.PortBoundary {
		return p.HighPortDriver
	}
	return p.LowPortDriver
}

// TransceiverSteps creates one EEPROM client per port bus.
func (p *Platform) TransceiverSteps() []Step {
	steps := make([]Step, 0, len(p.PortBuses))
	for i, bus := range p.PortBuses {
		d := Device{Driver: p.PortDriver(i), Addr: p.TransceiverAddr, Bus: bus}
		steps = append(steps, DeviceCreateStep(d, 0))
	}
	return steps
}

// TransceiverTeardown deletes the transceiver clients in ascending bus
// order, the same order they were created in.
func (p *Platform) TransceiverTeardown() []Step {
	create := p.TransceiverSteps()
	steps := make([]Step, 0, len(create))
	for _, st := range create {
		inv, _ := st.Invert()
		steps = append(steps, inv)
	}
	return steps
}

// PinSteps releases the reset pin of every OSFP port, then disables low
// power mode on every OSFP port. All writes are best-effort.
func (p *Platform) PinSteps() []Step {
	n := p.PortBoundary + 1
	steps := make([]Step, 0, 2*n)
	for _, attr := range []string{"module_reset", "module_lp_mode"} {
		for i := 1; i <= n; i++ {
			steps = append(steps, Step{
				Kind:       KindPinWrite,
				Command:    fmt.Sprintf("echo 0 > %s/%s_%d", p.PinDir, attr, i),
				BestEffort: true,
			})
		}
	}
	return steps
}

// IndicatorSteps switches the LOC and ALARM LEDs off.
func (p *Platform) IndicatorSteps() []Step {
	steps := make([]Step, 0, len(p.Indicators))
	for _, path := range p.Indicators {
		steps = append(steps, Step{Kind: KindIndicator, Command: "echo 0 > " + path, BestEffort: true})
	}
	return steps
}

// scratchStep wraps a native file operation so that it shows up in logs
// and dry runs like any other directive.
func scratchStep(command string, fn func(ctx context.Context) error) Step {
	return Step{Kind: KindScratchFile, Command: command, native: fn}
}
