// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/accton/as9817util/internal/shell"
	"github.com/accton/as9817util/pkg/types"
)

// Orchestrator brings the platform's drivers and devices up and down.
//
// Every sequence runs its steps one at a time. Without force, the first
// failing step ends the sequence and its error is returned. With force,
// every step is attempted and the result is that of the last attempted
// step. Best-effort steps are logged but never change the result.
type Orchestrator struct {
	platform *Platform
	detector *Detector
	scratch  *ScratchFiles
	wheel    *Wheel

	exec   shell.Runner
	runner shell.Runner
	plan   *shell.DryRunner

	force        bool
	dryRun       bool
	root         string
	settle       *time.Duration
	wheelPackage string
	wheelPath    string
	logger       *log.Logger
	out          io.Writer
	sleep        SleepFunc
}

// New returns an Orchestrator for p.
func New(p *Platform, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		platform: p,
		root:     "/",
		logger:   log.New(io.Discard),
		out:      io.Discard,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.settle != nil {
		cp := *p
		cp.SettleDelay = *o.settle
		o.platform = &cp
	}
	if o.exec == nil {
		o.exec = shell.NewVirtualRunner(shell.WithRoot(o.root), shell.WithLogger(o.logger))
	}
	o.runner = o.exec
	if o.dryRun {
		o.plan = shell.NewDryRunner()
		o.runner = o.plan
	}

	o.detector = NewDetector(o.platform, o.root)
	o.scratch = NewScratchFiles(o.platform.ScratchFiles, o.root)
	o.wheel = NewWheel(o.wheelPackage, o.wheelPath, o.exec, o.runner, o.out, o.root)
	return o
}

// Platform returns the topology the orchestrator acts on.
func (o *Orchestrator) Platform() *Platform { return o.platform }

// Detector returns the presence detector.
func (o *Orchestrator) Detector() *Detector { return o.detector }

// Plan returns the directives recorded by a dry run, or nil.
func (o *Orchestrator) Plan() []string {
	if o.plan == nil {
		return nil
	}
	return o.plan.Directives()
}

// Install brings drivers and devices up when they are missing, clears the
// indicator LEDs and installs the platform API package.
func (o *Orchestrator) Install(ctx context.Context) error {
	o.say("Checking system....")

	if !o.detector.DriverPresent() {
		o.say("No driver, installing....")
		if err := o.DriverInstall(ctx); err != nil && o.halt(err) {
			return err
		}
	} else {
		o.say(o.platform.DisplayName() + " drivers detected....")
	}

	if !o.detector.DeviceExist() {
		o.say("No device, installing....")
		if err := o.DeviceInstall(ctx); err != nil && o.halt(err) {
			return err
		}
	} else {
		o.say(o.platform.DisplayName() + " devices detected....")
	}

	if err := o.run(ctx, o.platform.IndicatorSteps()); err != nil && o.halt(err) {
		return err
	}

	return o.wheel.Install(ctx)
}

// Uninstall removes devices before drivers, then the platform API package.
func (o *Orchestrator) Uninstall(ctx context.Context) error {
	o.say("Checking system....")

	if !o.detector.DeviceExist() {
		o.say(o.platform.DisplayName() + " has no device installed....")
	} else {
		o.say("Removing device....")
		if err := o.DeviceUninstall(ctx); err != nil && o.halt(err) {
			return err
		}
	}

	if !o.detector.DriverPresent() {
		o.say(o.platform.DisplayName() + " has no driver installed....")
	} else {
		o.say("Removing installed driver....")
		if err := o.DriverUninstall(ctx); err != nil && o.halt(err) {
			return err
		}
	}

	return o.wheel.Clean(ctx)
}

// DriverInstall loads the ethernet driver, refreshes module dependencies
// and loads the vendor modules.
func (o *Orchestrator) DriverInstall(ctx context.Context) error {
	if release, err := o.detector.KernelRelease(); err == nil {
		o.logger.Debug("loading drivers", "kernel", release)
	}
	if err := o.run(ctx, o.platform.DriverSteps()); err != nil {
		return err
	}
	o.say("Done driver_install")
	return nil
}

// DriverUninstall unloads the vendor modules in reverse order.
func (o *Orchestrator) DriverUninstall(ctx context.Context) error {
	return o.run(ctx, o.platform.DriverTeardown())
}

// DeviceInstall enables the relay channels, creates every device and
// transceiver client, releases the transceiver pins and creates the
// scratch files.
func (o *Orchestrator) DeviceInstall(ctx context.Context) error {
	var steps []Step
	steps = append(steps, o.platform.EnableStep())
	steps = append(steps, o.platform.DeviceSteps()...)
	steps = append(steps, o.platform.TransceiverSteps()...)
	steps = append(steps, o.platform.PinSteps()...)
	steps = append(steps, o.scratch.CreateSteps()...)

	if err := o.run(ctx, steps); err != nil {
		return err
	}
	o.say("Done device_install")
	return nil
}

// DeviceUninstall deletes the transceiver clients, then the devices in
// reverse creation order, then the scratch files.
func (o *Orchestrator) DeviceUninstall(ctx context.Context) error {
	var steps []Step
	steps = append(steps, o.platform.TransceiverTeardown()...)
	steps = append(steps, o.platform.DeviceTeardown()...)
	steps = append(steps, o.scratch.RemoveSteps(o.force)...)
	return o.run(ctx, steps)
}

// halt reports whether err should end the enclosing operation. Context
// cancellation always does.
func (o *Orchestrator) halt(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return !o.force
}

// run executes steps in order and returns the result of the last
// attempted step that is not best-effort.
func (o *Orchestrator) run(ctx context.Context, steps []Step) error {
	var result error
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := o.step(ctx, st)
		if !st.BestEffort {
			result = err
			if err != nil && !o.force {
				return err
			}
		}

		if st.Settle > 0 {
			if err := o.sleep(ctx, st.Settle); err != nil {
				return err
			}
		}
	}
	return result
}

func (o *Orchestrator) step(ctx context.Context, st Step) error {
	var res *shell.Result
	if st.native != nil && !o.dryRun {
		res = &shell.Result{}
		if err := st.native(ctx); err != nil {
			res.ExitCode = 1
			res.Output = err.Error()
			res.Error = err
		}
	} else {
		res = o.runner.Run(ctx, st.Command)
	}

	o.logger.Debug("step", "kind", st.Kind, "cmd", st.Command, "status", res.ExitCode)
	if !res.Failed() {
		return nil
	}

	status := res.ExitCode
	if status.IsSuccess() {
		status = 1
	}
	o.logger.Error("failed", "cmd", st.Command, "status", status)
	if res.Output != "" {
		fmt.Fprintln(o.out, res.Output)
	}
	return &StepError{Step: st, Status: status, Output: res.Output, Err: res.Error}
}

func (o *Orchestrator) say(msg string) {
	fmt.Fprintln(o.out, msg)
}

// ExitCode extracts the process exit status from an orchestrator error.
func ExitCode(err error) types.ExitCode {
	if err == nil {
		return 0
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.ExitCode()
	}
	return 1
}
