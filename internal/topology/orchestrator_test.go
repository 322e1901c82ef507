// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"mvdan.cc/sh/v3/interp"

	"github.com/accton/as9817util/internal/shell"
	"github.com/accton/as9817util/internal/testutil"
	"github.com/accton/as9817util/pkg/types"
)

const pipShow = "pip3 show sonic-platform > /dev/null 2>&1"

// recordingRunner records directives and fails the ones listed in fail.
type recordingRunner struct {
	calls []string
	fail  map[string]types.ExitCode
}

func newRecordingRunner(fail map[string]types.ExitCode) *recordingRunner {
	return &recordingRunner{fail: fail}
}

func (r *recordingRunner) Run(_ context.Context, directive string) *shell.Result {
	r.calls = append(r.calls, directive)
	if code, ok := r.fail[directive]; ok {
		return &shell.Result{ExitCode: code, Output: "error: " + directive}
	}
	return &shell.Result{}
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newTestOrchestrator(t *testing.T, r shell.Runner, opts ...Option) (*Orchestrator, *testutil.Sysfs, *bytes.Buffer, *sleepRecorder) {
	t.Helper()
	s := testutil.NewSysfs(t)
	var out bytes.Buffer
	sl := &sleepRecorder{}
	base := []Option{WithRoot(s.Root), WithRunner(r), WithOutput(&out), WithSleep(sl.sleep)}
	return New(AS9817(), append(base, opts...)...), s, &out, sl
}

func TestDriverInstallHaltsAtFirstFailure(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(map[string]types.ExitCode{"modprobe optoe": 1})
	o, _, out, _ := newTestOrchestrator(t, r)

	err := o.DriverInstall(context.Background())
	var se *StepError
	if !errors.As(err, &se) {
		t.Fatalf("DriverInstall() error = %v, want *StepError", err)
	}
	if se.Step.Command != "modprobe optoe" || se.Status != 1 {
		t.Errorf("StepError = %+v", se)
	}
	if !errors.Is(err, ErrStepFailed) {
		t.Error("StepError does not wrap ErrStepFailed")
	}
	if last := r.calls[len(r.calls)-1]; last != "modprobe optoe" {
		t.Errorf("step after the failure was attempted: last call %q", last)
	}
	if slices.Contains(r.calls, "modprobe at24") {
		t.Error("modprobe at24 ran after modprobe optoe failed")
	}
	if strings.Contains(out.String(), "Done driver_install") {
		t.Error("aborted install reported done")
	}
}

func TestDriverInstallEthernetRespectsForce(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(map[string]types.ExitCode{"modprobe ice": 1})
	o, _, _, _ := newTestOrchestrator(t, r)
	if err := o.DriverInstall(context.Background()); err == nil {
		t.Fatal("DriverInstall() succeeded with a failing ethernet driver")
	}
	if len(r.calls) != 1 {
		t.Errorf("calls = %v, want only the ethernet driver", r.calls)
	}
}

func TestDriverInstallIgnoresDepmod(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(map[string]types.ExitCode{"depmod -ae": 1})
	o, _, out, _ := newTestOrchestrator(t, r)
	if err := o.DriverInstall(context.Background()); err != nil {
		t.Fatalf("DriverInstall() error = %v", err)
	}
	if !strings.Contains(out.String(), "Done driver_install") {
		t.Error("missing Done driver_install")
	}
}

func TestForceAttemptsEveryStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		fail       map[string]types.ExitCode
		wantStatus types.ExitCode
	}{
		{"middle failure, last succeeds", map[string]types.ExitCode{"modprobe optoe": 1}, 0},
		{"last step fails", map[string]types.ExitCode{"modprobe accton_as9817_64_psu": 3}, 3},
		{"both fail", map[string]types.ExitCode{"modprobe optoe": 1, "modprobe accton_as9817_64_psu": 5}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRecordingRunner(tt.fail)
			o, _, _, _ := newTestOrchestrator(t, r, WithForce(true))
			err := o.DriverInstall(context.Background())

			want := len(o.Platform().DriverSteps())
			if len(r.calls) != want {
				t.Errorf("attempted %d steps, want %d", len(r.calls), want)
			}
			if got := ExitCode(err); got != tt.wantStatus {
				t.Errorf("ExitCode(%v) = %d, want %d", err, got, tt.wantStatus)
			}
		})
	}
}

func TestDeviceInstallSettlesAfterEachMux(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(nil)
	o, _, _, sl := newTestOrchestrator(t, r)
	if err := o.DeviceInstall(context.Background()); err != nil {
		t.Fatalf("DeviceInstall() error = %v", err)
	}
	if want := []time.Duration{time.Second, time.Second, time.Second}; !slices.Equal(sl.waits, want) {
		t.Errorf("settle waits = %v, want %v", sl.waits, want)
	}
}

func TestDeviceInstallSettleOverride(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(nil)
	o, _, _, sl := newTestOrchestrator(t, r, WithSettleDelay(10*time.Millisecond))
	if err := o.DeviceInstall(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sl.waits) != 3 || sl.waits[0] != 10*time.Millisecond {
		t.Errorf("settle waits = %v", sl.waits)
	}
	if AS9817().SettleDelay != DefaultSettleDelay {
		t.Error("override leaked into the shared platform value")
	}
}

func TestDeviceInstallOrderAndScratch(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(nil)
	o, s, out, _ := newTestOrchestrator(t, r)
	if err := o.DeviceInstall(context.Background()); err != nil {
		t.Fatalf("DeviceInstall() error = %v", err)
	}

	p := o.Platform()
	if r.calls[0] != p.EnableRegister {
		t.Errorf("first directive = %q, want the enable register write", r.calls[0])
	}
	wantCalls := 1 + len(p.Devices) + len(p.PortBuses) + 2*(p.PortBoundary+1)
	if len(r.calls) != wantCalls {
		t.Errorf("runner saw %d directives, want %d", len(r.calls), wantCalls)
	}
	for _, path := range p.ScratchFiles {
		if !s.Exists(path) {
			t.Errorf("scratch file %s not created", path)
		}
	}
	if !strings.Contains(out.String(), "Done device_install") {
		t.Error("missing Done device_install")
	}
}

func TestDeviceInstallPinFailuresAreBestEffort(t *testing.T) {
	t.Parallel()

	fail := map[string]types.ExitCode{}
	for _, st := range AS9817().PinSteps() {
		fail[st.Command] = 1
	}
	r := newRecordingRunner(fail)
	o, _, _, _ := newTestOrchestrator(t, r)
	if err := o.DeviceInstall(context.Background()); err != nil {
		t.Fatalf("pin failures changed the result: %v", err)
	}
}

func TestDeviceInstallScratchFailureRespectsForce(t *testing.T) {
	t.Parallel()

	for _, force := range []bool{false, true} {
		r := newRecordingRunner(nil)
		o, s, _, _ := newTestOrchestrator(t, r, WithForce(force))
		// A directory in the way makes the create fail. The lock file is
		// the last step, so force does not mask it.
		s.Mkdir("/tmp/device_threshold.json.lock")

		err := o.DeviceInstall(context.Background())
		var se *StepError
		if !errors.As(err, &se) || se.Step.Kind != KindScratchFile {
			t.Errorf("force=%v: error = %v, want a scratch StepError", force, err)
		}
	}
}

func TestUninstallRemovesDevicesBeforeDrivers(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(nil)
	o, s, out, _ := newTestOrchestrator(t, r)
	s.AddModule("accton_as9817_64_fpga")
	s.AddClient(0, 0x70)
	s.AddBus(2)
	s.WriteFile("/tmp/device_threshold.json", "")

	if err := o.Uninstall(context.Background()); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}

	firstModule := slices.Index(r.calls, "modprobe -rq accton_as9817_64_psu")
	lastDevice := slices.Index(r.calls, "echo 0x78 > /sys/bus/i2c/devices/i2c-0/delete_device")
	if firstModule < 0 || lastDevice < 0 || lastDevice > firstModule {
		t.Errorf("device teardown must precede driver teardown: %v", r.calls)
	}
	if r.calls[0] != "echo 0x50 > /sys/bus/i2c/devices/i2c-2/delete_device" {
		t.Errorf("first directive = %q, want transceiver deletion on bus 2", r.calls[0])
	}
	if s.Exists("/tmp/device_threshold.json") {
		t.Error("scratch file not removed")
	}
	for _, msg := range []string{"Removing device....", "Removing installed driver....", "is uninstalled"} {
		if !strings.Contains(out.String(), msg) {
			t.Errorf("output missing %q:\n%s", msg, out.String())
		}
	}
}

func TestUninstallNothingInstalled(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(map[string]types.ExitCode{pipShow: 1})
	o, _, out, _ := newTestOrchestrator(t, r)
	if err := o.Uninstall(context.Background()); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if !slices.Equal(r.calls, []string{pipShow}) {
		t.Errorf("calls = %v, want only the package probe", r.calls)
	}
	for _, msg := range []string{
		"AS9817_64O_NB has no device installed....",
		"AS9817_64O_NB has no driver installed....",
		"does not install, not need to uninstall",
	} {
		if !strings.Contains(out.String(), msg) {
			t.Errorf("output missing %q", msg)
		}
	}
}

func TestInstallSkipsPresentLayers(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(nil)
	o, s, out, _ := newTestOrchestrator(t, r)
	s.AddModule("accton_as9817_64_fpga")
	s.AddClient(0, 0x70)
	s.AddBus(2)

	if err := o.Install(context.Background()); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	want := append(commands(o.Platform().IndicatorSteps()), pipShow)
	if !slices.Equal(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	for _, msg := range []string{"AS9817_64O_NB drivers detected....", "AS9817_64O_NB devices detected....", "has installed"} {
		if !strings.Contains(out.String(), msg) {
			t.Errorf("output missing %q", msg)
		}
	}
}

func TestInstallStopsWithoutForce(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(map[string]types.ExitCode{"modprobe i2c_dev": 1})
	o, _, _, _ := newTestOrchestrator(t, r)
	if err := o.Install(context.Background()); ExitCode(err) != 1 {
		t.Fatalf("Install() error = %v, want status 1", err)
	}
	if slices.Contains(r.calls, o.Platform().EnableRegister) {
		t.Error("device install ran after driver install failed")
	}
}

func TestInstallForceContinuesToDevices(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(map[string]types.ExitCode{"modprobe i2c_dev": 1})
	o, _, _, _ := newTestOrchestrator(t, r, WithForce(true))
	if err := o.Install(context.Background()); err != nil {
		t.Fatalf("Install() error = %v, want the package step result", err)
	}
	if !slices.Contains(r.calls, o.Platform().EnableRegister) {
		t.Error("device install skipped under force")
	}
}

func TestInstallWheel(t *testing.T) {
	t.Parallel()

	t.Run("missing wheel file", func(t *testing.T) {
		t.Parallel()
		r := newRecordingRunner(map[string]types.ExitCode{pipShow: 1})
		o, s, out, _ := newTestOrchestrator(t, r)
		s.AddModule("accton_x")
		s.AddClient(0, 0x70)
		s.AddBus(2)
		if err := o.Install(context.Background()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "sonic_platform-1.0-py3-none-any.whl is not found") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("install fails", func(t *testing.T) {
		t.Parallel()
		install := "pip3 install " + DefaultWheelPath
		r := newRecordingRunner(map[string]types.ExitCode{pipShow: 1, install: 2})
		o, s, out, _ := newTestOrchestrator(t, r)
		s.AddModule("accton_x")
		s.AddClient(0, 0x70)
		s.AddBus(2)
		s.WriteFile(DefaultWheelPath, "")
		if err := o.Install(context.Background()); ExitCode(err) != 2 {
			t.Fatalf("Install() error = %v, want status 2", err)
		}
		if !strings.Contains(out.String(), "Error: Failed to install sonic_platform-1.0-py3-none-any.whl") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("install succeeds", func(t *testing.T) {
		t.Parallel()
		r := newRecordingRunner(map[string]types.ExitCode{pipShow: 1})
		o, s, out, _ := newTestOrchestrator(t, r)
		s.AddModule("accton_x")
		s.AddClient(0, 0x70)
		s.AddBus(2)
		s.WriteFile(DefaultWheelPath, "")
		if err := o.Install(context.Background()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "Successfully installed sonic_platform-1.0-py3-none-any.whl package") {
			t.Errorf("output = %q", out.String())
		}
	})
}

func TestDryRunRecordsPlan(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(map[string]types.ExitCode{pipShow: 1})
	o, s, _, _ := newTestOrchestrator(t, r, WithDryRun(true))
	if err := o.Install(context.Background()); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if !slices.Equal(r.calls, []string{pipShow}) {
		t.Errorf("real runner saw %v, want only the package probe", r.calls)
	}
	plan := o.Plan()
	if len(plan) == 0 || plan[0] != "modprobe ice" {
		t.Fatalf("plan = %v", plan)
	}
	if !slices.Contains(plan, "touch /tmp/device_threshold.json && chmod 666 /tmp/device_threshold.json") {
		t.Error("scratch creation missing from the plan")
	}
	if s.Exists("/tmp/device_threshold.json") {
		t.Error("dry run created a scratch file")
	}
}

func TestCancelledContextStopsSequence(t *testing.T) {
	t.Parallel()

	r := newRecordingRunner(nil)
	o, _, _, _ := newTestOrchestrator(t, r, WithForce(true))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := o.Install(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Install() error = %v, want context.Canceled", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("calls after cancel: %v", r.calls)
	}
}

func TestInstallOnFakeSysfs(t *testing.T) {
	t.Parallel()

	s := testutil.NewSysfs(t)
	s.AddBus(0, 68, 74, 76, 77, 78, 79, 84, 85)
	s.AddBusRange(2, 67)
	s.Mkdir("/sys/class/leds/as9817_64_led::loc")
	s.Mkdir("/sys/class/leds/as9817_64_led::alarm")

	var execs []string
	handler := func(_ context.Context, args []string) error {
		execs = append(execs, strings.Join(args, " "))
		if args[0] == "pip3" {
			return interp.ExitStatus(1)
		}
		return nil
	}
	runner := shell.NewVirtualRunner(shell.WithRoot(s.Root), shell.WithExecHandler(handler))

	var out bytes.Buffer
	o := New(AS9817(), WithRoot(s.Root), WithRunner(runner), WithOutput(&out), WithSettleDelay(0))
	if err := o.Install(context.Background()); err != nil {
		t.Fatalf("Install() error = %v\n%s", err, out.String())
	}

	if got := s.ReadFile("/sys/bus/i2c/devices/i2c-65/new_device"); got != "optoe3 0x50\n" {
		t.Errorf("i2c-65/new_device = %q", got)
	}
	if got := s.ReadFile("/sys/bus/i2c/devices/i2c-66/new_device"); got != "optoe2 0x50\n" {
		t.Errorf("i2c-66/new_device = %q", got)
	}
	if got := s.ReadFile("/sys/class/leds/as9817_64_led::alarm/brightness"); got != "0\n" {
		t.Errorf("alarm brightness = %q", got)
	}
	if !slices.Contains(execs, "i2cset -f -y 0 0x60 0x0f 0x03") || !slices.Contains(execs, "modprobe accton_as9817_64_led") {
		t.Errorf("exec calls = %v", execs)
	}
	if !s.Exists("/tmp/device_threshold.json.lock") {
		t.Error("lock scratch file not created")
	}
}

func commands(steps []Step) []string {
	out := make([]string, 0, len(steps))
	for _, st := range steps {
		out = append(out, st.Command)
	}
	return out
}
