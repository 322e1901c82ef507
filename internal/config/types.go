// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ContainerEngineDocker uses Docker to reach the service container.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman uses Podman to reach the service container.
	ContainerEnginePodman ContainerEngine = "podman"

	// ShellVirtual runs directives in the embedded mvdan/sh interpreter.
	// Defined locally to avoid coupling config to internal/shell.
	ShellVirtual ShellMode = "virtual"
	// ShellNative runs directives through the host /bin/sh.
	ShellNative ShellMode = "native"

	// DefaultServiceContainer is the container that owns the platform API.
	DefaultServiceContainer = "pmon"
	// DefaultServicePython is the interpreter used inside the service container.
	DefaultServicePython = "python3"
	// DefaultServiceTimeout bounds each remote threshold exchange.
	DefaultServiceTimeout = 30 * time.Second
	// DefaultSettleDelay is the wait after each mux device is created.
	DefaultSettleDelay = time.Second
	// DefaultWheelPackage is the platform API package name.
	DefaultWheelPackage = "sonic-platform"
	// DefaultWheelPath is where the platform API wheel is shipped.
	DefaultWheelPath = "/usr/share/sonic/device/x86_64-accton_as9817_64o_nb-r0/sonic_platform-1.0-py3-none-any.whl"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidShellMode is returned when a ShellMode value is not recognized.
	ErrInvalidShellMode = errors.New("invalid shell mode")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine specifies which container CLI to use.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	// It wraps ErrInvalidContainerEngine for errors.Is() compatibility.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// ShellMode specifies how topology directives are executed.
	ShellMode string

	// InvalidShellModeError is returned when a ShellMode value is not recognized.
	InvalidShellModeError struct {
		Value ShellMode
	}

	// InvalidConfigError collects every field that failed validation.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ContainerEngine selects docker or podman for the service container.
		ContainerEngine ContainerEngine `json:"container_engine" mapstructure:"container_engine"`
		// Shell selects the directive runner.
		Shell ShellMode `json:"shell" mapstructure:"shell"`
		// SysfsRoot prefixes every sysfs and scratch path. "/" is the live system.
		SysfsRoot string `json:"sysfs_root" mapstructure:"sysfs_root"`
		// SettleDelay is the wait after each mux device is created.
		SettleDelay time.Duration `json:"settle_delay" mapstructure:"settle_delay"`
		// Service describes the container that hosts the platform API.
		Service ServiceConfig `json:"service" mapstructure:"service"`
		// Wheel describes the platform API package installed last.
		Wheel WheelConfig `json:"wheel" mapstructure:"wheel"`
	}

	// ServiceConfig configures access to the platform service container.
	ServiceConfig struct {
		Container string        `json:"container" mapstructure:"container"`
		Python    string        `json:"python" mapstructure:"python"`
		Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	}

	// WheelConfig names the platform API package and its wheel file.
	WheelConfig struct {
		Package string `json:"package" mapstructure:"package"`
		Path    string `json:"path" mapstructure:"path"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: ContainerEngineDocker,
		Shell:           ShellVirtual,
		SysfsRoot:       "/",
		SettleDelay:     DefaultSettleDelay,
		Service: ServiceConfig{
			Container: DefaultServiceContainer,
			Python:    DefaultServicePython,
			Timeout:   DefaultServiceTimeout,
		},
		Wheel: WheelConfig{
			Package: DefaultWheelPackage,
			Path:    DefaultWheelPath,
		},
	}
}

// String returns the engine name.
func (e ContainerEngine) String() string { return string(e) }

// Validate returns an error if the engine is not docker or podman.
func (e ContainerEngine) Validate() error {
	switch e {
	case ContainerEngineDocker, ContainerEnginePodman:
		return nil
	default:
		return &InvalidContainerEngineError{Value: e}
	}
}

// Error implements the error interface.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: docker, podman)", e.Value)
}

// Unwrap returns ErrInvalidContainerEngine for errors.Is() compatibility.
func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// String returns the mode name.
func (m ShellMode) String() string { return string(m) }

// Validate returns an error if the mode is not virtual or native.
func (m ShellMode) Validate() error {
	switch m {
	case ShellVirtual, ShellNative:
		return nil
	default:
		return &InvalidShellModeError{Value: m}
	}
}

// Error implements the error interface.
func (e *InvalidShellModeError) Error() string {
	return fmt.Sprintf("invalid shell mode %q (valid: virtual, native)", e.Value)
}

// Unwrap returns ErrInvalidShellMode for errors.Is() compatibility.
func (e *InvalidShellModeError) Unwrap() error { return ErrInvalidShellMode }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the constraints the CUE schema cannot express after
// defaults have been merged in.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ContainerEngine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Shell.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !filepath.IsAbs(c.SysfsRoot) {
		errs = append(errs, fmt.Errorf("sysfs_root %q must be absolute", c.SysfsRoot))
	}
	if c.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("settle_delay %s must not be negative", c.SettleDelay))
	}
	if c.Service.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("service.timeout %s must be positive", c.Service.Timeout))
	}
	if strings.TrimSpace(c.Service.Container) == "" {
		errs = append(errs, errors.New("service.container must not be empty"))
	}
	if strings.TrimSpace(c.Service.Python) == "" {
		errs = append(errs, errors.New("service.python must not be empty"))
	}
	if strings.TrimSpace(c.Wheel.Package) == "" {
		errs = append(errs, errors.New("wheel.package must not be empty"))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}
