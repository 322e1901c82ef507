// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidI2CAddress is the sentinel error wrapped by InvalidI2CAddressError.
	ErrInvalidI2CAddress = errors.New("invalid i2c address")

	// ErrInvalidI2CBus is the sentinel error wrapped by InvalidI2CBusError.
	ErrInvalidI2CBus = errors.New("invalid i2c bus")
)

type (
	// I2CAddress is a 7-bit I2C slave address. Addresses 0x00-0x07 and
	// 0x78-0x7f are reserved by the bus protocol, except that the platform's
	// FPGA relay mux answers at 0x78, so the accepted range is 0x08-0x78.
	I2CAddress uint8

	// InvalidI2CAddressError is returned when an I2CAddress is outside the
	// accepted range.
	InvalidI2CAddressError struct {
		Value I2CAddress
	}

	// I2CBus is the number N of a /sys/bus/i2c/devices/i2c-N adapter.
	I2CBus int

	// InvalidI2CBusError is returned when an I2CBus is negative.
	InvalidI2CBusError struct {
		Value I2CBus
	}
)

// String renders the address the way the kernel's new_device and
// delete_device attributes expect it (e.g. "0x50").
func (a I2CAddress) String() string { return fmt.Sprintf("0x%02x", uint8(a)) }

// Validate returns an error if the address is reserved.
func (a I2CAddress) Validate() error {
	if a < 0x08 || a > 0x78 {
		return &InvalidI2CAddressError{Value: a}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidI2CAddressError) Error() string {
	return fmt.Sprintf("invalid i2c address %s (must be in range 0x08-0x78)", e.Value)
}

// Unwrap returns ErrInvalidI2CAddress for errors.Is() compatibility.
func (e *InvalidI2CAddressError) Unwrap() error { return ErrInvalidI2CAddress }

// ParseI2CAddress parses a hexadecimal ("0x50") or decimal address.
func ParseI2CAddress(s string) (I2CAddress, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidI2CAddress, s, err)
	}
	addr := I2CAddress(v)
	if err := addr.Validate(); err != nil {
		return 0, err
	}
	return addr, nil
}

// String returns the adapter name, e.g. "i2c-76".
func (b I2CBus) String() string { return "i2c-" + strconv.Itoa(int(b)) }

// Validate returns an error if the bus number is negative.
func (b I2CBus) Validate() error {
	if b < 0 {
		return &InvalidI2CBusError{Value: b}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidI2CBusError) Error() string {
	return fmt.Sprintf("invalid i2c bus %d: must not be negative", int(e.Value))
}

// Unwrap returns ErrInvalidI2CBus for errors.Is() compatibility.
func (e *InvalidI2CBusError) Unwrap() error { return ErrInvalidI2CBus }
