package serial

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable is matched by every error returned from Open: the
	// port is missing, busy, not permitted or the driver is unknown.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrDecode is returned by Monitor.Run in strict mode when a received
	// chunk is not valid UTF-8.
	ErrDecode = errors.New("received data is not valid UTF-8")

	errAlreadyRun = errors.New("monitor already ran")
)

// DeviceError describes a failed attempt to open a serial device.
type DeviceError struct {
	Device string
	Driver string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("open %s (%s driver): %v", e.Device, e.Driver, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is reports DeviceError as ErrDeviceUnavailable regardless of its cause.
func (*DeviceError) Is(target error) bool {
	return target == ErrDeviceUnavailable
}

// DecodeError carries the offending chunk when strict decoding fails.
type DecodeError struct {
	Data []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: %q", ErrDecode, e.Data)
}

// Is reports DecodeError as ErrDecode.
func (*DecodeError) Is(target error) bool {
	return target == ErrDecode
}
