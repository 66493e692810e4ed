package serial

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Driver names accepted in Config.Driver.
const (
	DriverBugst    = "bugst"
	DriverTarm     = "tarm"
	DriverGoburrow = "goburrow"
	DriverNative   = "native"
)

// Port is a read-only byte stream from a serial device. A Read that waits
// out the per-read timeout without receiving anything returns (0, nil).
// Ports that also have SetReadTimeout(time.Duration) error get shorter
// follow-up reads from LineReader, so a call never outlasts the timeout.
type Port interface {
	Read(p []byte) (n int, err error)
	Close() error
}

// OpenFunc opens a device for one driver. cfg.ReadTimeout is always set.
type OpenFunc func(cfg Config) (Port, error)

var drivers = map[string]OpenFunc{
	DriverBugst:    openBugst,
	DriverTarm:     openTarm,
	DriverGoburrow: openGoburrow,
	DriverNative:   openNative,
}

// Drivers returns the names of the available drivers, sorted.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens cfg.Device with 8N1 framing at cfg.BaudRate using cfg.Driver.
// Every error it returns matches ErrDeviceUnavailable.
func Open(cfg Config) (Port, error) {
	if cfg.Driver == "" {
		cfg.Driver = DefaultDriver
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	open, ok := drivers[cfg.Driver]
	if !ok {
		return nil, &DeviceError{
			Device: cfg.Device,
			Driver: cfg.Driver,
			Err:    fmt.Errorf("unknown driver %q", cfg.Driver),
		}
	}
	if cfg.Device == "" {
		return nil, &DeviceError{Driver: cfg.Driver, Err: fmt.Errorf("no device given")}
	}
	if cfg.BaudRate <= 0 {
		return nil, &DeviceError{
			Device: cfg.Device,
			Driver: cfg.Driver,
			Err:    fmt.Errorf("invalid baud rate %d", cfg.BaudRate),
		}
	}

	port, err := open(cfg)
	if err != nil {
		return nil, &DeviceError{Device: cfg.Device, Driver: cfg.Driver, Err: err}
	}

	log.Debug().
		Str("device", cfg.Device).
		Str("driver", cfg.Driver).
		Int("baudrate", cfg.BaudRate).
		Dur("read_timeout", cfg.ReadTimeout).
		Msg("opened serial port")
	return port, nil
}

// clampTimeout keeps a per-read timeout within what termios VTIME can
// express: tenths of a second, 1 to 255.
func clampTimeout(d time.Duration) time.Duration {
	switch {
	case d < 100*time.Millisecond:
		return 100 * time.Millisecond
	case d > 25500*time.Millisecond:
		return 25500 * time.Millisecond
	default:
		return d
	}
}
