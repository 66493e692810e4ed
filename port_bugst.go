package serial

import (
	"errors"
	"fmt"

	bugst "go.bug.st/serial"
)

func openBugst(cfg Config) (Port, error) {
	port, err := bugst.Open(cfg.Device, &bugst.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		var perr *bugst.PortError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%s: %w", perr.EncodedErrorString(), err)
		}
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}
	return port, nil
}
