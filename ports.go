package serial

import (
	"fmt"

	bugst "go.bug.st/serial"
)

// ListPorts returns the serial ports found on this machine.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
