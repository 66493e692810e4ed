package serial

import (
	"errors"
	"fmt"

	goburrow "github.com/goburrow/serial"
)

// goburrowPort adapts github.com/goburrow/serial, which reports an expired
// read timeout as ErrTimeout.
type goburrowPort struct {
	port goburrow.Port
}

func openGoburrow(cfg Config) (Port, error) {
	port, err := goburrow.Open(&goburrow.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return &goburrowPort{port: port}, nil
}

func (p *goburrowPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if errors.Is(err, goburrow.ErrTimeout) {
		return n, nil
	}
	return n, err
}

func (p *goburrowPort) Close() error {
	return p.port.Close()
}
