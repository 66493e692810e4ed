package serial

import (
	"errors"
	"fmt"
	"io"

	tarm "github.com/tarm/serial"
)

// tarmPort adapts github.com/tarm/serial, whose posix reads report an
// expired VTIME as io.EOF.
type tarmPort struct {
	port *tarm.Port
}

func openTarm(cfg Config) (Port, error) {
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        cfg.Device,
		Baud:        cfg.BaudRate,
		ReadTimeout: clampTimeout(cfg.ReadTimeout),
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return &tarmPort{port: port}, nil
}

func (p *tarmPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

func (p *tarmPort) Close() error {
	return p.port.Close()
}
