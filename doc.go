// Package serial streams newline-delimited text from a serial device to a
// writer for a bounded amount of time.
//
// A session opens one port, then repeatedly waits up to a short per-read
// timeout for a line, prints it with its trailing "\r"/"\n" removed and
// checks two stop conditions: the session timeout has elapsed, or the line
// equals the sentinel (default "exit"). The device is never written to.
//
// Features:
//   - Several port drivers behind one Port interface: go.bug.st/serial
//     (default), tarm, goburrow and a raw termios/poll driver on Linux
//   - Line framing with a per-read deadline, returning partial data on timeout
//   - Invalid UTF-8 is skipped, or fatal with Config.StrictUTF8
//   - Injectable clock for deterministic tests
//
// Example usage:
//
//	cfg := serial.DefaultConfig()
//	cfg.Device = "/dev/ttyUSB0"
//	cfg.BaudRate = 115200
//	cfg.Timeout = 30 * time.Second
//
//	res, err := serial.Session(context.Background(), cfg, os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("stopped:", res.Reason)
//
// A session over an already open Port:
//
//	port, err := serial.Open(cfg)
//	if err != nil {
//	    // errors.Is(err, serial.ErrDeviceUnavailable) is true here
//	    log.Fatal(err)
//	}
//	res, err := serial.NewMonitor(cfg, port, os.Stdout).Run(ctx)
package serial
