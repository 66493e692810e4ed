// Command serial-monitor prints newline-delimited text received on a serial
// port until a timeout elapses or the device sends "exit".
//
//	serial-monitor --port=/dev/ttyUSB0
//	serial-monitor -p COM3 -b 115200 -t 30
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newApp()).ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
