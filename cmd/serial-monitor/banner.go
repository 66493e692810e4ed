package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	serial "github.com/luhtfiimanal/go-serial-monitor"
)

const title = `
 ___          _      _   __  __           _ _
/ __| ___ _ _(_)__ _| | |  \/  |___ _ _  (_) |_ ___ _ _
\__ \/ -_) '_| / _' | | | |\/| / _ \ ' \ | |  _/ _ \ '_|
|___/\___|_| |_\__,_|_| |_|  |_\___/_||_||_|\__\___/_|
`

func printBanner(w io.Writer, cfg serial.Config) {
	_, _ = color.New(color.FgRed).Fprintln(w, title)
	_, _ = fmt.Fprintf(w, "Port : %s, Baudrate : %d, timeout = %d\n",
		cfg.Device, cfg.BaudRate, int(cfg.Timeout/time.Second))
}
