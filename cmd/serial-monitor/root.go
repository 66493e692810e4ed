package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	serial "github.com/luhtfiimanal/go-serial-monitor"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type options struct {
	port       string
	sentinel   string
	driver     string
	configFile string
	logFile    string
	baudrate   int
	timeout    int
	strictUTF8 bool
	list       bool
	debug      bool
	noBanner   bool
}

// app holds everything the command touches outside the process, so tests
// can swap it.
type app struct {
	stdout      io.Writer
	stderr      io.Writer
	fs          afero.Fs
	openPort    func(serial.Config) (serial.Port, error)
	listPorts   func() ([]string, error)
	monitorOpts []serial.Option
}

func newApp() *app {
	return &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		fs:        afero.NewOsFs(),
		openPort:  serial.Open,
		listPorts: serial.ListPorts,
	}
}

func newRootCmd(a *app) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "serial-monitor",
		Short:         "Read serial data from a serial port",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, opts)
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.port, "port", "p", "", "serial port name (required)")
	flags.IntVarP(&opts.baudrate, "baudrate", "b", serial.DefaultBaudRate, "serial baud rate in bits/sec")
	flags.IntVarP(&opts.timeout, "timeout", "t", int(serial.DefaultTimeout/time.Second), "serial loop timeout in seconds")
	flags.StringVar(&opts.sentinel, "sentinel", serial.DefaultSentinel, "line that ends the session")
	flags.StringVar(&opts.driver, "driver", serial.DefaultDriver, fmt.Sprintf("port driver, one of %v", serial.Drivers()))
	flags.BoolVar(&opts.strictUTF8, "strict-utf8", false, "stop with an error on data that is not valid UTF-8")
	flags.StringVar(&opts.configFile, "config", "", "TOML file with default settings")
	flags.BoolVar(&opts.list, "list", false, "list available serial ports and exit")
	flags.StringVar(&opts.logFile, "log-file", "", "also write diagnostics to this rotating log file")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&opts.noBanner, "no-banner", false, "do not print the title banner")

	return cmd
}

func (a *app) run(cmd *cobra.Command, opts *options) error {
	closeLog := setupLogging(a.stderr, opts.logFile, opts.debug)
	defer closeLog()

	if opts.list {
		return a.printPorts()
	}

	cfg, err := a.buildConfig(cmd, opts)
	if err != nil {
		return err
	}

	if !opts.noBanner {
		printBanner(a.stdout, cfg)
	}

	port, err := a.openPort(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// errors are printed once, by main
	_, err = serial.NewMonitor(cfg, port, a.stdout, a.monitorOpts...).Run(ctx)
	return err
}

// buildConfig layers explicit flags over the config file over defaults.
func (a *app) buildConfig(cmd *cobra.Command, opts *options) (serial.Config, error) {
	cfg := serial.DefaultConfig()
	if opts.configFile != "" {
		var err error
		cfg, err = serial.LoadConfigFile(a.fs, opts.configFile, cfg)
		if err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	use := func(name string) bool {
		return opts.configFile == "" || flags.Changed(name)
	}
	if use("port") {
		cfg.Device = opts.port
	}
	if use("baudrate") {
		cfg.BaudRate = opts.baudrate
	}
	if use("timeout") {
		cfg.Timeout = time.Duration(opts.timeout) * time.Second
	}
	if use("sentinel") {
		cfg.Sentinel = opts.sentinel
	}
	if use("driver") {
		cfg.Driver = opts.driver
	}
	if use("strict-utf8") {
		cfg.StrictUTF8 = opts.strictUTF8
	}

	if cfg.Device == "" {
		return cfg, errors.New(`required flag "port" not set`)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (a *app) printPorts() error {
	ports, err := a.listPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		_, _ = fmt.Fprintln(a.stdout, p)
	}
	return nil
}
