package serial

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// Defaults used by DefaultConfig and NewMonitor.
const (
	DefaultBaudRate    = 9600
	DefaultTimeout     = 60 * time.Second
	DefaultReadTimeout = time.Second
	DefaultSentinel    = "exit"
	DefaultDriver      = DriverBugst
)

// Config holds the parameters of one monitoring session. It is copied by
// NewMonitor and never changed afterwards.
type Config struct {
	// Device is the port name, e.g. /dev/ttyUSB0 or COM3.
	Device   string `validate:"required"`
	BaudRate int    `validate:"gt=0"`
	// ReadTimeout bounds a single blocking read.
	ReadTimeout time.Duration `validate:"gt=0"`
	// Timeout is the wall-clock budget of the whole session.
	Timeout time.Duration `validate:"gt=0"`
	// Sentinel stops the session when received as a line.
	Sentinel string `validate:"required"`
	Driver   string `validate:"oneof=bugst tarm goburrow native"`
	// StrictUTF8 makes invalid UTF-8 fatal instead of skipping the chunk.
	StrictUTF8 bool
}

// DefaultConfig returns a Config with every field but Device set.
func DefaultConfig() Config {
	return Config{
		BaudRate:    DefaultBaudRate,
		ReadTimeout: DefaultReadTimeout,
		Timeout:     DefaultTimeout,
		Sentinel:    DefaultSentinel,
		Driver:      DefaultDriver,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and reports all violations at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// fileConfig mirrors the TOML config file. Unset keys leave the base value.
type fileConfig struct {
	Port       *string `toml:"port"`
	BaudRate   *int    `toml:"baudrate"`
	Timeout    *int    `toml:"timeout"`
	Sentinel   *string `toml:"sentinel"`
	Driver     *string `toml:"driver"`
	StrictUTF8 *bool   `toml:"strict_utf8"`
}

// LoadConfigFile reads a TOML file from fs and applies its keys on top of
// base. The result is not validated.
func LoadConfigFile(fs afero.Fs, path string, base Config) (Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return base, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg := base
	if fc.Port != nil {
		cfg.Device = *fc.Port
	}
	if fc.BaudRate != nil {
		cfg.BaudRate = *fc.BaudRate
	}
	if fc.Timeout != nil {
		cfg.Timeout = time.Duration(*fc.Timeout) * time.Second
	}
	if fc.Sentinel != nil {
		cfg.Sentinel = *fc.Sentinel
	}
	if fc.Driver != nil {
		cfg.Driver = *fc.Driver
	}
	if fc.StrictUTF8 != nil {
		cfg.StrictUTF8 = *fc.StrictUTF8
	}
	return cfg, nil
}
