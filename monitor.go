package serial

import (
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// State of a Monitor. The only transition is Listening -> Stopped.
type State int

// States of a Monitor.
const (
	Idle State = iota
	Listening
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StopReason tells why a Monitor left the Listening state.
type StopReason int

// Reasons a Monitor stops. StopNone means it has not stopped.
const (
	StopNone StopReason = iota
	StopTimeout
	StopSentinel
	StopInterrupted
	StopError
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopTimeout:
		return "timeout"
	case StopSentinel:
		return "sentinel"
	case StopInterrupted:
		return "interrupted"
	case StopError:
		return "error"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Result summarises a finished session.
type Result struct {
	Reason  StopReason
	Lines   int
	Skipped int
	Elapsed time.Duration
}

// Option configures a Monitor in NewMonitor.
type Option func(*Monitor)

// WithClock replaces the real clock, mostly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Monitor) {
		m.clock = clock
	}
}

// Monitor prints every line received from a Port until the session
// timeout elapses or the sentinel line arrives. It owns the Port and
// closes it when Run returns.
type Monitor struct {
	port  Port
	out   io.Writer
	clock clockwork.Clock
	lines *LineReader
	cfg   Config
	state State
}

// NewMonitor returns a Monitor in the Idle state that reads from port and
// prints lines to out. A zero ReadTimeout or Sentinel in cfg takes the default.
func NewMonitor(cfg Config, port Port, out io.Writer, opts ...Option) *Monitor {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Sentinel == "" {
		cfg.Sentinel = DefaultSentinel
	}

	m := &Monitor{
		cfg:   cfg,
		port:  port,
		out:   out,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lines = NewLineReader(port, cfg.ReadTimeout, m.clock)
	return m
}

// State reports where the Monitor is in its lifecycle.
func (m *Monitor) State() State {
	return m.state
}

// Run reads until a stop condition holds. Timeout, sentinel and a cancelled
// ctx are graceful and return a nil error. ctx is checked after each read
// attempt, so cancellation lands within one per-read timeout.
func (m *Monitor) Run(ctx context.Context) (Result, error) {
	if m.state != Idle {
		return Result{}, errAlreadyRun
	}
	defer m.closePort()

	res := Result{}
	start := m.clock.Now()
	m.state = Listening
	stop := func(reason StopReason) {
		m.state = Stopped
		res.Reason = reason
		res.Elapsed = m.clock.Since(start)
	}

	for m.state == Listening {
		if m.clock.Since(start) >= m.cfg.Timeout {
			stop(StopTimeout)
			break
		}

		reason, err := m.step(&res)
		if err != nil {
			stop(StopError)
			return res, err
		}
		if reason != StopNone {
			stop(reason)
			break
		}

		if ctx.Err() != nil {
			stop(StopInterrupted)
		}
	}

	log.Info().
		Stringer("reason", res.Reason).
		Int("lines", res.Lines).
		Int("skipped", res.Skipped).
		Dur("elapsed", res.Elapsed).
		Msg("serial monitor stopped")
	return res, nil
}

// step performs exactly one read attempt and handles what it returned.
func (m *Monitor) step(res *Result) (StopReason, error) {
	chunk, err := m.lines.ReadLine()
	if err != nil {
		return StopError, fmt.Errorf("failed to read from serial port: %w", err)
	}
	if len(chunk) == 0 {
		return StopNone, nil
	}

	if !utf8.Valid(chunk) {
		if m.cfg.StrictUTF8 {
			return StopError, &DecodeError{Data: chunk}
		}
		res.Skipped++
		log.Warn().Int("bytes", len(chunk)).Msg("skipping chunk that is not valid UTF-8")
		return StopNone, nil
	}

	line := StripLineEnding(string(chunk))
	if _, err := fmt.Fprintln(m.out, line); err != nil {
		return StopError, fmt.Errorf("failed to write line: %w", err)
	}
	res.Lines++

	if line == m.cfg.Sentinel {
		return StopSentinel, nil
	}
	return StopNone, nil
}

func (m *Monitor) closePort() {
	if err := m.port.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close serial port")
	}
}

// Session opens cfg.Device and runs a Monitor over it, writing lines to out.
func Session(ctx context.Context, cfg Config, out io.Writer, opts ...Option) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	port, err := Open(cfg)
	if err != nil {
		return Result{}, err
	}
	return NewMonitor(cfg, port, out, opts...).Run(ctx)
}
