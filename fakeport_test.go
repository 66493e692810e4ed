package serial

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// event is one delivery from a scriptedPort: after delay, data or err.
type event struct {
	err   error
	data  []byte
	delay time.Duration
}

func data(s string) event {
	return event{data: []byte(s)}
}

func after(d time.Duration, s string) event {
	return event{delay: d, data: []byte(s)}
}

// scriptedPort plays events against a fake clock. Waiting, for an event's
// delay or for the read timeout when nothing is left, advances the clock the
// way a blocking read would. Like a go.bug.st/serial port its read timeout
// can be changed between reads.
type scriptedPort struct {
	clock       *clockwork.FakeClock
	events      []event
	readTimeout time.Duration
	timeouts    []time.Duration
	reads       int
	closed      int
}

func newScriptedPort(clock *clockwork.FakeClock, events ...event) *scriptedPort {
	return &scriptedPort{
		clock:       clock,
		events:      events,
		readTimeout: time.Second,
	}
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.reads++
	if len(p.events) == 0 {
		p.clock.Advance(p.readTimeout)
		return 0, nil
	}

	ev := p.events[0]
	if ev.delay > p.readTimeout {
		p.clock.Advance(p.readTimeout)
		p.events[0].delay -= p.readTimeout
		return 0, nil
	}

	p.clock.Advance(ev.delay)
	p.events = p.events[1:]
	if ev.err != nil {
		return 0, ev.err
	}
	return copy(b, ev.data), nil
}

func (p *scriptedPort) SetReadTimeout(t time.Duration) error {
	p.readTimeout = t
	p.timeouts = append(p.timeouts, t)
	return nil
}

func (p *scriptedPort) Close() error {
	p.closed++
	return nil
}
