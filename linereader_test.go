package serial

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader_CompleteLine(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	port := newScriptedPort(clock, data("hello\r\n"))
	r := NewLineReader(port, time.Second, clock)

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hello\r\n", string(line))
	assert.Equal(t, 1, port.reads)
}

func TestLineReader_KeepsBytesAfterNewline(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	port := newScriptedPort(clock, data("a\nb\npart"))
	r := NewLineReader(port, time.Second, clock)

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(line))
	assert.Equal(t, 6, r.Buffered())

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "b\n", string(line))
	assert.Equal(t, 1, port.reads, "buffered line must not touch the port")

	// nothing more arrives: the partial tail is flushed on timeout
	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "part", string(line))
	assert.Equal(t, 0, r.Buffered())
}

func TestLineReader_JoinsSplitReads(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	port := newScriptedPort(clock, data("hel"), after(200*time.Millisecond, "lo\n"))
	r := NewLineReader(port, time.Second, clock)

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(line))
	assert.Equal(t, 2, port.reads)
}

func TestLineReader_EmptyOnTimeout(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	port := newScriptedPort(clock)
	r := NewLineReader(port, time.Second, clock)

	start := clock.Now()
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Empty(t, line)
	assert.Equal(t, time.Second, clock.Since(start))
}

// dripPort returns one byte per read and never a newline. Its read timeout
// is fixed, like a tarm or goburrow port.
type dripPort struct {
	clock *clockwork.FakeClock
	step  time.Duration
	reads int
}

func (p *dripPort) Read(b []byte) (int, error) {
	p.reads++
	p.clock.Advance(p.step)
	b[0] = 'x'
	return 1, nil
}

func (*dripPort) Close() error { return nil }

// timedDripPort is a dripPort that honours a changeable read timeout: a
// read shorter than step gives up with no data.
type timedDripPort struct {
	dripPort
	timeout time.Duration
}

func (p *timedDripPort) Read(b []byte) (int, error) {
	if p.step > p.timeout {
		p.reads++
		p.clock.Advance(p.timeout)
		return 0, nil
	}
	return p.dripPort.Read(b)
}

func (p *timedDripPort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func TestLineReader_FixedTimeoutPortReadsOnce(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	port := &dripPort{clock: clock, step: 300 * time.Millisecond}
	r := NewLineReader(port, time.Second, clock)

	start := clock.Now()
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "x", string(line))
	assert.Equal(t, 1, port.reads)
	assert.LessOrEqual(t, clock.Since(start), time.Second)
}

func TestLineReader_ShortensFollowUpReads(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	port := &timedDripPort{dripPort: dripPort{clock: clock, step: 300 * time.Millisecond}, timeout: time.Second}
	r := NewLineReader(port, time.Second, clock)

	start := clock.Now()
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "xxx", string(line))
	assert.Equal(t, 4, port.reads)
	assert.Equal(t, time.Second, clock.Since(start))
	assert.Equal(t, 100*time.Millisecond, port.timeout)

	// the next call starts with the full timeout again
	_, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, clock.Since(start))
}

func TestLineReader_SlowTrickleStaysWithinReadTimeout(t *testing.T) {
	t.Parallel()

	for _, shorten := range []bool{false, true} {
		clock := clockwork.NewFakeClock()
		drip := dripPort{clock: clock, step: 990 * time.Millisecond}
		var port Port = &drip
		if shorten {
			port = &timedDripPort{dripPort: drip, timeout: time.Second}
		}
		r := NewLineReader(port, time.Second, clock)

		for i := 0; i < 5; i++ {
			start := clock.Now()
			_, err := r.ReadLine()
			require.NoError(t, err)
			assert.LessOrEqual(t, clock.Since(start), time.Second, "shorten=%v call %d", shorten, i)
		}
	}
}

func TestLineReader_HoldsBackSplitRune(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	port := newScriptedPort(clock,
		data("caf\xc3"),
		after(1500*time.Millisecond, "\xa9\n"),
	)
	r := NewLineReader(port, time.Second, clock)

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "caf", string(line))
	assert.Equal(t, 1, r.Buffered())

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "\xc3\xa9\n", string(line))
}

func TestLineReader_GivesUpIncompleteRune(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	port := newScriptedPort(clock, data("\xe2\x82"))
	r := NewLineReader(port, time.Second, clock)

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Empty(t, line)
	assert.Equal(t, 2, r.Buffered())

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "\xe2\x82", string(line))
	assert.Equal(t, 0, r.Buffered())
}

func TestIncompleteRuneTail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{in: "", want: 0},
		{in: "abc", want: 0},
		{in: "caf\xc3\xa9", want: 0},
		{in: "caf\xc3", want: 1},
		{in: "\xe2\x82", want: 2},
		{in: "x\xf0\x9f\x98", want: 3},
		{in: "\xff", want: 0},
		{in: "\x82\x82\x82", want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, incompleteRuneTail([]byte(tt.in)), "input %q", tt.in)
	}
}

func TestLineReader_ReadError(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	boom := errors.New("device disconnected")
	port := newScriptedPort(clock, event{err: boom})
	r := NewLineReader(port, time.Second, clock)

	line, err := r.ReadLine()
	require.ErrorIs(t, err, boom)
	assert.Nil(t, line)
}

func TestStripLineEnding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "hello\r\n", want: "hello"},
		{in: "hello\n", want: "hello"},
		{in: "hello\n\r\n", want: "hello"},
		{in: "hello", want: "hello"},
		{in: "\r\n", want: ""},
		{in: "a\r\nb\n", want: "a\r\nb"},
		{in: "  spaced  \n", want: "  spaced  "},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripLineEnding(tt.in), "input %q", tt.in)
	}
}
