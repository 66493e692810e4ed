package serial

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
)

const readChunkSize = 4096

// timeoutSetter is implemented by ports whose per-read timeout can change
// between reads, such as go.bug.st/serial ports and the native driver.
type timeoutSetter interface {
	SetReadTimeout(t time.Duration) error
}

// LineReader frames a Port into newline-terminated chunks.
type LineReader struct {
	port        Port
	clock       clockwork.Clock
	readTimeout time.Duration
	current     time.Duration // timeout last set on the port
	buf         []byte
	scratch     []byte
	held        bool // buf starts with a rune tail kept back by the last flush
}

// NewLineReader returns a LineReader over port. A nil clock means the real clock.
func NewLineReader(port Port, readTimeout time.Duration, clock clockwork.Clock) *LineReader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &LineReader{
		port:        port,
		clock:       clock,
		readTimeout: readTimeout,
		current:     readTimeout,
		scratch:     make([]byte, readChunkSize),
	}
}

// ReadLine returns the next chunk up to and including '\n'. If no newline
// arrives before the per-read timeout it returns whatever was buffered,
// which may be empty. Bytes after the newline are kept for the next call.
//
// A call never waits longer than the per-read timeout in total. Ports that
// can change their timeout get the remaining time for follow-up reads;
// other ports get no follow-up read once any time has passed.
func (r *LineReader) ReadLine() ([]byte, error) {
	if line, ok := r.take(); ok {
		return line, nil
	}

	setter, canShorten := r.port.(timeoutSetter)
	deadline := r.clock.Now().Add(r.readTimeout)
	wait := r.readTimeout
	for {
		if canShorten {
			if err := r.setTimeout(setter, wait); err != nil {
				return nil, err
			}
		}

		n, err := r.port.Read(r.scratch)
		if n > 0 {
			r.buf = append(r.buf, r.scratch[:n]...)
		}
		if err != nil {
			return nil, err
		}
		if line, ok := r.take(); ok {
			return line, nil
		}
		if n == 0 {
			return r.flush(), nil
		}

		wait = deadline.Sub(r.clock.Now())
		if wait <= 0 || (!canShorten && wait < r.readTimeout) {
			return r.flush(), nil
		}
	}
}

func (r *LineReader) setTimeout(setter timeoutSetter, t time.Duration) error {
	if t == r.current {
		return nil
	}
	if err := setter.SetReadTimeout(t); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	r.current = t
	return nil
}

// Buffered reports how many received bytes are waiting for a newline.
func (r *LineReader) Buffered() int {
	return len(r.buf)
}

func (r *LineReader) take() ([]byte, bool) {
	idx := bytes.IndexByte(r.buf, '\n')
	if idx < 0 {
		return nil, false
	}
	line := append([]byte(nil), r.buf[:idx+1]...)
	r.buf = append(r.buf[:0], r.buf[idx+1:]...)
	r.held = false
	return line, true
}

// flush empties the buffer except for an incomplete trailing rune, which
// waits for its remaining bytes. A tail held back once is given up on the
// next flush if nothing else arrived.
func (r *LineReader) flush() []byte {
	keep := incompleteRuneTail(r.buf)
	if keep == len(r.buf) && r.held {
		keep = 0
	}
	r.held = keep > 0

	cut := len(r.buf) - keep
	var line []byte
	if cut > 0 {
		line = append([]byte(nil), r.buf[:cut]...)
	}
	r.buf = append(r.buf[:0], r.buf[cut:]...)
	return line
}

// incompleteRuneTail returns how many bytes at the end of b start a UTF-8
// rune that is still missing bytes.
func incompleteRuneTail(b []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if utf8.FullRune(b[len(b)-i:]) {
				return 0
			}
			return i
		}
	}
	return 0
}

// StripLineEnding removes every trailing '\r' and '\n' from s.
func StripLineEnding(s string) string {
	return strings.TrimRight(s, "\r\n")
}
