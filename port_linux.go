//go:build linux

package serial

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var errPortClosed = errors.New("serial port closed")

// termiosPort reads a Linux tty in raw mode. Reads wait in poll(2) for at
// most the per-read timeout; a self-pipe lets Close wake a pending read.
type termiosPort struct {
	fd          int
	file        *os.File
	done        chan struct{}
	closeOnce   sync.Once
	readTimeout time.Duration
	pipeR       int // self-pipe read fd
	pipeW       int // self-pipe write fd
}

func openNative(cfg Config) (Port, error) {
	baud, err := baudToUnix(cfg.BaudRate)
	if err != nil {
		return nil, err
	}

	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode, 8N1
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud

	// poll(2) does the waiting, a read only runs once data is there
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &termiosPort{
		fd:          fd,
		file:        os.NewFile(uintptr(fd), cfg.Device),
		done:        make(chan struct{}),
		readTimeout: cfg.ReadTimeout,
		pipeR:       pipeFds[0],
		pipeW:       pipeFds[1],
	}, nil
}

// Read waits up to the per-read timeout for data. It returns (0, nil) when
// nothing arrived in time.
func (s *termiosPort) Read(p []byte) (int, error) {
	select {
	case <-s.done:
		return 0, errPortClosed
	default:
	}

	pfd := []unix.PollFd{
		{Fd: int32(s.fd), Events: unix.POLLIN},
		{Fd: int32(s.pipeR), Events: unix.POLLIN},
	}
	n, err := unix.Poll(pfd, int(s.readTimeout/time.Millisecond))
	if errors.Is(err, unix.EINTR) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("poll: %w", err)
	}
	select {
	case <-s.done:
		return 0, errPortClosed
	default:
	}
	if n == 0 {
		return 0, nil
	}
	if pfd[1].Revents&unix.POLLIN != 0 {
		return 0, errPortClosed
	}
	// POLLHUP and POLLERR fall through so the read reports the failure
	if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
		return s.file.Read(p)
	}
	return 0, nil
}

// SetReadTimeout changes how long the next Read waits for data.
func (s *termiosPort) SetReadTimeout(t time.Duration) error {
	if t <= 0 {
		return fmt.Errorf("invalid read timeout %s", t)
	}
	s.readTimeout = t
	return nil
}

// Close releases the tty and wakes a pending Read. Safe to call more than once.
func (s *termiosPort) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		unix.Write(s.pipeW, []byte{1})
		err = s.file.Close()
		unix.Close(s.pipeR)
		unix.Close(s.pipeW)
	})
	return err
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 1200:
		return unix.B1200, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 921600:
		return unix.B921600, nil
	default:
		return 0, fmt.Errorf("unsupported baud rate %d", baud)
	}
}
