//go:build linux
// +build linux

package serial

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Error definitions for serial port setup and I/O issues.
var (
	ErrUnsupportedBaudRate = errors.New("unsupported baud rate")
	ErrPortClosed          = errors.New("serial port closed by peer")
)

// baudFlags maps configurable line speeds to their termios constants.
var baudFlags = map[int]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1000000: unix.B1000000,
}

// SupportsBaudRate reports whether rate can be programmed on the line.
func SupportsBaudRate(rate int) bool {
	_, ok := baudFlags[rate]
	return ok
}

// Port owns a serial device configured for delimited MIDI frame capture.
//
// The device runs in canonical mode with Delimiter as the end-of-line byte,
// so every successful read returns exactly one frame. A self-pipe lets
// another goroutine interrupt a pending readiness wait without waiting out
// the poll timeout.
type Port struct {
	fd    int
	path  string
	wakeR int
	wakeW int
}

// Open opens and configures the serial device at path.
//
// The line is set to baudRate 8N1, local mode with flow control ignored,
// and canonical discipline with Delimiter acting as the frame terminator;
// every other special control character is mapped to a value that cannot
// appear in input. Applying the configuration flushes stale input.
func Open(path string, baudRate int) (*Port, error) {
	speed, ok := baudFlags[baudRate]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, baudRate)
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", path, err)
	}

	if err := configure(fd, speed); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("configure serial port %q: %w", path, err)
	}

	return newPort(fd, path)
}

// newPort wraps an already-open descriptor and attaches the wake pipe.
func newPort(fd int, path string) (*Port, error) {
	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("create wake pipe: %w", err)
	}
	return &Port{fd: fd, path: path, wakeR: pipe[0], wakeW: pipe[1]}, nil
}

// configure programs the canonical-mode line discipline onto fd.
func configure(fd int, speed uint32) error {
	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get attributes: %w", err)
	}

	tio.Cflag = unix.CLOCAL | unix.CREAD | unix.CS8 | speed
	tio.Iflag = unix.IGNCR | unix.IGNPAR | unix.IGNBRK
	tio.Lflag = unix.ICANON
	tio.Oflag = 0
	tio.Ispeed = speed
	tio.Ospeed = speed

	// The delimiter is the only line terminator; every other special
	// character is mapped to a value the controller never transmits.
	tio.Cc[unix.VEOL] = Delimiter
	tio.Cc[unix.VEOL2] = Delimiter
	for _, cc := range []int{
		unix.VEOF, unix.VERASE, unix.VKILL,
		unix.VLNEXT, unix.VREPRINT, unix.VWERASE,
	} {
		tio.Cc[cc] = 0xFE
	}

	// TCSETSF applies the attributes and discards pending input, the
	// TCSAFLUSH behavior.
	if err := unix.IoctlSetTermios(fd, unix.TCSETSF, tio); err != nil {
		return fmt.Errorf("set attributes: %w", err)
	}

	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH); err != nil {
		return fmt.Errorf("flush input: %w", err)
	}

	return nil
}

// Name returns the device path the port was opened with.
func (p *Port) Name() string {
	return p.path
}

// WaitReadable blocks until the device has a complete frame ready, the
// timeout elapses, or Wake is called. It returns true only when the device
// is readable; wake-ups and timeouts both return (false, nil) so the caller
// can re-check its stop condition and poll again.
func (p *Port) WaitReadable(timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{
		{Fd: int32(p.fd), Events: unix.POLLIN},
		{Fd: int32(p.wakeR), Events: unix.POLLIN},
	}

	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, fmt.Errorf("poll serial port %q: %w", p.path, err)
	}
	if n == 0 {
		return false, nil
	}

	if fds[1].Revents&unix.POLLIN != 0 {
		p.drainWakePipe()
		return false, nil
	}
	if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return false, fmt.Errorf("poll serial port %q: %w", p.path, ErrPortClosed)
	}
	return fds[0].Revents&unix.POLLIN != 0, nil
}

// ReadFrame reads one delimited frame into buf and returns the number of
// bytes read, trailing delimiter included. Canonical mode guarantees the
// read does not block once WaitReadable reported readiness.
func (p *Port) ReadFrame(buf []byte) (int, error) {
	for {
		n, err := unix.Read(p.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read serial port %q: %w", p.path, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("read serial port %q: %w", p.path, ErrPortClosed)
		}
		return n, nil
	}
}

// FlushInput discards everything pending in the device input queue. Called
// after a frame is dropped so stale bytes are not re-read.
func (p *Port) FlushInput() error {
	if err := unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH); err != nil {
		return fmt.Errorf("flush serial port %q: %w", p.path, err)
	}
	return nil
}

// Wake interrupts a pending WaitReadable. Safe to call from any goroutine
// and safe to call more than once.
func (p *Port) Wake() {
	// Non-blocking write; a full pipe already guarantees a pending wake.
	_, _ = unix.Write(p.wakeW, []byte{0})
}

func (p *Port) drainWakePipe() {
	var scratch [16]byte
	for {
		n, err := unix.Read(p.wakeR, scratch[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases the device and the wake pipe.
func (p *Port) Close() error {
	var err error
	for _, fd := range []int{p.fd, p.wakeR, p.wakeW} {
		if cerr := unix.Close(fd); cerr != nil {
			err = multierr.Append(err, cerr)
		}
	}
	return err
}
