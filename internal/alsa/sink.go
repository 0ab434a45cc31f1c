// Package alsa opens the system MIDI output port that captured frames are
// delivered to. It goes through gomidi's rtmidi driver, which owns the OS
// MIDI backend (ALSA on Linux), so raw payload bytes can be written
// verbatim, one write per frame.
package alsa

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
	"go.uber.org/zap"
)

// Error definitions for MIDI output issues.
var (
	ErrNoOutputPorts = errors.New("no MIDI output ports found")
	ErrPortNotFound  = errors.New("MIDI output port not found")
	ErrSinkClosed    = errors.New("MIDI output port closed")
)

// Sink owns an open MIDI output port.
type Sink struct {
	out    drivers.Out
	logger *zap.Logger
	closed bool
}

// Open resolves name against the available MIDI output ports and opens the
// match, failing immediately when the port is unavailable. An empty name
// selects the first available port.
func Open(name string, logger *zap.Logger) (*Sink, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return nil, ErrNoOutputPorts
	}

	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}

	idx, err := Match(names, name)
	if err != nil {
		return nil, err
	}

	out := outs[idx]
	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("open MIDI output port %q: %w", out.String(), err)
	}

	logger.Info("MIDI output port opened", zap.String("port", out.String()))
	return &Sink{out: out, logger: logger}, nil
}

// Match resolves want against the port names, preferring an exact match
// over a case-insensitive substring match. An empty want selects the first
// port.
func Match(names []string, want string) (int, error) {
	if len(names) == 0 {
		return -1, ErrNoOutputPorts
	}
	if want == "" {
		return 0, nil
	}
	for i, name := range names {
		if name == want {
			return i, nil
		}
	}
	lower := strings.ToLower(want)
	for i, name := range names {
		if strings.Contains(strings.ToLower(name), lower) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q (available: %s)",
		ErrPortNotFound, want, strings.Join(names, ", "))
}

// Ports lists the names of the available MIDI output ports.
func Ports() []string {
	outs := midi.GetOutPorts()
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	return names
}

// Write sends one frame's payload bytes to the port. Writing zero bytes is
// a no-op.
func (s *Sink) Write(frame []byte) error {
	if s.closed {
		return ErrSinkClosed
	}
	if len(frame) == 0 {
		return nil
	}
	if err := s.out.Send(frame); err != nil {
		return fmt.Errorf("send to MIDI output port %q: %w", s.out.String(), err)
	}
	return nil
}

// Close releases the output port and shuts the driver down.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.out.Close()
	midi.CloseDriver()
	if err != nil {
		return fmt.Errorf("close MIDI output port %q: %w", s.out.String(), err)
	}
	return nil
}
