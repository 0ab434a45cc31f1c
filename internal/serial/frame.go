// Package serial captures delimited MIDI frames from a serial device.
//
// The device is configured in canonical mode with the frame delimiter as
// the end-of-line byte, so each read returns exactly one frame. The package
// also owns the microcontroller's wire framing: the delimiter byte and the
// escape byte the payload decoder rewrites.
package serial

// Wire framing used by the microcontroller: each MIDI message is a run of
// bytes terminated by Delimiter. The delimiter never appears inside a
// payload; the controller instead transmits EscapeByte wherever the raw MIDI
// content contains Unescaped, and the receiver rewrites it back.
const (
	// Delimiter terminates every frame on the wire.
	Delimiter byte = 0xFF

	// EscapeByte is the STM32 internal-protocol stand-in byte.
	EscapeByte byte = 0xFA

	// Unescaped is the value EscapeByte decodes to.
	Unescaped byte = 0x0A

	// MaxPayload is the largest payload a single frame can carry.
	MaxPayload = 255

	// ReadBufferSize is the read buffer needed for one frame including
	// its trailing delimiter.
	ReadBufferSize = MaxPayload + 1
)

// Decode turns one raw frame as read from the line into its MIDI payload.
// The trailing delimiter, when present, is stripped, and every escape byte
// is rewritten in place. The returned slice aliases raw.
func Decode(raw []byte) []byte {
	if n := len(raw); n > 0 && raw[n-1] == Delimiter {
		raw = raw[:n-1]
	}
	for i, b := range raw {
		if b == EscapeByte {
			raw[i] = Unescaped
		}
	}
	return raw
}
