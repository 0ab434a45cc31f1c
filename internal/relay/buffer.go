package relay

// Capacity is the number of frame slots in a FrameBuffer.
const Capacity = 16

// slotSize bounds a stored payload. Matches the serial read buffer so any
// frame the port can deliver fits in a slot.
const slotSize = 256

// FrameBuffer is a fixed-capacity holding area for frames awaiting
// delivery. It is owned by the Coordinator and must only be touched while
// holding the Coordinator's mutex; it performs no locking of its own.
//
// Slots are arena-backed: TryPush copies the payload in, so callers may
// reuse their read buffer immediately.
type FrameBuffer struct {
	slots [Capacity][slotSize]byte
	sizes [Capacity]int
	count int
}

// TryPush appends frame to the next free slot. It returns false when the
// buffer is full, in which case the caller is expected to discard the frame
// and flush the source's pending input.
func (b *FrameBuffer) TryPush(frame []byte) bool {
	if b.count == Capacity {
		return false
	}
	n := copy(b.slots[b.count][:], frame)
	b.sizes[b.count] = n
	b.count++
	return true
}

// DrainAll takes an atomic snapshot of every pending frame, in arrival
// order, and resets the buffer to empty. The returned payloads are copies
// and stay valid after the Coordinator's mutex is released.
func (b *FrameBuffer) DrainAll() [][]byte {
	if b.count == 0 {
		return nil
	}
	frames := make([][]byte, b.count)
	for i := 0; i < b.count; i++ {
		frame := make([]byte, b.sizes[i])
		copy(frame, b.slots[i][:b.sizes[i]])
		frames[i] = frame
	}
	b.count = 0
	return frames
}

// Empty reports whether no frames are pending.
func (b *FrameBuffer) Empty() bool {
	return b.count == 0
}

// Len returns the number of pending frames.
func (b *FrameBuffer) Len() int {
	return b.count
}
