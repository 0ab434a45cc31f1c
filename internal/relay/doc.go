// Package relay implements the two-goroutine pipeline copying MIDI frames
// from a serial source to a MIDI output sink.
//
// A Coordinator runs one producer (serial capture) and one consumer (output
// delivery) over a fixed-capacity FrameBuffer, so a slow or blocking output
// write never stalls serial capture and vice versa. The buffer is guarded by
// a single mutex and a condition variable; when the buffer is full the
// producer drops the frame and flushes the serial input queue rather than
// backpressuring capture. Shutdown is cooperative: a monotonic flag observed
// by both loops at their boundaries, with the producer guaranteed to signal
// the consumer on every exit path so neither side can hang the join.
package relay
