//go:build linux
// +build linux

package serial

import (
	"bytes"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// testPort builds a Port around the read end of a plain pipe so the poll,
// read, and wake paths can be exercised without a tty.
func testPort(t *testing.T) (*Port, int) {
	t.Helper()

	var pipe [2]int
	if err := unix.Pipe(pipe[:]); err != nil {
		t.Fatalf("pipe: %v", err)
	}

	p, err := newPort(pipe[0], "test")
	if err != nil {
		unix.Close(pipe[0])
		unix.Close(pipe[1])
		t.Fatalf("newPort: %v", err)
	}

	t.Cleanup(func() {
		p.Close()
		unix.Close(pipe[1])
	})
	return p, pipe[1]
}

func TestWaitReadableTimesOut(t *testing.T) {
	p, _ := testPort(t)

	start := time.Now()
	ready, err := p.WaitReadable(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("WaitReadable: %v", err)
	}
	if ready {
		t.Error("WaitReadable reported readiness on an idle descriptor")
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("WaitReadable returned after %v, expected it to wait out the timeout", elapsed)
	}
}

func TestWaitReadableSeesPendingData(t *testing.T) {
	p, w := testPort(t)

	if _, err := unix.Write(w, []byte{0x90, 0x3C, 0x64, Delimiter}); err != nil {
		t.Fatalf("write: %v", err)
	}

	ready, err := p.WaitReadable(time.Second)
	if err != nil {
		t.Fatalf("WaitReadable: %v", err)
	}
	if !ready {
		t.Fatal("WaitReadable did not report pending data")
	}

	buf := make([]byte, ReadBufferSize)
	n, err := p.ReadFrame(buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	want := []byte{0x90, 0x3C, 0x64, Delimiter}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("ReadFrame = % x, want % x", buf[:n], want)
	}
}

func TestWakeInterruptsWait(t *testing.T) {
	p, _ := testPort(t)

	p.Wake()

	start := time.Now()
	ready, err := p.WaitReadable(5 * time.Second)
	if err != nil {
		t.Fatalf("WaitReadable: %v", err)
	}
	if ready {
		t.Error("wake must not be reported as device readiness")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("WaitReadable returned after %v, wake should interrupt promptly", elapsed)
	}

	// The wake pipe is drained on the way out, so the next wait times out
	// instead of spinning on the stale wake byte.
	ready, err = p.WaitReadable(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("WaitReadable after wake: %v", err)
	}
	if ready {
		t.Error("stale wake byte survived the drain")
	}
}

func TestWakeIsIdempotent(t *testing.T) {
	p, _ := testPort(t)

	for i := 0; i < 64; i++ {
		p.Wake()
	}

	ready, err := p.WaitReadable(time.Second)
	if err != nil {
		t.Fatalf("WaitReadable: %v", err)
	}
	if ready {
		t.Error("wake must not be reported as device readiness")
	}
}

func TestReadFrameReportsClosedPeer(t *testing.T) {
	p, w := testPort(t)

	unix.Close(w)

	buf := make([]byte, ReadBufferSize)
	if _, err := p.ReadFrame(buf); err == nil {
		t.Fatal("ReadFrame on a closed peer succeeded")
	}
}

func TestSupportsBaudRate(t *testing.T) {
	if !SupportsBaudRate(230400) {
		t.Error("230400 must be supported, it is the device default")
	}
	if SupportsBaudRate(12345) {
		t.Error("arbitrary rates must be rejected")
	}
}
