package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/WeAreROLI/serial-to-alsa/internal/metrics"
	"github.com/WeAreROLI/serial-to-alsa/internal/serial"
)

// Source is the serial side of the relay. *serial.Port implements it.
type Source interface {
	// WaitReadable blocks until a frame is ready, the timeout elapses, or
	// Wake is called; only readiness returns true.
	WaitReadable(timeout time.Duration) (bool, error)
	// ReadFrame reads one raw frame, trailing delimiter included.
	ReadFrame(buf []byte) (int, error)
	// FlushInput discards pending input after a dropped frame.
	FlushInput() error
	// Wake interrupts a pending WaitReadable.
	Wake()
}

// Sink is the MIDI output side of the relay. *alsa.Sink implements it.
type Sink interface {
	Write(frame []byte) error
}

// DefaultPollInterval is the producer's idle readiness-poll timeout. The
// wake pipe makes shutdown independent of it; the timeout is a backstop.
const DefaultPollInterval = 5 * time.Millisecond

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used by both relay loops.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics the relay reports into.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithPollInterval overrides the producer's idle poll timeout.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Coordinator) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// Coordinator owns the frame buffer, the guard protecting it, the wake
// condition, and the shared stop flag, and runs the producer and consumer
// loops over them.
type Coordinator struct {
	source       Source
	sink         Sink
	logger       *zap.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration

	mu   sync.Mutex
	cond *sync.Cond
	buf  FrameBuffer

	// stop transitions false to true exactly once and is never reset.
	stop     atomic.Bool
	errOnce  sync.Once
	fatalErr error
}

// New creates a Coordinator relaying frames from source to sink.
func New(source Source, sink Sink, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:       source,
		sink:         sink,
		logger:       zap.NewNop(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Run starts the producer and consumer loops and blocks until both have
// terminated. Cancelling ctx requests a cooperative stop. The returned
// error is the first fatal relay error, or nil after a clean shutdown.
func (c *Coordinator) Run(ctx context.Context) error {
	stopWatch := context.AfterFunc(ctx, c.RequestStop)
	defer stopWatch()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.readLoop()
	}()
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()
	wg.Wait()

	return c.fatalErr
}

// RequestStop flips the stop flag and unblocks both loops: the producer via
// the source wake pipe, the consumer via a condition broadcast. Safe to call
// from any goroutine, any number of times.
func (c *Coordinator) RequestStop() {
	if !c.stop.CompareAndSwap(false, true) {
		return
	}
	c.source.Wake()
	c.cond.Broadcast()
}

// fail records the first fatal error and requests a stop so the peer loop
// cannot be left blocked.
func (c *Coordinator) fail(err error) {
	c.errOnce.Do(func() {
		c.fatalErr = err
	})
	c.RequestStop()
}

// readLoop is the producer: it polls the source for readiness, reads and
// decodes one frame at a time, and appends it to the frame buffer. A full
// buffer drops the frame and flushes the source input queue. Read and poll
// failures are fatal for the whole relay.
func (c *Coordinator) readLoop() {
	log := c.logger.Named("serial")

	// The consumer must never be left waiting once the producer has
	// nothing more to contribute, whatever the exit path.
	defer c.cond.Signal()

	buf := make([]byte, serial.ReadBufferSize)
	for !c.stop.Load() {
		ready, err := c.source.WaitReadable(c.pollInterval)
		if err != nil {
			log.Error("cannot wait for serial input", zap.Error(err))
			c.fail(fmt.Errorf("serial readiness wait: %w", err))
			return
		}
		if !ready {
			// Timeout or wake; the loop condition re-checks the
			// stop flag before polling again.
			continue
		}
		if c.stop.Load() {
			return
		}

		n, err := c.source.ReadFrame(buf)
		if err != nil {
			log.Error("cannot read from serial port", zap.Error(err))
			c.fail(fmt.Errorf("serial read: %w", err))
			return
		}
		payload := serial.Decode(buf[:n])
		log.Debug("MIDI <--",
			zap.Int("bytes", len(payload)),
			zap.String("data", hexBytes(payload)))

		c.mu.Lock()
		if !c.buf.TryPush(payload) {
			c.mu.Unlock()
			log.Warn("buffer overflow, dropping MIDI frame",
				zap.Int("bytes", len(payload)))
			c.metrics.FramesDropped.Inc()
			if err := c.source.FlushInput(); err != nil {
				log.Warn("cannot flush serial input queue", zap.Error(err))
			}
			c.cond.Signal()
			continue
		}
		depth := c.buf.Len()
		c.mu.Unlock()

		c.metrics.FramesCaptured.Inc()
		c.metrics.BufferDepth.Set(float64(depth))
		c.cond.Signal()
	}
}

// writeLoop is the consumer: it waits for the producer's signal, drains the
// frame buffer in one snapshot, and writes the frames to the sink in
// arrival order with the guard released. A failed write is logged and the
// batch continues; only the stop flag terminates the loop.
func (c *Coordinator) writeLoop() {
	log := c.logger.Named("alsa")

	for {
		c.mu.Lock()
		for c.buf.Empty() && !c.stop.Load() {
			c.cond.Wait()
			if c.buf.Empty() && !c.stop.Load() {
				log.Warn("buffer underflow, woke with nothing pending")
				c.metrics.Underflows.Inc()
			}
		}
		if c.stop.Load() {
			c.mu.Unlock()
			return
		}
		frames := c.buf.DrainAll()
		c.mu.Unlock()
		c.metrics.BufferDepth.Set(0)

		for _, frame := range frames {
			if len(frame) == 0 {
				log.Info("nothing to send")
				c.metrics.EmptyFrames.Inc()
				continue
			}
			if err := c.sink.Write(frame); err != nil {
				log.Error("cannot send MIDI data",
					zap.Error(err),
					zap.Int("bytes", len(frame)))
				c.metrics.WriteErrors.Inc()
				continue
			}
			log.Debug("MIDI -->",
				zap.Int("bytes", len(frame)),
				zap.String("data", hexBytes(frame)))
			c.metrics.FramesDelivered.Inc()
			c.metrics.BytesDelivered.Add(float64(len(frame)))
		}
	}
}

func hexBytes(p []byte) string {
	return fmt.Sprintf("% x", p)
}
