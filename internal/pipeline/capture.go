package pipeline

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/fortitwin/interview-relay/pkg/audio"
	"go.uber.org/zap"
)

// Source produces fixed-size blocks of captured microphone samples in
// normalized float32. ReadBlock returns io.EOF when capture stops.
type Source interface {
	ReadBlock() ([]float32, error)
}

// FrameWriter transmits one encoded audio frame.
type FrameWriter interface {
	WriteFrame(frame []byte) error
}

// Capture is the outbound half of the client pipeline: it encodes captured
// blocks to PCM16 frames and ships them without ever blocking the capture
// side on network I/O. When the sender falls behind, frames are dropped
// and counted rather than stalling the device callback.
type Capture struct {
	logger  *zap.Logger
	source  Source
	writer  FrameWriter
	pending chan []byte
	dropped atomic.Int64
}

// NewCapture creates a capture path with the given queue depth.
func NewCapture(logger *zap.Logger, source Source, writer FrameWriter, queueDepth int) *Capture {
	if queueDepth <= 0 {
		queueDepth = 32
	}
	return &Capture{
		logger:  logger.Named("pipeline.capture"),
		source:  source,
		writer:  writer,
		pending: make(chan []byte, queueDepth),
	}
}

// Run pulls blocks from the source until it is exhausted or ctx ends.
// The send loop runs concurrently so a slow link never back-pressures
// the source.
func (c *Capture) Run(ctx context.Context) error {
	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- c.sendLoop(sendCtx)
	}()

	for {
		block, err := c.source.ReadBlock()
		if err != nil {
			close(c.pending)
			if errors.Is(err, io.EOF) {
				return <-sendErr
			}
			<-sendErr
			return err
		}

		frame := audio.EncodePCM16(block)
		select {
		case c.pending <- frame:
		default:
			// Capture must not stall; losing an outbound frame is the
			// lesser failure.
			c.dropped.Add(1)
		}

		select {
		case <-ctx.Done():
			close(c.pending)
			<-sendErr
			return ctx.Err()
		default:
		}
	}
}

func (c *Capture) sendLoop(ctx context.Context) error {
	for {
		select {
		case frame, ok := <-c.pending:
			if !ok {
				return nil
			}
			if err := c.writer.WriteFrame(frame); err != nil {
				c.logger.Warn("frame send failed", zap.Error(err))
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Dropped reports how many frames were discarded because the sender could
// not keep up.
func (c *Capture) Dropped() int64 {
	return c.dropped.Load()
}
