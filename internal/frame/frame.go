// Package frame provides the video frame model and frame source
// abstractions used by the detection pipeline.
//
// Frames are treated as immutable values once handed to the pipeline:
// the producer must not modify Data after publishing, and consumers get
// read-only access. This allows zero-copy sharing between the capture
// side and the detection loop.
package frame

import (
	"context"
	"errors"
	"time"
)

// ErrEndOfStream is returned by a Source when the underlying capture
// device or file has no more frames to deliver. The pipeline treats it
// as a clean session termination, not a failure.
var ErrEndOfStream = errors.New("frame: end of stream")

// Frame represents a single captured video frame.
type Frame struct {
	// Data contains the raw frame bytes. Must not be modified after
	// the frame has been handed to the pipeline.
	Data []byte

	// Width and Height of the frame in pixels.
	Width  int
	Height int

	// Timestamp is the capture time of the frame (source time, not
	// processing time). Cycle latency is measured against it.
	Timestamp time.Time

	// Seq is a monotonically increasing sequence number assigned by
	// the source. Used for drop detection and ordering checks.
	Seq uint64
}

// Source supplies a bounded-rate sequence of frames.
//
// Next blocks until a frame is available, the stream ends, or ctx is
// cancelled. On end of stream it returns ErrEndOfStream.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
}
