package frame

import (
	"context"
	"time"
)

// SyntheticSource generates blank frames at a fixed rate. It stands in
// for a real capture device in benchmarks and tests.
type SyntheticSource struct {
	width    int
	height   int
	interval time.Duration
	limit    uint64 // 0 means unlimited
	seq      uint64
}

// NewSyntheticSource returns a source producing width x height frames
// every interval. If limit > 0 the source ends after that many frames.
func NewSyntheticSource(width, height int, interval time.Duration, limit uint64) *SyntheticSource {
	return &SyntheticSource{
		width:    width,
		height:   height,
		interval: interval,
		limit:    limit,
	}
}

// Next returns the next synthetic frame after the configured interval.
func (s *SyntheticSource) Next(ctx context.Context) (*Frame, error) {
	if s.limit > 0 && s.seq >= s.limit {
		return nil, ErrEndOfStream
	}

	if s.interval > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.interval):
		}
	}

	s.seq++
	return &Frame{
		Data:      make([]byte, s.width*s.height*3),
		Width:     s.width,
		Height:    s.height,
		Timestamp: time.Now(),
		Seq:       s.seq,
	}, nil
}
