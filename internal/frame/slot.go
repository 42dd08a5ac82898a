package frame

import (
	"sync"
	"sync/atomic"
)

// LatestSlot is a single-frame mailbox with most-recent-wins semantics.
//
// Put overwrites any unconsumed frame, so a slow consumer always picks
// up the newest frame instead of working through a backlog. Overwrites
// of unconsumed frames are counted as drops.
type LatestSlot struct {
	mu    sync.Mutex
	frame *Frame
	drops atomic.Uint64
}

// Put stores f as the latest frame, replacing any unconsumed one.
// It never blocks.
func (s *LatestSlot) Put(f *Frame) {
	s.mu.Lock()
	if s.frame != nil {
		s.drops.Add(1)
	}
	s.frame = f
	s.mu.Unlock()
}

// Take removes and returns the latest frame, or nil if the slot is
// empty.
func (s *LatestSlot) Take() *Frame {
	s.mu.Lock()
	f := s.frame
	s.frame = nil
	s.mu.Unlock()
	return f
}

// Drops reports how many frames were overwritten before being consumed.
func (s *LatestSlot) Drops() uint64 {
	return s.drops.Load()
}
