package event

import "sync/atomic"

// Sequencer hands out event sequence numbers. Next is safe for concurrent
// use and every call returns a value strictly greater than all earlier ones.
type Sequencer struct {
	last atomic.Int64
}

// Next increments the counter and returns the new value. The first call returns 1.
func (s *Sequencer) Next() int64 {
	return s.last.Add(1)
}

// Last returns the most recently issued sequence number, or 0.
func (s *Sequencer) Last() int64 {
	return s.last.Load()
}

var processSequencer Sequencer

// DefaultSequencer returns the process-wide sequencer shared by every
// factory that is not given its own.
func DefaultSequencer() *Sequencer {
	return &processSequencer
}
