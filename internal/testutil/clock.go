package testutil

import "sync"

// Sequence is a resettable capture sequence for tests. It satisfies
// store.Sequencer. All methods are safe for concurrent use.
type Sequence struct {
	mu    sync.Mutex
	start int64
	seq   int64
}

// NewSequence returns a sequence whose first Next returns start+1.
func NewSequence(start int64) *Sequence {
	return &Sequence{start: start, seq: start}
}

// Next advances the sequence.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Current returns the last value handed out, or the start value.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Reset rewinds to the start value so a scenario can be replayed with the
// same sequence numbers.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = s.start
}
