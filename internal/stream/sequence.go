package stream

import "fmt"

// Sequence tracks the expected next sample-id of one signal stream and
// classifies each arriving chunk as in-order, out-of-order, or gapped.
//
// The zero value accepts the first chunk at any position and locks onto it.
type Sequence struct {
	next    uint64
	started bool
}

// Check classifies the chunk against the cursor and advances it.
//
// In-order chunks advance the cursor to the chunk end and return nil.
// Out-of-order chunks (start before the cursor) return ErrChunkOutOfOrder and
// leave the cursor unchanged; the caller must drop the chunk. Gapped chunks
// (start past the cursor) return ErrStreamGap wrapped with the missing span,
// but still advance the cursor to the chunk end: the chunk itself is valid
// and should be processed after the caller resynchronizes any carried state.
func (s *Sequence) Check(c *Chunk) error {
	start, end := c.SampleIDRange()
	if !s.started {
		s.started = true
		s.next = end
		return nil
	}
	switch {
	case start < s.next:
		return fmt.Errorf("%w: sample_id %d precedes expected %d", ErrChunkOutOfOrder, start, s.next)
	case start > s.next:
		missing := start - s.next
		s.next = end
		return fmt.Errorf("%w: %d sample-ids missing before %d", ErrStreamGap, missing, start)
	default:
		s.next = end
		return nil
	}
}

// Next returns the expected sample-id of the next chunk, or 0 before the
// first chunk arrives.
func (s *Sequence) Next() uint64 {
	return s.next
}

// Reset returns the cursor to its initial state.
func (s *Sequence) Reset() {
	s.next = 0
	s.started = false
}
