package stream

import (
	"encoding/json"
	"fmt"
	"math"
)

// ParseChunk decodes a JSON chunk payload and validates it. All failures wrap
// ErrInvalidChunk so callers can classify with errors.Is.
func ParseChunk(data []byte) (*Chunk, error) {
	var c Chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the structural invariants every pipeline stage relies on.
func (c *Chunk) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("%w: missing device", ErrInvalidChunk)
	}
	if c.Signal == "" {
		return fmt.Errorf("%w: missing signal", ErrInvalidChunk)
	}
	if c.DecimateFactor == 0 {
		return fmt.Errorf("%w: decimate_factor must be >= 1", ErrInvalidChunk)
	}
	if c.SampleRate <= 0 || math.IsInf(c.SampleRate, 0) || math.IsNaN(c.SampleRate) {
		return fmt.Errorf("%w: sample_rate must be positive and finite", ErrInvalidChunk)
	}
	if c.TimeMap.CounterRate <= 0 || math.IsInf(c.TimeMap.CounterRate, 0) || math.IsNaN(c.TimeMap.CounterRate) {
		return fmt.Errorf("%w: time_map counter_rate must be positive and finite", ErrInvalidChunk)
	}
	if len(c.Data) > 0 && len(c.Bits) > 0 {
		return fmt.Errorf("%w: chunk carries both analog and digital payloads", ErrInvalidChunk)
	}
	return nil
}
