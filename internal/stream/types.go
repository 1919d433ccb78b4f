// Package stream defines the sample-chunk data model shared by every stage of
// the pipeline: the chunk record published by instrument drivers, the time map
// that places sample-ids on the UTC axis, and the continuity cursor that
// classifies transport reordering and loss.
package stream

import (
	"math"
	"time"
)

// Second is the number of time64 units per second. Instrument timestamps are
// fixed-point "time64" values: seconds since the 2018-01-01 UTC epoch scaled
// by 2^30.
const Second int64 = 1 << 30

var time64Epoch = time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

// TimeMap is the per-chunk linear mapping from sample-ids to UTC time64
// values. Drivers refresh it continuously as they discipline the sample clock
// against the host clock, so it is only valid for the chunk that carried it.
type TimeMap struct {
	OffsetCounter uint64  `json:"offset_counter"` // sample-id of the anchor point
	CounterRate   float64 `json:"counter_rate"`   // sample-ids per second
	OffsetTime    int64   `json:"offset_time"`    // time64 of the anchor point
}

// UTC converts a sample-id to a time64 UTC value using this map.
func (tm TimeMap) UTC(sampleID uint64) int64 {
	delta := float64(int64(sampleID) - int64(tm.OffsetCounter))
	return tm.OffsetTime + int64(math.Round(delta/tm.CounterRate*float64(Second)))
}

// ToTime converts a time64 UTC value to a time.Time.
func ToTime(t64 int64) time.Time {
	sec := floorDiv(t64, Second)
	frac := t64 - sec*Second
	ns := (frac*int64(time.Second) + Second/2) / Second
	return time64Epoch.Add(time.Duration(sec)*time.Second + time.Duration(ns))
}

// FromTime converts a time.Time to a time64 UTC value.
func FromTime(t time.Time) int64 {
	d := t.Sub(time64Epoch)
	sec := int64(d / time.Second)
	ns := int64(d % time.Second)
	return sec*Second + ns*Second/int64(time.Second)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Chunk is one batch of consecutive samples for a single signal of a single
// device. Analog signals carry Data; digital signals carry Bits, packed eight
// logical samples per byte, least significant bit first. The stream position
// of sample k within the chunk is SampleID + k*DecimateFactor.
type Chunk struct {
	Device         string    `json:"device"`
	Signal         string    `json:"signal"`
	SampleID       uint64    `json:"sample_id"`
	DecimateFactor uint64    `json:"decimate_factor"`
	SampleRate     float64   `json:"sample_rate"` // base sample clock in Hz, before decimation
	TimeMap        TimeMap   `json:"time_map"`
	Data           []float64 `json:"data,omitempty"`
	Bits           []byte    `json:"bits,omitempty"`
}

// IsDigital reports whether the chunk carries a packed-bit payload.
func (c *Chunk) IsDigital() bool {
	return len(c.Bits) > 0
}

// SampleCount returns the number of logical samples in the chunk.
func (c *Chunk) SampleCount() int {
	if c.IsDigital() {
		return len(c.Bits) * 8
	}
	return len(c.Data)
}

// SampleIDRange returns the half-open [start, end) span of the chunk on the
// sample-id axis, accounting for the decimate factor.
func (c *Chunk) SampleIDRange() (start, end uint64) {
	start = c.SampleID
	end = start + uint64(c.SampleCount())*c.DecimateFactor
	return start, end
}

// Duration returns the wall-clock span of the chunk.
func (c *Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	seconds := float64(c.SampleCount()) * float64(c.DecimateFactor) / c.SampleRate
	return time.Duration(seconds * float64(time.Second))
}

// UnpackBits expands a packed digital payload into one bool per logical
// sample, least significant bit first within each byte.
func UnpackBits(packed []byte) []bool {
	out := make([]bool, 0, len(packed)*8)
	for _, b := range packed {
		for bit := 0; bit < 8; bit++ {
			out = append(out, b&(1<<bit) != 0)
		}
	}
	return out
}

// PackBits is the inverse of UnpackBits. The sample count is rounded up to a
// whole byte; missing trailing samples pack as low.
func PackBits(samples []bool) []byte {
	out := make([]byte, (len(samples)+7)/8)
	for i, s := range samples {
		if s {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}
