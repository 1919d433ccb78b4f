// Package region extracts per-region signal statistics from sample streams.
// Regions are spans of the sample-id axis delimited by digital edge pairs;
// analog data overlapping a region folds into running summaries that can be
// merged without retaining samples.
package region

import (
	"math"

	"github.com/wattlens/wattlens/internal/stream"
)

// Summary holds moment statistics over a span of samples. Var is the
// population variance. The zero value describes an empty span and is the
// identity for Merge.
type Summary struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	Var   float64 `json:"var"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Std returns the population standard deviation.
func (s Summary) Std() float64 {
	return math.Sqrt(s.Var)
}

// Summarize computes the summary of one batch of samples.
func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	min, max := data[0], data[0]
	var sum, sumSq float64
	for _, v := range data {
		sum += v
		sumSq += v * v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	n := float64(len(data))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return Summary{
		Count: int64(len(data)),
		Mean:  mean,
		Var:   variance,
		Min:   min,
		Max:   max,
	}
}

// Merge combines two summaries as if their sample spans were concatenated.
// Order does not matter and an empty summary is the identity.
func Merge(a, b Summary) Summary {
	if a.Count == 0 {
		return b
	}
	if b.Count == 0 {
		return a
	}
	an, bn := float64(a.Count), float64(b.Count)
	n := an + bn
	mean := (a.Mean*an + b.Mean*bn) / n
	ad := a.Mean - mean
	bd := b.Mean - mean
	return Summary{
		Count: a.Count + b.Count,
		Mean:  mean,
		Var:   (an*(a.Var+ad*ad) + bn*(b.Var+bd*bd)) / n,
		Min:   math.Min(a.Min, b.Min),
		Max:   math.Max(a.Max, b.Max),
	}
}

// RangeStats accumulates a summary over a sample-id range fed from chunks in
// stream order. Chunk edges are trimmed to the range bounds, a frontier
// rejects already-counted samples, and the range may be closed while data is
// still arriving.
type RangeStats struct {
	start   uint64
	end     uint64
	ended   bool
	next    uint64 // sample-ids below this are already counted
	summary Summary
}

// NewRangeStats opens a range starting at the given sample-id.
func NewRangeStats(start uint64) *RangeStats {
	return &RangeStats{start: start, next: start}
}

// SetEnd closes the range at the given sample-id, exclusive.
func (r *RangeStats) SetEnd(end uint64) {
	r.end = end
	r.ended = true
}

// Complete reports whether the range is closed and the accumulated data
// covers it.
func (r *RangeStats) Complete() bool {
	return r.ended && r.next >= r.end
}

// Add folds the chunk's overlap with the range into the summary. Chunks
// entirely past a closed range or entirely below the frontier are ignored.
// A chunk whose trimmed overlap is empty still advances the frontier.
func (r *RangeStats) Add(c *stream.Chunk) {
	start := c.SampleID
	end := start + uint64(len(c.Data))*c.DecimateFactor
	if r.ended && start > r.end {
		return
	}
	if end <= r.next {
		return
	}
	data := c.Data
	if r.ended && r.end < end {
		endIdx := (r.end - start) / c.DecimateFactor
		data = data[:endIdx]
	}
	if r.next > start {
		startIdx := int((r.next - start) / c.DecimateFactor)
		if startIdx > len(data) {
			startIdx = len(data)
		}
		data = data[startIdx:]
	}
	if len(data) > 0 {
		r.summary = Merge(r.summary, Summarize(data))
	}
	r.next = end
}

// Summary returns the statistics accumulated so far.
func (r *RangeStats) Summary() Summary {
	return r.summary
}
