package region

import "github.com/wattlens/wattlens/internal/stream"

// Region is one span of interest on the sample-id axis, opened by a rising
// digital edge and closed by the matching falling edge. It accumulates one
// summary per configured analog signal until data coverage reaches its end.
type Region struct {
	SampleIDStart uint64
	SampleIDEnd   uint64
	UTCStart      int64
	UTCEnd        int64

	closed  bool
	signals []string
	stats   map[string]*RangeStats
}

// NewRegion opens a region at the given sample-id with a summary slot for
// each analog signal.
func NewRegion(sampleIDStart uint64, utcStart int64, signals []string) *Region {
	stats := make(map[string]*RangeStats, len(signals))
	for _, s := range signals {
		stats[s] = NewRangeStats(sampleIDStart)
	}
	return &Region{
		SampleIDStart: sampleIDStart,
		UTCStart:      utcStart,
		signals:       append([]string(nil), signals...),
		stats:         stats,
	}
}

// Close marks the region's end. Data already past the end is trimmed out of
// the summaries; data still in flight keeps accumulating until coverage
// reaches the end.
func (r *Region) Close(sampleIDEnd uint64, utcEnd int64) {
	r.SampleIDEnd = sampleIDEnd
	r.UTCEnd = utcEnd
	r.closed = true
	for _, s := range r.stats {
		s.SetEnd(sampleIDEnd)
	}
}

// Closed reports whether the region's end has been set.
func (r *Region) Closed() bool {
	return r.closed
}

// Complete reports whether the region is closed and every signal's data
// coverage has reached its end.
func (r *Region) Complete() bool {
	if !r.closed {
		return false
	}
	for _, s := range r.stats {
		if !s.Complete() {
			return false
		}
	}
	return true
}

// Add folds an analog chunk into the signal's summary. Chunks for signals
// the region does not track are ignored.
func (r *Region) Add(signal string, c *stream.Chunk) {
	if s, ok := r.stats[signal]; ok {
		s.Add(c)
	}
}

// Length returns the region's span in sample-ids, or 0 while open.
func (r *Region) Length() uint64 {
	if !r.closed {
		return 0
	}
	return r.SampleIDEnd - r.SampleIDStart
}

// Signals returns the tracked analog signal names in configured order.
func (r *Region) Signals() []string {
	return r.signals
}

// Stats returns the summary accumulated for a signal.
func (r *Region) Stats(signal string) (Summary, bool) {
	s, ok := r.stats[signal]
	if !ok {
		return Summary{}, false
	}
	return s.Summary(), true
}
