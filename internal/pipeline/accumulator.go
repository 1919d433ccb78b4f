package pipeline

import (
	"time"

	"github.com/wattlens/wattlens/internal/region"
	"github.com/wattlens/wattlens/internal/stream"
)

// Accumulator folds analog chunks into per-interval signal summaries and
// integrates charge and energy over the sample clock. Summaries reset on
// every flush; charge and energy accumulate for the life of the process.
type Accumulator struct {
	device  string
	start   time.Time
	started bool
	signals map[string]region.Summary
	charge  float64
	energy  float64
}

func NewAccumulator(device string) *Accumulator {
	return &Accumulator{
		device:  device,
		signals: make(map[string]region.Summary),
	}
}

// Add folds one analog chunk into the current interval. The current signal
// integrates into charge and the power signal into energy, weighted by the
// chunk's effective sample period.
func (a *Accumulator) Add(c *stream.Chunk) {
	s := region.Summarize(c.Data)
	if s.Count == 0 {
		return
	}
	if !a.started {
		a.started = true
		a.start = time.Now()
	}
	a.signals[c.Signal] = region.Merge(a.signals[c.Signal], s)

	dt := float64(c.DecimateFactor) / c.SampleRate
	switch c.Signal {
	case "i":
		a.charge += s.Mean * float64(s.Count) * dt
	case "p":
		a.energy += s.Mean * float64(s.Count) * dt
	}
}

// Flush returns the interval record and starts a new interval. ok is false
// when no data arrived since the last flush.
func (a *Accumulator) Flush(now time.Time) (IntervalRecord, bool) {
	if len(a.signals) == 0 {
		return IntervalRecord{}, false
	}
	rec := IntervalRecord{
		Device:  a.device,
		Start:   a.start,
		End:     now,
		Signals: a.signals,
		Charge:  a.charge,
		Energy:  a.energy,
	}
	a.signals = make(map[string]region.Summary)
	a.start = now
	return rec, true
}
