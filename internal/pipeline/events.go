package pipeline

import (
	"time"

	"github.com/wattlens/wattlens/internal/region"
)

// Event is one analysis result flowing from the analyzer to the emitter.
type Event interface {
	event()
}

// DetectionEvent reports that a detector's threshold condition was held for
// its full duration somewhere inside the given chunk.
type DetectionEvent struct {
	Device        string
	Signal        string
	Detector      string
	Threshold     float64
	SampleIDStart uint64
	SampleIDEnd   uint64
	UTC           int64
}

// TriggerEvent reports one trigger transition. SampleID is the stream
// position immediately after the run that completed the transition.
type TriggerEvent struct {
	Device   string
	Signal   string
	Rising   bool
	SampleID uint64
	UTC      int64
}

// RegionRecord carries one completed GPI region with its signal statistics.
type RegionRecord struct {
	Device string
	Signal string
	Region *region.Region
}

// IntervalRecord carries per-signal summaries for one flush interval plus
// the device's running charge and energy totals since startup.
type IntervalRecord struct {
	Device  string
	Start   time.Time
	End     time.Time
	Signals map[string]region.Summary
	Charge  float64
	Energy  float64
}

func (DetectionEvent) event() {}
func (TriggerEvent) event()   {}
func (RegionRecord) event()   {}
func (IntervalRecord) event() {}
