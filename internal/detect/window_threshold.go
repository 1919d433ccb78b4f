package detect

import (
	"fmt"
	"math"
)

// WindowThresholdDetector reports when a signal holds beyond a threshold for
// at least a minimum number of consecutive samples. The threshold sign
// selects the comparison: a positive threshold matches samples >= threshold,
// a zero or negative threshold matches samples <= threshold.
type WindowThresholdDetector struct {
	name      string
	threshold float64
	duration  int
	count     int
}

var _ Detector = (*WindowThresholdDetector)(nil)

// NewWindowThresholdDetector constructs a detector. duration is the minimum
// qualifying run length in samples and must be at least 1.
func NewWindowThresholdDetector(name string, threshold float64, duration int) (*WindowThresholdDetector, error) {
	if math.IsNaN(threshold) {
		return nil, fmt.Errorf("%w: threshold is NaN", ErrInvalidThreshold)
	}
	if duration < 1 {
		return nil, fmt.Errorf("%w: duration %d must be at least 1 sample", ErrInvalidDuration, duration)
	}
	return &WindowThresholdDetector{
		name:      name,
		threshold: threshold,
		duration:  duration,
	}, nil
}

// Name returns the detector's configured name.
func (d *WindowThresholdDetector) Name() string {
	return d.name
}

// Threshold returns the configured threshold value.
func (d *WindowThresholdDetector) Threshold() float64 {
	return d.threshold
}

// Process consumes the next batch of consecutive samples and reports whether
// a qualifying run of at least the configured duration was in view, counting
// any run carried in from the previous batch. The run touching the end of
// the batch is carried to the next call. An empty batch reports false and
// leaves all state untouched.
func (d *WindowThresholdDetector) Process(samples []float64) bool {
	if len(samples) == 0 {
		return false
	}
	run := d.count
	longest := 0
	for _, s := range samples {
		if d.qualifies(s) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	d.count = run
	return longest >= d.duration
}

func (d *WindowThresholdDetector) qualifies(v float64) bool {
	if d.threshold > 0 {
		return v >= d.threshold
	}
	return v <= d.threshold
}

// Pending returns the length of the qualifying run touching the end of the
// last processed batch.
func (d *WindowThresholdDetector) Pending() int {
	return d.count
}

// Clear discards the carried run.
func (d *WindowThresholdDetector) Clear() {
	d.count = 0
}
