package detect

import (
	"fmt"
	"math"
)

// Edge marks a trigger transition located within a processed batch.
type Edge struct {
	// Offset is the batch index one past the sample that completed the
	// condition. Scanning for the opposite condition resumes here.
	Offset int
	// Rising is true when the start condition completed, false for stop.
	Rising bool
}

// thresholdCondition counts consecutive qualifying samples, carrying the
// count across scans until the requested duration is reached.
type thresholdCondition struct {
	threshold float64
	above     bool // qualify on samples > threshold when true, < when false
	duration  int
	count     int
}

// scan resumes at offset and returns the index one past the sample that
// completed the duration, or -1 when the batch ends first. The count resets
// after each completion so back-to-back detections need full runs.
func (c *thresholdCondition) scan(samples []float64, offset int) int {
	for i := offset; i < len(samples); i++ {
		v := samples[i]
		if (c.above && v > c.threshold) || (!c.above && v < c.threshold) {
			c.count++
			if c.count >= c.duration {
				c.count = 0
				return i + 1
			}
		} else {
			c.count = 0
		}
	}
	return -1
}

// DualThresholdTrigger alternates between a start condition (signal above a
// threshold for a duration) and a stop condition (signal below a threshold
// for a duration), emitting an edge each time the active condition
// completes. It mirrors the behavior of an instrument trigger output driven
// from host-side detection.
type DualThresholdTrigger struct {
	name   string
	start  thresholdCondition
	stop   thresholdCondition
	active bool // inside a triggered window, seeking the stop condition
}

// NewDualThresholdTrigger constructs a trigger. Durations are minimum run
// lengths in samples and must be at least 1.
func NewDualThresholdTrigger(name string, startThreshold float64, startDuration int, stopThreshold float64, stopDuration int) (*DualThresholdTrigger, error) {
	if math.IsNaN(startThreshold) || math.IsNaN(stopThreshold) {
		return nil, fmt.Errorf("%w: threshold is NaN", ErrInvalidThreshold)
	}
	if startDuration < 1 {
		return nil, fmt.Errorf("%w: start duration %d must be at least 1 sample", ErrInvalidDuration, startDuration)
	}
	if stopDuration < 1 {
		return nil, fmt.Errorf("%w: stop duration %d must be at least 1 sample", ErrInvalidDuration, stopDuration)
	}
	return &DualThresholdTrigger{
		name:  name,
		start: thresholdCondition{threshold: startThreshold, above: true, duration: startDuration},
		stop:  thresholdCondition{threshold: stopThreshold, above: false, duration: stopDuration},
	}, nil
}

// Name returns the trigger's configured name.
func (t *DualThresholdTrigger) Name() string {
	return t.name
}

// Process scans the batch for trigger transitions and returns them in stream
// order. After each edge the scan resumes at the edge offset seeking the
// opposite condition, so one batch can yield several alternating edges. Only
// the active condition accumulates carry; the other holds its state.
func (t *DualThresholdTrigger) Process(samples []float64) []Edge {
	var edges []Edge
	offset := 0
	for offset < len(samples) {
		cond := &t.start
		if t.active {
			cond = &t.stop
		}
		k := cond.scan(samples, offset)
		if k < 0 {
			break
		}
		edges = append(edges, Edge{Offset: k, Rising: !t.active})
		t.active = !t.active
		offset = k
	}
	return edges
}

// Active reports whether the trigger is inside a started window.
func (t *DualThresholdTrigger) Active() bool {
	return t.active
}

// Clear discards carried counts and re-arms the start condition.
func (t *DualThresholdTrigger) Clear() {
	t.start.count = 0
	t.stop.count = 0
	t.active = false
}
