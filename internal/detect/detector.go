// Package detect implements run-length threshold detection over streamed
// sample batches. Detectors are stateful: qualifying runs carry across batch
// boundaries so conditions split over several chunks are still found.
package detect

// Detector is the contract the analysis stage drives for each configured
// signal condition.
type Detector interface {
	// Name identifies the detector in logs, metrics, and emitted events.
	Name() string

	// Process consumes the next batch of consecutive samples and reports
	// whether the detector's condition was satisfied within view of this
	// batch, including any run carried in from earlier batches. An empty
	// batch reports false and leaves all state untouched.
	Process(samples []float64) bool

	// Clear discards all carried state, as after a stream gap.
	Clear()
}
