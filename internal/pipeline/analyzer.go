package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wattlens/wattlens/internal/config"
	"github.com/wattlens/wattlens/internal/detect"
	"github.com/wattlens/wattlens/internal/region"
	"github.com/wattlens/wattlens/internal/stream"
)

// deviceState bundles everything the analyzer tracks for one device: a
// continuity cursor per signal, detectors and the optional trigger built
// lazily once a signal's effective sample rate is known, one region tracker
// per GPI signal, and the interval accumulator.
type deviceState struct {
	sequences     map[string]*stream.Sequence
	detectors     map[string][]*detect.WindowThresholdDetector
	trigger       *detect.DualThresholdTrigger
	triggerBroken bool
	trackers      map[string]*region.Tracker
	accum         *Accumulator
}

// Analyzer consumes parsed chunks, maintains per-device analysis state and
// emits events downstream. All state is owned by the Run goroutine, so no
// locking is needed.
type Analyzer struct {
	pipeline  config.PipelineConfig
	detectors []config.DetectorConfig
	trigger   config.TriggerConfig
	regions   config.RegionConfig
	input     <-chan *stream.Chunk
	output    chan<- Event
	logger    *zap.Logger

	devices map[string]*deviceState
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer(cfg *config.Config, input <-chan *stream.Chunk, output chan<- Event, logger *zap.Logger) *Analyzer {
	a := &Analyzer{
		pipeline:  cfg.Pipeline,
		detectors: cfg.Detectors,
		trigger:   cfg.Trigger,
		regions:   cfg.Regions,
		input:     input,
		output:    output,
		logger:    logger,
		devices:   make(map[string]*deviceState),
	}
	logger.Info("Analyzer initialized",
		zap.Duration("flush_interval", cfg.Pipeline.FlushInterval),
		zap.Strings("analog_signals", cfg.Pipeline.AnalogSignals),
		zap.Strings("gpi_signals", cfg.Regions.GPISignals),
		zap.Int("configured_detectors", len(cfg.Detectors)),
		zap.Bool("trigger_enabled", cfg.Trigger.Enabled),
	)
	return a
}

// Run starts the analyzer's processing loop.
func (a *Analyzer) Run(ctx context.Context) error {
	sugar := a.logger.Sugar()
	sugar.Info("Starting analyzer loop...")
	defer sugar.Info("Analyzer loop stopped.")

	ticker := time.NewTicker(a.pipeline.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case c, ok := <-a.input:
			if !ok {
				sugar.Info("Analyzer input channel closed. Draining state...")
				a.drain()
				return nil
			}
			a.processChunk(c)

		case tickTime := <-ticker.C:
			a.flushIntervals(tickTime)

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping analyzer. Draining state...")
			a.drain()
			return ctx.Err()
		}
	}
}

// processChunk routes one chunk through continuity checking and then into
// the digital or analog path.
func (a *Analyzer) processChunk(c *stream.Chunk) {
	state := a.getOrCreateDeviceState(c.Device)

	seq, ok := state.sequences[c.Signal]
	if !ok {
		seq = &stream.Sequence{}
		state.sequences[c.Signal] = seq
	}
	expected := seq.Next()
	if err := seq.Check(c); err != nil {
		switch {
		case errors.Is(err, stream.ErrChunkOutOfOrder):
			chunksOutOfOrder.WithLabelValues(c.Device, c.Signal).Inc()
			a.logger.Sugar().Warnw("Dropping out-of-order chunk",
				zap.String("device", c.Device),
				zap.String("signal", c.Signal),
				zap.Uint64("sample_id", c.SampleID),
				zap.Uint64("expected", expected),
			)
			return

		case errors.Is(err, stream.ErrStreamGap):
			streamGaps.WithLabelValues(c.Device, c.Signal).Inc()
			a.logger.Sugar().Warnw("Gap in sample stream, clearing carried runs",
				zap.String("device", c.Device),
				zap.String("signal", c.Signal),
				zap.Uint64("sample_id", c.SampleID),
				zap.Uint64("expected", expected),
			)
			a.clearCarries(state, c.Signal)
		}
	}
	chunksProcessed.WithLabelValues(c.Device, c.Signal).Inc()

	if c.IsDigital() {
		a.processDigital(state, c)
		return
	}
	a.processAnalog(state, c)
}

// clearCarries resets run state that assumed sample continuity on the given
// signal. Region trackers stay as they are: a gap inside a region surfaces
// as a shorter statistics count, not a bogus run.
func (a *Analyzer) clearCarries(state *deviceState, signal string) {
	for _, d := range state.detectors[signal] {
		d.Clear()
	}
	if state.trigger != nil && a.trigger.Signal == signal {
		state.trigger.Clear()
	}
}

// processDigital feeds a GPI chunk to its region tracker and emits whatever
// regions it completes.
func (a *Analyzer) processDigital(state *deviceState, c *stream.Chunk) {
	tracker, ok := state.trackers[c.Signal]
	if !ok {
		return
	}
	for _, r := range tracker.PushBits(c) {
		a.emit(RegionRecord{Device: c.Device, Signal: c.Signal, Region: r})
	}
	regionsOpen.WithLabelValues(c.Device, c.Signal).Set(float64(tracker.OpenRegions()))
}

// processAnalog runs the chunk through detectors and the trigger, queues it
// for region statistics, and folds it into the interval accumulator.
func (a *Analyzer) processAnalog(state *deviceState, c *stream.Chunk) {
	for _, d := range a.signalDetectors(state, c) {
		if !d.Process(c.Data) {
			continue
		}
		start, end := c.SampleIDRange()
		a.emit(DetectionEvent{
			Device:        c.Device,
			Signal:        c.Signal,
			Detector:      d.Name(),
			Threshold:     d.Threshold(),
			SampleIDStart: start,
			SampleIDEnd:   end,
			UTC:           c.TimeMap.UTC(start),
		})
	}

	if tr := a.signalTrigger(state, c); tr != nil {
		for _, e := range tr.Process(c.Data) {
			id := c.SampleID + uint64(e.Offset)*c.DecimateFactor
			a.emit(TriggerEvent{
				Device:   c.Device,
				Signal:   c.Signal,
				Rising:   e.Rising,
				SampleID: id,
				UTC:      c.TimeMap.UTC(id),
			})
		}
	}

	for _, tracker := range state.trackers {
		tracker.PushData(c)
	}
	state.accum.Add(c)
}

// signalDetectors returns the detectors watching the chunk's signal,
// building them on first sight of the signal when the configured duration
// can be converted to a sample count at the effective rate. The result is
// cached per signal, including the empty one.
func (a *Analyzer) signalDetectors(state *deviceState, c *stream.Chunk) []*detect.WindowThresholdDetector {
	ds, cached := state.detectors[c.Signal]
	if cached {
		return ds
	}
	rate := c.SampleRate / float64(c.DecimateFactor)
	for _, dc := range a.detectors {
		if dc.Signal != c.Signal {
			continue
		}
		n := samplesFor(dc.Duration, rate)
		d, err := detect.NewWindowThresholdDetector(dc.Name, dc.Threshold, n)
		if err != nil {
			a.logger.Error("Failed to build detector",
				zap.String("detector", dc.Name),
				zap.String("signal", c.Signal),
				zap.Error(err),
			)
			continue
		}
		ds = append(ds, d)
		a.logger.Debug("Built detector for signal",
			zap.String("device", c.Device),
			zap.String("signal", c.Signal),
			zap.String("detector", dc.Name),
			zap.Int("duration_samples", n),
		)
	}
	state.detectors[c.Signal] = ds
	return ds
}

// signalTrigger returns the device's trigger when the chunk carries the
// trigger signal, building it on first sight.
func (a *Analyzer) signalTrigger(state *deviceState, c *stream.Chunk) *detect.DualThresholdTrigger {
	if !a.trigger.Enabled || c.Signal != a.trigger.Signal {
		return nil
	}
	if state.trigger != nil || state.triggerBroken {
		return state.trigger
	}
	rate := c.SampleRate / float64(c.DecimateFactor)
	tr, err := detect.NewDualThresholdTrigger(a.trigger.Signal,
		a.trigger.StartThreshold, samplesFor(a.trigger.StartDuration, rate),
		a.trigger.StopThreshold, samplesFor(a.trigger.StopDuration, rate),
	)
	if err != nil {
		state.triggerBroken = true
		a.logger.Error("Failed to build trigger",
			zap.String("signal", c.Signal),
			zap.Error(err),
		)
		return nil
	}
	state.trigger = tr
	return tr
}

// samplesFor converts a wall-clock duration to a sample count at the given
// effective rate, never below one sample.
func samplesFor(d time.Duration, rate float64) int {
	n := int(d.Seconds() * rate)
	if n < 1 {
		n = 1
	}
	return n
}

// getOrCreateDeviceState retrieves or initializes the state for a device.
func (a *Analyzer) getOrCreateDeviceState(device string) *deviceState {
	state, exists := a.devices[device]
	if exists {
		return state
	}

	trackers := make(map[string]*region.Tracker, len(a.regions.GPISignals))
	for _, sig := range a.regions.GPISignals {
		trackers[sig] = region.NewTracker(sig, a.pipeline.AnalogSignals)
	}
	state = &deviceState{
		sequences: make(map[string]*stream.Sequence),
		detectors: make(map[string][]*detect.WindowThresholdDetector),
		trackers:  trackers,
		accum:     NewAccumulator(device),
	}
	a.devices[device] = state
	a.logger.Debug("Created new state for device", zap.String("device", device))
	return state
}

// flushIntervals emits an interval record for every device that saw analog
// data since the previous flush.
func (a *Analyzer) flushIntervals(now time.Time) {
	for _, state := range a.devices {
		if rec, ok := state.accum.Flush(now); ok {
			a.emit(rec)
		}
	}
}

// drain flushes interval state and forces region trackers to give up their
// held chunks and queued analog data, emitting whatever completes. Regions
// still open afterwards are abandoned.
func (a *Analyzer) drain() {
	a.flushIntervals(time.Now())
	for device, state := range a.devices {
		for signal, tracker := range state.trackers {
			for _, r := range tracker.Flush() {
				a.emit(RegionRecord{Device: device, Signal: signal, Region: r})
			}
			if n := tracker.OpenRegions(); n > 0 {
				a.logger.Info("Abandoning unfinished regions at shutdown",
					zap.String("device", device),
					zap.String("signal", signal),
					zap.Int("count", n),
				)
			}
		}
	}
}

// emit hands an event downstream without blocking the analysis loop.
func (a *Analyzer) emit(ev Event) {
	select {
	case a.output <- ev:
	default:
		eventsDropped.WithLabelValues("analyzer").Inc()
		a.logger.Warn("Analyzer output channel full, dropping event")
	}
}
