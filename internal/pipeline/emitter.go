package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wattlens/wattlens/internal/config"
	"github.com/wattlens/wattlens/internal/stream"
)

// Emitter terminates the pipeline. Completed regions append to the region
// CSV, detections and trigger transitions are logged, and interval records
// refresh the exported metrics.
type Emitter struct {
	signals []string
	input   <-chan Event
	writer  *csv.Writer
	closer  io.Closer // nil when writing to stdout
	logger  *zap.Logger
}

// NewEmitter creates a new Emitter instance. An empty RegionCSV path sends
// region rows to stdout; otherwise the file is opened for append and the
// header is written only when the file is empty.
func NewEmitter(cfg config.OutputConfig, analogSignals []string, input <-chan Event, logger *zap.Logger) (*Emitter, error) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer
		fresh  = true
	)
	if cfg.RegionCSV != "" {
		f, err := os.OpenFile(cfg.RegionCSV, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open region output %q: %w", cfg.RegionCSV, err)
		}
		if info, err := f.Stat(); err == nil && info.Size() > 0 {
			fresh = false
		}
		out = f
		closer = f
	}

	e := &Emitter{
		signals: append([]string(nil), analogSignals...),
		input:   input,
		writer:  csv.NewWriter(out),
		closer:  closer,
		logger:  logger,
	}

	if fresh {
		if err := e.writeHeader(); err != nil {
			if closer != nil {
				closer.Close()
			}
			return nil, err
		}
	}

	logger.Info("Emitter initialized",
		zap.String("region_csv", cfg.RegionCSV),
		zap.Strings("signals", analogSignals),
	)
	return e, nil
}

func (e *Emitter) writeHeader() error {
	header := []string{"device", "signal", "sample_id_start", "sample_id_end", "utc_start", "utc_end"}
	for _, sig := range e.signals {
		header = append(header,
			sig+".length", sig+".mean", sig+".std", sig+".min", sig+".max")
	}
	if err := e.writer.Write(header); err != nil {
		return fmt.Errorf("failed to write region header: %w", err)
	}
	e.writer.Flush()
	return e.writer.Error()
}

// Run starts the emitter's processing loop.
func (e *Emitter) Run(ctx context.Context) error {
	sugar := e.logger.Sugar()
	sugar.Info("Starting emitter loop...")
	defer sugar.Info("Emitter loop stopped.")
	defer e.close()

	for {
		select {
		case ev, ok := <-e.input:
			if !ok {
				sugar.Info("Emitter input channel closed.")
				return nil
			}
			e.processEvent(ev)

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping emitter.")
			return ctx.Err()
		}
	}
}

func (e *Emitter) close() {
	e.writer.Flush()
	if err := e.writer.Error(); err != nil {
		e.logger.Error("Failed to flush region writer", zap.Error(err))
	}
	if e.closer != nil {
		if err := e.closer.Close(); err != nil {
			e.logger.Error("Failed to close region output", zap.Error(err))
		}
	}
}

// processEvent dispatches one event to its handler.
func (e *Emitter) processEvent(ev Event) {
	switch t := ev.(type) {
	case DetectionEvent:
		e.processDetection(t)
	case TriggerEvent:
		e.processTrigger(t)
	case RegionRecord:
		e.processRegion(t)
	case IntervalRecord:
		e.processInterval(t)
	default:
		e.logger.Warn("Received unknown event type, skipping")
	}
}

// processDetection logs the detection at warn, the same severity class as a
// threshold violation, and counts it.
func (e *Emitter) processDetection(ev DetectionEvent) {
	detectionsTotal.WithLabelValues(ev.Device, ev.Signal, ev.Detector).Inc()
	e.logger.Sugar().Warnw("Detection condition satisfied",
		zap.String("device", ev.Device),
		zap.String("signal", ev.Signal),
		zap.String("detector", ev.Detector),
		zap.Float64("threshold", ev.Threshold),
		zap.Uint64("sample_id_start", ev.SampleIDStart),
		zap.Uint64("sample_id_end", ev.SampleIDEnd),
		zap.Time("utc", stream.ToTime(ev.UTC)),
	)
}

func (e *Emitter) processTrigger(ev TriggerEvent) {
	edge := "falling"
	active := 0.0
	if ev.Rising {
		edge = "rising"
		active = 1.0
	}
	triggerEdges.WithLabelValues(ev.Device, ev.Signal, edge).Inc()
	triggerActive.WithLabelValues(ev.Device, ev.Signal).Set(active)
	e.logger.Sugar().Infow("Trigger transition",
		zap.String("device", ev.Device),
		zap.String("signal", ev.Signal),
		zap.String("edge", edge),
		zap.Uint64("sample_id", ev.SampleID),
		zap.Time("utc", stream.ToTime(ev.UTC)),
	)
}

// processRegion appends one CSV row in header column order and flushes it
// immediately so rows can be tailed while the pipeline runs. Signals the
// region did not track leave their columns empty.
func (e *Emitter) processRegion(ev RegionRecord) {
	r := ev.Region
	regionsCompleted.WithLabelValues(ev.Device, ev.Signal).Inc()
	regionLastLength.WithLabelValues(ev.Device, ev.Signal).Set(float64(r.Length()))

	row := []string{
		ev.Device,
		ev.Signal,
		strconv.FormatUint(r.SampleIDStart, 10),
		strconv.FormatUint(r.SampleIDEnd, 10),
		stream.ToTime(r.UTCStart).Format(time.RFC3339Nano),
		stream.ToTime(r.UTCEnd).Format(time.RFC3339Nano),
	}
	for _, sig := range e.signals {
		s, ok := r.Stats(sig)
		if !ok {
			row = append(row, "", "", "", "", "")
			continue
		}
		row = append(row,
			strconv.FormatInt(s.Count, 10),
			formatFloat(s.Mean),
			formatFloat(s.Std()),
			formatFloat(s.Min),
			formatFloat(s.Max),
		)
	}
	if err := e.writer.Write(row); err != nil {
		e.logger.Error("Failed to write region row", zap.Error(err))
		return
	}
	e.writer.Flush()
	if err := e.writer.Error(); err != nil {
		e.logger.Error("Failed to flush region row", zap.Error(err))
	}

	e.logger.Sugar().Infow("Region completed",
		zap.String("device", ev.Device),
		zap.String("signal", ev.Signal),
		zap.Uint64("sample_id_start", r.SampleIDStart),
		zap.Uint64("sample_id_end", r.SampleIDEnd),
		zap.Uint64("length", r.Length()),
	)
}

// processInterval refreshes the interval gauges and logs one summary line
// per signal plus the device's running totals.
func (e *Emitter) processInterval(ev IntervalRecord) {
	sugar := e.logger.Sugar()
	for sig, s := range ev.Signals {
		intervalMean.WithLabelValues(ev.Device, sig).Set(s.Mean)
		intervalStdDev.WithLabelValues(ev.Device, sig).Set(s.Std())
		sugar.Infow("Interval stats processed",
			zap.String("device", ev.Device),
			zap.String("signal", sig),
			zap.Time("interval_end", ev.End),
			zap.Duration("interval", ev.End.Sub(ev.Start)),
			zap.Int64("count", s.Count),
			zap.Float64("mean", s.Mean),
			zap.Float64("stddev", s.Std()),
			zap.Float64("min", s.Min),
			zap.Float64("max", s.Max),
		)
	}
	chargeTotal.WithLabelValues(ev.Device).Set(ev.Charge)
	energyTotal.WithLabelValues(ev.Device).Set(ev.Energy)
	sugar.Infow("Accumulated totals",
		zap.String("device", ev.Device),
		zap.Float64("charge_coulombs", ev.Charge),
		zap.Float64("energy_joules", ev.Energy),
	)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
