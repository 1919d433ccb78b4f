package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccumulatorMergesSignalsAndIntegrates(t *testing.T) {
	a := NewAccumulator("js220-000042")

	a.Add(analogChunk("i", 0, []float64{1, 2, 3}))
	a.Add(analogChunk("p", 0, []float64{10, 10}))
	a.Add(analogChunk("v", 0, []float64{3.3}))

	rec, ok := a.Flush(time.Now())
	require.True(t, ok)
	require.Equal(t, "js220-000042", rec.Device)

	require.Equal(t, int64(3), rec.Signals["i"].Count)
	require.Equal(t, 2.0, rec.Signals["i"].Mean)
	require.Equal(t, int64(2), rec.Signals["p"].Count)
	require.Equal(t, int64(1), rec.Signals["v"].Count)

	// 1 ms per sample: 6 A·ms of charge, 20 W·ms of energy. Voltage does
	// not integrate into either total.
	require.InDelta(t, 0.006, rec.Charge, 1e-12)
	require.InDelta(t, 0.02, rec.Energy, 1e-12)
}

func TestAccumulatorFlushResetsIntervalOnly(t *testing.T) {
	a := NewAccumulator("dev")

	a.Add(analogChunk("i", 0, []float64{1, 1}))
	rec, ok := a.Flush(time.Now())
	require.True(t, ok)
	require.InDelta(t, 0.002, rec.Charge, 1e-12)

	_, ok = a.Flush(time.Now())
	require.False(t, ok, "an interval without data must not flush")

	a.Add(analogChunk("i", 2, []float64{1}))
	rec, ok = a.Flush(time.Now())
	require.True(t, ok)
	require.Equal(t, int64(1), rec.Signals["i"].Count, "interval summaries reset each flush")
	require.InDelta(t, 0.003, rec.Charge, 1e-12, "charge accumulates across flushes")
}

func TestAccumulatorIgnoresEmptyChunks(t *testing.T) {
	a := NewAccumulator("dev")
	a.Add(analogChunk("i", 0, nil))
	_, ok := a.Flush(time.Now())
	require.False(t, ok)
}

func TestAccumulatorIntervalBounds(t *testing.T) {
	a := NewAccumulator("dev")

	before := time.Now()
	a.Add(analogChunk("i", 0, []float64{1}))
	end := time.Now().Add(time.Second)

	rec, ok := a.Flush(end)
	require.True(t, ok)
	require.False(t, rec.Start.Before(before))
	require.Equal(t, end, rec.End)

	// The next interval starts where the previous one ended.
	a.Add(analogChunk("i", 1, []float64{1}))
	rec, ok = a.Flush(end.Add(time.Second))
	require.True(t, ok)
	require.Equal(t, end, rec.Start)
}
