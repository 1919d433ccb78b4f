package region

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wattlens/wattlens/internal/stream"
)

func digitalChunk(sampleID uint64, bits []bool, decimate uint64) *stream.Chunk {
	return &stream.Chunk{
		Device:         "js220-000123",
		Signal:         "gpi0",
		SampleID:       sampleID,
		DecimateFactor: decimate,
		SampleRate:     1000.0,
		TimeMap:        stream.TimeMap{OffsetCounter: 0, CounterRate: 1000.0, OffsetTime: 0},
		Bits:           stream.PackBits(bits),
	}
}

func analogChunk(signal string, sampleID uint64, data []float64, decimate uint64) *stream.Chunk {
	return &stream.Chunk{
		Device:         "js220-000123",
		Signal:         signal,
		SampleID:       sampleID,
		DecimateFactor: decimate,
		SampleRate:     1000.0,
		TimeMap:        stream.TimeMap{OffsetCounter: 0, CounterRate: 1000.0, OffsetTime: 0},
		Data:           data,
	}
}

// levels returns n bits for sample-ids base..base+n-1, high inside the given
// [start, end) spans.
func levels(base uint64, n int, spans ...[2]uint64) []bool {
	bits := make([]bool, n)
	for i := range bits {
		id := base + uint64(i)
		for _, s := range spans {
			if id >= s[0] && id < s[1] {
				bits[i] = true
			}
		}
	}
	return bits
}

// runRegionScenario drives one region spanning sample-ids [100, 250) through
// a tracker: analog value 5 inside the region, 1 outside, analog chunks of
// analogSize and digital chunks of digitalSize samples.
func runRegionScenario(t *testing.T, digitalSize, analogSize int) []*Region {
	t.Helper()
	tr := NewTracker("gpi0", []string{"i"})

	analog := make([]float64, 600)
	for i := range analog {
		if i >= 100 && i < 250 {
			analog[i] = 5.0
		} else {
			analog[i] = 1.0
		}
	}
	for off := 0; off < len(analog); off += analogSize {
		end := off + analogSize
		if end > len(analog) {
			end = len(analog)
		}
		tr.PushData(analogChunk("i", uint64(off), analog[off:end], 1))
	}

	var done []*Region
	for off := 0; off < 800; off += digitalSize {
		bits := levels(uint64(off), digitalSize, [2]uint64{100, 250})
		done = append(done, tr.PushBits(digitalChunk(uint64(off), bits, 1))...)
	}
	done = append(done, tr.Flush()...)
	require.Equal(t, 0, tr.OpenRegions())
	return done
}

func TestTrackerEndToEnd(t *testing.T) {
	tm := stream.TimeMap{OffsetCounter: 0, CounterRate: 1000.0, OffsetTime: 0}
	for _, analogSize := range []int{10, 33, 200} {
		done := runRegionScenario(t, 200, analogSize)
		require.Len(t, done, 1, "analog size %d", analogSize)

		r := done[0]
		require.Equal(t, uint64(100), r.SampleIDStart, "analog size %d", analogSize)
		require.Equal(t, uint64(250), r.SampleIDEnd, "analog size %d", analogSize)
		require.Equal(t, uint64(150), r.Length(), "analog size %d", analogSize)
		require.Equal(t, tm.UTC(100), r.UTCStart, "analog size %d", analogSize)
		require.Equal(t, tm.UTC(250), r.UTCEnd, "analog size %d", analogSize)

		s, ok := r.Stats("i")
		require.True(t, ok)
		require.Equal(t, int64(150), s.Count, "analog size %d", analogSize)
		require.Equal(t, 5.0, s.Mean, "analog size %d", analogSize)
		require.Equal(t, 0.0, s.Std(), "analog size %d", analogSize)
		require.Equal(t, 5.0, s.Min, "analog size %d", analogSize)
		require.Equal(t, 5.0, s.Max, "analog size %d", analogSize)
	}
}

func TestTrackerDigitalChunkingInvariance(t *testing.T) {
	for _, digitalSize := range []int{8, 40, 200} {
		done := runRegionScenario(t, digitalSize, 50)
		require.Len(t, done, 1, "digital size %d", digitalSize)
		require.Equal(t, uint64(100), done[0].SampleIDStart, "digital size %d", digitalSize)
		require.Equal(t, uint64(250), done[0].SampleIDEnd, "digital size %d", digitalSize)
		s, _ := done[0].Stats("i")
		require.Equal(t, int64(150), s.Count, "digital size %d", digitalSize)
		require.Equal(t, 5.0, s.Mean, "digital size %d", digitalSize)
	}
}

func TestTrackerDelaysOneChunk(t *testing.T) {
	tr := NewTracker("gpi0", []string{"i"})

	require.Empty(t, tr.PushBits(digitalChunk(0, levels(0, 80, [2]uint64{10, 20}), 1)))
	require.Equal(t, 0, tr.OpenRegions())

	require.Empty(t, tr.PushBits(digitalChunk(80, levels(80, 80), 1)))
	require.Equal(t, 1, tr.OpenRegions())

	data := make([]float64, 160)
	for i := 10; i < 20; i++ {
		data[i] = 3.0
	}
	tr.PushData(analogChunk("i", 0, data, 1))
	done := tr.Flush()
	require.Len(t, done, 1)
	require.Equal(t, uint64(10), done[0].SampleIDStart)
	require.Equal(t, uint64(20), done[0].SampleIDEnd)
	s, ok := done[0].Stats("i")
	require.True(t, ok)
	require.Equal(t, int64(10), s.Count)
	require.Equal(t, 3.0, s.Mean)
	require.Equal(t, 0, tr.OpenRegions())
}

func TestTrackerRegionsCompleteInCreationOrder(t *testing.T) {
	tr := NewTracker("gpi0", []string{"i", "v"})
	spans := [][2]uint64{{100, 250}, {400, 401}, {500, 560}}

	var done []*Region
	for off := uint64(0); off < 800; off += 80 {
		done = append(done, tr.PushBits(digitalChunk(off, levels(off, 80, spans...), 1))...)
	}
	require.Empty(t, done)
	require.Equal(t, 3, tr.OpenRegions())

	data := make([]float64, 800)
	for i := range data {
		data[i] = float64(i)
	}
	for off := 0; off < len(data); off += 100 {
		tr.PushData(analogChunk("i", uint64(off), data[off:off+100], 1))
		tr.PushData(analogChunk("v", uint64(off), data[off:off+100], 1))
	}
	done = append(done, tr.Flush()...)

	require.Len(t, done, 3)
	require.Equal(t, uint64(100), done[0].SampleIDStart)
	require.Equal(t, uint64(250), done[0].SampleIDEnd)
	require.Equal(t, uint64(400), done[1].SampleIDStart)
	require.Equal(t, uint64(401), done[1].SampleIDEnd)
	require.Equal(t, uint64(1), done[1].Length())
	require.Equal(t, uint64(500), done[2].SampleIDStart)
	require.Equal(t, uint64(560), done[2].SampleIDEnd)

	s, ok := done[0].Stats("i")
	require.True(t, ok)
	require.Equal(t, int64(150), s.Count)
	require.Equal(t, 174.5, s.Mean)
	require.InDelta(t, (150.0*150.0-1)/12.0, s.Var, 1e-6)

	v, ok := done[0].Stats("v")
	require.True(t, ok)
	require.Equal(t, int64(150), v.Count)

	single, ok := done[1].Stats("i")
	require.True(t, ok)
	require.Equal(t, int64(1), single.Count)
	require.Equal(t, 400.0, single.Mean)
	require.Equal(t, 0.0, single.Var)
}

func TestTrackerStreamStartsHigh(t *testing.T) {
	tr := NewTracker("gpi0", []string{"i"})
	spans := [][2]uint64{{0, 40}, {120, 200}}

	var done []*Region
	for off := uint64(0); off < 400; off += 80 {
		done = append(done, tr.PushBits(digitalChunk(off, levels(off, 80, spans...), 1))...)
	}
	data := make([]float64, 400)
	for i := range data {
		data[i] = 2.0
	}
	for off := 0; off < len(data); off += 80 {
		tr.PushData(analogChunk("i", uint64(off), data[off:off+80], 1))
	}
	done = append(done, tr.Flush()...)

	// The high level at stream start is the initial state, not an edge.
	require.Len(t, done, 1)
	require.Equal(t, uint64(120), done[0].SampleIDStart)
	require.Equal(t, uint64(200), done[0].SampleIDEnd)
	require.Equal(t, 0, tr.OpenRegions())
}

func TestTrackerDecimatedEdgeIDs(t *testing.T) {
	tr := NewTracker("gpi0", []string{"i"})

	bits := make([]bool, 16)
	for i := 3; i < 10; i++ {
		bits[i] = true
	}
	require.Empty(t, tr.PushBits(digitalChunk(1000, bits, 8)))
	require.Empty(t, tr.PushBits(digitalChunk(1128, make([]bool, 16), 8)))
	require.Equal(t, 1, tr.OpenRegions())

	data := make([]float64, 32)
	for i := range data {
		data[i] = 3.0
	}
	tr.PushData(analogChunk("i", 1000, data, 8))
	done := tr.Flush()
	require.Len(t, done, 1)
	require.Equal(t, uint64(1024), done[0].SampleIDStart)
	require.Equal(t, uint64(1080), done[0].SampleIDEnd)
	s, _ := done[0].Stats("i")
	require.Equal(t, int64(7), s.Count)
	require.Equal(t, 3.0, s.Mean)
}

func TestTrackerDropsUntrackedAnalogSignal(t *testing.T) {
	tr := NewTracker("gpi0", []string{"i"})
	tr.PushData(analogChunk("p", 0, []float64{1, 2, 3}, 1))

	require.Empty(t, tr.PushBits(digitalChunk(0, levels(0, 80, [2]uint64{10, 20}), 1)))
	require.Empty(t, tr.PushBits(digitalChunk(80, levels(80, 80), 1)))
	tr.PushData(analogChunk("i", 0, make([]float64, 160), 1))
	done := tr.Flush()
	require.Len(t, done, 1)
	_, ok := done[0].Stats("p")
	require.False(t, ok)
}

func TestTrackerAbandonsOpenRegionAtFlush(t *testing.T) {
	tr := NewTracker("gpi0", []string{"i"})
	for off := uint64(0); off < 240; off += 80 {
		require.Empty(t, tr.PushBits(digitalChunk(off, levels(off, 80, [2]uint64{40, 100000}), 1)))
	}
	require.Empty(t, tr.Flush())
	require.Equal(t, 1, tr.OpenRegions())
}
