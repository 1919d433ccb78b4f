package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseChunkAnalog(t *testing.T) {
	payload := []byte(`{
		"device": "js220-000123",
		"signal": "i",
		"sample_id": 1000,
		"decimate_factor": 2,
		"sample_rate": 2000000,
		"time_map": {"offset_counter": 1000, "counter_rate": 2000000, "offset_time": 107374182400},
		"data": [0.5, 0.25, 0.125]
	}`)

	c, err := ParseChunk(payload)
	require.NoError(t, err)
	require.Equal(t, "js220-000123", c.Device)
	require.Equal(t, "i", c.Signal)
	require.Equal(t, uint64(1000), c.SampleID)
	require.Equal(t, []float64{0.5, 0.25, 0.125}, c.Data)
	require.False(t, c.IsDigital())
}

func TestParseChunkDigital(t *testing.T) {
	payload := []byte(`{
		"device": "js220-000123",
		"signal": "gpi0",
		"sample_id": 0,
		"decimate_factor": 1,
		"sample_rate": 2000000,
		"time_map": {"offset_counter": 0, "counter_rate": 2000000, "offset_time": 0},
		"bits": "BQ=="
	}`)

	c, err := ParseChunk(payload)
	require.NoError(t, err)
	require.True(t, c.IsDigital())
	require.Equal(t, []byte{0x05}, c.Bits)
	require.Equal(t, 8, c.SampleCount())
}

func TestParseChunkMalformed(t *testing.T) {
	_, err := ParseChunk([]byte(`{not json`))
	require.ErrorIs(t, err, ErrInvalidChunk)
}

func TestParseChunkValidation(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"missing device", `{"signal": "i", "decimate_factor": 1, "sample_rate": 1, "time_map": {"counter_rate": 1}, "data": [1]}`},
		{"missing signal", `{"device": "d", "decimate_factor": 1, "sample_rate": 1, "time_map": {"counter_rate": 1}, "data": [1]}`},
		{"zero decimate", `{"device": "d", "signal": "i", "decimate_factor": 0, "sample_rate": 1, "time_map": {"counter_rate": 1}, "data": [1]}`},
		{"zero sample rate", `{"device": "d", "signal": "i", "decimate_factor": 1, "sample_rate": 0, "time_map": {"counter_rate": 1}, "data": [1]}`},
		{"zero counter rate", `{"device": "d", "signal": "i", "decimate_factor": 1, "sample_rate": 1, "time_map": {"counter_rate": 0}, "data": [1]}`},
		{"both payloads", `{"device": "d", "signal": "i", "decimate_factor": 1, "sample_rate": 1, "time_map": {"counter_rate": 1}, "data": [1], "bits": "AQ=="}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseChunk([]byte(tc.payload))
			require.ErrorIs(t, err, ErrInvalidChunk)
		})
	}
}
