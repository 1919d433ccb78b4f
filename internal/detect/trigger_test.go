package detect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTrigger(t *testing.T, startTh float64, startDur int, stopTh float64, stopDur int) *DualThresholdTrigger {
	t.Helper()
	tr, err := NewDualThresholdTrigger("t", startTh, startDur, stopTh, stopDur)
	require.NoError(t, err)
	return tr
}

func TestTriggerConstructorValidation(t *testing.T) {
	_, err := NewDualThresholdTrigger("t", 1.0, 0, 0.1, 1)
	require.ErrorIs(t, err, ErrInvalidDuration)
	_, err = NewDualThresholdTrigger("t", 1.0, 1, 0.1, 0)
	require.ErrorIs(t, err, ErrInvalidDuration)
}

func TestTriggerEmptyBatch(t *testing.T) {
	tr := newTestTrigger(t, 1.0, 3, 0.2, 2)
	require.Empty(t, tr.Process(nil))
	require.False(t, tr.Active())
}

func TestTriggerAlternatesWithinOneBatch(t *testing.T) {
	tr := newTestTrigger(t, 1.0, 3, 0.2, 2)
	samples := []float64{0.0, 2, 2, 2, 2, 0.1, 0.1, 2, 2, 2}
	edges := tr.Process(samples)
	require.Equal(t, []Edge{
		{Offset: 4, Rising: true},
		{Offset: 7, Rising: false},
		{Offset: 10, Rising: true},
	}, edges)
	require.True(t, tr.Active())
}

func TestTriggerCarryAcrossBatches(t *testing.T) {
	tr := newTestTrigger(t, 1.0, 5, 0.2, 2)

	require.Empty(t, tr.Process([]float64{2, 2, 2}))
	require.False(t, tr.Active())

	edges := tr.Process([]float64{2, 2, 0.5, 0.5, 0.5})
	require.Equal(t, []Edge{{Offset: 2, Rising: true}}, edges)
	require.True(t, tr.Active())
}

func TestTriggerDisqualifyingSampleResetsCarry(t *testing.T) {
	tr := newTestTrigger(t, 1.0, 5, 0.2, 2)

	require.Empty(t, tr.Process([]float64{2, 2, 2}))
	require.Empty(t, tr.Process([]float64{0.0, 2, 2, 2, 2}))

	edges := tr.Process([]float64{2})
	require.Equal(t, []Edge{{Offset: 1, Rising: true}}, edges)
}

func TestTriggerStrictComparisons(t *testing.T) {
	tr := newTestTrigger(t, 1.0, 1, 0.2, 1)

	// Equal to the start threshold does not qualify.
	require.Empty(t, tr.Process([]float64{1.0, 1.0}))
	edges := tr.Process([]float64{1.01})
	require.Equal(t, []Edge{{Offset: 1, Rising: true}}, edges)

	// Equal to the stop threshold does not qualify either.
	require.Empty(t, tr.Process([]float64{0.2, 0.2}))
	edges = tr.Process([]float64{0.19})
	require.Equal(t, []Edge{{Offset: 1, Rising: false}}, edges)
}

func TestTriggerOnlyActiveConditionAccumulates(t *testing.T) {
	tr := newTestTrigger(t, 1.0, 2, 0.5, 3)

	// While armed, samples below the stop threshold must not pre-count.
	require.Empty(t, tr.Process([]float64{0.1, 0.1, 0.1, 0.1}))

	edges := tr.Process([]float64{2, 2})
	require.Equal(t, []Edge{{Offset: 2, Rising: true}}, edges)

	require.Empty(t, tr.Process([]float64{0.1, 0.1}))
	edges = tr.Process([]float64{0.1})
	require.Equal(t, []Edge{{Offset: 1, Rising: false}}, edges)
}

func TestTriggerClear(t *testing.T) {
	tr := newTestTrigger(t, 1.0, 3, 0.2, 2)
	edges := tr.Process([]float64{2, 2, 2, 0.1})
	require.Len(t, edges, 1)
	require.True(t, tr.Active())

	tr.Clear()
	require.False(t, tr.Active())

	// The start condition must complete from scratch after Clear.
	require.Empty(t, tr.Process([]float64{2, 2}))
	edges = tr.Process([]float64{2})
	require.Equal(t, []Edge{{Offset: 1, Rising: true}}, edges)
}
