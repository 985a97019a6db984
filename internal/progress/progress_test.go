package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpan_Scale(t *testing.T) {
	assert.Equal(t, 0.0, FetchSpan.Scale(0))
	assert.Equal(t, 20.0, FetchSpan.Scale(0.5))
	assert.Equal(t, 40.0, FetchSpan.Scale(1))
	assert.Equal(t, 40.0, FetchSpan.Scale(3))
	assert.Equal(t, 0.0, FetchSpan.Scale(-1))
	assert.Equal(t, 20.0, FetchSpan.Percent(50))
}

func TestSpan_LogisticMonotonicAndBounded(t *testing.T) {
	prev := PackSpan.Logistic(0, DefaultSteepness)
	assert.Equal(t, PackSpan.Lo, prev)

	for count := 1; count <= 5000; count++ {
		v := PackSpan.Logistic(count, DefaultSteepness)
		assert.Less(t, v, PackSpan.Hi, "count %d reached the ceiling", count)
		assert.GreaterOrEqual(t, v, prev, "count %d went backwards", count)
		prev = v
	}
	// Saturation still stays strictly below the ceiling.
	assert.Less(t, PackSpan.Logistic(1_000_000, 10), PackSpan.Hi)
}

func TestSpan_LogisticDefaultsSteepness(t *testing.T) {
	assert.Equal(t,
		PackSpan.Logistic(10, DefaultSteepness),
		PackSpan.Logistic(10, 0))
}

func TestTracker_NonDecreasing(t *testing.T) {
	var tr Tracker
	assert.Equal(t, 10.0, tr.Advance(10))
	assert.Equal(t, 10.0, tr.Advance(5))
	assert.Equal(t, 12.5, tr.Advance(12.5))
	assert.Equal(t, 12.5, tr.Last())
}

func TestSpans_Contiguous(t *testing.T) {
	assert.Equal(t, FetchSpan.Hi, ScanSpan.Lo)
	assert.Equal(t, ScanSpan.Hi, SelectSpan.Lo)
	assert.Equal(t, SelectSpan.Hi, PackSpan.Lo)
	assert.Less(t, PackSpan.Hi, Complete)
}
