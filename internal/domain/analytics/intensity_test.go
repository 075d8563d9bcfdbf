package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	atypes "github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/analytics"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		maxValue int
		want     atypes.Bucket
	}{
		{"max cell", 10, 10, atypes.BucketHighest},
		{"zero value", 0, 10, atypes.BucketLowest},
		{"zero max", 5, 0, atypes.BucketLowest},
		{"negative value", -1, 10, atypes.BucketLowest},
		// log10(1+9*0.06) ≈ 0.19, just under the LOW threshold.
		{"barely active", 6, 100, atypes.BucketLowest},
		// log10(1+9*0.5) ≈ 0.74 lands HIGH even though the ratio is 0.5.
		{"log lift at midpoint", 5, 10, atypes.BucketHigh},
		{"near max", 9, 10, atypes.BucketHighest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.value, tt.maxValue))
		})
	}
}

func TestClassifyMonotonic(t *testing.T) {
	// Growing a cell never cools its bucket.
	const maxValue = 50
	prev := Classify(0, maxValue)
	for v := 1; v <= maxValue; v++ {
		cur := Classify(v, maxValue)
		assert.GreaterOrEqual(t, cur.Rank(), prev.Rank(), "value %d", v)
		prev = cur
	}
	assert.Equal(t, atypes.BucketHighest, prev)
}

func TestNormalizedScoreRange(t *testing.T) {
	for v := 0; v <= 20; v++ {
		score := NormalizedScore(v, 20)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
	// Values above the supposed maximum clamp instead of overflowing the scale.
	assert.Equal(t, 1.0, NormalizedScore(30, 20))
}

func TestClassifyDeterministic(t *testing.T) {
	first := Classify(7, 23)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify(7, 23))
	}
}

func TestColorForMatchesLegend(t *testing.T) {
	assert.Equal(t, atypes.BucketColors[atypes.BucketHighest], ColorFor(10, 10))
	assert.Equal(t, atypes.BucketColors[atypes.BucketLowest], ColorFor(0, 10))

	legend := atypes.Legend()
	assert.Len(t, legend, 5)
	assert.Equal(t, atypes.BucketHighest, legend[0].Bucket)
	assert.Equal(t, atypes.BucketLowest, legend[4].Bucket)
}
