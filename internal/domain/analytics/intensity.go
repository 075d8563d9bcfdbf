package analytics

import (
	"math"

	atypes "github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/analytics"
)

// NormalizedScore maps a cell value onto [0, 1] against the matrix maximum.
// The score is the larger of the linear ratio and its log-compressed form
// log10(1+9n), which lifts mid-range values so sparse matrices still show
// visual contrast instead of one hot cell in a sea of pale ones.
func NormalizedScore(value, maxValue int) float64 {
	if maxValue <= 0 || value <= 0 {
		return 0
	}
	n := float64(value) / float64(maxValue)
	if n > 1 {
		n = 1
	}
	return math.Max(n, math.Log10(1+9*n))
}

// Classify places a cell value into one of the five intensity tiers.
// Pure function of (value, maxValue): the same pair always lands in the same
// bucket, which is what makes the color legend reproducible from data alone.
func Classify(value, maxValue int) atypes.Bucket {
	return bucketFor(NormalizedScore(value, maxValue))
}

// bucketFor applies the shared threshold ladder to a normalized score.
func bucketFor(score float64) atypes.Bucket {
	switch {
	case score >= atypes.ThresholdHighest:
		return atypes.BucketHighest
	case score >= atypes.ThresholdHigh:
		return atypes.BucketHigh
	case score >= atypes.ThresholdMedium:
		return atypes.BucketMedium
	case score >= atypes.ThresholdLow:
		return atypes.BucketLow
	default:
		return atypes.BucketLowest
	}
}

// ColorFor returns the heat palette color for a cell value.
func ColorFor(value, maxValue int) string {
	return atypes.BucketColors[Classify(value, maxValue)]
}
