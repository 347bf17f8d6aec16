package batch

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/usestring/superkart-inference/pkg/types"
)

// Summarize computes descriptive statistics over predictions. It returns nil
// for an empty slice. Std is the population standard deviation.
func Summarize(ys []float64) *types.Statistics {
	if len(ys) == 0 {
		return nil
	}

	sorted := slices.Clone(ys)
	slices.Sort(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return &types.Statistics{
		Count:  len(sorted),
		Mean:   mean,
		Median: median,
		Std:    std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Total:  floats.Sum(sorted),
	}
}
