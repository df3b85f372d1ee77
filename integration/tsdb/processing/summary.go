package processing

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

const (
	AggregationFuncSum  = 0
	AggregationFuncMean = 1
	AggregationFuncLast = 2
	AggregationFuncMin  = 3
	AggregationFuncMax  = 4
)

// BucketSummary is used by charts to scale axes and to show the current value.
type BucketSummary struct {
	Buckets int     `json:"buckets"`
	Total   float64 `json:"total"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Latest  float64 `json:"latest"`
}

// AggregateCounts applies aggregation function to the list of counts.
func AggregateCounts(counts []float64, aggregationFunc byte) (float64, error) {
	if len(counts) == 0 {
		return 0, stats.EmptyInputErr
	}
	switch aggregationFunc {
	case AggregationFuncSum:
		return stats.Sum(counts)
	case AggregationFuncMean:
		return stats.Mean(counts)
	case AggregationFuncMin:
		return stats.Min(counts)
	case AggregationFuncMax:
		return stats.Max(counts)
	case AggregationFuncLast:
		return counts[len(counts)-1], nil
	}
	return 0, fmt.Errorf("unknown aggregation function %d", aggregationFunc)
}

// Summarize calculates summary over ordered buckets. Empty input gives zero summary.
func Summarize(buckets []Bucket) (BucketSummary, error) {
	summary := BucketSummary{Buckets: len(buckets)}
	if len(buckets) == 0 {
		return summary, nil
	}
	counts := make([]float64, len(buckets))
	for i := range buckets {
		counts[i] = buckets[i].Count
	}
	var err error
	for _, f := range []struct {
		fn  byte
		dst *float64
	}{
		{AggregationFuncSum, &summary.Total},
		{AggregationFuncMin, &summary.Min},
		{AggregationFuncMax, &summary.Max},
		{AggregationFuncMean, &summary.Mean},
		{AggregationFuncLast, &summary.Latest},
	} {
		if *f.dst, err = AggregateCounts(counts, f.fn); err != nil {
			return BucketSummary{}, err
		}
	}
	return summary, nil
}
