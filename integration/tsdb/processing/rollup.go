package processing

import (
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// RolledBuckets is a coarse grained histogram built from raw buckets.
type RolledBuckets struct {
	Multiplier int
	Offset     int // phase offset reduced modulo Multiplier
	Buckets    []Bucket
	LatestKey  string
	Latest     *Bucket // value of the last group , nil if there were no buckets
}

// MarshalJSON encodes rolled buckets into the availability envelope , latest value is added under LatestKey.
func (rb *RolledBuckets) MarshalJSON() ([]byte, error) {
	return marshalBucketEnvelope(rb.Buckets, rb.Latest, rb.LatestKey)
}

type rollUpGroup struct {
	first    int
	weighted stats.Float64Data
}

// RollUp merges every multiplier consecutive buckets into one bucket , groups start where
// (index + firstBucketOffset) is a multiple of multiplier. Group is represented by its first bucket time.
// Member counts are weighted by multiplier / group size , so full groups are plain sums and
// trailing partial group is scaled up to the size of a full group.
func RollUp(buckets []Bucket, multiplier, firstBucketOffset int, latestKey string) (*RolledBuckets, error) {
	if multiplier < 1 {
		return nil, errors.Wrapf(ErrInvalidRollUp, "multiplier %d", multiplier)
	}
	offset := ((firstBucketOffset % multiplier) + multiplier) % multiplier
	sorted := make([]Bucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	n := len(sorted)
	var groups []*rollUpGroup
	for i := range sorted {
		first := i - (i+offset)%multiplier
		if first < 0 {
			first = 0
		}
		divisor := multiplier
		if first+multiplier >= n {
			divisor = n - first
		}
		if len(groups) == 0 || groups[len(groups)-1].first != first {
			groups = append(groups, &rollUpGroup{first: first})
		}
		g := groups[len(groups)-1]
		g.weighted = append(g.weighted, sorted[i].Count*float64(multiplier)/float64(divisor))
	}

	result := &RolledBuckets{Multiplier: multiplier, Offset: offset, LatestKey: latestKey, Buckets: make([]Bucket, 0, len(groups))}
	for _, g := range groups {
		sum, err := g.weighted.Sum()
		if err != nil {
			return nil, err
		}
		result.Buckets = append(result.Buckets, Bucket{Time: sorted[g.first].Time, Count: sum})
	}
	if len(result.Buckets) > 0 {
		latest := result.Buckets[len(result.Buckets)-1]
		result.Latest = &latest
	}
	log.Debugf("<rollup> %d buckets rolled up into %d. Multiplier = %d , offset = %d", n, len(result.Buckets), multiplier, offset)
	return result, nil
}
