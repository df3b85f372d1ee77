package processing

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/thingsplex/tsiclient/model"
	"github.com/thingsplex/tsiclient/utils"
)

const (
	AvailabilityCountKey = "availabilityCount"
	// number of synthetic sub-buckets a single bucket is split into when the whole range fits into one bucket
	subBucketsPerBucket = 60
)

// Bucket is one slot of an availability histogram. Bucket time is always a whole second.
type Bucket struct {
	Time  time.Time
	Count float64
}

func (b Bucket) Timestamp() string {
	return utils.ToISONoMillis(b.Time)
}

type bucketCount struct {
	Count float64 `json:"count"`
}

// AvailabilityBuckets is a dense histogram ordered by time.
// The last bucket is the synthetic boundary bucket placed at the range end.
type AvailabilityBuckets struct {
	Range          model.TimeRange
	BucketSize     time.Duration
	RawBucketCount int64
	Buckets        []Bucket
}

// CountedBuckets returns buckets without the boundary bucket , which only repeats the count of the bucket closing the range.
func (ab *AvailabilityBuckets) CountedBuckets() []Bucket {
	if len(ab.Buckets) == 0 {
		return ab.Buckets
	}
	end := time.UnixMilli(ab.Range.To.UnixMilli()).Truncate(time.Second).UTC()
	if !end.After(ab.Buckets[0].Time) {
		return ab.Buckets
	}
	counted := make([]Bucket, 0, len(ab.Buckets)-1)
	for _, b := range ab.Buckets {
		if !b.Time.Equal(end) {
			counted = append(counted, b)
		}
	}
	return counted
}

// MarshalJSON encodes buckets into {"availabilityCount":{"":{<timestamp>:{"count":n}}}} envelope.
func (ab *AvailabilityBuckets) MarshalJSON() ([]byte, error) {
	return marshalBucketEnvelope(ab.Buckets, nil, "")
}

func marshalBucketEnvelope(buckets []Bucket, latest *Bucket, latestKey string) ([]byte, error) {
	counts := NewOrderedMap[bucketCount]()
	for i := range buckets {
		counts.Set(buckets[i].Timestamp(), bucketCount{Count: buckets[i].Count})
	}
	if latest != nil {
		counts.Set(latestKey, bucketCount{Count: latest.Count})
	}
	return json.Marshal(map[string]map[string]*OrderedMap[bucketCount]{AvailabilityCountKey: {"": counts}})
}

// TransformAvailability converts availability response of the service into dense buckets.
func TransformAvailability(res model.AvailabilityResult) (*AvailabilityBuckets, error) {
	bucketSize, err := utils.ParseIntervalSize(res.IntervalSize)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedRange, "interval size: %s", err.Error())
	}
	return NormalizeAvailability(res.Distribution, res.Range, bucketSize)
}

// NormalizeAvailability aligns sparse distribution to the bucket grid of the range.
// First bucket is clipped to the range start, the last one is placed exactly at the range end and
// carries the count of the bucket which closes the range. Distribution entries outside the range are dropped.
// If the whole range fits into one bucket , the bucket is padded with zero sub-buckets (bucketSize/60 stride).
func NormalizeAvailability(dist model.Distribution, rng model.TimeRange, bucketSize time.Duration) (*AvailabilityBuckets, error) {
	bMs := bucketSize.Milliseconds()
	if bMs <= 0 {
		return nil, errors.Wrapf(ErrMalformedRange, "bucket size %s is too small", bucketSize)
	}
	if rng.To.Before(rng.From) {
		return nil, errors.Wrapf(ErrMalformedRange, "range end %s is before range start %s", rng.To, rng.From)
	}
	entries, err := normalizeDistribution(dist)
	if err != nil {
		return nil, err
	}
	fromMs := rng.From.UnixMilli()
	toMs := rng.To.UnixMilli()

	buckets := map[int64]float64{}
	startBucket := floorDiv(fromMs, bMs) * bMs
	lastBucket := floorDiv(toMs, bMs) * bMs
	degenerate := startBucket == lastBucket
	firstCount := entries[secOf(startBucket)]
	firstKey := secOf(startBucket)
	if startBucket < fromMs {
		firstKey = secOf(fromMs)
	}
	buckets[firstKey] = firstCount
	for sec, count := range entries {
		// count of the aligned start bucket is already carried by the clipped first bucket
		if !degenerate && (sec < firstKey || sec > secOf(toMs)) {
			continue
		}
		buckets[sec] = count
	}

	// the range is half-open , boundary bucket reports the bucket holding the last instant of the range
	closingMs := toMs
	if toMs > fromMs {
		closingMs = toMs - 1
	}
	closingKey := secOf(floorDiv(closingMs, bMs) * bMs)
	if !degenerate && closingKey < firstKey {
		closingKey = firstKey
	}
	buckets[secOf(toMs)] = buckets[closingKey]

	if degenerate {
		step := float64(bMs) / subBucketsPerBucket
		for i := float64(startBucket); i <= float64(startBucket+bMs); i += step {
			key := secOf(int64(i))
			if _, ok := buckets[key]; !ok {
				buckets[key] = 0
			}
		}
		// count of the aligned bucket belongs to time before the visible range
		if startBucket != fromMs {
			buckets[secOf(startBucket)] = 0
		}
	}

	result := &AvailabilityBuckets{
		Range:          rng,
		BucketSize:     bucketSize,
		RawBucketCount: ceilDiv(toMs-fromMs, bMs),
		Buckets:        sortedBuckets(buckets),
	}
	log.Debugf("<avail> %d distribution entries normalized into %d buckets. Bucket size = %s , raw bucket count = %d",
		len(dist), len(result.Buckets), bucketSize, result.RawBucketCount)
	return result, nil
}

type distEntry struct {
	key string
	ms  int64
	cnt int64
}

// normalizeDistribution strips milliseconds from distribution keys. Keys which collide after stripping
// are applied in time order , the latest original instant wins.
func normalizeDistribution(dist model.Distribution) (map[int64]float64, error) {
	list := make([]distEntry, 0, len(dist))
	for k, v := range dist {
		t, err := utils.ParseISOTime(k)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedTimestamp, "distribution key %q", k)
		}
		list = append(list, distEntry{key: k, ms: t.UnixMilli(), cnt: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ms != list[j].ms {
			return list[i].ms < list[j].ms
		}
		return list[i].key < list[j].key
	})
	result := make(map[int64]float64, len(list))
	for _, e := range list {
		result[secOf(e.ms)] = float64(e.cnt)
	}
	return result, nil
}

func sortedBuckets(buckets map[int64]float64) []Bucket {
	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	result := make([]Bucket, len(keys))
	for i, k := range keys {
		result[i] = Bucket{Time: time.Unix(k, 0).UTC(), Count: buckets[k]}
	}
	return result
}

func secOf(ms int64) int64 {
	return floorDiv(ms, 1000)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	return -floorDiv(-a, b)
}
