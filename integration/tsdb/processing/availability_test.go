package processing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/thingsplex/tsiclient/model"
)

func Setup() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.DebugLevel)
}

func tm(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t
}

func rangeOf(from, to string) model.TimeRange {
	return model.TimeRange{From: tm(from), To: tm(to)}
}

func timestamps(buckets []Bucket) []string {
	var result []string
	for _, b := range buckets {
		result = append(result, b.Timestamp())
	}
	return result
}

func counts(buckets []Bucket) []float64 {
	var result []float64
	for _, b := range buckets {
		result = append(result, b.Count)
	}
	return result
}

func requireCoverage(t *testing.T, rng model.TimeRange, buckets []Bucket) {
	t.Helper()
	require.NotEmpty(t, buckets)
	for i := 1; i < len(buckets); i++ {
		require.True(t, buckets[i-1].Time.Before(buckets[i].Time), "buckets must be strictly increasing")
	}
	require.False(t, buckets[0].Time.Before(rng.From.Truncate(time.Second)))
	require.True(t, buckets[len(buckets)-1].Time.Equal(rng.To))
}

func TestNormalizeAvailability_SingleHour(t *testing.T) {
	Setup()
	rng := rangeOf("2021-01-01T00:00:00Z", "2021-01-01T01:00:00Z")
	res, err := NormalizeAvailability(model.Distribution{"2021-01-01T00:00:00Z": 5}, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"2021-01-01T00:00:00Z", "2021-01-01T01:00:00Z"}, timestamps(res.Buckets))
	require.Equal(t, []float64{5, 5}, counts(res.Buckets))
	require.Equal(t, int64(1), res.RawBucketCount)
	requireCoverage(t, rng, res.Buckets)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	require.Equal(t, `{"availabilityCount":{"":{"2021-01-01T00:00:00Z":{"count":5},"2021-01-01T01:00:00Z":{"count":5}}}}`, string(out))
}

func TestNormalizeAvailability_ClippedStart(t *testing.T) {
	rng := rangeOf("2021-01-01T00:30:00Z", "2021-01-01T03:00:00Z")
	dist := model.Distribution{
		"2021-01-01T02:00:00Z": 4,
		"2021-01-01T01:00:00Z": 3,
	}
	res, err := NormalizeAvailability(dist, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{
		"2021-01-01T00:30:00Z",
		"2021-01-01T01:00:00Z",
		"2021-01-01T02:00:00Z",
		"2021-01-01T03:00:00Z",
	}, timestamps(res.Buckets))
	require.Equal(t, []float64{0, 3, 4, 4}, counts(res.Buckets))
	require.Equal(t, int64(3), res.RawBucketCount)
	requireCoverage(t, rng, res.Buckets)
}

func TestNormalizeAvailability_ClippedStartCarriesAlignedCount(t *testing.T) {
	rng := rangeOf("2021-01-01T00:30:00Z", "2021-01-01T02:00:00Z")
	res, err := NormalizeAvailability(model.Distribution{"2021-01-01T01:00:00Z": 3}, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 3, 3}, counts(res.Buckets))

	requireCoverage(t, rng, res.Buckets)

	res, err = NormalizeAvailability(model.Distribution{"2021-01-01T00:00:00.000Z": 7}, rng, time.Hour)
	require.NoError(t, err)
	// clipped first bucket carries the count of the aligned one
	require.Equal(t, []string{"2021-01-01T00:30:00Z", "2021-01-01T02:00:00Z"}, timestamps(res.Buckets))
	require.Equal(t, []float64{7, 0}, counts(res.Buckets))
	requireCoverage(t, rng, res.Buckets)

	rng = rangeOf("2021-01-01T00:30:00Z", "2021-01-01T03:00:00Z")
	dist := model.Distribution{
		"2021-01-01T00:00:00Z": 7,
		"2021-01-01T01:00:00Z": 3,
		"2021-01-01T02:00:00Z": 4,
	}
	res, err = NormalizeAvailability(dist, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{
		"2021-01-01T00:30:00Z",
		"2021-01-01T01:00:00Z",
		"2021-01-01T02:00:00Z",
		"2021-01-01T03:00:00Z",
	}, timestamps(res.Buckets))
	require.Equal(t, []float64{7, 3, 4, 4}, counts(res.Buckets))
	requireCoverage(t, rng, res.Buckets)
}

func TestNormalizeAvailability_ClippedStartClosingBucket(t *testing.T) {
	rng := rangeOf("2021-01-01T00:30:00Z", "2021-01-01T01:00:00Z")
	res, err := NormalizeAvailability(model.Distribution{"2021-01-01T00:00:00Z": 7}, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"2021-01-01T00:30:00Z", "2021-01-01T01:00:00Z"}, timestamps(res.Buckets))
	require.Equal(t, []float64{7, 7}, counts(res.Buckets))
	requireCoverage(t, rng, res.Buckets)
}

func TestNormalizeAvailability_EntriesAfterRangeEnd(t *testing.T) {
	rng := rangeOf("2021-01-01T00:00:00Z", "2021-01-01T02:00:00Z")
	dist := model.Distribution{
		"2021-01-01T01:00:00Z": 2,
		"2021-01-01T05:00:00Z": 1,
	}
	res, err := NormalizeAvailability(dist, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"2021-01-01T00:00:00Z", "2021-01-01T01:00:00Z", "2021-01-01T02:00:00Z"}, timestamps(res.Buckets))
	require.Equal(t, []float64{0, 2, 2}, counts(res.Buckets))
	requireCoverage(t, rng, res.Buckets)

	res, err = NormalizeAvailability(model.Distribution{"2021-01-01T05:00:00Z": 1}, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"2021-01-01T00:00:00Z", "2021-01-01T02:00:00Z"}, timestamps(res.Buckets))
	require.Equal(t, []float64{0, 0}, counts(res.Buckets))
	requireCoverage(t, rng, res.Buckets)
}

func TestAvailabilityBuckets_CountedBuckets(t *testing.T) {
	rng := rangeOf("2021-01-01T00:00:00Z", "2021-01-01T01:00:00Z")
	res, err := NormalizeAvailability(model.Distribution{"2021-01-01T00:00:00Z": 5}, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []float64{5}, counts(res.CountedBuckets()))

	rng = rangeOf("2021-01-01T00:10:00Z", "2021-01-01T00:40:00Z")
	res, err = NormalizeAvailability(model.Distribution{"2021-01-01T00:00:00Z": 9}, rng, time.Hour)
	require.NoError(t, err)
	counted := res.CountedBuckets()
	require.Len(t, counted, 60)
	total := 0.0
	for _, b := range counted {
		total += b.Count
	}
	require.Equal(t, float64(9), total)

	rng = rangeOf("2021-01-01T00:00:00Z", "2021-01-01T00:00:00Z")
	res, err = NormalizeAvailability(model.Distribution{"2021-01-01T00:00:00Z": 3}, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, res.Buckets, res.CountedBuckets())
}

func TestNormalizeAvailability_EndInsideBucket(t *testing.T) {
	rng := rangeOf("2021-01-01T00:00:00Z", "2021-01-01T02:30:00Z")
	dist := model.Distribution{
		"2021-01-01T00:00:00Z": 1,
		"2021-01-01T01:00:00Z": 2,
		"2021-01-01T02:00:00Z": 3,
	}
	res, err := NormalizeAvailability(dist, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{
		"2021-01-01T00:00:00Z",
		"2021-01-01T01:00:00Z",
		"2021-01-01T02:00:00Z",
		"2021-01-01T02:30:00Z",
	}, timestamps(res.Buckets))
	require.Equal(t, []float64{1, 2, 3, 3}, counts(res.Buckets))
	require.Equal(t, int64(3), res.RawBucketCount)
}

func TestNormalizeAvailability_DegenerateRangePadding(t *testing.T) {
	rng := rangeOf("2021-01-01T00:10:00Z", "2021-01-01T00:40:00Z")
	res, err := NormalizeAvailability(model.Distribution{"2021-01-01T00:00:00Z": 9}, rng, time.Hour)
	require.NoError(t, err)
	require.Len(t, res.Buckets, 61)
	for i := 1; i < len(res.Buckets); i++ {
		require.Equal(t, time.Minute, res.Buckets[i].Time.Sub(res.Buckets[i-1].Time))
	}
	require.Equal(t, "2021-01-01T00:00:00Z", res.Buckets[0].Timestamp())
	require.Equal(t, "2021-01-01T01:00:00Z", res.Buckets[60].Timestamp())
	// aligned start is before the visible range
	require.Equal(t, float64(0), res.Buckets[0].Count)
	require.Equal(t, float64(9), res.Buckets[10].Count)
	require.Equal(t, float64(9), res.Buckets[40].Count)
	require.Equal(t, float64(0), res.Buckets[20].Count)
}

func TestNormalizeAvailability_DegenerateRangeAlignedStart(t *testing.T) {
	rng := rangeOf("2021-01-01T00:00:00Z", "2021-01-01T00:30:00Z")
	res, err := NormalizeAvailability(model.Distribution{"2021-01-01T00:00:00Z": 4}, rng, time.Hour)
	require.NoError(t, err)
	require.Len(t, res.Buckets, 61)
	require.Equal(t, float64(4), res.Buckets[0].Count)
	require.Equal(t, float64(4), res.Buckets[30].Count)
	require.Equal(t, float64(0), res.Buckets[31].Count)
}

func TestNormalizeAvailability_MillisecondCollision(t *testing.T) {
	rng := rangeOf("2021-01-01T00:00:00Z", "2021-01-01T03:00:00Z")
	dist := model.Distribution{
		"2021-01-01T01:00:00.700Z": 2,
		"2021-01-01T01:00:00.200Z": 1,
	}
	res, err := NormalizeAvailability(dist, rng, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"2021-01-01T00:00:00Z", "2021-01-01T01:00:00Z", "2021-01-01T03:00:00Z"}, timestamps(res.Buckets))
	require.Equal(t, []float64{0, 2, 0}, counts(res.Buckets))
}

func TestNormalizeAvailability_Errors(t *testing.T) {
	_, err := NormalizeAvailability(nil, rangeOf("2021-01-01T01:00:00Z", "2021-01-01T00:00:00Z"), time.Hour)
	require.True(t, errors.Is(err, ErrMalformedRange))

	_, err = NormalizeAvailability(nil, rangeOf("2021-01-01T00:00:00Z", "2021-01-01T01:00:00Z"), 0)
	require.True(t, errors.Is(err, ErrMalformedRange))

	_, err = NormalizeAvailability(model.Distribution{"yesterday": 1}, rangeOf("2021-01-01T00:00:00Z", "2021-01-01T01:00:00Z"), time.Hour)
	require.True(t, errors.Is(err, ErrMalformedTimestamp))
}

func TestTransformAvailability(t *testing.T) {
	res, err := TransformAvailability(model.AvailabilityResult{
		Range:        rangeOf("2021-01-01T00:00:00Z", "2021-01-01T00:03:00Z"),
		IntervalSize: "1m",
		Distribution: model.Distribution{"2021-01-01T00:01:00Z": 2},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"2021-01-01T00:00:00Z", "2021-01-01T00:01:00Z", "2021-01-01T00:03:00Z"}, timestamps(res.Buckets))
	require.Equal(t, []float64{0, 2, 0}, counts(res.Buckets))
	require.Equal(t, time.Minute, res.BucketSize)

	_, err = TransformAvailability(model.AvailabilityResult{IntervalSize: "forever"})
	require.True(t, errors.Is(err, ErrMalformedRange))
}
