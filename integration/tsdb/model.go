package tsdb

import (
	"time"

	"github.com/thingsplex/tsiclient/integration/tsdb/processing"
	"github.com/thingsplex/tsiclient/integration/tsdb/storage"
	"github.com/thingsplex/tsiclient/model"
)

const (
	KindAvailability = "availability"
	KindEvents       = "events"
	KindAggregates   = "aggregates"
	KindQuery        = "tsq"

	DefaultLatestKey = "latest"
)

// Transform converts one request into visualization ready shape.
type Transform func(ctx *TransformContext, req *Request) (*Response, error)

// TransformContext describes settings collected along request going throughout the pipeline.
type TransformContext struct {
	requestID      string
	timezoneOffset time.Duration
	rollUp         RollUpConfig
	rowSink        storage.RowSink
}

// RollUpConfig enables merging of availability buckets. Multiplier 0 or 1 disables roll-up.
type RollUpConfig struct {
	Multiplier int    `json:"multiplier"`
	Offset     int    `json:"offset"`
	LatestKey  string `json:"latest_key"`
}

func (r RollUpConfig) Enabled() bool {
	return r.Multiplier > 1
}

// Request is one already fetched query result together with the metadata needed to transform it.
// Only the field matching Kind is used.
type Request struct {
	ID           string
	Kind         string
	Availability *model.AvailabilityResult
	Events       []model.RawEvent
	Aggregates   []model.AggregateResult
	QueryResults []model.QueryResult
	Series       []model.SeriesOptions
	// RollUp overrides pipeline roll-up settings
	RollUp *RollUpConfig
}

type Response struct {
	RequestID    string                          `json:"request_id"`
	Kind         string                          `json:"kind"`
	Availability *processing.AvailabilityBuckets `json:"availability,omitempty"`
	RolledUp     *processing.RolledBuckets       `json:"rolled_up,omitempty"`
	Summary      *processing.BucketSummary       `json:"summary,omitempty"`
	Rows         []processing.FlatRow            `json:"rows,omitempty"`
	Series       []*processing.PivotedSeries     `json:"series,omitempty"`
}
