package tsdb

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/thingsplex/tsiclient/integration/tsdb/processing"
)

// AvailabilityTransform normalizes availability distribution , optionally rolls it up and adds bucket summary.
func AvailabilityTransform(ctx *TransformContext, req *Request) (*Response, error) {
	if req.Availability == nil {
		return nil, fmt.Errorf("availability request %s has no availability result", req.ID)
	}
	buckets, err := processing.TransformAvailability(*req.Availability)
	if err != nil {
		return nil, err
	}
	resp := &Response{Availability: buckets}
	summaryBuckets := buckets.CountedBuckets()

	rollUp := ctx.rollUp
	if req.RollUp != nil {
		rollUp = *req.RollUp
	}
	if rollUp.Enabled() {
		if rollUp.LatestKey == "" {
			rollUp.LatestKey = DefaultLatestKey
		}
		resp.RolledUp, err = processing.RollUp(buckets.Buckets, rollUp.Multiplier, rollUp.Offset, rollUp.LatestKey)
		if err != nil {
			return nil, err
		}
		summaryBuckets = resp.RolledUp.Buckets
	}
	summary, err := processing.Summarize(summaryBuckets)
	if err != nil {
		return nil, err
	}
	resp.Summary = &summary
	return resp, nil
}

// EventsTransform flattens events into grid rows. If row sink is set , rows are also written into it.
func EventsTransform(ctx *TransformContext, req *Request) (*Response, error) {
	rows, err := processing.FlattenEvents(req.Events, processing.FlattenOptions{TimezoneOffset: ctx.timezoneOffset})
	if err != nil {
		return nil, err
	}
	if ctx.rowSink != nil {
		if err := ctx.rowSink.WriteRows(rows); err != nil {
			log.Errorf("<tsdb> Request %s: rows can't be exported. Err: %s", ctx.requestID, err.Error())
			return nil, err
		}
	}
	return &Response{Rows: rows}, nil
}

// AggregatesTransform pivots aggregate results into chart series.
func AggregatesTransform(ctx *TransformContext, req *Request) (*Response, error) {
	series, err := processing.PivotAggregates(req.Aggregates, req.Series)
	if err != nil {
		return nil, err
	}
	return &Response{Series: series}, nil
}

// QueryTransform pivots query-language results into chart series.
func QueryTransform(ctx *TransformContext, req *Request) (*Response, error) {
	series, err := processing.PivotQueryResults(req.QueryResults, req.Series)
	if err != nil {
		return nil, err
	}
	return &Response{Series: series}, nil
}
