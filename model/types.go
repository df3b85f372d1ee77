package model

import "time"

// TimeRange is a search span. From must not be after To, zero width is allowed.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Distribution maps ISO timestamps, as sent by the service, to event counts.
// Keys are not guaranteed to be sorted, contiguous or stripped of milliseconds.
type Distribution map[string]int64

// AvailabilityResult is the availability (event count histogram) response of the service.
type AvailabilityResult struct {
	Range        TimeRange
	IntervalSize string // interval literal, e.g. "1h", "30s"
	Distribution Distribution
}

// SchemaProperty is one column declared by an event schema.
type SchemaProperty struct {
	Name string
	Type string
}

// EventSchema declares the ordered properties shared by all events referencing it.
type EventSchema struct {
	Rid             string
	EventSourceName string
	Properties      []SchemaProperty
}

// RawEvent is a columnar event. It either carries its schema or references
// a schema carried by an earlier event of the same batch.
type RawEvent struct {
	Schema    *EventSchema
	SchemaRid string
	Ts        string
	Lts       string // empty if the event has no local timestamp
	Values    []interface{}
}

// ResultError is the error marker the service puts in place of a failed result.
type ResultError struct {
	Code    string
	Message string
}

func (e *ResultError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// GroupedAggregate is the inner part of a split-by aggregate:
// Measures[split][time][measure].
type GroupedAggregate struct {
	Dimension []string
	Measures  [][][]interface{}
}

// AggregateResult is one of: an error marker (Err != nil), a grouped result
// (Aggregate != nil, Dimension holds split-by values) or a single dimension
// result (Dimension holds timestamps, Measures[time][measure]).
type AggregateResult struct {
	Err       *ResultError
	Dimension []string
	Aggregate *GroupedAggregate
	Measures  [][]interface{}
}

// IsGrouped reports whether the result is split by a secondary dimension.
func (r AggregateResult) IsGrouped() bool {
	return r.Aggregate != nil
}

// Variable is one named value sequence of a query result.
type Variable struct {
	Name   string
	Values []interface{}
}

// QueryResult is the query-language form of a result. Every variable has one
// value per timestamp.
type QueryResult struct {
	Err        *ResultError
	Timestamps []string
	Variables  []Variable
}

// SeriesOptions describes how a result is displayed. One entry per result.
type SeriesOptions struct {
	Alias        string
	MeasureTypes []string
}
