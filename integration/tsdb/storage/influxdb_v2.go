package storage

import (
	"math"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/query"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/thingsplex/tsiclient/integration/tsdb/processing"
	"github.com/thingsplex/tsiclient/model"
	"github.com/thingsplex/tsiclient/utils"
)

// InfluxV2Adapter converts already fetched Flux records into inputs of visualization transforms.
// Flux returns one record per (instant , field) , records are pivoted back into rows here.
type InfluxV2Adapter struct{}

func NewInfluxV2Adapter() *InfluxV2Adapter {
	return &InfluxV2Adapter{}
}

func recordTime(rec *query.FluxRecord) (time.Time, error) {
	t, ok := rec.ValueByKey("_time").(time.Time)
	if !ok {
		return time.Time{}, errors.Wrapf(processing.ErrMalformedTimestamp, "record of table %d has no _time", rec.Table())
	}
	return t.UTC(), nil
}

// QueryResult converts records into query result , one variable per field in order of appearance.
func (a *InfluxV2Adapter) QueryResult(records []*query.FluxRecord) (model.QueryResult, error) {
	axis := timeAxis{}
	var fields []string
	fieldPos := map[string]int{}
	for _, rec := range records {
		t, err := recordTime(rec)
		if err != nil {
			return model.QueryResult{}, err
		}
		axis.add(t)
		if _, ok := fieldPos[rec.Field()]; !ok {
			fieldPos[rec.Field()] = len(fields)
			fields = append(fields, rec.Field())
		}
	}
	timestamps, positions := axis.sorted()
	result := model.QueryResult{Timestamps: timestamps, Variables: make([]model.Variable, len(fields))}
	for i, f := range fields {
		result.Variables[i] = model.Variable{Name: f, Values: make([]interface{}, len(timestamps))}
	}
	for _, rec := range records {
		t, _ := recordTime(rec)
		result.Variables[fieldPos[rec.Field()]].Values[positions[t.UnixNano()]] = rec.Value()
	}
	log.Debugf("<influx> %d flux records converted into %d variables", len(records), len(fields))
	return result, nil
}

// Aggregate converts records into aggregate result. Field name selects the measure , fields which are not
// in measureTypes are ignored. If splitTag is set , records are grouped by value of the tag.
func (a *InfluxV2Adapter) Aggregate(records []*query.FluxRecord, splitTag string, measureTypes []string) (model.AggregateResult, error) {
	axis := timeAxis{}
	for _, rec := range records {
		t, err := recordTime(rec)
		if err != nil {
			return model.AggregateResult{}, err
		}
		axis.add(t)
	}
	timestamps, positions := axis.sorted()
	measurePos := map[string]int{}
	for l, mt := range measureTypes {
		measurePos[mt] = l
	}

	var result model.AggregateResult
	var grid [][][]interface{}
	splitPos := map[string]int{}
	for _, rec := range records {
		l, ok := measurePos[rec.Field()]
		if !ok {
			continue
		}
		splitBy := ""
		if splitTag != "" {
			splitBy, _ = rec.ValueByKey(splitTag).(string)
		}
		j, ok := splitPos[splitBy]
		if !ok {
			j = len(grid)
			splitPos[splitBy] = j
			result.Dimension = append(result.Dimension, splitBy)
			grid = append(grid, make([][]interface{}, len(timestamps)))
		}
		t, _ := recordTime(rec)
		k := positions[t.UnixNano()]
		if grid[j][k] == nil {
			grid[j][k] = make([]interface{}, len(measureTypes))
		}
		grid[j][k][l] = rec.Value()
	}

	if splitTag != "" {
		result.Aggregate = &model.GroupedAggregate{Dimension: timestamps, Measures: grid}
		return result, nil
	}
	result.Dimension = timestamps
	result.Measures = make([][]interface{}, len(timestamps))
	for k := range result.Measures {
		if len(grid) > 0 && grid[0][k] != nil {
			result.Measures[k] = grid[0][k]
		} else {
			result.Measures[k] = make([]interface{}, len(measureTypes))
		}
	}
	return result, nil
}

// Distribution converts records of a count query into availability distribution.
func (a *InfluxV2Adapter) Distribution(records []*query.FluxRecord) (model.Distribution, error) {
	dist := model.Distribution{}
	for _, rec := range records {
		t, err := recordTime(rec)
		if err != nil {
			return nil, err
		}
		n, ok := ParseNumber(rec.Value())
		if !ok {
			continue
		}
		dist[utils.ToISOMillis(t)] += int64(math.Round(n))
	}
	return dist, nil
}
