package storage

import (
	"math"

	"github.com/influxdata/influxdb1-client/models"
	influx "github.com/influxdata/influxdb1-client/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/thingsplex/tsiclient/integration/tsdb/processing"
	"github.com/thingsplex/tsiclient/model"
	"github.com/thingsplex/tsiclient/utils"
)

const influxErrorCode = "InfluxError"

// InfluxV1Adapter converts already fetched InfluxQL results into inputs of visualization transforms.
type InfluxV1Adapter struct {
	precision string
}

// NewInfluxV1Adapter creates adapter for results of queries executed with the given epoch precision.
// Empty precision means seconds , results with RFC3339 time strings are accepted with any precision.
func NewInfluxV1Adapter(precision string) *InfluxV1Adapter {
	if precision == "" {
		precision = PrecisionSeconds
	}
	return &InfluxV1Adapter{precision: precision}
}

// Results returns statement results of the response. Response level error is returned as error ,
// statement level errors stay in results and are converted into error markers.
func (a *InfluxV1Adapter) Results(resp *influx.Response) ([]influx.Result, error) {
	if resp == nil {
		return nil, nil
	}
	if resp.Err != "" {
		return nil, errors.New(resp.Err)
	}
	return resp.Results, nil
}

func resultError(res influx.Result) *model.ResultError {
	if res.Err == "" {
		return nil
	}
	return &model.ResultError{Code: influxErrorCode, Message: res.Err}
}

// parsedRow is a series with time column converted into instants.
type parsedRow struct {
	row     models.Row
	timeCol int
	times   []int64
}

func (a *InfluxV1Adapter) parseRows(series []models.Row, axis timeAxis) ([]parsedRow, error) {
	rows := make([]parsedRow, 0, len(series))
	for _, row := range series {
		pr := parsedRow{row: row, timeCol: columnIndex(row.Columns, TimeColumn)}
		if pr.timeCol < 0 {
			return nil, errors.Wrapf(processing.ErrMalformedTimestamp, "series %s has no time column", row.Name)
		}
		for _, values := range row.Values {
			if pr.timeCol >= len(values) {
				return nil, errors.Wrapf(processing.ErrMalformedTimestamp, "series %s has short value row", row.Name)
			}
			t, err := ParseTime(values[pr.timeCol], a.precision)
			if err != nil {
				return nil, errors.Wrapf(processing.ErrMalformedTimestamp, "series %s: %s", row.Name, err.Error())
			}
			axis.add(t)
			pr.times = append(pr.times, t.UnixNano())
		}
		rows = append(rows, pr)
	}
	return rows, nil
}

// QueryResult converts raw result into query result. Every non time column becomes a variable.
// Columns of multi series results are prefixed with the series name. Instants a series doesn't have are nil.
func (a *InfluxV1Adapter) QueryResult(res influx.Result) (model.QueryResult, error) {
	if e := resultError(res); e != nil {
		return model.QueryResult{Err: e}, nil
	}
	axis := timeAxis{}
	rows, err := a.parseRows(res.Series, axis)
	if err != nil {
		return model.QueryResult{}, err
	}
	timestamps, positions := axis.sorted()
	result := model.QueryResult{Timestamps: timestamps}
	for _, pr := range rows {
		for c, col := range pr.row.Columns {
			if c == pr.timeCol {
				continue
			}
			name := col
			if len(rows) > 1 {
				name = pr.row.Name + "." + col
			}
			values := make([]interface{}, len(timestamps))
			for k, v := range pr.row.Values {
				if c < len(v) {
					values[positions[pr.times[k]]] = NormalizeValue(v[c])
				}
			}
			result.Variables = append(result.Variables, model.Variable{Name: name, Values: values})
		}
	}
	log.Debugf("<influx> Query result with %d series converted. Timestamps = %d , variables = %d", len(rows), len(timestamps), len(result.Variables))
	return result, nil
}

// Aggregate converts result of aggregating query. Measure columns are taken in the given order ,
// missing columns give nil measures. If splitTag is set , series are grouped by value of the tag
// and instants a group doesn't have are left empty.
func (a *InfluxV1Adapter) Aggregate(res influx.Result, splitTag string, measureColumns []string) (model.AggregateResult, error) {
	if e := resultError(res); e != nil {
		return model.AggregateResult{Err: e}, nil
	}
	axis := timeAxis{}
	rows, err := a.parseRows(res.Series, axis)
	if err != nil {
		return model.AggregateResult{}, err
	}
	timestamps, positions := axis.sorted()

	if splitTag == "" {
		if len(rows) > 1 {
			log.Warnf("<influx> Aggregate without split tag has %d series , only the first one is used", len(rows))
			rows = rows[:1]
		}
		result := model.AggregateResult{Dimension: timestamps, Measures: make([][]interface{}, len(timestamps))}
		for i := range result.Measures {
			result.Measures[i] = make([]interface{}, len(measureColumns))
		}
		for _, pr := range rows {
			for k, v := range pr.row.Values {
				result.Measures[positions[pr.times[k]]] = measureRow(pr.row.Columns, v, measureColumns)
			}
		}
		return result, nil
	}

	result := model.AggregateResult{Aggregate: &model.GroupedAggregate{Dimension: timestamps}}
	splitPos := map[string]int{}
	for _, pr := range rows {
		splitBy := pr.row.Tags[splitTag]
		j, ok := splitPos[splitBy]
		if !ok {
			j = len(result.Dimension)
			splitPos[splitBy] = j
			result.Dimension = append(result.Dimension, splitBy)
			result.Aggregate.Measures = append(result.Aggregate.Measures, make([][]interface{}, len(timestamps)))
		}
		for k, v := range pr.row.Values {
			result.Aggregate.Measures[j][positions[pr.times[k]]] = measureRow(pr.row.Columns, v, measureColumns)
		}
	}
	log.Debugf("<influx> Aggregate split by %s converted. Groups = %d , timestamps = %d", splitTag, len(result.Dimension), len(timestamps))
	return result, nil
}

func measureRow(columns []string, values []interface{}, measureColumns []string) []interface{} {
	row := make([]interface{}, len(measureColumns))
	for l, name := range measureColumns {
		if c := columnIndex(columns, name); c >= 0 && c < len(values) {
			row[l] = NormalizeValue(values[c])
		}
	}
	return row
}

// Distribution converts result of count query into availability distribution.
// Counts of the same instant from different series are added up , empty counts are skipped.
func (a *InfluxV1Adapter) Distribution(res influx.Result, countColumn string) (model.Distribution, error) {
	if e := resultError(res); e != nil {
		return nil, e
	}
	axis := timeAxis{}
	rows, err := a.parseRows(res.Series, axis)
	if err != nil {
		return nil, err
	}
	dist := model.Distribution{}
	for _, pr := range rows {
		c := columnIndex(pr.row.Columns, countColumn)
		if c < 0 {
			continue
		}
		for k, v := range pr.row.Values {
			if c >= len(v) {
				continue
			}
			n, ok := ParseNumber(v[c])
			if !ok {
				continue
			}
			dist[utils.ToISOMillis(axis[pr.times[k]])] += int64(math.Round(n))
		}
	}
	return dist, nil
}
