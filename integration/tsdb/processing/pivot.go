package processing

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/thingsplex/tsiclient/model"
)

// ErrorSeriesKey is the key under which failed aggregates are reported.
const ErrorSeriesKey = ""

// MeasureMap maps measure name to value. nil value means there is no data , it's never replaced by 0.
type MeasureMap = OrderedMap[interface{}]

// TimeMap maps timestamp to measures.
type TimeMap = OrderedMap[*MeasureMap]

// SplitMap maps split-by value to time series. Results without split-by use "" key.
type SplitMap = OrderedMap[*TimeMap]

// PivotedSeries maps series alias to split-by values.
type PivotedSeries = OrderedMap[*SplitMap]

// PivotQueryResults reshapes query-language results into alias -> "" -> timestamp -> variable -> value.
// Error result is reported as empty map under the alias.
func PivotQueryResults(results []model.QueryResult, options []model.SeriesOptions) ([]*PivotedSeries, error) {
	if len(results) != len(options) {
		return nil, errors.Wrapf(ErrSeriesAlignmentMismatch, "%d results , %d series options", len(results), len(options))
	}
	pivoted := make([]*PivotedSeries, 0, len(results))
	for i := range results {
		res := &results[i]
		alias := options[i].Alias
		series := NewOrderedMap[*SplitMap]()
		if res.Err != nil {
			log.Debugf("<pivot> Query result %d (%s) is an error: %s", i, alias, res.Err.Error())
			series.Set(alias, NewOrderedMap[*TimeMap]())
			pivoted = append(pivoted, series)
			continue
		}
		for _, v := range res.Variables {
			if len(v.Values) != len(res.Timestamps) {
				return nil, errors.Wrapf(ErrSeriesAlignmentMismatch, "result %d , variable %q has %d values for %d timestamps",
					i, v.Name, len(v.Values), len(res.Timestamps))
			}
		}
		times := NewOrderedMap[*MeasureMap]()
		for j, ts := range res.Timestamps {
			measures := NewOrderedMap[interface{}]()
			for _, v := range res.Variables {
				measures.Set(v.Name, v.Values[j])
			}
			times.Set(ts, measures)
		}
		splits := NewOrderedMap[*TimeMap]()
		splits.Set("", times)
		series.Set(alias, splits)
		pivoted = append(pivoted, series)
	}
	log.Debugf("<pivot> %d query results pivoted", len(pivoted))
	return pivoted, nil
}

// PivotAggregates reshapes aggregate results into alias -> split-by value -> timestamp -> measure -> value.
// Missing cells of split-by results become nil. Error result is reported as empty map under ErrorSeriesKey.
func PivotAggregates(aggregates []model.AggregateResult, options []model.SeriesOptions) ([]*PivotedSeries, error) {
	if len(aggregates) != len(options) {
		return nil, errors.Wrapf(ErrSeriesAlignmentMismatch, "%d aggregates , %d series options", len(aggregates), len(options))
	}
	pivoted := make([]*PivotedSeries, 0, len(aggregates))
	for i := range aggregates {
		agg := &aggregates[i]
		opt := options[i]
		series := NewOrderedMap[*SplitMap]()
		switch {
		case agg.Err != nil:
			log.Debugf("<pivot> Aggregate %d (%s) is an error: %s", i, opt.Alias, agg.Err.Error())
			series.Set(ErrorSeriesKey, NewOrderedMap[*TimeMap]())
		case agg.IsGrouped():
			series.Set(opt.Alias, pivotGrouped(agg, opt.MeasureTypes))
		default:
			splits, err := pivotSingle(agg, opt.MeasureTypes)
			if err != nil {
				return nil, errors.Wrapf(err, "aggregate %d", i)
			}
			series.Set(opt.Alias, splits)
		}
		pivoted = append(pivoted, series)
	}
	log.Debugf("<pivot> %d aggregates pivoted", len(pivoted))
	return pivoted, nil
}

func pivotGrouped(agg *model.AggregateResult, measureTypes []string) *SplitMap {
	splits := NewOrderedMap[*TimeMap]()
	for j, splitBy := range agg.Dimension {
		times := NewOrderedMap[*MeasureMap]()
		for k, ts := range agg.Aggregate.Dimension {
			measures := NewOrderedMap[interface{}]()
			for l, mt := range measureTypes {
				measures.Set(mt, groupedCell(agg.Aggregate.Measures, j, k, l))
			}
			times.Set(ts, measures)
		}
		splits.Set(splitBy, times)
	}
	return splits
}

// groupedCell returns measures[split][time][measure] or nil if any level is missing.
func groupedCell(measures [][][]interface{}, split, t, measure int) interface{} {
	if split >= len(measures) || t >= len(measures[split]) {
		return nil
	}
	row := measures[split][t]
	if measure >= len(row) {
		return nil
	}
	return row[measure]
}

func pivotSingle(agg *model.AggregateResult, measureTypes []string) (*SplitMap, error) {
	if len(agg.Measures) < len(agg.Dimension) {
		return nil, errors.Wrapf(ErrSeriesAlignmentMismatch, "%d measure rows for %d timestamps", len(agg.Measures), len(agg.Dimension))
	}
	times := NewOrderedMap[*MeasureMap]()
	for j, ts := range agg.Dimension {
		row := agg.Measures[j]
		if len(row) < len(measureTypes) {
			return nil, errors.Wrapf(ErrSeriesAlignmentMismatch, "timestamp %s has %d measures , %d expected", ts, len(row), len(measureTypes))
		}
		measures := NewOrderedMap[interface{}]()
		for l, mt := range measureTypes {
			measures.Set(mt, row[l])
		}
		times.Set(ts, measures)
	}
	splits := NewOrderedMap[*TimeMap]()
	splits.Set("", times)
	return splits, nil
}
