package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/thingsplex/tsiclient/utils"
)

const (
	// TimeColumn is the name of the time column in InfluxQL results.
	TimeColumn = "time"
	// Default InfluxQL precision used by NewQuery calls.
	PrecisionSeconds = "s"
)

// ParseTime converts time cell of InfluxQL result into time.
// Strings are RFC3339 , numbers are epoch values in the given precision (h,m,s,ms,u,ns).
func ParseTime(val interface{}, precision string) (time.Time, error) {
	switch v := val.(type) {
	case string:
		return utils.ParseISOTime(v)
	case time.Time:
		return v.UTC(), nil
	}
	n, ok := ParseNumber(val)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return time.Time{}, fmt.Errorf("unsupported time value %v (%T)", val, val)
	}
	unit, err := precisionUnit(precision)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, int64(n)*int64(unit)).UTC(), nil
}

func precisionUnit(precision string) (time.Duration, error) {
	switch precision {
	case "h":
		return time.Hour, nil
	case "m":
		return time.Minute, nil
	case "s", "":
		return time.Second, nil
	case "ms":
		return time.Millisecond, nil
	case "u":
		return time.Microsecond, nil
	case "ns", "n":
		return time.Nanosecond, nil
	}
	return 0, fmt.Errorf("unknown precision %q", precision)
}

// ParseNumber converts numeric cell into float64. Influx client decodes numbers as json.Number.
func ParseNumber(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// NormalizeValue converts json.Number into float64 , so values look the same as in service payloads.
func NormalizeValue(val interface{}) interface{} {
	if n, ok := val.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return val
}

func columnIndex(columns []string, name string) int {
	for i := range columns {
		if columns[i] == name {
			return i
		}
	}
	return -1
}

// timeAxis collects distinct instants of several series.
type timeAxis map[int64]time.Time

func (ta timeAxis) add(t time.Time) {
	ta[t.UnixNano()] = t
}

// sorted returns ISO timestamps in ascending order and position of every instant.
func (ta timeAxis) sorted() ([]string, map[int64]int) {
	instants := make([]int64, 0, len(ta))
	for ns := range ta {
		instants = append(instants, ns)
	}
	sort.Slice(instants, func(i, j int) bool { return instants[i] < instants[j] })
	keys := make([]string, len(instants))
	positions := make(map[int64]int, len(instants))
	for i, ns := range instants {
		keys[i] = utils.ToISOMillis(ta[ns])
		positions[ns] = i
	}
	return keys, positions
}
