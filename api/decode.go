package api

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/pkg/errors"
	"github.com/thingsplex/tsiclient/integration/tsdb"
	"github.com/thingsplex/tsiclient/model"
	"github.com/thingsplex/tsiclient/utils"
)

// TsiErrorKey marks a failed result in service payloads.
const TsiErrorKey = "__tsiError__"

var ErrMalformedPayload = errors.New("malformed payload")

var (
	pathType         = jp.C("type")
	pathID           = jp.C("id")
	pathVal          = jp.C("val")
	pathRangeFrom    = jp.C("range").C("from")
	pathRangeTo      = jp.C("range").C("to")
	pathIntervalSize = jp.C("intervalSize")
	pathDistribution = jp.C("distribution")
	pathRollUp       = jp.C("rollUp")
	pathEvents       = jp.C("events")
	pathAggregates   = jp.C("aggregates")
	pathResults      = jp.C("results")
	pathOptions      = jp.C("options")
	pathValues       = jp.C("values")
)

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedPayload, format, args...)
}

// DecodeMessage parses request envelope.
func DecodeMessage(data []byte) (*Message, error) {
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, malformed("%s", err.Error())
	}
	return messageFromValue(doc)
}

func messageFromValue(doc interface{}) (*Message, error) {
	if _, ok := doc.(map[string]interface{}); !ok {
		return nil, malformed("message must be an object")
	}
	msgType, ok := pathType.First(doc).(string)
	if !ok || msgType == "" {
		return nil, malformed("message type is missing")
	}
	id, _ := pathID.First(doc).(string)
	return &Message{Type: msgType, ID: id, Val: pathVal.First(doc)}, nil
}

// DecodeRequest converts message payload into pipeline request. Kind is taken from the message type.
func DecodeRequest(msg *Message) (*tsdb.Request, error) {
	kind := RequestKind(msg.Type)
	req := &tsdb.Request{ID: msg.ID, Kind: kind}
	var err error
	switch kind {
	case tsdb.KindAvailability:
		req.Availability, req.RollUp, err = decodeAvailability(msg.Val)
	case tsdb.KindEvents:
		req.Events, err = decodeEvents(msg.Val)
	case tsdb.KindAggregates:
		if req.Aggregates, err = decodeAggregates(pathAggregates.First(msg.Val)); err == nil {
			req.Series, err = decodeOptions(pathOptions.First(msg.Val))
		}
	case tsdb.KindQuery:
		if req.QueryResults, err = decodeQueryResults(pathResults.First(msg.Val)); err == nil {
			req.Series, err = decodeOptions(pathOptions.First(msg.Val))
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s request", kind)
	}
	return req, nil
}

// RequestKind extracts request kind from message type , "cmd.transform.events" -> "events".
func RequestKind(msgType string) string {
	return strings.TrimPrefix(msgType, CmdPrefix)
}

func decodeAvailability(val interface{}) (*model.AvailabilityResult, *tsdb.RollUpConfig, error) {
	from, err := decodeTime(pathRangeFrom.First(val), "range.from")
	if err != nil {
		return nil, nil, err
	}
	to, err := decodeTime(pathRangeTo.First(val), "range.to")
	if err != nil {
		return nil, nil, err
	}
	res := &model.AvailabilityResult{Range: model.TimeRange{From: from, To: to}, Distribution: model.Distribution{}}
	if res.IntervalSize, err = decodeString(pathIntervalSize.First(val), "intervalSize"); err != nil {
		return nil, nil, err
	}
	dist, ok := pathDistribution.First(val).(map[string]interface{})
	if !ok && pathDistribution.First(val) != nil {
		return nil, nil, malformed("distribution must be an object")
	}
	for k, v := range dist {
		n, ok := decodeNumber(v)
		if !ok {
			return nil, nil, malformed("distribution count of %s is not a number", k)
		}
		res.Distribution[k] = int64(math.Round(n))
	}

	var rollUp *tsdb.RollUpConfig
	if ru, ok := pathRollUp.First(val).(map[string]interface{}); ok {
		rollUp = &tsdb.RollUpConfig{}
		m, _ := decodeNumber(ru["multiplier"])
		o, _ := decodeNumber(ru["offset"])
		rollUp.Multiplier, rollUp.Offset = int(m), int(o)
		rollUp.LatestKey, _ = ru["latestKey"].(string)
	}
	return res, rollUp, nil
}

// decodeEvents accepts either events array or the service response object {"events":[...]}.
func decodeEvents(val interface{}) ([]model.RawEvent, error) {
	list, ok := val.([]interface{})
	if !ok {
		if list, ok = pathEvents.First(val).([]interface{}); !ok {
			return nil, malformed("events array is missing")
		}
	}
	events := make([]model.RawEvent, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, malformed("event %d must be an object", i)
		}
		ev := model.RawEvent{}
		if s, ok := obj["schema"].(map[string]interface{}); ok {
			schema, err := decodeSchema(s)
			if err != nil {
				return nil, errors.Wrapf(err, "event %d", i)
			}
			ev.Schema = schema
		} else if ev.SchemaRid, ok = obj["schemaRid"].(string); !ok {
			return nil, malformed("event %d has neither schema nor schemaRid", i)
		}
		if ev.Ts, ok = obj["$ts"].(string); !ok {
			return nil, malformed("event %d has no $ts", i)
		}
		ev.Lts, _ = obj["$lts"].(string)
		if values, ok := obj["values"].([]interface{}); ok {
			ev.Values = values
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeSchema(obj map[string]interface{}) (*model.EventSchema, error) {
	schema := &model.EventSchema{}
	var err error
	if schema.Rid, err = decodeString(obj["rid"], "schema.rid"); err != nil {
		return nil, err
	}
	schema.EventSourceName, _ = obj["$esn"].(string)
	props, _ := obj["properties"].([]interface{})
	for i, p := range props {
		prop, ok := p.(map[string]interface{})
		if !ok {
			return nil, malformed("schema property %d must be an object", i)
		}
		name, _ := prop["name"].(string)
		propType, _ := prop["type"].(string)
		schema.Properties = append(schema.Properties, model.SchemaProperty{Name: name, Type: propType})
	}
	return schema, nil
}

func decodeResultError(obj map[string]interface{}) *model.ResultError {
	raw, ok := obj[TsiErrorKey]
	if !ok {
		return nil
	}
	e := &model.ResultError{}
	if m, ok := raw.(map[string]interface{}); ok {
		e.Code, _ = m["code"].(string)
		e.Message, _ = m["message"].(string)
	}
	if e.Code == "" && e.Message == "" {
		e.Message = oj.JSON(raw)
	}
	return e
}

func decodeAggregates(val interface{}) ([]model.AggregateResult, error) {
	list, ok := val.([]interface{})
	if !ok {
		return nil, malformed("aggregates array is missing")
	}
	result := make([]model.AggregateResult, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, malformed("aggregate %d must be an object", i)
		}
		agg := model.AggregateResult{Err: decodeResultError(obj)}
		if agg.Err != nil {
			result = append(result, agg)
			continue
		}
		agg.Dimension = decodeStrings(obj["dimension"])
		if inner, ok := obj["aggregate"].(map[string]interface{}); ok {
			agg.Aggregate = &model.GroupedAggregate{Dimension: decodeStrings(inner["dimension"])}
			for _, split := range asList(inner["measures"]) {
				var rows [][]interface{}
				for _, row := range asList(split) {
					rows = append(rows, asList(row))
				}
				agg.Aggregate.Measures = append(agg.Aggregate.Measures, rows)
			}
		} else {
			for _, row := range asList(obj["measures"]) {
				agg.Measures = append(agg.Measures, asList(row))
			}
		}
		result = append(result, agg)
	}
	return result, nil
}

// decodeQueryResults converts variables object into a list sorted by variable name.
func decodeQueryResults(val interface{}) ([]model.QueryResult, error) {
	list, ok := val.([]interface{})
	if !ok {
		return nil, malformed("results array is missing")
	}
	result := make([]model.QueryResult, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, malformed("result %d must be an object", i)
		}
		qr := model.QueryResult{Err: decodeResultError(obj)}
		if qr.Err == nil {
			qr.Timestamps = decodeStrings(obj["timestamps"])
			vars, _ := obj["variables"].(map[string]interface{})
			names := make([]string, 0, len(vars))
			for name := range vars {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				qr.Variables = append(qr.Variables, model.Variable{Name: name, Values: asList(pathValues.First(vars[name]))})
			}
		}
		result = append(result, qr)
	}
	return result, nil
}

func decodeOptions(val interface{}) ([]model.SeriesOptions, error) {
	list, ok := val.([]interface{})
	if !ok {
		return nil, malformed("options array is missing")
	}
	result := make([]model.SeriesOptions, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, malformed("options %d must be an object", i)
		}
		alias, _ := obj["alias"].(string)
		result = append(result, model.SeriesOptions{Alias: alias, MeasureTypes: decodeStrings(obj["measureTypes"])})
	}
	return result, nil
}

func decodeTime(val interface{}, field string) (t time.Time, err error) {
	s, err := decodeString(val, field)
	if err != nil {
		return t, err
	}
	if t, err = utils.ParseISOTime(s); err != nil {
		return t, malformed("%s: %s", field, err.Error())
	}
	return t, nil
}

func decodeString(val interface{}, field string) (string, error) {
	s, ok := val.(string)
	if !ok {
		return "", malformed("%s must be a string", field)
	}
	return s, nil
}

func decodeNumber(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func decodeStrings(val interface{}) []string {
	list := asList(val)
	result := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			s = utils.StringifyValue(item)
		}
		result = append(result, s)
	}
	return result
}

func asList(val interface{}) []interface{} {
	list, _ := val.([]interface{})
	return list
}
