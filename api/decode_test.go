package api

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/thingsplex/tsiclient/integration/tsdb"
	"github.com/thingsplex/tsiclient/model"
)

func decode(t *testing.T, payload string) *tsdb.Request {
	t.Helper()
	msg, err := DecodeMessage([]byte(payload))
	require.NoError(t, err)
	req, err := DecodeRequest(msg)
	require.NoError(t, err)
	return req
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"cmd.transform.events","id":"r1","val":[]}`))
	require.NoError(t, err)
	require.Equal(t, "cmd.transform.events", msg.Type)
	require.Equal(t, "r1", msg.ID)
	require.Empty(t, msg.Val)

	for _, payload := range []string{`{"type":`, `[1,2]`, `{"id":"x"}`, `{"type":""}`} {
		_, err = DecodeMessage([]byte(payload))
		require.True(t, errors.Is(err, ErrMalformedPayload), payload)
	}
}

func TestDecodeRequest_Availability(t *testing.T) {
	req := decode(t, `{"type":"cmd.transform.availability","val":{
		"range":{"from":"2021-01-01T00:00:00.000Z","to":"2021-01-01T01:00:00.000Z"},
		"intervalSize":"1h",
		"distribution":{"2021-01-01T00:00:00.000Z":5},
		"rollUp":{"multiplier":4,"offset":1,"latestKey":"now"}}}`)
	require.Equal(t, tsdb.KindAvailability, req.Kind)
	require.True(t, req.Availability.Range.From.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, req.Availability.Range.To.Equal(time.Date(2021, 1, 1, 1, 0, 0, 0, time.UTC)))
	require.Equal(t, "1h", req.Availability.IntervalSize)
	require.Equal(t, model.Distribution{"2021-01-01T00:00:00.000Z": 5}, req.Availability.Distribution)
	require.Equal(t, &tsdb.RollUpConfig{Multiplier: 4, Offset: 1, LatestKey: "now"}, req.RollUp)
}

func TestDecodeRequest_AvailabilityErrors(t *testing.T) {
	for _, val := range []string{
		`{"intervalSize":"1h"}`,
		`{"range":{"from":"2021-01-01T00:00:00Z","to":"never"},"intervalSize":"1h"}`,
		`{"range":{"from":"2021-01-01T00:00:00Z","to":"2021-01-01T01:00:00Z"},"intervalSize":60}`,
		`{"range":{"from":"2021-01-01T00:00:00Z","to":"2021-01-01T01:00:00Z"},"intervalSize":"1h","distribution":{"x":"5"}}`,
	} {
		msg, err := DecodeMessage([]byte(`{"type":"cmd.transform.availability","val":` + val + `}`))
		require.NoError(t, err)
		_, err = DecodeRequest(msg)
		require.True(t, errors.Is(err, ErrMalformedPayload), val)
	}
}

func TestDecodeRequest_Events(t *testing.T) {
	req := decode(t, `{"type":"cmd.transform.events","val":{"events":[
		{"schema":{"rid":"s1","$esn":"sensor","properties":[{"name":"temp","type":"Double"},{"name":"count","type":"Long"}]},
		 "$ts":"2021-01-01T10:00:00Z","$lts":"2021-01-01T11:00:00","values":[21.5,3]},
		{"schemaRid":"s1","$ts":"2021-01-01T10:00:01Z","values":[null]}]}}`)
	require.Len(t, req.Events, 2)
	require.Equal(t, &model.EventSchema{Rid: "s1", EventSourceName: "sensor", Properties: []model.SchemaProperty{
		{Name: "temp", Type: "Double"}, {Name: "count", Type: "Long"},
	}}, req.Events[0].Schema)
	require.Equal(t, "2021-01-01T11:00:00", req.Events[0].Lts)
	require.Equal(t, []interface{}{21.5, int64(3)}, req.Events[0].Values)
	require.Nil(t, req.Events[1].Schema)
	require.Equal(t, "s1", req.Events[1].SchemaRid)
	require.Equal(t, []interface{}{nil}, req.Events[1].Values)

	bare := decode(t, `{"type":"cmd.transform.events","val":[{"schemaRid":"s1","$ts":"2021-01-01T10:00:01Z"}]}`)
	require.Len(t, bare.Events, 1)

	msg, _ := DecodeMessage([]byte(`{"type":"cmd.transform.events","val":[{"$ts":"2021-01-01T10:00:01Z"}]}`))
	_, err := DecodeRequest(msg)
	require.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestDecodeRequest_Aggregates(t *testing.T) {
	req := decode(t, `{"type":"cmd.transform.aggregates","val":{
		"aggregates":[
			{"dimension":["t1","t2"],"measures":[[1],[2.5]]},
			{"dimension":["a","b"],"aggregate":{"dimension":["t1"],"measures":[[[1,2]],[null]]}},
			{"__tsiError__":{"code":"InvalidInput","message":"bad"}}
		],
		"options":[{"alias":"A","measureTypes":["avg"]},{"alias":"B","measureTypes":["avg","max"]},{"alias":"C","measureTypes":[]}]}}`)
	require.Len(t, req.Aggregates, 3)
	require.Equal(t, model.AggregateResult{Dimension: []string{"t1", "t2"}, Measures: [][]interface{}{{int64(1)}, {2.5}}}, req.Aggregates[0])
	require.True(t, req.Aggregates[1].IsGrouped())
	require.Equal(t, [][][]interface{}{{{int64(1), int64(2)}}, {nil}}, req.Aggregates[1].Aggregate.Measures)
	require.Equal(t, &model.ResultError{Code: "InvalidInput", Message: "bad"}, req.Aggregates[2].Err)
	require.Equal(t, []model.SeriesOptions{
		{Alias: "A", MeasureTypes: []string{"avg"}},
		{Alias: "B", MeasureTypes: []string{"avg", "max"}},
		{Alias: "C", MeasureTypes: []string{}},
	}, req.Series)
}

func TestDecodeRequest_Query(t *testing.T) {
	req := decode(t, `{"type":"cmd.transform.tsq","val":{
		"results":[
			{"timestamps":["t1","t2"],"variables":{"temp":{"values":[1,2]},"hum":{"values":[40,41]}}},
			{"__tsiError__":"timeout"}
		],
		"options":[{"alias":"A"},{"alias":"B"}]}}`)
	require.Len(t, req.QueryResults, 2)
	require.Equal(t, []model.Variable{
		{Name: "hum", Values: []interface{}{int64(40), int64(41)}},
		{Name: "temp", Values: []interface{}{int64(1), int64(2)}},
	}, req.QueryResults[0].Variables)
	require.Equal(t, `"timeout"`, req.QueryResults[1].Err.Message)
}
