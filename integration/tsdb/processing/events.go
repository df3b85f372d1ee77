package processing

import (
	"bytes"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/thingsplex/tsiclient/metadata"
	"github.com/thingsplex/tsiclient/model"
	"github.com/thingsplex/tsiclient/utils"
)

const (
	TimestampField        = "timestamp"
	EventSourceNameColumn = "EventSourceName"
	LocalTimestampColumn  = "LocalTimestamp"
	TypeString            = "String"
	TypeDateTime          = "DateTime"

	displayTimestampLayout = "2006-01-02 15:04:05.000"
)

// Column is a self describing cell of a flat row.
type Column struct {
	Value interface{} `json:"value"`
	Name  string      `json:"name"`
	Type  string      `json:"type"`
}

type ColumnMap = OrderedMap[Column]

// ColumnKey builds the key of a column , "<name>_<type>".
// Properties with the same normalized name and type share the key , the later one wins.
func ColumnKey(name, propType string) string {
	return name + "_" + propType
}

// FlatRow is one flattened event.
type FlatRow struct {
	Timestamp string
	Columns   *ColumnMap
}

func (r FlatRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeJSONMember(&buf, TimestampField, r.Timestamp); err != nil {
		return nil, err
	}
	var err error
	if r.Columns != nil {
		r.Columns.Range(func(key string, col Column) bool {
			buf.WriteByte(',')
			err = writeJSONMember(&buf, key, col)
			return err == nil
		})
	}
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type FlattenOptions struct {
	// TimezoneOffset is subtracted from event UTC time to get display time.
	TimezoneOffset time.Duration
}

// stripCache memoizes StripForConcat within one batch.
type stripCache map[string]string

func (c stripCache) strip(text string) string {
	stripped, ok := c[text]
	if !ok {
		stripped = utils.StripForConcat(text)
		c[text] = stripped
	}
	return stripped
}

// flattenContext holds caches which live for one FlattenEvents call.
type flattenContext struct {
	opts    FlattenOptions
	schemas metadata.SchemaStore
	names   stripCache
	values  stripCache
}

// FlattenEvents converts columnar events into flat rows , one row per event.
// Event which references a schema must come after the event carrying that schema.
func FlattenEvents(events []model.RawEvent, opts FlattenOptions) ([]FlatRow, error) {
	fc := &flattenContext{
		opts:    opts,
		schemas: metadata.NewMemorySchemaStore(),
		names:   stripCache{},
		values:  stripCache{},
	}
	rows := make([]FlatRow, 0, len(events))
	for i := range events {
		row, err := fc.flatten(&events[i])
		if err != nil {
			return nil, errors.Wrapf(err, "event %d", i)
		}
		rows = append(rows, row)
	}
	log.Debugf("<events> %d events flattened using %d schemas", len(rows), fc.schemas.Len())
	return rows, nil
}

func (fc *flattenContext) flatten(ev *model.RawEvent) (FlatRow, error) {
	var schema metadata.SchemaRec
	if ev.Schema != nil {
		schema = fc.schemas.Register(*ev.Schema)
	} else {
		var err error
		schema, err = fc.schemas.GetSchemaByRid(ev.SchemaRid)
		if err != nil {
			return FlatRow{}, errors.Wrapf(ErrUnresolvedSchemaReference, "%s", err.Error())
		}
	}

	ts, err := utils.ParseISOTime(ev.Ts)
	if err != nil {
		return FlatRow{}, errors.Wrapf(ErrMalformedTimestamp, "$ts %q", ev.Ts)
	}
	row := FlatRow{
		Timestamp: ts.Add(-fc.opts.TimezoneOffset).UTC().Format(displayTimestampLayout),
		Columns:   NewOrderedMap[Column](),
	}
	if ev.Lts != "" {
		row.Columns.Set(ColumnKey(LocalTimestampColumn, TypeDateTime), Column{
			Value: strings.Replace(ev.Lts, "T", " ", 1),
			Name:  LocalTimestampColumn,
			Type:  TypeDateTime,
		})
	}
	row.Columns.Set(ColumnKey(EventSourceNameColumn, TypeString), Column{
		Value: schema.EventSourceName,
		Name:  EventSourceNameColumn,
		Type:  TypeString,
	})
	for i, prop := range schema.Properties {
		name := fc.names.strip(prop.Name)
		var value interface{}
		if i < len(ev.Values) {
			value = fc.values.strip(utils.StringifyValue(ev.Values[i]))
		}
		row.Columns.Set(ColumnKey(name, prop.Type), Column{Value: value, Name: name, Type: prop.Type})
	}
	return row, nil
}
