package storage

import "github.com/thingsplex/tsiclient/integration/tsdb/processing"

// RowSink receives flattened events , e.g. for grid download.
type RowSink interface {
	WriteRows(rows []processing.FlatRow) error
	Close() error
}
