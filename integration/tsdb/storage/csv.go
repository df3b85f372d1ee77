package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/thingsplex/tsiclient/integration/tsdb/processing"
	"github.com/thingsplex/tsiclient/utils"
)

// CsvStorage writes flat rows as CSV. Header is "timestamp" followed by column keys in order of first appearance ,
// so all rows of one write must be passed in a single WriteRows call.
type CsvStorage struct {
	writer        *csv.Writer
	file          *os.File
	headerWritten bool
}

func NewCsvStorage(w io.Writer) *CsvStorage {
	return &CsvStorage{writer: csv.NewWriter(w)}
}

// NewCsvFileStorage creates the file. If the path is a directory , file name is generated from current time.
func NewCsvFileStorage(filePath string) (*CsvStorage, error) {
	if info, err := os.Stat(filePath); err == nil && info.IsDir() {
		filePath = path.Join(filePath, fmt.Sprintf("events_%s.csv", time.Now().Format("2006_01_02T15_04_05")))
	}
	file, err := os.Create(filePath)
	if err != nil {
		log.Error("<csv> Can't create csv file ", err)
		return nil, err
	}
	st := NewCsvStorage(file)
	st.file = file
	return st, nil
}

func (c *CsvStorage) WriteRows(rows []processing.FlatRow) error {
	if c.headerWritten {
		return fmt.Errorf("csv header is already written")
	}
	var keys []string
	seen := map[string]bool{}
	for _, row := range rows {
		if row.Columns == nil {
			continue
		}
		for _, k := range row.Columns.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	if err := c.writer.Write(append([]string{processing.TimestampField}, keys...)); err != nil {
		return err
	}
	c.headerWritten = true
	for _, row := range rows {
		if err := c.writer.Write(rowToRecord(row, keys)); err != nil {
			return err
		}
	}
	c.writer.Flush()
	log.Debugf("<csv> %d rows with %d columns written", len(rows), len(keys))
	return c.writer.Error()
}

func rowToRecord(row processing.FlatRow, keys []string) []string {
	rec := make([]string, len(keys)+1)
	rec[0] = row.Timestamp
	if row.Columns == nil {
		return rec
	}
	for i, k := range keys {
		col, ok := row.Columns.Get(k)
		if !ok || col.Value == nil {
			continue
		}
		rec[i+1] = utils.StringifyValue(col.Value)
	}
	return rec
}

func (c *CsvStorage) Close() error {
	c.writer.Flush()
	if c.file != nil {
		return c.file.Close()
	}
	return c.writer.Error()
}
