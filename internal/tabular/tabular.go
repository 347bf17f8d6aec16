// Package tabular decodes batch uploads (CSV or JSON) into raw records and
// writes annotated CSV results.
package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/usestring/superkart-inference/internal/schema"
)

var (
	// ErrEmpty is returned for input without data rows.
	ErrEmpty = errors.New("input contains no data rows")
	// ErrTooManyRows is returned when the input exceeds the row limit.
	ErrTooManyRows = errors.New("too many rows")
	// ErrMalformed is returned for input that cannot be decoded.
	ErrMalformed = errors.New("malformed input")
)

// Table is a decoded batch.
type Table struct {
	Columns []string           // header order; derived from the keys for JSON input
	Rows    []schema.RawRecord // one per data row
	Records [][]string         // original CSV cells, nil for JSON input
}

const utf8BOM = "\ufeff"

// ParseCSV reads a CSV document with a header row. Cells are kept verbatim;
// empty cells become nil so they are reported as missing. A row shorter than
// the header is missing its trailing fields, a wider one is malformed.
// maxRows <= 0 disables the row limit.
func ParseCSV(r io.Reader, maxRows int) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: CSV parse error: %w", ErrMalformed, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{Columns: header}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: CSV parse error: %w", ErrMalformed, err)
		}
		if len(rec) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrMalformed, line, len(rec), len(header))
		}
		if maxRows > 0 && len(t.Rows) == maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, maxRows)
		}

		row := make(schema.RawRecord, len(header))
		for j, col := range header {
			if j < len(rec) && strings.TrimSpace(rec[j]) != "" {
				row[col] = rec[j]
			} else {
				row[col] = nil
			}
		}
		t.Rows = append(t.Rows, row)
		t.Records = append(t.Records, rec)
	}

	if len(t.Rows) == 0 {
		return nil, ErrEmpty
	}
	return t, nil
}

// ParseJSON decodes either {"data": [...]} or a bare array of row objects.
// Numbers are kept as json.Number.
func ParseJSON(data []byte, maxRows int) (*Table, error) {
	var v any
	if err := decode(data, &v); err != nil {
		return nil, err
	}

	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case map[string]any:
		list, ok := x["data"].([]any)
		if !ok {
			return nil, fmt.Errorf(`%w: expected a list of rows or {"data": [...]}`, ErrMalformed)
		}
		items = list
	default:
		return nil, fmt.Errorf(`%w: expected a list of rows or {"data": [...]}`, ErrMalformed)
	}

	if len(items) == 0 {
		return nil, ErrEmpty
	}
	if maxRows > 0 && len(items) > maxRows {
		return nil, fmt.Errorf("%w: got %d, limit is %d", ErrTooManyRows, len(items), maxRows)
	}

	t := &Table{Rows: make([]schema.RawRecord, len(items))}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: row %d is not an object", ErrMalformed, i+1)
		}
		t.Rows[i] = schema.RawRecord(obj)
	}
	t.Columns = keys(t.Rows)
	return t, nil
}

// ParseRecord decodes a single JSON object.
func ParseRecord(data []byte) (schema.RawRecord, error) {
	var obj map[string]any
	if err := decode(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformed)
	}
	return schema.RawRecord(obj), nil
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrMalformed)
		}
		return fmt.Errorf("%w: invalid JSON: %w", ErrMalformed, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", ErrMalformed)
	}
	return nil
}

func keys(rows []schema.RawRecord) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)
	return cols
}
