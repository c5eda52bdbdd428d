package model

import (
	"bytes"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// Record is one normalized row of ingested tabular data: an ordered
// column→value mapping. Column order is the order of the source header and
// is preserved through JSON round trips so that serialization is
// deterministic. A Record is immutable once created; its identity is its
// position in the owning Dataset.
type Record struct {
	columns []string
	values  []string
}

// NewRecord creates a Record from parallel column and value slices.
func NewRecord(columns, values []string) (Record, error) {
	if len(columns) != len(values) {
		return Record{}, goerr.New("column/value count mismatch",
			goerr.V("columns", len(columns)),
			goerr.V("values", len(values)),
		)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return Record{}, goerr.New("empty column name")
		}
		if seen[c] {
			return Record{}, goerr.New("duplicate column name", goerr.V("column", c))
		}
		seen[c] = true
	}

	r := Record{
		columns: make([]string, len(columns)),
		values:  make([]string, len(values)),
	}
	copy(r.columns, columns)
	copy(r.values, values)
	return r, nil
}

// Columns returns the column names in their original order.
func (r Record) Columns() []string {
	cols := make([]string, len(r.columns))
	copy(cols, r.columns)
	return cols
}

// Len returns the number of columns
func (r Record) Len() int {
	return len(r.columns)
}

// Get returns the value for a column and whether the column exists.
func (r Record) Get(column string) (string, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return "", false
}

// Verify checks the record's internal invariants: every column has exactly
// one value and column names are unique and non-empty.
func (r Record) Verify() error {
	if len(r.columns) != len(r.values) {
		return goerr.New("column/value count mismatch",
			goerr.V("columns", len(r.columns)),
			goerr.V("values", len(r.values)),
		)
	}
	seen := make(map[string]bool, len(r.columns))
	for _, c := range r.columns {
		if c == "" {
			return goerr.New("empty column name")
		}
		if seen[c] {
			return goerr.New("duplicate column name", goerr.V("column", c))
		}
		seen[c] = true
	}
	return nil
}

// Serialize returns the record's canonical JSON form. This is the exact
// text handed to the embedding backend, so two records with the same
// columns and values always serialize identically.
func (r Record) Serialize() (string, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MarshalJSON encodes the record as a JSON object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode column name", goerr.V("column", col))
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode cell value", goerr.V("column", col))
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the record, preserving key order
// as it appears in the document. Only string values are accepted; a
// normalized record never contains anything else.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return goerr.Wrap(err, "failed to decode record")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return goerr.New("record must be a JSON object", goerr.V("token", tok))
	}

	var columns, values []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return goerr.Wrap(err, "failed to decode record key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return goerr.New("record key must be a string", goerr.V("token", keyTok))
		}

		valTok, err := dec.Token()
		if err != nil {
			return goerr.Wrap(err, "failed to decode record value", goerr.V("column", key))
		}
		val, ok := valTok.(string)
		if !ok {
			return goerr.New("record value must be a string",
				goerr.V("column", key),
				goerr.V("token", valTok),
			)
		}

		columns = append(columns, key)
		values = append(values, val)
	}

	rec, err := NewRecord(columns, values)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}
