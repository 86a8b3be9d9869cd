package openfda

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// Decode decodes one JSON document from r, preserving numeric fidelity:
// integral numbers come out as int64 and everything else as float64.
func Decode(r io.Reader) (interface{}, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding json")
	}
	return doc, nil
}

// Convert turns one decoded JSON document into a rectangular table. The
// openFDA envelope ("results" holding a list of records) is unwrapped;
// anything else degrades to a single-row table rather than failing. Each
// top-level key of a record becomes a column; cells still holding nested
// objects or lists afterwards are stringified by the flattening pass.
func Convert(doc interface{}) *Table {
	t := NewTable()
	switch Shape(doc) {
	case ResultsList:
		results := doc.(map[string]interface{})["results"].([]interface{})
		for _, el := range results {
			appendRecord(t, el)
		}
	case ResultsScalar:
		appendValueRow(t, "results", doc.(map[string]interface{})["results"])
	case BareObject:
		appendRecord(t, doc)
	case BareArray:
		for _, el := range doc.([]interface{}) {
			appendRecord(t, el)
		}
	case BareScalar:
		appendValueRow(t, "value", doc)
	}
	FlattenComplex(t)
	return t
}

// appendRecord adds one row for el. Objects turn into one cell per
// top-level key; list elements that aren't objects land in a "value"
// column.
func appendRecord(t *Table, el interface{}) {
	rec, ok := el.(map[string]interface{})
	if !ok {
		appendValueRow(t, "value", el)
		return
	}
	if len(rec) == 0 {
		t.AppendEmptyRow()
		return
	}
	// Go maps don't preserve JSON key order, so columns within one record
	// are sorted for a stable layout across runs.
	keys := make([]string, 0, len(rec))
	vals := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		keys = append(keys, k)
		vals[k] = coerceNumber(v)
	}
	sort.Strings(keys)
	t.AppendRow(keys, vals)
}

func appendValueRow(t *Table, col string, v interface{}) {
	t.AppendRow([]string{col}, map[string]interface{}{col: coerceNumber(v)})
}

// coerceNumber turns json.Number cells into int64 or float64 so the table
// never carries decoder-internal types.
func coerceNumber(v interface{}) interface{} {
	num, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := num.Int64(); err == nil {
		return i
	}
	if f, err := num.Float64(); err == nil {
		return f
	}
	return num.String()
}
