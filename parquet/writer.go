// Package parquet persists flattened tables as parquet files with a
// schema inferred per table. Every column is optional; typing degrades to
// UTF8 whenever a column isn't uniformly boolean or numeric.
package parquet

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"github.com/biobricks-ai/openfda"
)

type colKind int

const (
	kindString colKind = iota
	kindBool
	kindInt
	kindFloat
)

// placeholderColumn keeps zero-column tables representable: parquet has no
// notion of a row with no columns, so the empty document still produces a
// structurally valid file with one all-null column.
const placeholderColumn = "_empty"

// Write persists the table at path, creating parent directories as needed.
// The file is staged in the same directory and renamed into place so a
// failed write never leaves a partial file at the final path.
func Write(path string, t *openfda.Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name())

	if err := WriteTo(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "renaming into place")
}

// WriteTo encodes the table as parquet onto w.
func WriteTo(w io.Writer, t *openfda.Table) error {
	schema, kinds := inferSchema(t)
	pw := parquet.NewWriter(w, schema)

	// Groups order their fields lexicographically, so leaf column index
	// follows the sorted field order, not table order.
	fields := schema.Fields()
	rows := make([]parquet.Row, t.NumRows())
	for i := range rows {
		row := make(parquet.Row, len(fields))
		for col, f := range fields {
			name := f.Name()
			v := t.Cell(i, name)
			row[col] = cellValue(v, kinds[name]).Level(0, defLevel(v), col)
		}
		rows[i] = row
	}
	if len(rows) > 0 {
		if _, err := pw.WriteRows(rows); err != nil {
			return errors.Wrap(err, "writing rows")
		}
	}
	return errors.Wrap(pw.Close(), "closing parquet writer")
}

func defLevel(v interface{}) int {
	if v == nil {
		return 0
	}
	return 1
}

// inferSchema derives one optional leaf per column. Uniform booleans stay
// BOOLEAN, integral numbers INT64, other numerics DOUBLE, everything else
// (including mixed columns) UTF8.
func inferSchema(t *openfda.Table) (*parquet.Schema, map[string]colKind) {
	cols := t.Columns()
	kinds := make(map[string]colKind, len(cols))
	group := parquet.Group{}
	if len(cols) == 0 {
		kinds[placeholderColumn] = kindBool
		group[placeholderColumn] = parquet.Optional(parquet.Leaf(parquet.BooleanType))
		return parquet.NewSchema("document", group), kinds
	}
	for _, name := range cols {
		kind := inferKind(t.Column(name))
		kinds[name] = kind
		group[name] = parquet.Optional(leafNode(kind))
	}
	return parquet.NewSchema("document", group), kinds
}

func leafNode(kind colKind) parquet.Node {
	switch kind {
	case kindBool:
		return parquet.Leaf(parquet.BooleanType)
	case kindInt:
		return parquet.Int(64)
	case kindFloat:
		return parquet.Leaf(parquet.DoubleType)
	}
	return parquet.String()
}

func inferKind(vals []interface{}) colKind {
	var sawBool, sawInt, sawFloat, sawOther, sawAny bool
	for _, v := range vals {
		switch v.(type) {
		case nil:
			continue
		case bool:
			sawBool = true
		case int, int64:
			sawInt = true
		case float64:
			sawFloat = true
		default:
			sawOther = true
		}
		sawAny = true
	}
	switch {
	case !sawAny || sawOther:
		return kindString
	case sawBool && !sawInt && !sawFloat:
		return kindBool
	case sawBool:
		return kindString
	case sawFloat:
		return kindFloat
	case sawInt:
		return kindInt
	}
	return kindString
}

// cellValue coerces a cell to the column's parquet type. Mixed-primitive
// columns are typed UTF8, so stray numerics and booleans get a textual
// rendering there.
func cellValue(v interface{}, kind colKind) parquet.Value {
	if v == nil {
		return parquet.ValueOf(nil)
	}
	switch kind {
	case kindBool:
		return parquet.ValueOf(v.(bool))
	case kindInt:
		return parquet.ValueOf(asInt64(v))
	case kindFloat:
		switch n := v.(type) {
		case int:
			return parquet.ValueOf(float64(n))
		case int64:
			return parquet.ValueOf(float64(n))
		default:
			return parquet.ValueOf(v.(float64))
		}
	}
	switch s := v.(type) {
	case string:
		return parquet.ValueOf(s)
	case bool:
		return parquet.ValueOf(strconv.FormatBool(s))
	case int:
		return parquet.ValueOf(strconv.Itoa(s))
	case int64:
		return parquet.ValueOf(strconv.FormatInt(s, 10))
	case float64:
		return parquet.ValueOf(strconv.FormatFloat(s, 'g', -1, 64))
	}
	return parquet.ValueOf(openfda.SafeString(v))
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}
