package openfda

// Table is a rectangular, column-ordered representation of one JSON
// document. Columns appear in first-seen order and every row has one cell
// per column; cells for columns a row never set are nil.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]interface{}
}

// NewTable returns an empty table with no rows and no columns.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Columns returns the column names in table order. The returned slice is
// shared with the table and must not be modified.
func (t *Table) Columns() []string {
	return t.cols
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// Cell returns the value at (row, col name), or nil if the column does not
// exist.
func (t *Table) Cell(row int, col string) interface{} {
	idx, ok := t.index[col]
	if !ok {
		return nil
	}
	return t.rows[row][idx]
}

// Column returns all values of the named column in row order.
func (t *Table) Column(col string) []interface{} {
	idx, ok := t.index[col]
	if !ok {
		return nil
	}
	vals := make([]interface{}, len(t.rows))
	for i, row := range t.rows {
		vals[i] = row[idx]
	}
	return vals
}

// AppendRow adds one row to the table. Keys not yet known become new
// columns; earlier rows are padded with nil for them. Iteration order over
// the map is not stable, so callers pass an ordered key list alongside.
func (t *Table) AppendRow(keys []string, vals map[string]interface{}) {
	row := make([]interface{}, len(t.cols))
	for _, k := range keys {
		idx, ok := t.index[k]
		if !ok {
			idx = len(t.cols)
			t.cols = append(t.cols, k)
			t.index[k] = idx
			for i := range t.rows {
				t.rows[i] = append(t.rows[i], nil)
			}
			row = append(row, nil)
		}
		row[idx] = vals[k]
	}
	t.rows = append(t.rows, row)
}

// AppendEmptyRow adds a row of all-nil cells. Used for documents that
// normalize to zero columns, like the empty object.
func (t *Table) AppendEmptyRow() {
	t.rows = append(t.rows, make([]interface{}, len(t.cols)))
}

// setCell overwrites a cell in place. Only used by the flattening pass.
func (t *Table) setCell(row, col int, v interface{}) {
	t.rows[row][col] = v
}

// cell returns the value at (row, column index).
func (t *Table) cell(row, col int) interface{} {
	return t.rows[row][col]
}

// IsPrimitive reports whether v can live in a table cell without further
// conversion: nil, booleans, strings, and the numeric types produced by
// JSON decoding.
func IsPrimitive(v interface{}) bool {
	switch v.(type) {
	case nil, bool, string, int, int64, float64:
		return true
	}
	return false
}
