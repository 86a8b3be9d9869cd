package openfda

// DocShape classifies the structure of a decoded JSON document. The shape
// is resolved once at the start of Convert so the row-extraction logic can
// branch on a closed set of variants instead of re-probing the document.
type DocShape int

const (
	// ResultsList is an object whose "results" value is a list; each
	// element becomes one row. This is the usual openFDA envelope.
	ResultsList DocShape = iota
	// ResultsScalar is an object whose "results" value is anything else;
	// it becomes a single-cell, single-row table.
	ResultsScalar
	// BareObject is an object with no "results" key; the object itself is
	// the one row.
	BareObject
	// BareArray is a top-level JSON array; each element becomes one row.
	BareArray
	// BareScalar is anything else (string, number, bool, null).
	BareScalar
)

// Shape resolves the DocShape of a decoded JSON value.
func Shape(doc interface{}) DocShape {
	switch d := doc.(type) {
	case map[string]interface{}:
		res, ok := d["results"]
		if !ok {
			return BareObject
		}
		if _, ok := res.([]interface{}); ok {
			return ResultsList
		}
		return ResultsScalar
	case []interface{}:
		return BareArray
	}
	return BareScalar
}
