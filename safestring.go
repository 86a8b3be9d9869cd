package openfda

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Sentinels returned by SafeString for values it cannot encode. They are
// valid JSON strings so a stringified column stays uniformly re-parseable.
const (
	cycleSentinel   = `"<cycle>"`
	unrepresentable = `"<unrepresentable>"`
)

// safeDepthLimit bounds the encoder's recursion independently of the cycle
// guard, so deeply nested acyclic values can't blow the stack either.
const safeDepthLimit = 200

// SafeString encodes a compound value as compact JSON. It is total: cyclic
// values are detected by identity and rendered as a sentinel, values the
// JSON encoder rejects fall back to their default textual form, and a
// final recover guarantees a string comes back no matter what.
func SafeString(v interface{}) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = unrepresentable
		}
	}()
	var sb strings.Builder
	encodeValue(&sb, v, make(map[uintptr]struct{}), 0)
	return sb.String()
}

// FlattenComplex replaces every non-primitive cell in the table with its
// SafeString encoding. Columns whose values are already uniformly
// primitive are left untouched so native numeric and boolean typing
// survives to the parquet schema.
func FlattenComplex(t *Table) {
	for col := range t.cols {
		uniform := true
		for row := range t.rows {
			if !IsPrimitive(t.cell(row, col)) {
				uniform = false
				break
			}
		}
		if uniform {
			continue
		}
		for row := range t.rows {
			if v := t.cell(row, col); !IsPrimitive(v) {
				t.setCell(row, col, SafeString(v))
			}
		}
	}
}

func encodeValue(sb *strings.Builder, v interface{}, seen map[uintptr]struct{}, depth int) {
	if depth > safeDepthLimit {
		sb.WriteString(cycleSentinel)
		return
	}
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(val))
	case string:
		encodeString(sb, val)
	case int:
		sb.WriteString(strconv.Itoa(val))
	case int64:
		sb.WriteString(strconv.FormatInt(val, 10))
	case float64:
		sb.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case json.Number:
		sb.WriteString(val.String())
	case map[string]interface{}:
		id := identityOf(val)
		if _, ok := seen[id]; ok {
			sb.WriteString(cycleSentinel)
			return
		}
		seen[id] = struct{}{}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			encodeString(sb, k)
			sb.WriteByte(':')
			encodeValue(sb, val[k], seen, depth+1)
		}
		sb.WriteByte('}')
		delete(seen, id)
	case []interface{}:
		id := identityOf(val)
		if id != 0 {
			if _, ok := seen[id]; ok {
				sb.WriteString(cycleSentinel)
				return
			}
			seen[id] = struct{}{}
			defer delete(seen, id)
		}
		sb.WriteByte('[')
		for i, el := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			encodeValue(sb, el, seen, depth+1)
		}
		sb.WriteByte(']')
	default:
		// Not a JSON-decoded kind. Let encoding/json try (it detects
		// cycles itself), then degrade to the default textual form.
		if buf, err := json.Marshal(v); err == nil {
			sb.Write(buf)
			return
		}
		encodeString(sb, fmt.Sprintf("%v", describeValue(v)))
	}
}

// encodeString writes a JSON-escaped string. json.Marshal on a string
// cannot fail.
func encodeString(sb *strings.Builder, s string) {
	buf, _ := json.Marshal(s)
	sb.Write(buf)
}

// describeValue avoids handing fmt a value it might chase in circles:
// anything reference-like is reduced to its type and address.
func describeValue(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprintf("%T(0x%x)", v, rv.Pointer())
	}
	return v
}

// identityOf returns a pointer-based identity for compound values so the
// cycle guard compares by identity, never by value. Distinct but
// value-equal structures must not be mistaken for cycles.
func identityOf(v interface{}) uintptr {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Ptr:
		return rv.Pointer()
	case reflect.Slice:
		if rv.Len() == 0 {
			return 0
		}
		return rv.Pointer()
	}
	return 0
}
