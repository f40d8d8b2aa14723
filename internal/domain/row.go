package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Row is one record read from a local table. Columns keep the order the
// database declared them in; the first column is conventionally the primary key.
//
// Values are scalars: string, int64, float64, bool or nil.
type Row struct {
	cols   []string
	values map[string]any
}

// NewRow builds a row from parallel column and value slices.
func NewRow(cols []string, values []any) Row {
	r := Row{
		cols:   make([]string, 0, len(cols)),
		values: make(map[string]any, len(cols)),
	}
	for i, c := range cols {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.Set(c, v)
	}
	return r
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	return append([]string(nil), r.cols...)
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.cols) }

// Get returns the value of a column and whether the column is present.
func (r Row) Get(col string) (any, bool) {
	v, ok := r.values[col]
	return v, ok
}

// First returns the first column and its value.
func (r Row) First() (string, any, bool) {
	if len(r.cols) == 0 {
		return "", nil, false
	}
	c := r.cols[0]
	return c, r.values[c], true
}

// Set assigns a value. New columns are appended at the end.
func (r *Row) Set(col string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[col]; !ok {
		r.cols = append(r.cols, col)
	}
	r.values[col] = v
}

// Delete removes a column if present.
func (r *Row) Delete(col string) {
	if _, ok := r.values[col]; !ok {
		return
	}
	delete(r.values, col)
	for i, c := range r.cols {
		if c == col {
			r.cols = append(r.cols[:i], r.cols[i+1:]...)
			break
		}
	}
}

// Rename moves the value of from to to, keeping the column position.
// If to already exists it is overwritten and from is removed.
func (r *Row) Rename(from, to string) {
	v, ok := r.values[from]
	if !ok || from == to {
		return
	}
	if _, exists := r.values[to]; exists {
		r.values[to] = v
		r.Delete(from)
		return
	}
	delete(r.values, from)
	r.values[to] = v
	for i, c := range r.cols {
		if c == from {
			r.cols[i] = to
			break
		}
	}
}

// Clone returns a deep copy of the row's column list and value map.
func (r Row) Clone() Row {
	out := Row{
		cols:   append([]string(nil), r.cols...),
		values: make(map[string]any, len(r.values)),
	}
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// Range calls fn for every column in order until fn returns false.
func (r Row) Range(fn func(col string, v any) bool) {
	for _, c := range r.cols {
		if !fn(c, r.values[c]) {
			return
		}
	}
}

// Key returns the integer value of the first column.
func (r Row) Key() (int64, error) {
	col, v, ok := r.First()
	if !ok {
		return 0, fmt.Errorf("%w: empty row", ErrBadKey)
	}
	k, err := ToInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%w: column %s: %v", ErrBadKey, col, err)
	}
	return k, nil
}

// ToInt64 converts an integer-like scalar to int64.
func ToInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("value %v is not integral", x)
		}
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
	case nil:
		return 0, fmt.Errorf("value is null")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// FormatValue renders a scalar the way the remote form encoding expects.
// The second result is false for nil, which callers omit.
func FormatValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return fmt.Sprint(x), true
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ValidIdentifier reports whether name can be used as a table or column name.
func ValidIdentifier(name string) bool {
	return identRe.MatchString(name)
}
