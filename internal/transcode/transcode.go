// Package transcode maps row values to the shapes the remote API expects.
//
// A Transcoder applies an ordered list of rules. Each rule matches columns by
// name and rewrites their value in a copy of the row; the input row is never
// modified. Values a rule cannot convert are left as they were and reported
// as a Warning, never as an error.
package transcode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bft-labs/rowship/internal/domain"
)

// Warning describes a value a rule could not convert.
type Warning struct {
	Rule   string
	Column string
	Value  any
	Err    error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: column %s value %v: %v", w.Rule, w.Column, w.Value, w.Err)
}

// Rule rewrites matching columns of out.
// Apply returns an error when the value must be left unchanged.
type Rule struct {
	Name  string
	Match func(column string) bool
	Apply func(out *domain.Row, column string, value any) error
}

// Transcoder applies rules in order to each column of a row.
type Transcoder struct {
	rules []Rule
}

// New returns a Transcoder with the given rules.
func New(rules ...Rule) *Transcoder {
	return &Transcoder{rules: rules}
}

// Default returns a Transcoder with the rules for the remote object schema.
func Default() *Transcoder {
	return New(DefaultRules()...)
}

// Transcode returns a converted copy of row and the warnings raised.
// Every rule sees the columns of the original row with their original values.
func (t *Transcoder) Transcode(row domain.Row) (domain.Row, []Warning) {
	out := row.Clone()
	var warnings []Warning
	row.Range(func(col string, v any) bool {
		for _, r := range t.rules {
			if !r.Match(col) {
				continue
			}
			if err := r.Apply(&out, col, v); err != nil {
				warnings = append(warnings, Warning{Rule: r.Name, Column: col, Value: v, Err: err})
			}
		}
		return true
	})
	return out, warnings
}

// Columns matches any of the named columns.
func Columns(names ...string) func(string) bool {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(col string) bool {
		_, ok := set[col]
		return ok
	}
}

// CoordinateColumns are converted from decimal point to decimal comma.
var CoordinateColumns = []string{"X_CAVO", "Y_CAVO", "X_COORD", "Y_COORD", "Z_COORD"}

// DefaultRules returns the rule set used by Default.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "decimal-comma", Match: Columns(CoordinateColumns...), Apply: decimalComma},
		{Name: "truncate-int", Match: Columns("ORIENTAMENTO"), Apply: truncateInt},
		{Name: "rename", Match: Columns("CODICELOCALE"), Apply: Rename("CODICE_LOCALE")},
		{Name: "phase-code", Match: Columns("FASE"), Apply: Lookup(map[string]any{
			"A": int64(1),
			"B": int64(2),
			"C": int64(3),
		})},
	}
}

func decimalComma(out *domain.Row, col string, v any) error {
	var text string
	switch x := v.(type) {
	case string:
		text = strings.TrimSpace(x)
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return fmt.Errorf("not a number")
		}
	case []byte:
		text = strings.TrimSpace(string(x))
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return fmt.Errorf("not a number")
		}
	case float64:
		text = strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		text = strconv.FormatInt(x, 10)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
	out.Set(col, strings.ReplaceAll(text, ".", ","))
	return nil
}

func truncateInt(out *domain.Row, col string, v any) error {
	var f float64
	switch x := v.(type) {
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return fmt.Errorf("not a number")
		}
		f = p
	case []byte:
		p, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return fmt.Errorf("not a number")
		}
		f = p
	case float64:
		f = x
	case int64:
		out.Set(col, x)
		return nil
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return fmt.Errorf("out of range")
	}
	out.Set(col, int64(f))
	return nil
}

// Rename emits the column under a new name and removes the old one.
func Rename(to string) func(*domain.Row, string, any) error {
	return func(out *domain.Row, col string, _ any) error {
		out.Rename(col, to)
		return nil
	}
}

// Lookup replaces string values found in table. Other values pass through.
func Lookup(table map[string]any) func(*domain.Row, string, any) error {
	return func(out *domain.Row, col string, v any) error {
		s, ok := v.(string)
		if !ok {
			if b, isBytes := v.([]byte); isBytes {
				s, ok = string(b), true
			}
		}
		if !ok {
			return nil
		}
		if mapped, found := table[s]; found {
			out.Set(col, mapped)
		}
		return nil
	}
}
