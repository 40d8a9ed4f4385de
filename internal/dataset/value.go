package dataset

import (
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// Kind distinguishes the three states a cell can be in.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
)

// Value is a nullable scalar cell.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Null returns a missing value.
func Null() Value { return Value{} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// Kind reports the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload and whether the value is numeric.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Text returns the text payload and whether the value is text.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.str, true
}

// String formats the value for display; nulls render as "".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return formatFloat(v.num)
	case KindText:
		return v.str
	default:
		return ""
	}
}

// Equal compares kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case KindText:
		return v.str == o.str
	default:
		return true
	}
}

// MarshalJSON emits null, a number, or a string. Non-finite numbers are
// emitted as "+Inf", "-Inf" or "NaN" strings since JSON has no literal for them.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsInf(v.num, 0) || math.IsNaN(v.num) {
			return gojson.Marshal(formatFloat(v.num))
		}
		return []byte(strconv.FormatFloat(v.num, 'g', -1, 64)), nil
	case KindText:
		return gojson.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// MarshalYAML emits nil, a float, or a string.
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindText:
		return v.str, nil
	default:
		return nil, nil
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Float is a float64 that survives JSON encoding when non-finite: NaN is
// emitted as null and infinities as "+Inf"/"-Inf".
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	x := float64(f)
	switch {
	case math.IsNaN(x):
		return []byte("null"), nil
	case math.IsInf(x, 0):
		return gojson.Marshal(formatFloat(x))
	}
	return []byte(strconv.FormatFloat(x, 'g', -1, 64)), nil
}
