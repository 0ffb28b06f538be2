package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind classifies a single cell.
type Kind uint8

const (
	Missing Kind = iota
	Number
	Text
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Text:
		return "text"
	default:
		return "missing"
	}
}

// Value is one cell of a Table: a number, a string, or absent.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Num returns a numeric cell. NaN is stored as Missing.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: Number, num: f}
}

// Str returns a text cell.
func Str(s string) Value { return Value{kind: Text, str: s} }

// Null returns a missing cell.
func Null() Value { return Value{} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == Missing }

// Float returns the numeric payload and whether the cell is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	return v.num, true
}

// String renders the cell the way the writer serializes it.
func (v Value) String() string {
	switch v.kind {
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case Text:
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
	case Number:
		return v.num == o.num
	case Text:
		return v.str == o.str
	default:
		return true
	}
}

// key is a kind-tagged representation used for duplicate detection and counting.
func (v Value) key() string {
	return v.kind.String()[:1] + v.String()
}

// DefaultMissingTokens are cell texts read as absent values.
var DefaultMissingTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None"}

// NumberFormat describes locale separators for numeric cells. Zero values mean
// plain strconv syntax ('.' decimal, no grouping).
type NumberFormat struct {
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// ParseValue converts raw cell text into a Value.
func ParseValue(raw string, missing map[string]struct{}, nf NumberFormat) Value {
	s := strings.TrimSpace(raw)
	if _, ok := missing[s]; ok {
		return Null()
	}
	if f, ok := parseNumeric(s, nf); ok {
		return Num(f)
	}
	return Str(s)
}

func parseNumeric(s string, nf NumberFormat) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", "")
	if nf.ThousandsSeparator != 0 && nf.ThousandsSeparator != nf.DecimalSeparator {
		raw = strings.ReplaceAll(raw, string(nf.ThousandsSeparator), "")
	}
	if nf.DecimalSeparator != 0 && nf.DecimalSeparator != '.' {
		raw = strings.ReplaceAll(raw, string(nf.DecimalSeparator), ".")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
