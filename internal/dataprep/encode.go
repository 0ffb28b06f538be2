package dataprep

import (
	"github.com/rotisserie/eris"

	"github.com/KaramelBytes/citycluster-cli/internal/table"
)

// ErrUnknownCategory is returned when Transform meets a value not seen by Fit.
var ErrUnknownCategory = eris.New("unknown category")

// EncodedSuffix is appended to the source column name when Output is empty.
const EncodedSuffix = "_Encoded"

// LabelEncoder maps each distinct value of Column to an integer code, assigned
// in order of first appearance.
type LabelEncoder struct {
	Column string
	Output string

	classes []table.Value
	codes   map[string]int
}

// NewLabelEncoder returns an encoder writing to output, or to column+"_Encoded"
// when output is empty.
func NewLabelEncoder(column, output string) *LabelEncoder {
	return &LabelEncoder{Column: column, Output: output}
}

// OutputColumn is the name of the column Transform writes.
func (e *LabelEncoder) OutputColumn() string {
	if e.Output != "" {
		return e.Output
	}
	return e.Column + EncodedSuffix
}

// Fit learns the class list from t. Missing cells are skipped.
func (e *LabelEncoder) Fit(t *table.Table) error {
	vals, err := t.Column(e.Column)
	if err != nil {
		return err
	}
	e.classes = nil
	e.codes = make(map[string]int)
	for _, v := range vals {
		if v.IsMissing() {
			continue
		}
		k := table.ValueKey(v)
		if _, ok := e.codes[k]; ok {
			continue
		}
		e.codes[k] = len(e.classes)
		e.classes = append(e.classes, v)
	}
	return nil
}

// Transform returns a copy of t with the output column holding the codes.
func (e *LabelEncoder) Transform(t *table.Table) (*table.Table, error) {
	if e.codes == nil {
		return nil, eris.Errorf("dataprep: encoder for %q is not fitted", e.Column)
	}
	vals, err := t.Column(e.Column)
	if err != nil {
		return nil, err
	}
	out := make([]table.Value, len(vals))
	for i, v := range vals {
		if v.IsMissing() {
			out[i] = table.Null()
			continue
		}
		code, ok := e.codes[table.ValueKey(v)]
		if !ok {
			return nil, eris.Wrapf(ErrUnknownCategory, "dataprep: %s row %d: %q", e.Column, i+1, v.String())
		}
		out[i] = table.Num(float64(code))
	}
	return t.WithColumn(e.OutputColumn(), out)
}

// FitTransform fits on t and encodes it.
func (e *LabelEncoder) FitTransform(t *table.Table) (*table.Table, error) {
	if err := e.Fit(t); err != nil {
		return nil, err
	}
	return e.Transform(t)
}

// Classes returns the fitted values in code order.
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	for i, v := range e.classes {
		out[i] = v.String()
	}
	return out
}

// Mapping returns value → code.
func (e *LabelEncoder) Mapping() map[string]int {
	m := make(map[string]int, len(e.classes))
	for i, v := range e.classes {
		m[v.String()] = i
	}
	return m
}
