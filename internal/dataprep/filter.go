package dataprep

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/KaramelBytes/citycluster-cli/internal/table"
)

// Op is a row-filter comparison.
type Op string

const (
	OpGT Op = "gt"
	OpGE Op = "ge"
	OpLT Op = "lt"
	OpLE Op = "le"
	OpEQ Op = "eq"
	OpNE Op = "ne"
)

// Filter keeps rows whose Column compares true against Value. Ordering ops need a
// numeric cell; eq/ne also compare text.
type Filter struct {
	Column string `json:"column" yaml:"column" mapstructure:"column"`
	Op     Op     `json:"op" yaml:"op" mapstructure:"op"`
	Value  string `json:"value" yaml:"value" mapstructure:"value"`
}

func (f Filter) String() string { return fmt.Sprintf("%s %s %s", f.Column, f.Op, f.Value) }

// ParseFilter parses "column:op:value", e.g. "population_density:gt:0".
func ParseFilter(s string) (Filter, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
		return Filter{}, eris.Errorf("dataprep: invalid filter %q (use column:op:value)", s)
	}
	f := Filter{Column: strings.TrimSpace(parts[0]), Op: Op(strings.ToLower(strings.TrimSpace(parts[1]))), Value: strings.TrimSpace(parts[2])}
	if err := f.validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func (f Filter) validate() error {
	switch f.Op {
	case OpGT, OpGE, OpLT, OpLE:
		if _, err := strconv.ParseFloat(f.Value, 64); err != nil {
			return eris.Errorf("dataprep: filter %q needs a numeric value", f.String())
		}
	case OpEQ, OpNE:
	default:
		return eris.Errorf("dataprep: unknown filter op %q (use gt, ge, lt, le, eq, ne)", f.Op)
	}
	return nil
}

// keep evaluates the filter on one cell.
func (f Filter) keep(v table.Value) bool {
	x, isNum := v.Float()
	target, err := strconv.ParseFloat(f.Value, 64)
	numeric := isNum && err == nil
	switch f.Op {
	case OpGT:
		return numeric && x > target
	case OpGE:
		return numeric && x >= target
	case OpLT:
		return numeric && x < target
	case OpLE:
		return numeric && x <= target
	case OpEQ:
		if numeric {
			return x == target
		}
		return !v.IsMissing() && v.String() == f.Value
	case OpNE:
		if numeric {
			return x != target
		}
		return v.IsMissing() || v.String() != f.Value
	}
	return false
}
