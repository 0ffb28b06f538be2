package dataprep

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/KaramelBytes/citycluster-cli/internal/table"
)

// CleanOptions configures Clean.
type CleanOptions struct {
	// Kinds overrides inferred column kinds for imputation (the column-role mapping).
	Kinds map[string]table.ColumnKind
	// Filters are applied after imputation; a row must pass all of them.
	Filters []Filter
}

// Imputation records one column's missing-value fill.
type Imputation struct {
	Column   string           `json:"column"`
	Kind     table.ColumnKind `json:"kind"`
	Strategy string           `json:"strategy"` // median|mode
	Fill     string           `json:"fill"`
	Count    int              `json:"count"`
}

// CleanReport summarizes what Clean changed.
type CleanReport struct {
	RowsIn      int          `json:"rows_in"`
	RowsOut     int          `json:"rows_out"`
	Duplicates  int          `json:"duplicates"`
	Filtered    int          `json:"filtered"`
	Imputations []Imputation `json:"imputations"`
	Warnings    []string     `json:"warnings"`
	// Complete is true when no missing values remain.
	Complete bool `json:"complete"`
}

// Clean removes exact-duplicate rows, fills missing numeric cells with the column
// median and missing categorical cells with the column mode, then applies the
// row filters, in that order. An all-missing column is reported as a warning.
func Clean(t *table.Table, opt CleanOptions, log *zap.Logger) (*table.Table, CleanReport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	rep := CleanReport{RowsIn: t.NumRows()}
	for _, f := range opt.Filters {
		if err := f.validate(); err != nil {
			return nil, rep, err
		}
		if err := t.Require(f.Column); err != nil {
			return nil, rep, err
		}
	}
	for col := range opt.Kinds {
		if err := t.Require(col); err != nil {
			return nil, rep, err
		}
	}

	out := DropDuplicates(t)
	rep.Duplicates = t.NumRows() - out.NumRows()
	log.Info("duplicates removed", zap.Int("removed", rep.Duplicates), zap.Int("remaining", out.NumRows()))

	for j, col := range out.Columns() {
		n := out.MissingCount(col)
		if n == 0 {
			continue
		}
		kind, ok := opt.Kinds[col]
		if !ok {
			kind, _ = out.Kind(col)
		}
		fill, strategy, ok := fillValue(out, j, kind)
		if !ok {
			w := fmt.Sprintf("column %q has no values to impute from; %d missing cells left", col, n)
			rep.Warnings = append(rep.Warnings, w)
			log.Warn("imputation skipped", zap.String("column", col), zap.Int("missing", n))
			continue
		}
		for i := 0; i < out.NumRows(); i++ {
			if out.At(i, j).IsMissing() {
				out.Set(i, j, fill)
			}
		}
		rep.Imputations = append(rep.Imputations, Imputation{Column: col, Kind: kind, Strategy: strategy, Fill: fill.String(), Count: n})
		log.Info("imputed missing values",
			zap.String("column", col),
			zap.String("strategy", strategy),
			zap.String("fill", fill.String()),
			zap.Int("count", n),
		)
	}

	if len(opt.Filters) > 0 {
		idx := make([]int, len(opt.Filters))
		for k, f := range opt.Filters {
			idx[k], _ = out.Index(f.Column)
		}
		before := out.NumRows()
		out = out.Filter(func(_ int, row []table.Value) bool {
			for k, f := range opt.Filters {
				if !f.keep(row[idx[k]]) {
					return false
				}
			}
			return true
		})
		rep.Filtered = before - out.NumRows()
		log.Info("rows filtered", zap.Int("dropped", rep.Filtered), zap.Int("remaining", out.NumRows()))
	}

	rep.RowsOut = out.NumRows()
	rep.Complete = true
	for _, col := range out.Columns() {
		if out.MissingCount(col) > 0 {
			rep.Complete = false
			break
		}
	}
	if rep.Complete {
		log.Info("all missing values handled")
	} else {
		log.Warn("some missing values could not be handled")
	}
	return out, rep, nil
}

// DropDuplicates keeps the first occurrence of each exact-duplicate row.
func DropDuplicates(t *table.Table) *table.Table {
	seen := make(map[string]struct{}, t.NumRows())
	return t.Filter(func(i int, _ []table.Value) bool {
		key := t.RowKey(i)
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
}

func fillValue(t *table.Table, j int, kind table.ColumnKind) (table.Value, string, bool) {
	switch kind {
	case table.Numeric:
		var nums []float64
		for i := 0; i < t.NumRows(); i++ {
			if f, ok := t.At(i, j).Float(); ok {
				nums = append(nums, f)
			}
		}
		if len(nums) == 0 {
			return table.Value{}, "", false
		}
		return table.Num(Median(nums)), "median", true
	case table.Categorical:
		vals := make([]table.Value, t.NumRows())
		for i := range vals {
			vals[i] = t.At(i, j)
		}
		m, ok := Mode(vals)
		return m, "mode", ok
	}
	return table.Value{}, "", false
}

// Median returns the median of vals, averaging the two middle values for even counts.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	return quantile(cp, 0.5)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo
	if float64(lo) < pos {
		hi = lo + 1
	}
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Mode returns the most frequent non-missing value; ties go to the value
// encountered first.
func Mode(vals []table.Value) (table.Value, bool) {
	counts := make(map[string]int)
	first := make(map[string]int)
	for i, v := range vals {
		if v.IsMissing() {
			continue
		}
		k := table.ValueKey(v)
		if _, ok := first[k]; !ok {
			first[k] = i
		}
		counts[k]++
	}
	best, bestCount := -1, 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && first[k] < best) {
			best, bestCount = first[k], c
		}
	}
	if best < 0 {
		return table.Value{}, false
	}
	return vals[best], true
}
