package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/citycluster-cli/internal/dataprep"
	"github.com/KaramelBytes/citycluster-cli/internal/table"
)

// Options controls Describe.
type Options struct {
	// Name is shown in the report header, usually the input file name.
	Name string
	// SampleRows determines how many head rows to include in the report; 0 omits them.
	SampleRows int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// CorrPerGroup computes correlations per group key.
	CorrPerGroup bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset description.
func DefaultOptions() Options {
	return Options{SampleRows: 5, Correlations: true}
}

// Report is a markdown-friendly description of a record table.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Groups   []GroupResult
	Corr     *CorrMatrix
}

// ColumnSummary captures the column kind and statistics.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|categorical|empty
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key       string
	Size      int
	Metrics   map[string]NumSummary // by column name
	CorrPairs []PairCorr            // top correlation pairs (by |r|)
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Describe summarizes t: per-column schema and stats, optional group-by
// aggregates and correlations, and the head rows.
func Describe(t *table.Table, opt Options) (*Report, error) {
	if err := t.Require(opt.GroupBy...); err != nil {
		return nil, err
	}
	rep := &Report{Name: opt.Name, Rows: t.NumRows()}
	cols := t.Columns()

	var numCols []int
	numVals := make(map[int][]float64)
	for j, name := range cols {
		vals, _ := t.Column(name)
		kind, _ := t.Kind(name)
		s := ColumnSummary{Name: name, Kind: string(kind)}
		cats := map[string]int{}
		var order []string
		var xs []float64
		for _, v := range vals {
			if v.IsMissing() {
				s.Missing++
				continue
			}
			s.NonNull++
			key := v.String()
			if _, ok := cats[key]; !ok {
				order = append(order, key)
			}
			cats[key]++
			if f, ok := v.Float(); ok {
				xs = append(xs, f)
			}
		}
		s.Unique = len(cats)
		switch kind {
		case table.Numeric:
			numCols = append(numCols, j)
			numVals[j] = xs
			s.Min, s.Max = minMax(xs)
			if len(xs) > 1 {
				s.Mean, s.Std = stat.MeanStdDev(xs, nil)
			} else {
				s.Mean = xs[0]
			}
			if opt.Outliers && len(xs) >= 8 {
				s.OutliersCount, s.OutliersMaxAbsZ, s.OutlierThreshold = outliers(xs, opt.OutlierThreshold)
			}
		case table.Categorical:
			s.TopValues = topValues(cats, order, 8)
		case table.Empty:
			if rep.Rows > 0 {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has no values", safeName(name)))
			}
		}
		if s.Missing > 0 && kind != table.Empty {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has %d missing values", safeName(name), s.Missing))
		}
		rep.Cols = append(rep.Cols, s)
	}
	if rep.Rows == 0 {
		rep.Warnings = append(rep.Warnings, "dataset has no rows")
	}

	for i := 0; i < t.NumRows() && i < opt.SampleRows; i++ {
		row := make([]string, len(cols))
		for j, v := range t.Row(i) {
			row[j] = v.String()
		}
		rep.Samples = append(rep.Samples, row)
	}

	if len(opt.GroupBy) > 0 {
		rep.Groups = groupBy(t, opt, numCols)
	}
	if opt.Correlations && len(numCols) >= 2 {
		names := make([]string, len(numCols))
		for i, j := range numCols {
			names[i] = cols[j]
		}
		all := make([]int, t.NumRows())
		for i := range all {
			all[i] = i
		}
		rep.Corr = &CorrMatrix{Columns: names, Values: corrMatrix(t, numCols, all)}
	}
	return rep, nil
}

func groupBy(t *table.Table, opt Options, numCols []int) []GroupResult {
	gIdx := make([]int, len(opt.GroupBy))
	for k, name := range opt.GroupBy {
		gIdx[k], _ = t.Index(name)
	}
	cols := t.Columns()
	members := map[string][]int{}
	var keys []string
	for i := 0; i < t.NumRows(); i++ {
		parts := make([]string, len(gIdx))
		for k, j := range gIdx {
			val := t.At(i, j).String()
			if t.At(i, j).IsMissing() {
				val = "(missing)"
			}
			parts[k] = fmt.Sprintf("%s=%s", cols[j], safeVal(val))
		}
		key := strings.Join(parts, " | ")
		if _, ok := members[key]; !ok {
			keys = append(keys, key)
		}
		members[key] = append(members[key], i)
	}

	out := make([]GroupResult, 0, len(keys))
	for _, key := range keys {
		rows := members[key]
		gr := GroupResult{Key: key, Size: len(rows), Metrics: map[string]NumSummary{}}
		for _, j := range numCols {
			var xs []float64
			for _, i := range rows {
				if f, ok := t.At(i, j).Float(); ok {
					xs = append(xs, f)
				}
			}
			if len(xs) == 0 {
				continue
			}
			lo, hi := minMax(xs)
			gr.Metrics[cols[j]] = NumSummary{Count: len(xs), Min: lo, Max: hi, Mean: stat.Mean(xs, nil)}
		}
		if opt.CorrPerGroup && len(numCols) >= 2 {
			gr.CorrPairs = topPairs(cols, numCols, corrMatrix(t, numCols, rows), 10)
		}
		out = append(out, gr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}

// corrMatrix computes pairwise-complete Pearson r over the given rows. Pairs
// with fewer than two observations or zero variance get r=0.
func corrMatrix(t *table.Table, numCols, rows []int) [][]float64 {
	n := len(numCols)
	mat := make([][]float64, n)
	for a := range mat {
		mat[a] = make([]float64, n)
		mat[a][a] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var xs, ys []float64
			for _, i := range rows {
				x, okx := t.At(i, numCols[a]).Float()
				y, oky := t.At(i, numCols[b]).Float()
				if okx && oky {
					xs = append(xs, x)
					ys = append(ys, y)
				}
			}
			r := 0.0
			if len(xs) >= 2 {
				r = stat.Correlation(xs, ys, nil)
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			mat[a][b], mat[b][a] = r, r
		}
	}
	return mat
}

func topPairs(cols []string, numCols []int, mat [][]float64, limit int) []PairCorr {
	var pairs []PairCorr
	for a := 0; a < len(numCols); a++ {
		for b := a + 1; b < len(numCols); b++ {
			if mat[a][b] == 0 {
				continue
			}
			pairs = append(pairs, PairCorr{A: cols[numCols[a]], B: cols[numCols[b]], R: mat[a][b]})
		}
	}
	sortPairs(pairs)
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func sortPairs(pairs []PairCorr) {
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
}

func topValues(cats map[string]int, order []string, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for _, k := range order {
		tops = append(tops, CategoryCount{Value: k, Count: cats[k]})
	}
	sort.SliceStable(tops, func(i, j int) bool { return tops[i].Count > tops[j].Count })
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func outliers(xs []float64, thr float64) (count int, maxAbsZ, threshold float64) {
	if thr <= 0 {
		thr = 3.5
	}
	median, mad := medianMAD(xs)
	if mad > 0 {
		for _, v := range xs {
			az := math.Abs(0.6745 * (v - median) / mad)
			if az > thr {
				count++
			}
			if az > maxAbsZ {
				maxAbsZ = az
			}
		}
	}
	return count, maxAbsZ, thr
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	median = dataprep.Median(vals)
	dev := make([]float64, len(vals))
	for i, v := range vals {
		dev[i] = math.Abs(v - median)
	}
	return median, dataprep.Median(dev)
}
