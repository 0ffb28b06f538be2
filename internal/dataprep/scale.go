package dataprep

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/citycluster-cli/internal/table"
)

// StandardScaler rescales Columns to zero mean and unit population variance.
// A constant column scales to exactly zero.
type StandardScaler struct {
	Columns []string

	means []float64
	stds  []float64
}

// Fit computes per-column mean and population standard deviation.
func (s *StandardScaler) Fit(t *table.Table) error {
	if err := t.Require(s.Columns...); err != nil {
		return err
	}
	means := make([]float64, len(s.Columns))
	stds := make([]float64, len(s.Columns))
	for k, col := range s.Columns {
		x, err := t.Floats(col)
		if err != nil {
			return err
		}
		if len(x) == 0 {
			continue
		}
		means[k], stds[k] = stat.PopMeanStdDev(x, nil)
		if floats.Min(x) == floats.Max(x) {
			stds[k] = 0
		}
	}
	s.means, s.stds = means, stds
	return nil
}

// Transform returns a copy of t with the scaled columns replaced.
func (s *StandardScaler) Transform(t *table.Table) (*table.Table, error) {
	if s.means == nil {
		return nil, eris.New("dataprep: scaler is not fitted")
	}
	out := t
	for k, col := range s.Columns {
		x, err := t.Floats(col)
		if err != nil {
			return nil, err
		}
		vals := make([]table.Value, len(x))
		for i, v := range x {
			var z float64
			if s.stds[k] > 0 {
				z = (v - s.means[k]) / s.stds[k]
			}
			vals[i] = table.Num(z)
		}
		if out, err = out.WithColumn(col, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FitTransform fits on t and scales it.
func (s *StandardScaler) FitTransform(t *table.Table) (*table.Table, error) {
	if err := s.Fit(t); err != nil {
		return nil, err
	}
	return s.Transform(t)
}

// Means returns the fitted column means, in Columns order.
func (s *StandardScaler) Means() []float64 { return append([]float64(nil), s.means...) }

// Stds returns the fitted population standard deviations, in Columns order.
func (s *StandardScaler) Stds() []float64 { return append([]float64(nil), s.stds...) }
