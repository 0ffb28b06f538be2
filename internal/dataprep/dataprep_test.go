package dataprep_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/citycluster-cli/internal/dataprep"
	"github.com/KaramelBytes/citycluster-cli/internal/table"
)

func cities(t *testing.T) *table.Table {
	t.Helper()
	tb := table.MustNew("City", "Population")
	require.NoError(t, tb.Append(table.Str("A"), table.Num(100)))
	require.NoError(t, tb.Append(table.Str("B"), table.Null()))
	require.NoError(t, tb.Append(table.Str("A"), table.Num(100)))
	require.NoError(t, tb.Append(table.Str("C"), table.Num(200)))
	return tb
}

func TestCleanDedupesThenImputesMedian(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	out, rep, err := dataprep.Clean(cities(t), dataprep.CleanOptions{}, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumRows())
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 4, rep.RowsIn)
	assert.Equal(t, 3, rep.RowsOut)
	assert.True(t, rep.Complete)

	// median of the deduplicated 100, 200
	f, ok := out.At(1, 1).Float()
	require.True(t, ok)
	assert.Equal(t, 150.0, f)

	require.Len(t, rep.Imputations, 1)
	assert.Equal(t, "median", rep.Imputations[0].Strategy)
	assert.Equal(t, "150", rep.Imputations[0].Fill)
	assert.Equal(t, 1, logs.FilterMessage("imputed missing values").Len())
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	in := cities(t)
	_, _, err := dataprep.Clean(in, dataprep.CleanOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, in.NumRows())
	assert.True(t, in.At(1, 1).IsMissing())
}

func TestCleanModeTieGoesToFirstSeen(t *testing.T) {
	tb := table.MustNew("Zone", "n")
	require.NoError(t, tb.Append(table.Str("south"), table.Num(1)))
	require.NoError(t, tb.Append(table.Str("north"), table.Num(2)))
	require.NoError(t, tb.Append(table.Null(), table.Num(3)))
	require.NoError(t, tb.Append(table.Str("north"), table.Num(4)))
	require.NoError(t, tb.Append(table.Str("south"), table.Num(5)))

	out, _, err := dataprep.Clean(tb, dataprep.CleanOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "south", out.At(2, 0).String())
}

func TestCleanAllMissingColumnWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tb := table.MustNew("a", "empty")
	require.NoError(t, tb.Append(table.Num(1), table.Null()))
	require.NoError(t, tb.Append(table.Num(2), table.Null()))

	out, rep, err := dataprep.Clean(tb, dataprep.CleanOptions{}, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 2, out.MissingCount("empty"))
	assert.False(t, rep.Complete)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "empty")
	assert.Equal(t, 1, logs.FilterMessage("imputation skipped").Len())
}

func TestCleanKindOverride(t *testing.T) {
	tb := table.MustNew("code")
	require.NoError(t, tb.Append(table.Num(7)))
	require.NoError(t, tb.Append(table.Num(3)))
	require.NoError(t, tb.Append(table.Num(7)))
	require.NoError(t, tb.Append(table.Null()))

	out, rep, err := dataprep.Clean(tb, dataprep.CleanOptions{
		Kinds: map[string]table.ColumnKind{"code": table.Categorical},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "7", out.At(3, 0).String())
	assert.Equal(t, "mode", rep.Imputations[0].Strategy)
}

func TestCleanFiltersAfterImputation(t *testing.T) {
	tb := table.MustNew("population_density", "income")
	require.NoError(t, tb.Append(table.Num(0), table.Num(10)))
	require.NoError(t, tb.Append(table.Num(50), table.Num(20)))
	require.NoError(t, tb.Append(table.Null(), table.Num(30)))
	require.NoError(t, tb.Append(table.Num(80), table.Num(40)))

	f, err := dataprep.ParseFilter("population_density:gt:0")
	require.NoError(t, err)
	out, rep, err := dataprep.Clean(tb, dataprep.CleanOptions{Filters: []dataprep.Filter{f}}, nil)
	require.NoError(t, err)
	// the missing density is filled with the median (50) before filtering
	assert.Equal(t, 1, rep.Filtered)
	assert.Equal(t, 3, out.NumRows())
	income, err := out.Floats("income")
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 30, 40}, income)
}

func TestFilterTextCells(t *testing.T) {
	tb := table.MustNew("Zone", "n")
	require.NoError(t, tb.Append(table.Str("north"), table.Num(1)))
	require.NoError(t, tb.Append(table.Str("south"), table.Num(2)))

	out, _, err := dataprep.Clean(tb, dataprep.CleanOptions{Filters: []dataprep.Filter{
		{Column: "Zone", Op: dataprep.OpNE, Value: "north"},
	}}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, "south", out.At(0, 0).String())

	out, rep, err := dataprep.Clean(tb, dataprep.CleanOptions{Filters: []dataprep.Filter{
		{Column: "Zone", Op: dataprep.OpGT, Value: "0"},
	}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumRows())
	assert.Equal(t, 2, rep.Filtered)
}

func TestCleanFilterOnAbsentColumn(t *testing.T) {
	_, _, err := dataprep.Clean(cities(t), dataprep.CleanOptions{
		Filters: []dataprep.Filter{{Column: "nope", Op: dataprep.OpGT, Value: "0"}},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, table.ErrMissingColumn))
}

func TestParseFilter(t *testing.T) {
	f, err := dataprep.ParseFilter(" Zone : EQ : north ")
	require.NoError(t, err)
	assert.Equal(t, dataprep.Filter{Column: "Zone", Op: dataprep.OpEQ, Value: "north"}, f)

	for _, bad := range []string{"Zone", "Zone:eq", ":gt:1", "a:gt:x", "a:between:1"} {
		_, err := dataprep.ParseFilter(bad)
		assert.Error(t, err, bad)
	}
}

func TestLabelEncoderEncounterOrder(t *testing.T) {
	tb := table.MustNew("City")
	for _, c := range []string{"A", "B", "A"} {
		require.NoError(t, tb.Append(table.Str(c)))
	}

	enc := dataprep.NewLabelEncoder("City", "")
	out, err := enc.FitTransform(tb)
	require.NoError(t, err)
	assert.Equal(t, []string{"City", "City_Encoded"}, out.Columns())

	codes, err := out.Floats("City_Encoded")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, codes)
	assert.Equal(t, []string{"A", "B"}, enc.Classes())
	assert.Equal(t, map[string]int{"A": 0, "B": 1}, enc.Mapping())
}

func TestLabelEncoderReencodeIsIdentity(t *testing.T) {
	tb := table.MustNew("City")
	for _, c := range []string{"Z", "Y", "Z", "X"} {
		require.NoError(t, tb.Append(table.Str(c)))
	}
	once, err := dataprep.NewLabelEncoder("City", "code").FitTransform(tb)
	require.NoError(t, err)
	twice, err := dataprep.NewLabelEncoder("code", "code").FitTransform(once)
	require.NoError(t, err)
	assert.True(t, once.Equal(twice))
}

func TestLabelEncoderUnknownAndMissing(t *testing.T) {
	train := table.MustNew("City")
	require.NoError(t, train.Append(table.Str("A")))
	require.NoError(t, train.Append(table.Null()))

	enc := dataprep.NewLabelEncoder("City", "")
	out, err := enc.FitTransform(train)
	require.NoError(t, err)
	assert.True(t, out.At(1, 1).IsMissing())

	other := table.MustNew("City")
	require.NoError(t, other.Append(table.Str("Q")))
	_, err = enc.Transform(other)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataprep.ErrUnknownCategory))

	_, err = dataprep.NewLabelEncoder("Nope", "").FitTransform(train)
	assert.True(t, errors.Is(err, table.ErrMissingColumn))
}

func TestMedian(t *testing.T) {
	in := []float64{200, 100}
	assert.Equal(t, 150.0, dataprep.Median(in))
	assert.Equal(t, []float64{200, 100}, in)
	assert.Equal(t, 2.0, dataprep.Median([]float64{3, 1, 2}))
	assert.Equal(t, 0.0, dataprep.Median(nil))
}

func TestStandardScaler(t *testing.T) {
	tb := table.MustNew("x", "flat", "label")
	for i, v := range []float64{1, 2, 3, 4, 10} {
		require.NoError(t, tb.Append(table.Num(v), table.Num(5), table.Str(string(rune('a'+i)))))
	}

	s := &dataprep.StandardScaler{Columns: []string{"x", "flat"}}
	out, err := s.FitTransform(tb)
	require.NoError(t, err)

	x, err := out.Floats("x")
	require.NoError(t, err)
	mean, std := stat.PopMeanStdDev(x, nil)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, std, 1e-9)

	flat, err := out.Floats("flat")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, flat)
	assert.Equal(t, []float64{4, 5}, s.Means())
	assert.Equal(t, 0.0, s.Stds()[1])
	assert.Equal(t, "a", out.At(0, 2).String())
}

func TestStandardScalerConstantColumnIsExactlyZero(t *testing.T) {
	tb := table.MustNew("share")
	for i := 0; i < 10; i++ {
		require.NoError(t, tb.Append(table.Num(0.1)))
	}

	s := &dataprep.StandardScaler{Columns: []string{"share"}}
	out, err := s.FitTransform(tb)
	require.NoError(t, err)

	got, err := out.Floats("share")
	require.NoError(t, err)
	for i, v := range got {
		assert.Equal(t, 0.0, v, "row %d", i)
	}
	assert.Equal(t, 0.0, s.Stds()[0])
}

func TestStandardScalerRejectsTextAndAbsent(t *testing.T) {
	tb := table.MustNew("x")
	require.NoError(t, tb.Append(table.Str("oops")))

	err := (&dataprep.StandardScaler{Columns: []string{"x"}}).Fit(tb)
	assert.True(t, errors.Is(err, table.ErrNotNumeric))
	err = (&dataprep.StandardScaler{Columns: []string{"y"}}).Fit(tb)
	assert.True(t, errors.Is(err, table.ErrMissingColumn))
}
