package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KaramelBytes/citycluster-cli/internal/cluster"
	"github.com/KaramelBytes/citycluster-cli/internal/dataprep"
	"github.com/KaramelBytes/citycluster-cli/internal/pipeline"
	"github.com/KaramelBytes/citycluster-cli/internal/table"
)

const chennaiCSV = `City,Population,Area
Adyar,100,4.2
Tambaram,200,6.1
Adyar,150,4.0
Velachery,,5.5
Tambaram,200,6.1
Guindy,900,3.3
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func chennaiConfig(dir, input string) pipeline.Config {
	return pipeline.Config{
		Input:  input,
		Output: filepath.Join(dir, "out.csv"),
		Roles: pipeline.Roles{
			Encode:   "City",
			Features: []string{"Population", "City_Encoded"},
		},
		Clustering: pipeline.Clustering{K: 3, Seed: 42},
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "chennai.csv", chennaiCSV)
	core, logs := observer.New(zapcore.DebugLevel)

	cfg := chennaiConfig(dir, in)
	cfg.ReportPath = filepath.Join(dir, "report.md")
	res, err := pipeline.Run(cfg, zap.New(core))
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.Clean.Duplicates)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, []string{"City", "Population", "Area", "City_Encoded", "Cluster"}, res.Columns)
	assert.Equal(t, []string{"Adyar", "Tambaram", "Velachery", "Guindy"}, res.Classes)
	require.NotNil(t, res.Cluster)
	assert.Len(t, res.Cluster.Sizes, 3)

	out, err := table.Load(cfg.Output, table.LoadOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, res.Columns, out.Columns())

	// unscaled values are kept; the missing population got the median of 100,200,150,900
	pop, err := out.Floats("Population")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200, 150, 175, 900}, pop)

	ids, err := out.Floats("Cluster")
	require.NoError(t, err)
	seen := map[float64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 3)

	md, err := os.ReadFile(cfg.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "[GROUP-BY SUMMARY]")
	assert.Contains(t, string(md), "Cluster=")

	for _, e := range logs.All() {
		assert.Equal(t, res.RunID, e.ContextMap()["run_id"], "log %q lacks run_id", e.Message)
	}
	assert.Equal(t, 1, logs.FilterMessage("pipeline complete").Len())
}

func TestRunIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "chennai.csv", chennaiCSV)

	cfg := chennaiConfig(dir, in)
	a, err := pipeline.Run(cfg, nil)
	require.NoError(t, err)
	cfg.Output = filepath.Join(dir, "again.csv")
	b, err := pipeline.Run(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Cluster.Labels, b.Cluster.Labels)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunScenarioTwoCities(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "two.csv", "City,Population\nA,100\nB,200\nA,150\n")

	res, err := pipeline.Run(pipeline.Config{
		Input:      in,
		Output:     filepath.Join(dir, "out.csv"),
		Roles:      pipeline.Roles{Encode: "City", Features: []string{"Population", "City_Encoded"}},
		Clustering: pipeline.Clustering{K: 2, Seed: 0},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 0, "B": 1}, res.Mapping)
	assert.Equal(t, []int{1, 2}, sorted(res.Cluster.Sizes))
	seen := map[int]bool{}
	for _, l := range res.Cluster.Labels {
		seen[l] = true
	}
	assert.Len(t, seen, 2)
}

func TestRunStageErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", chennaiCSV)
	text := writeFile(t, dir, "text.csv", "City,Population\nA,many\nB,few\n")

	cases := []struct {
		name  string
		cfg   func() pipeline.Config
		stage pipeline.Stage
		kind  error
	}{
		{"missing input", func() pipeline.Config {
			return chennaiConfig(dir, filepath.Join(dir, "nope.csv"))
		}, pipeline.StageLoad, table.ErrFileNotFound},
		{"absent feature", func() pipeline.Config {
			c := chennaiConfig(dir, good)
			c.Roles.Features = []string{"Density"}
			return c
		}, pipeline.StageValidate, table.ErrMissingColumn},
		{"text feature", func() pipeline.Config {
			c := chennaiConfig(dir, text)
			c.Roles.Encode = ""
			c.Roles.Features = []string{"Population"}
			c.Clustering.K = 1
			return c
		}, pipeline.StageScale, table.ErrNotNumeric},
		{"too few rows", func() pipeline.Config {
			c := chennaiConfig(dir, good)
			c.Clustering.K = 10
			return c
		}, pipeline.StageCluster, cluster.ErrInsufficientData},
		{"no features", func() pipeline.Config {
			c := chennaiConfig(dir, good)
			c.Roles.Features = nil
			return c
		}, pipeline.StageConfig, pipeline.ErrInvalidConfig},
		{"output dir missing", func() pipeline.Config {
			c := chennaiConfig(dir, good)
			c.Output = filepath.Join(dir, "missing", "out.csv")
			return c
		}, pipeline.StageWrite, table.ErrWrite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := pipeline.Run(tc.cfg(), nil)
			require.Error(t, err)
			assert.Nil(t, res)

			var se *pipeline.StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.stage, se.Stage)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
			assert.Equal(t, tc.kind, se.Kind())
			assert.True(t, strings.HasPrefix(err.Error(), string(tc.stage)+":"))

			stage, ok := pipeline.StageOf(err)
			assert.True(t, ok)
			assert.Equal(t, tc.stage, stage)
		})
	}
	_, err := os.Stat(filepath.Join(dir, "out.csv"))
	assert.True(t, os.IsNotExist(err), "failed runs must not leave output")
}

func TestRunWithDensityFilter(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "wards.csv", `ward,population_density,income
w1,0,10
w2,1200,20
w3,1300,22
w4,8000,80
w5,,25
w6,7900,78
`)
	f, err := dataprep.ParseFilter("population_density:gt:0")
	require.NoError(t, err)

	res, err := pipeline.Run(pipeline.Config{
		Input:      in,
		Output:     filepath.Join(dir, "out.csv"),
		Roles:      pipeline.Roles{Features: []string{"population_density", "income"}},
		Filters:    []dataprep.Filter{f},
		Clustering: pipeline.Clustering{K: 2, Seed: 42},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Clean.Filtered)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, []string{"ward", "population_density", "income", "Cluster"}, res.Columns)
}

func TestCleanOnly(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "chennai.csv", chennaiCSV)

	res, err := pipeline.CleanOnly(pipeline.Config{Input: in, Output: filepath.Join(dir, "clean.csv")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)
	assert.True(t, res.Clean.Complete)
	assert.Nil(t, res.Cluster)

	out, err := table.Load(filepath.Join(dir, "clean.csv"), table.LoadOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"City", "Population", "Area"}, out.Columns())
	assert.Equal(t, 0, out.MissingCount("Population"))
}

func TestRunBatchNamesDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	d1 := filepath.Join(dir, "d1")
	d2 := filepath.Join(dir, "d2")
	require.NoError(t, os.MkdirAll(d1, 0o755))
	require.NoError(t, os.MkdirAll(d2, 0o755))
	inputs := []string{
		writeFile(t, d1, "chennai.csv", chennaiCSV),
		writeFile(t, d2, "chennai.csv", chennaiCSV),
		writeFile(t, d2, "broken.csv", "City,Population\nA,1,2,3\n"),
	}
	outDir := filepath.Join(dir, "out")

	items, err := pipeline.RunBatch(context.Background(), chennaiConfig(dir, ""), inputs, pipeline.BatchOptions{
		OutDir:      outDir,
		Concurrency: 2,
		Reports:     true,
	}, nil)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, filepath.Join(outDir, "chennai.clustered.csv"), items[0].Output)
	assert.Equal(t, filepath.Join(outDir, "chennai__2.clustered.csv"), items[1].Output)
	assert.NoError(t, items[0].Err)
	assert.NoError(t, items[1].Err)
	assert.True(t, errors.Is(items[2].Err, table.ErrParse))

	for _, p := range []string{"chennai.clustered.csv", "chennai__2.clustered.csv", "chennai.report.md", "chennai__2.report.md"} {
		_, err := os.Stat(filepath.Join(outDir, p))
		assert.NoError(t, err, p)
	}
	_, err = os.Stat(filepath.Join(outDir, "broken.clustered.csv"))
	assert.True(t, os.IsNotExist(err))
}

func sorted(s []int) []int {
	out := append([]int(nil), s...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
