package pipeline

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/KaramelBytes/citycluster-cli/internal/analysis"
	"github.com/KaramelBytes/citycluster-cli/internal/cluster"
	"github.com/KaramelBytes/citycluster-cli/internal/dataprep"
	"github.com/KaramelBytes/citycluster-cli/internal/table"
	"github.com/KaramelBytes/citycluster-cli/internal/utils"
)

// DefaultClusterColumn names the appended cluster-id column when Roles.ClusterColumn is empty.
const DefaultClusterColumn = "Cluster"

// Roles maps dataset columns to the part they play in a run.
type Roles struct {
	// Categorical and Numeric override inferred kinds during imputation.
	Categorical []string `json:"categorical,omitempty" yaml:"categorical,omitempty" mapstructure:"categorical"`
	Numeric     []string `json:"numeric,omitempty" yaml:"numeric,omitempty" mapstructure:"numeric"`
	// Encode is the categorical column to label-encode; empty disables encoding.
	Encode        string `json:"encode,omitempty" yaml:"encode,omitempty" mapstructure:"encode"`
	EncodedColumn string `json:"encoded_column,omitempty" yaml:"encoded_column,omitempty" mapstructure:"encoded_column"`
	// Features are scaled and fed to k-means. They may include the encoded column.
	Features      []string `json:"features" yaml:"features" mapstructure:"features"`
	ClusterColumn string   `json:"cluster_column,omitempty" yaml:"cluster_column,omitempty" mapstructure:"cluster_column"`
}

// EncodedName is the column the encoder writes, or "" when encoding is off.
func (r Roles) EncodedName() string {
	if r.Encode == "" {
		return ""
	}
	return dataprep.NewLabelEncoder(r.Encode, r.EncodedColumn).OutputColumn()
}

// ClusterName is the column holding cluster ids.
func (r Roles) ClusterName() string {
	if r.ClusterColumn != "" {
		return r.ClusterColumn
	}
	return DefaultClusterColumn
}

// Clustering holds k-means parameters.
type Clustering struct {
	K       int    `json:"k" yaml:"k" mapstructure:"k"`
	Seed    int64  `json:"seed" yaml:"seed" mapstructure:"seed"`
	MaxIter int    `json:"max_iter,omitempty" yaml:"max_iter,omitempty" mapstructure:"max_iter"`
	Init    string `json:"init,omitempty" yaml:"init,omitempty" mapstructure:"init"`
}

// Config is everything one run needs. Nothing is read from package state.
type Config struct {
	Input      string
	Output     string
	Load       table.LoadOptions
	Roles      Roles
	Filters    []dataprep.Filter
	Clustering Clustering
	// ReportPath, when set, receives a Markdown description of the output.
	ReportPath string
}

// Result carries per-stage outcomes of a run.
type Result struct {
	RunID    string               `json:"run_id"`
	Input    string               `json:"input"`
	Output   string               `json:"output"`
	Rows     int                  `json:"rows"`
	Columns  []string             `json:"columns"`
	Clean    dataprep.CleanReport `json:"clean"`
	Classes  []string             `json:"classes,omitempty"`
	Mapping  map[string]int       `json:"mapping,omitempty"`
	Features []string             `json:"features,omitempty"`
	Means    []float64            `json:"means,omitempty"`
	Stds     []float64            `json:"stds,omitempty"`
	Cluster  *cluster.Result      `json:"cluster,omitempty"`
	Report   *analysis.Report     `json:"-"`
	Duration time.Duration        `json:"duration"`
}

func (c Config) validate(needClustering bool) error {
	if c.Input == "" {
		return eris.Wrap(ErrInvalidConfig, "pipeline: input path is required")
	}
	if c.Output == "" {
		return eris.Wrap(ErrInvalidConfig, "pipeline: output path is required")
	}
	if !needClustering {
		return nil
	}
	if len(c.Roles.Features) == 0 {
		return eris.Wrap(ErrInvalidConfig, "pipeline: at least one feature column is required")
	}
	if c.Clustering.K < 1 {
		return eris.Wrapf(ErrInvalidConfig, "pipeline: k must be at least 1, got %d", c.Clustering.K)
	}
	return nil
}

// required lists the input columns a run touches, in first-mention order.
func (c Config) required(needClustering bool) []string {
	seen := map[string]bool{}
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			if n != "" && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	add(c.Roles.Categorical...)
	add(c.Roles.Numeric...)
	for _, f := range c.Filters {
		add(f.Column)
	}
	if needClustering {
		add(c.Roles.Encode)
		enc := c.Roles.EncodedName()
		for _, f := range c.Roles.Features {
			if f != enc {
				add(f)
			}
		}
	}
	return out
}

func (c Config) kinds() map[string]table.ColumnKind {
	kinds := map[string]table.ColumnKind{}
	for _, n := range c.Roles.Categorical {
		kinds[n] = table.Categorical
	}
	for _, n := range c.Roles.Numeric {
		kinds[n] = table.Numeric
	}
	return kinds
}

type runner struct {
	cfg   Config
	log   *zap.Logger
	res   *Result
	start time.Time
}

func newRunner(cfg Config, log *zap.Logger) *runner {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &runner{
		cfg:   cfg,
		log:   log.With(zap.String("run_id", id)),
		res:   &Result{RunID: id, Input: cfg.Input, Output: cfg.Output},
		start: time.Now(),
	}
}

func (r *runner) fail(stage Stage, err error) error {
	r.log.Error("pipeline failed", zap.String("stage", string(stage)), zap.Error(err))
	return &StageError{Stage: stage, Err: err}
}

func (r *runner) done(stage Stage, fields ...zap.Field) {
	r.log.Debug("stage complete", append([]zap.Field{zap.String("stage", string(stage))}, fields...)...)
}

// load reads the input, checks required columns and cleans.
func (r *runner) load(needClustering bool) (*table.Table, error) {
	t, err := table.Load(r.cfg.Input, r.cfg.Load, r.log)
	if err != nil {
		return nil, r.fail(StageLoad, err)
	}
	r.done(StageLoad)
	if err := t.Require(r.cfg.required(needClustering)...); err != nil {
		return nil, r.fail(StageValidate, err)
	}
	cleaned, rep, err := dataprep.Clean(t, dataprep.CleanOptions{Kinds: r.cfg.kinds(), Filters: r.cfg.Filters}, r.log)
	if err != nil {
		return nil, r.fail(StageClean, err)
	}
	r.res.Clean = rep
	r.done(StageClean, zap.Int("rows", cleaned.NumRows()))
	return cleaned, nil
}

func (r *runner) write(t *table.Table, groupBy []string) (*Result, error) {
	if err := table.Write(t, r.cfg.Output, r.log); err != nil {
		return nil, r.fail(StageWrite, err)
	}
	r.res.Rows = t.NumRows()
	r.res.Columns = t.Columns()
	r.done(StageWrite)

	if r.cfg.ReportPath != "" {
		rep, err := analysis.Describe(t, analysis.Options{
			Name:         filepath.Base(r.cfg.Output),
			SampleRows:   5,
			GroupBy:      groupBy,
			Correlations: true,
		})
		if err != nil {
			return nil, r.fail(StageReport, err)
		}
		if err := utils.SafeWriteFile(r.cfg.ReportPath, []byte(rep.Markdown())); err != nil {
			return nil, r.fail(StageReport, &table.IOError{Kind: table.ErrWrite, Path: r.cfg.ReportPath, Err: err})
		}
		r.res.Report = rep
		r.done(StageReport, zap.String("path", r.cfg.ReportPath))
	}
	r.res.Duration = time.Since(r.start)
	r.log.Info("pipeline complete",
		zap.String("output", r.cfg.Output),
		zap.Int("rows", r.res.Rows),
		zap.Duration("duration", r.res.Duration),
	)
	return r.res, nil
}

// Run executes load → validate → clean → encode → scale → cluster → write for
// one input. The cluster ids are appended to the cleaned, unscaled table, so the
// output holds the input columns plus the encoded and cluster columns.
func Run(cfg Config, log *zap.Logger) (*Result, error) {
	r := newRunner(cfg, log)
	if err := cfg.validate(true); err != nil {
		return nil, r.fail(StageConfig, err)
	}
	r.log.Info("pipeline started", zap.String("input", cfg.Input), zap.Int("k", cfg.Clustering.K), zap.Int64("seed", cfg.Clustering.Seed))

	t, err := r.load(true)
	if err != nil {
		return nil, err
	}

	if cfg.Roles.Encode != "" {
		enc := dataprep.NewLabelEncoder(cfg.Roles.Encode, cfg.Roles.EncodedColumn)
		if t, err = enc.FitTransform(t); err != nil {
			return nil, r.fail(StageEncode, err)
		}
		r.res.Classes = enc.Classes()
		r.res.Mapping = enc.Mapping()
		r.done(StageEncode, zap.String("column", enc.OutputColumn()), zap.Int("classes", len(r.res.Classes)))
	}

	scaler := &dataprep.StandardScaler{Columns: cfg.Roles.Features}
	scaled, err := scaler.FitTransform(t)
	if err != nil {
		return nil, r.fail(StageScale, err)
	}
	X, err := scaled.Matrix(cfg.Roles.Features...)
	if err != nil {
		return nil, r.fail(StageScale, err)
	}
	r.res.Features = append([]string(nil), cfg.Roles.Features...)
	r.res.Means, r.res.Stds = scaler.Means(), scaler.Stds()
	r.done(StageScale)

	km := &cluster.KMeans{K: cfg.Clustering.K, Seed: cfg.Clustering.Seed, MaxIter: cfg.Clustering.MaxIter, Init: cfg.Clustering.Init}
	cres, err := km.Fit(X)
	if err != nil {
		return nil, r.fail(StageCluster, err)
	}
	r.res.Cluster = cres
	if !cres.Converged {
		r.log.Warn("k-means hit the iteration limit", zap.Int("iterations", cres.Iterations))
	}
	r.done(StageCluster, zap.Ints("sizes", cres.Sizes), zap.Float64("inertia", cres.Inertia), zap.Int("reseeds", cres.Reseeds))

	labels := make([]table.Value, len(cres.Labels))
	for i, l := range cres.Labels {
		labels[i] = table.Num(float64(l))
	}
	if t, err = t.WithColumn(cfg.Roles.ClusterName(), labels); err != nil {
		return nil, r.fail(StageCluster, err)
	}
	return r.write(t, []string{cfg.Roles.ClusterName()})
}

// CleanOnly runs load → validate → clean → write with no encoding or clustering.
func CleanOnly(cfg Config, log *zap.Logger) (*Result, error) {
	r := newRunner(cfg, log)
	if err := cfg.validate(false); err != nil {
		return nil, r.fail(StageConfig, err)
	}
	r.log.Info("clean started", zap.String("input", cfg.Input))
	t, err := r.load(false)
	if err != nil {
		return nil, err
	}
	return r.write(t, nil)
}
