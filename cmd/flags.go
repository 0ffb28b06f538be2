package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/citycluster-cli/internal/dataprep"
	"github.com/KaramelBytes/citycluster-cli/internal/pipeline"
	"github.com/KaramelBytes/citycluster-cli/internal/profile"
	"github.com/KaramelBytes/citycluster-cli/internal/table"
	"github.com/spf13/cobra"
)

// loadFlags are the reader options shared by every command that opens a table.
type loadFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (f *loadFlags) bind(c *cobra.Command) {
	c.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (sniffed if omitted)")
	c.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	c.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	c.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	c.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	c.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
}

// apply overrides opt with the flags the user actually set.
func (f *loadFlags) apply(c *cobra.Command, opt *table.LoadOptions) error {
	fl := c.Flags()
	if fl.Changed("delimiter") {
		d, err := profile.ParseDelimiter(f.delimiter)
		if err != nil {
			return err
		}
		opt.Parser.Delimiter = d
	}
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.Number.DecimalSeparator = ','
	case ".", "dot":
		opt.Number.DecimalSeparator = '.'
	case "":
	default:
		return fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.Number.ThousandsSeparator = ','
	case ".":
		opt.Number.ThousandsSeparator = '.'
	case "space", " ":
		opt.Number.ThousandsSeparator = ' '
	case "":
	default:
		return fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	if opt.Number.DecimalSeparator != 0 && opt.Number.DecimalSeparator == opt.Number.ThousandsSeparator {
		return fmt.Errorf("--decimal and --thousands must differ")
	}
	if fl.Changed("sheet-name") {
		opt.Parser.SheetName = f.sheetName
	}
	if fl.Changed("sheet-index") {
		opt.Parser.SheetIndex = f.sheetIndex
	}
	if fl.Changed("max-rows") {
		opt.Parser.MaxRows = f.maxRows
	}
	if toks := settings().MissingTokens; len(toks) > 0 {
		opt.MissingTokens = toks
	}
	return nil
}

type flagMode int

const (
	modeRun flagMode = iota
	modeCluster
	modeClean
	modeBatch
)

// pipelineFlags layer command-line overrides on top of a profile, a preset or
// the configured defaults.
type pipelineFlags struct {
	load loadFlags

	profile string
	preset  string
	output  string
	report  string

	k          int
	seed       int64
	maxIter    int
	initMethod string

	encode      string
	encodedCol  string
	clusterCol  string
	features    []string
	numeric     []string
	categorical []string
	filters     []string
}

// scalar flags that map one-to-one onto profile keys
var profileFlagKeys = map[string]string{
	"k":           "k",
	"seed":        "seed",
	"max-iter":    "max_iter",
	"init":        "init",
	"encode":      "encode",
	"encoded-col": "encoded_column",
	"cluster-col": "cluster_column",
}

func (f *pipelineFlags) bind(c *cobra.Command, mode flagMode) {
	fl := c.Flags()
	f.load.bind(c)
	fl.StringVarP(&f.profile, "profile", "p", "", "saved profile to start from")
	fl.StringVar(&f.preset, "preset", "", "built-in profile to start from (see list --presets)")
	fl.StringSliceVar(&f.numeric, "numeric", nil, "columns forced numeric (comma-separated)")
	fl.StringSliceVar(&f.categorical, "categorical", nil, "columns forced categorical (comma-separated)")
	if mode != modeCluster {
		fl.StringArrayVar(&f.filters, "filter", nil, "row filter applied after imputation, column:op:value (repeatable; ops gt ge lt le eq ne)")
	}
	if mode != modeBatch {
		fl.StringVarP(&f.output, "output", "o", "", "output CSV path (default <input>"+outputSuffix(mode)+")")
		fl.StringVar(&f.report, "report", "", "optional path to write a Markdown summary of the output")
	}
	if mode == modeClean {
		return
	}
	fl.IntVar(&f.k, "k", 0, "number of clusters")
	fl.Int64Var(&f.seed, "seed", 0, "random seed for centroid initialization")
	fl.IntVar(&f.maxIter, "max-iter", 0, "maximum k-means iterations")
	fl.StringVar(&f.initMethod, "init", "", "centroid initialization: kmeans++ | random")
	fl.StringVar(&f.encode, "encode", "", "categorical column to label-encode")
	fl.StringVar(&f.encodedCol, "encoded-col", "", "name of the encoded column (default <encode>_Encoded)")
	fl.StringVar(&f.clusterCol, "cluster-col", "", "name of the cluster id column (default Cluster)")
	fl.StringSliceVar(&f.features, "features", nil, "feature columns to scale and cluster on (comma-separated)")
}

func outputSuffix(mode flagMode) string {
	if mode == modeClean {
		return ".clean.csv"
	}
	return pipeline.OutputSuffix
}

func (f *pipelineFlags) baseProfile() (*profile.Profile, error) {
	var p *profile.Profile
	switch {
	case f.profile != "" && f.preset != "":
		return nil, fmt.Errorf("use either --profile or --preset, not both")
	case f.profile != "":
		dir, err := resolveProfileDirByName(f.profile)
		if err != nil {
			return nil, err
		}
		if p, err = profile.LoadProfile(dir); err != nil {
			return nil, err
		}
	case f.preset != "":
		var ok bool
		if p, ok = profile.Preset(f.preset); !ok {
			return nil, fmt.Errorf("unknown preset %q (available: %s)", f.preset, strings.Join(profile.PresetNames(), ", "))
		}
	default:
		s := settings()
		p = profile.NewProfile("", "", "")
		p.Clustering.K = s.DefaultK
		p.Clustering.Seed = s.DefaultSeed
	}
	if p.Clustering.MaxIter == 0 {
		p.Clustering.MaxIter = settings().MaxIter
	}
	return p, nil
}

// config resolves the pipeline configuration: flags > profile/preset > config defaults.
func (f *pipelineFlags) config(c *cobra.Command, input string, mode flagMode) (pipeline.Config, error) {
	p, err := f.baseProfile()
	if err != nil {
		return pipeline.Config{}, err
	}
	fl := c.Flags()
	for name, key := range profileFlagKeys {
		if fl.Changed(name) {
			if err := p.Set(key, fl.Lookup(name).Value.String()); err != nil {
				return pipeline.Config{}, err
			}
		}
	}
	if fl.Changed("features") {
		p.Roles.Features = f.features
	}
	if fl.Changed("numeric") {
		p.Roles.Numeric = f.numeric
	}
	if fl.Changed("categorical") {
		p.Roles.Categorical = f.categorical
	}
	if fl.Changed("filter") {
		p.Filters = nil
		for _, s := range f.filters {
			flt, err := dataprep.ParseFilter(s)
			if err != nil {
				return pipeline.Config{}, err
			}
			p.Filters = append(p.Filters, flt)
		}
	}

	pc, err := p.Config()
	if err != nil {
		return pipeline.Config{}, err
	}
	if err := f.load.apply(c, &pc.Load); err != nil {
		return pipeline.Config{}, err
	}
	if mode == modeCluster {
		pc.Filters = nil
	}
	if input != "" {
		pc.Input = input
	}
	if fl.Changed("output") {
		pc.Output = f.output
	}
	if pc.Output == "" && pc.Input != "" && mode != modeBatch {
		pc.Output = defaultOutput(pc.Input, outputSuffix(mode))
	}
	if fl.Changed("report") {
		pc.ReportPath = f.report
	}
	return pc, nil
}

func defaultOutput(input, suffix string) string {
	base := filepath.Base(input)
	return filepath.Join(filepath.Dir(input), strings.TrimSuffix(base, filepath.Ext(base))+suffix)
}
