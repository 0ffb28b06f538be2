package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/citycluster-cli/internal/analysis"
	"github.com/KaramelBytes/citycluster-cli/internal/table"
	"github.com/KaramelBytes/citycluster-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descLoad       loadFlags
	descOutputPath string
	descSampleRows int
	descGroupBy    []string
	descCorr       bool
	descCorrGroups bool
	descOutliers   bool
	descOutlierThr float64
)

var describeCmd = &cobra.Command{
	Use:   "describe <input>",
	Short: "Summarize a table as Markdown (schema, stats, groups, correlations)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		var lo table.LoadOptions
		if err := descLoad.apply(cmd, &lo); err != nil {
			return err
		}
		t, err := table.Load(path, lo, logger())
		if err != nil {
			return err
		}

		opt := analysis.DefaultOptions()
		opt.Name = filepath.Base(path)
		if descSampleRows >= 0 {
			opt.SampleRows = descSampleRows
		}
		opt.GroupBy = descGroupBy
		opt.Correlations = descCorr
		opt.CorrPerGroup = descCorrGroups
		opt.Outliers = descOutliers
		if descOutlierThr > 0 {
			opt.OutlierThreshold = descOutlierThr
		}
		rep, err := analysis.Describe(t, opt)
		if err != nil {
			return err
		}
		md := rep.Markdown()

		if descOutputPath != "" {
			if err := utils.SafeWriteFile(descOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", descOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	descLoad.bind(describeCmd)
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "optional path to write the summary (Markdown)")
	describeCmd.Flags().IntVar(&descSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables)")
	describeCmd.Flags().StringSliceVar(&descGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	describeCmd.Flags().BoolVar(&descCorr, "correlations", true, "compute Pearson correlations among numeric columns")
	describeCmd.Flags().BoolVar(&descCorrGroups, "corr-per-group", false, "compute correlation pairs within each group (may be slower)")
	describeCmd.Flags().BoolVar(&descOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	describeCmd.Flags().Float64Var(&descOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}
