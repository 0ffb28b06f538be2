package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/KaramelBytes/citycluster-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	runOpts     pipelineFlags
	clusterOpts pipelineFlags
)

var runCmd = &cobra.Command{
	Use:   "run [input]",
	Short: "Run the full pipeline: load, clean, encode, scale, cluster and write",
	Long: `Run loads the input table, drops duplicate rows, fills missing values (median for
numeric columns, mode for categorical ones), applies any row filters, label-encodes
the --encode column, standardizes the --features and appends a k-means cluster id.

The input may be given as an argument or come from the profile.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, &runOpts, modeRun, args)
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster [input]",
	Short: "Encode, scale and cluster without row filters",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, &clusterOpts, modeCluster, args)
	},
}

func runPipeline(cmd *cobra.Command, f *pipelineFlags, mode flagMode, args []string) error {
	input := ""
	if len(args) == 1 {
		input = args[0]
	}
	pc, err := f.config(cmd, input, mode)
	if err != nil {
		return err
	}
	if pc.Input == "" {
		return fmt.Errorf("input file is required (argument or profile input)")
	}
	res, err := pipeline.Run(pc, logger())
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res *pipeline.Result) {
	if res.Cluster != nil {
		fmt.Fprintf(w, "✓ Clustered %d rows into %d clusters: %s\n", res.Rows, len(res.Cluster.Sizes), res.Output)
		fmt.Fprintf(w, "  sizes %v, inertia %.4f, %d iterations\n", res.Cluster.Sizes, res.Cluster.Inertia, res.Cluster.Iterations)
		if !res.Cluster.Converged {
			fmt.Fprintf(w, "⚠ k-means stopped at the iteration limit without converging\n")
		}
	} else {
		fmt.Fprintf(w, "✓ Cleaned %d rows: %s\n", res.Rows, res.Output)
	}
	c := res.Clean
	fmt.Fprintf(w, "  rows in %d, duplicates %d, filtered %d\n", c.RowsIn, c.Duplicates, c.Filtered)
	for _, imp := range c.Imputations {
		fmt.Fprintf(w, "  filled %d missing in %s with %s %s\n", imp.Count, imp.Column, imp.Strategy, imp.Fill)
	}
	if len(res.Mapping) > 0 {
		fmt.Fprintf(w, "  encoding: %s\n", formatMapping(res.Mapping))
	}
	for _, warn := range c.Warnings {
		fmt.Fprintf(w, "⚠ %s\n", warn)
	}
}

func formatMapping(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return m[keys[i]] < m[keys[j]] })
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(clusterCmd)
	runOpts.bind(runCmd, modeRun)
	clusterOpts.bind(clusterCmd, modeCluster)
}
