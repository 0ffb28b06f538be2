package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/KaramelBytes/citycluster-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	batchOpts        pipelineFlags
	batchOutDir      string
	batchConcurrency int
	batchReports     bool
	batchQuiet       bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <files...>",
	Short: "Run the pipeline over multiple CSV/TSV/XLSX files",
	Long: `Batch runs the same pipeline over every matched file and writes <name>.clustered.csv
into --out-dir. Inputs that share a base name get <name>__2.clustered.csv and so on,
and existing files are never overwritten. A failing file is reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		base, err := batchOpts.config(cmd, "", modeBatch)
		if err != nil {
			return err
		}
		conc := settings().BatchConcurrency
		if cmd.Flags().Changed("concurrency") {
			conc = batchConcurrency
		}
		if conc < 1 {
			conc = 1
		}

		items, err := pipeline.RunBatch(cmd.Context(), base, files, pipeline.BatchOptions{
			OutDir:      batchOutDir,
			Concurrency: conc,
			Reports:     batchReports,
		}, logger())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		failed := 0
		for i, it := range items {
			if it.Err != nil {
				failed++
				fmt.Fprintf(w, "[%d/%d] ✗ %s: %v\n", i+1, len(items), it.Input, it.Err)
				continue
			}
			if !batchQuiet {
				fmt.Fprintf(w, "[%d/%d] ✓ %s → %s (sizes %v)\n", i+1, len(items), filepath.Base(it.Input), it.Output, it.Result.Cluster.Sizes)
			}
		}
		fmt.Fprintf(w, "Processed %d files, %d failed\n", len(items), failed)
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist and drops duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchOpts.bind(batchCmd, modeBatch)
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "clustered", "directory for the clustered outputs")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "files processed in parallel (default from config)")
	batchCmd.Flags().BoolVar(&batchReports, "reports", false, "also write <name>.report.md per file")
	batchCmd.Flags().BoolVar(&batchQuiet, "quiet", false, "only print failures and the final tally")
}
