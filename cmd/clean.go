package cmd

import (
	"github.com/KaramelBytes/citycluster-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var cleanOpts pipelineFlags

var cleanCmd = &cobra.Command{
	Use:   "clean <input>",
	Short: "Drop duplicates, fill missing values and apply filters, then write",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, err := cleanOpts.config(cmd, args[0], modeClean)
		if err != nil {
			return err
		}
		res, err := pipeline.CleanOnly(pc, logger())
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanOpts.bind(cleanCmd, modeClean)
}
