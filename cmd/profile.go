package cmd

import (
	"fmt"

	"github.com/KaramelBytes/citycluster-cli/internal/profile"
	"github.com/KaramelBytes/citycluster-cli/internal/utils"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect or edit saved profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadNamedProfile(args[0])
		if err != nil {
			return err
		}
		b, err := utils.PrettyJSON(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <name> <key> <value>",
	Short: "Set one profile field and save",
	Long: `Keys: description, input, output, encode, encoded_column, cluster_column,
features, categorical, numeric, filters (comma-separated column:op:value),
k, seed, max_iter, init, delimiter, sheet_name, sheet_index, max_rows.
List values are comma-separated.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadNamedProfile(args[0])
		if err != nil {
			return err
		}
		if err := p.Set(args[1], args[2]); err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s for profile %s\n", args[1], p.Name)
		return nil
	},
}

func loadNamedProfile(name string) (*profile.Profile, error) {
	dir, err := resolveProfileDirByName(name)
	if err != nil {
		return nil, err
	}
	return profile.LoadProfile(dir)
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
}
