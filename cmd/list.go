package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/citycluster-cli/internal/profile"
	"github.com/spf13/cobra"
)

var listPresets bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles or built-in presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if listPresets {
			for _, name := range profile.PresetNames() {
				p, _ := profile.Preset(name)
				fmt.Fprintf(w, "- %s: %s\n", name, p.Description)
			}
			return nil
		}
		return listAllProfiles(w)
	},
}

func listAllProfiles(w io.Writer) error {
	root, err := defaultProfilesDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if !profile.Exists(dir) {
			continue
		}
		p, err := profile.LoadProfile(dir)
		if err != nil {
			fmt.Fprintf(w, "- %s (unreadable: %v)\n", e.Name(), err)
			found = true
			continue
		}
		fmt.Fprintf(w, "- %s: k=%d seed=%d features=%v\n", e.Name(), p.Clustering.K, p.Clustering.Seed, p.Roles.Features)
		found = true
	}
	if !found {
		fmt.Fprintln(w, "(no profiles)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listPresets, "presets", false, "list built-in presets instead of saved profiles")
}
