package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/citycluster-cli/internal/profile"
	"github.com/KaramelBytes/citycluster-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	initDescription string
	initPreset      string
)

var initCmd = &cobra.Command{
	Use:   "init <profile-name>",
	Short: "Create a named pipeline profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		dir, err := resolveProfileDirByName(name)
		if err != nil {
			return err
		}
		// Refuse to overwrite an existing profile.
		if profile.Exists(dir) {
			return fmt.Errorf("profile already exists at %s", dir)
		}

		p := profile.NewProfile(name, initDescription, dir)
		if initPreset != "" {
			pre, ok := profile.Preset(initPreset)
			if !ok {
				return fmt.Errorf("unknown preset %q (available: %s)", initPreset, strings.Join(profile.PresetNames(), ", "))
			}
			p.Roles, p.Filters, p.Clustering = pre.Roles, pre.Filters, pre.Clustering
			if p.Description == "" {
				p.Description = pre.Description
			}
		} else {
			s := settings()
			p.Clustering.K = s.DefaultK
			p.Clustering.Seed = s.DefaultSeed
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Profile initialized: %s\n", dir)
		return nil
	},
}

func defaultProfilesDir() (string, error) {
	dir := settings().ProfilesDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".citycluster", "profiles")
	} else if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = strings.TrimPrefix(dir, "~")
		dir = strings.TrimPrefix(dir, string(os.PathSeparator))
		dir = strings.TrimPrefix(dir, "/")
		dir = filepath.Join(home, dir)
	}
	dir = filepath.Clean(dir)
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveProfileDirByName(name string) (string, error) {
	if name == "" {
		return "", errors.New("profile name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid profile name %q", name)
	}
	root, err := defaultProfilesDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "profile description")
	initCmd.Flags().StringVar(&initPreset, "preset", "", "start from a built-in preset")
}
