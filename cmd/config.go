package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/citycluster-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set citycluster configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "profiles_dir: %s\n", c.ProfilesDir)
		fmt.Fprintf(w, "log.level: %s\n", c.Log.Level)
		fmt.Fprintf(w, "log.format: %s\n", c.Log.Format)
		fmt.Fprintf(w, "default_k: %d\n", c.DefaultK)
		fmt.Fprintf(w, "default_seed: %d\n", c.DefaultSeed)
		fmt.Fprintf(w, "max_iter: %d\n", c.MaxIter)
		if len(c.MissingTokens) > 0 {
			fmt.Fprintf(w, "missing_tokens: %s\n", strings.Join(c.MissingTokens, ","))
		}
		fmt.Fprintf(w, "batch_concurrency: %d\n", c.BatchConcurrency)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "profiles_dir":
			cfg.ProfilesDir = val
		case "log.level":
			switch val {
			case "debug", "info", "warn", "error":
				cfg.Log.Level = val
			default:
				return fmt.Errorf("invalid log.level: %s (use debug, info, warn or error)", val)
			}
		case "log.format":
			switch val {
			case "console", "json":
				cfg.Log.Format = val
			default:
				return fmt.Errorf("invalid log.format: %s (use console or json)", val)
			}
		case "default_k":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for default_k: %v", val)
			}
			cfg.DefaultK = i
		case "default_seed":
			s, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for default_seed: %w", err)
			}
			cfg.DefaultSeed = s
		case "max_iter":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for max_iter: %v", val)
			}
			cfg.MaxIter = i
		case "missing_tokens":
			var toks []string
			for _, t := range strings.Split(val, ",") {
				toks = append(toks, strings.TrimSpace(t))
			}
			cfg.MissingTokens = toks
		case "batch_concurrency":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for batch_concurrency: %v", val)
			}
			cfg.BatchConcurrency = i
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
