package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/citycluster-cli/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "citycluster",
	Short: "citycluster: clean, encode, scale and cluster urban population tables",
	Long: `citycluster loads a city or ward population table (CSV/TSV/XLSX), removes duplicates,
fills missing values, label-encodes a categorical column, standardizes the feature
columns and assigns each row a seeded k-means cluster id. The result is written
atomically as a CSV that dashboards and map layers can consume directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.citycluster/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console | json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
	} else {
		cfg = c
	}

	lc := settings().Log
	if debug {
		lc.Level = "debug"
	}
	if logFormat != "" {
		lc.Format = logFormat
	}
	if _, err := cfgpkg.InitLogger(lc); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: logger setup failed: %v\n", err)
	}
}

// settings returns the loaded config or built-in defaults when none loaded.
func settings() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return &cfgpkg.Global{
		Log:              cfgpkg.LogConfig{Level: "info", Format: "console"},
		DefaultK:         3,
		DefaultSeed:      42,
		MaxIter:          300,
		BatchConcurrency: 4,
	}
}

func logger() *zap.Logger { return zap.L() }
