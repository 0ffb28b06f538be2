package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const dirName = ".citycluster"

// Global configuration structure.
type Global struct {
	ProfilesDir string    `mapstructure:"profiles_dir" yaml:"profiles_dir"`
	Log         LogConfig `mapstructure:"log" yaml:"log"`

	// Clustering defaults applied when neither flags nor a profile set them
	DefaultK    int   `mapstructure:"default_k" yaml:"default_k"`
	DefaultSeed int64 `mapstructure:"default_seed" yaml:"default_seed"`
	MaxIter     int   `mapstructure:"max_iter" yaml:"max_iter"`

	// MissingTokens overrides the cell texts read as missing. Empty keeps the loader defaults.
	MissingTokens    []string `mapstructure:"missing_tokens" yaml:"missing_tokens"`
	BatchConcurrency int      `mapstructure:"batch_concurrency" yaml:"batch_concurrency"`
}

// LogConfig selects the zap logger flavour.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json | console
}

// Dir returns ~/.citycluster.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "resolve home dir")
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.citycluster/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "mkdir config dir")
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrap(err, "write config")
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CITYCLUSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("profiles_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("default_k", 3)
	v.SetDefault("default_seed", 42)
	v.SetDefault("max_iter", 300)
	v.SetDefault("missing_tokens", []string{})
	v.SetDefault("batch_concurrency", 4)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, eris.Wrap(err, "unmarshal config")
	}
	// Resolve profiles_dir default: ~/.citycluster/profiles
	if c.ProfilesDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.ProfilesDir = filepath.Join(dir, "profiles")
	}
	return &c, nil
}

// InitLogger builds the process logger and installs it as zap's global.
func InitLogger(lc LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if lc.Level != "" {
		if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
			return nil, eris.Wrapf(err, "invalid log level %q", lc.Level)
		}
	}
	var cfg zap.Config
	switch lc.Format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	default:
		return nil, eris.Errorf("invalid log format %q (use json or console)", lc.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	// diagnostics go to stderr so stdout stays usable for reports
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "build logger")
	}
	zap.ReplaceGlobals(log)
	return log, nil
}
