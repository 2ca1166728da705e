package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/dangazineu/ghcollect/internal/sandbox"
)

// EnvPrefix prefixes every environment override, e.g. GHCOLLECT_ACT_PATH.
const EnvPrefix = "GHCOLLECT"

// DefaultFileName is looked up in the working directory when no file is given.
const DefaultFileName = "ghcollect.yaml"

const keyDelimiter = "::"

type Config struct {
	Act     Act     `mapstructure:"act"`
	Results Results `mapstructure:"results"`
	GitHub  GitHub  `mapstructure:"github"`
	Out     string  `mapstructure:"out"`
	WorkDir string  `mapstructure:"work_dir"`
	Log     Log     `mapstructure:"log"`
}

type Act struct {
	Path      string            `mapstructure:"path"`
	Platforms map[string]string `mapstructure:"platforms"`
	CacheDir  string            `mapstructure:"cache_dir"`
	// Env holds extra KEY=VALUE pairs for act, e.g. GITHUB_TOKEN for actions
	// that call the API.
	Env []string `mapstructure:"env"`
}

type Results struct {
	Dirs []string `mapstructure:"dirs"`
}

type GitHub struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
}

type Log struct {
	File    string `mapstructure:"file"`
	Verbose bool   `mapstructure:"verbose"`
	Quiet   bool   `mapstructure:"quiet"`
}

// New returns a viper instance with defaults and environment overrides.
func New() *viper.Viper {
	// platform labels such as ubuntu-22.04 contain dots, so keys use "::"
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("act::path", sandbox.DefaultBinary)
	v.SetDefault("act::platforms", sandbox.DefaultPlatforms())
	v.SetDefault("act::cache_dir", "")
	v.SetDefault("act::env", []string{})
	v.SetDefault("results::dirs", []string{sandbox.DefaultResultsDir})
	v.SetDefault("github::token", "")
	v.SetDefault("github::base_url", "")
	v.SetDefault("out", "./out/")
	v.SetDefault("work_dir", os.TempDir())
	v.SetDefault("log::file", "")
	v.SetDefault("log::verbose", false)
	v.SetDefault("log::quiet", false)
}

// Load reads configuration with precedence env > file > defaults. An empty
// path falls back to DefaultFileName in the working directory when it exists.
// The GitHub token also honors GITHUB_TOKEN.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFileName); err == nil {
			path = DefaultFileName
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, fmt.Errorf("could not read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Act.Path == "" {
		return fmt.Errorf("missing required field: act.path")
	}
	if len(cfg.Results.Dirs) == 0 {
		return fmt.Errorf("missing required field: results.dirs")
	}
	for _, dir := range cfg.Results.Dirs {
		if filepath.IsAbs(dir) || strings.HasPrefix(filepath.Clean(dir), "..") {
			return fmt.Errorf("results dir %q must be relative to the repository", dir)
		}
	}
	for _, kv := range cfg.Act.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			return fmt.Errorf("act env entry %q must be KEY=VALUE", kv)
		}
	}
	for label, image := range cfg.Act.Platforms {
		if label == "" || image == "" {
			return fmt.Errorf("invalid platform mapping %q=%q", label, image)
		}
	}
	if cfg.Out == "" {
		return fmt.Errorf("missing required field: out")
	}
	return nil
}
