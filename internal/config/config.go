package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	// CircleCI API token; CIRCLECI_TOKEN always wins over the file value
	Token string `mapstructure:"token"`

	// Default values for commands
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// DefaultsConfig holds default values for various commands
type DefaultsConfig struct {
	// Directory for auto-saved log files (default: os.TempDir())
	CacheDir string `mapstructure:"cache_dir"`

	// Default repository (org/repo) for the pr command
	Repo string `mapstructure:"repo"`

	// Poll interval for pr --watch
	WatchInterval string `mapstructure:"watch_interval"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format:  "text",
		Quiet:   false,
		Verbose: false,
		Defaults: DefaultsConfig{
			CacheDir:      os.TempDir(),
			WatchInterval: "10s",
		},
	}
}

// Load loads configuration from files and environment.
// Config file search order (highest precedence first):
// 1. ./.cdb.yaml or ./.cdb.yml
// 2. ~/.cdb.yaml or ~/.cdb.yml
// 3. $XDG_CONFIG_HOME/cdb/config.yaml (or ~/.config/cdb/config.yaml)
// 4. /etc/cdb/config.yaml
func Load() (*Config, error) {
	cfg := Default()

	configFile := findConfigFile()
	if configFile != "" {
		v := viper.New()
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}

		if err := v.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Defaults.CacheDir == "" {
		cfg.Defaults.CacheDir = os.TempDir()
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFile returns the path to the config file that would be loaded
func ConfigFile() string {
	return findConfigFile()
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	names := []string{".cdb.yaml", ".cdb.yml", "cdb.yaml", "cdb.yml"}

	home, homeErr := os.UserHomeDir()
	configDir, configDirErr := os.UserConfigDir()

	var searchPaths []string

	cwd, err := os.Getwd()
	if err == nil {
		searchPaths = append(searchPaths, cwd)
	}
	if homeErr == nil {
		searchPaths = append(searchPaths, home)
	}
	if configDirErr == nil {
		searchPaths = append(searchPaths, filepath.Join(configDir, "cdb"))
	}
	searchPaths = append(searchPaths, "/etc/cdb")

	for _, dir := range searchPaths {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CDB_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("CDB_QUIET"); v == "true" || v == "1" {
		cfg.Quiet = true
	}
	if v := os.Getenv("CDB_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("CDB_REPO"); v != "" {
		cfg.Defaults.Repo = v
	}
	if v := os.Getenv("CDB_CACHE_DIR"); v != "" {
		cfg.Defaults.CacheDir = v
	}
	if v := os.Getenv("CIRCLECI_TOKEN"); v != "" {
		cfg.Token = v
	}
}
