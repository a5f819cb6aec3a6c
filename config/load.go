package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/openroad/roadcall/errors"
)

// Load reads the roadcall configuration using Viper, merging defaults,
// config files, and ROADCALL_* environment variables.
func Load() (*Config, error) {
	return LoadWithViper(initViper())
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path.
// Defaults are applied for any key the file omits.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	return &config, nil
}

// ResolvePath returns the config file path to operate on: the explicit path
// when given, otherwise the nearest roadcall.toml walking up from the
// working directory, otherwise roadcall.toml in the working directory.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if path := findProjectConfig(); path != "" {
		return path
	}
	return "roadcall.toml"
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	v := viper.New()

	// Set up environment variable binding
	v.SetEnvPrefix("ROADCALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Merge config file if one is found near the working directory
	if path := findProjectConfig(); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		// Best effort: a missing or unreadable file falls back to defaults
		_ = v.MergeInConfig()
	}

	return v
}

// findProjectConfig searches for roadcall.toml by walking up the directory
// tree. Returns the path of the first file found, or empty string.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, "roadcall.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
