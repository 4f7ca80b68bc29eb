package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/sdorfehs-bar/config.toml (then .yaml, .yml)
//  2. ~/.config/sdorfehs-bar/config.toml (then .yaml, .yml)
//
// If no file exists, returns DefaultConfig().
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path. The format
// is chosen by extension: .yaml and .yml decode as YAML, everything else
// as TOML.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// ResolvePath returns the config file path Load would read, or "" when no
// file exists and the built-in defaults apply.
func ResolvePath() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadFromReader reads TOML configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// ConfigDir returns the directory custom palettes and the config file live
// in.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(xdgConfigHome(home), "sdorfehs-bar")
}

// applyEnvOverrides checks environment variables and overrides config
// values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SDORFEHS_BAR_PALETTE"); v != "" {
		cfg.General.Palette = v
	}
	if v := os.Getenv("SDORFEHS_BAR_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = v
	}
	if v := os.Getenv("SDORFEHS_BAR_CACHE_DIR"); v != "" {
		cfg.General.CacheDir = v
	}
	if v := os.Getenv("SDORFEHS_BAR_SOCKET"); v != "" {
		cfg.General.Socket = v
	}
	if v := os.Getenv("SDORFEHS_BAR_STATION"); v != "" {
		cfg.Modules.Weather.Station = v
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	dirs := []string{filepath.Join(xdgConfigHome(home), "sdorfehs-bar")}

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultDir := filepath.Join(home, ".config", "sdorfehs-bar")
	if dirs[0] != defaultDir {
		dirs = append(dirs, defaultDir)
	}

	for _, dir := range dirs {
		for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

// xdgCacheHome returns XDG_CACHE_HOME or ~/.cache as fallback.
func xdgCacheHome(home string) string {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".cache")
}
