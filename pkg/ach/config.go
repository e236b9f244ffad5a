package ach

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/vito/achronyme/pkg/lp"
	"github.com/vito/achronyme/pkg/persist"
)

// ConfigFileName is the project configuration file looked up by
// FindProjectConfig.
const ConfigFileName = "achronyme.toml"

// Config represents an achronyme.toml project configuration file.
type Config struct {
	Limits  LimitsConfig  `toml:"limits"`
	Persist PersistConfig `toml:"persist"`
	Modules ModulesConfig `toml:"modules"`
}

// LimitsConfig caps long-running computations.
type LimitsConfig struct {
	// TCOIterations caps the trampoline of a tail-recursive function.
	TCOIterations int `toml:"tco_iterations"`
	// SimplexIterations caps pivots per LP solve.
	SimplexIterations int `toml:"simplex_iterations"`
	// ILPIterations caps Branch-and-Bound nodes for integer programs.
	ILPIterations int `toml:"ilp_iterations"`
	// BinaryIterations caps Branch-and-Bound nodes for 0-1 programs.
	BinaryIterations int `toml:"binary_iterations"`
}

// PersistConfig holds the defaults for save_env and restore_env.
type PersistConfig struct {
	Compress         bool `toml:"compress"`
	CompressionLevel int  `toml:"compression_level"`
	VerifyChecksum   bool `toml:"verify_checksum"`
	StrictVersion    bool `toml:"strict_version"`
}

// ModulesConfig configures source module imports.
type ModulesConfig struct {
	// Paths are searched, in order, after the importing file's directory.
	// Relative entries are relative to the config file.
	Paths []string `toml:"paths"`
}

// DefaultConfig returns the configuration used when no achronyme.toml is
// present.
func DefaultConfig() *Config {
	lpDefaults := lp.DefaultOptions()
	saveDefaults := persist.DefaultSaveOptions()
	loadDefaults := persist.DefaultLoadOptions()
	return &Config{
		Limits: LimitsConfig{
			TCOIterations:     1_000_000,
			SimplexIterations: lpDefaults.MaxIterations,
			ILPIterations:     lpDefaults.MaxNodes,
			BinaryIterations:  lpDefaults.MaxBinaryNodes,
		},
		Persist: PersistConfig{
			Compress:         saveDefaults.Compress,
			CompressionLevel: saveDefaults.CompressionLevel,
			VerifyChecksum:   loadDefaults.VerifyChecksum,
			StrictVersion:    loadDefaults.StrictVersion,
		},
	}
}

// LoadConfig loads an achronyme.toml file from the given path. Settings
// absent from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for k, p := range config.Modules.Paths {
		if !filepath.IsAbs(p) {
			config.Modules.Paths[k] = filepath.Join(dir, p)
		}
	}
	return config, nil
}

// FindProjectConfig searches for an achronyme.toml file starting from dir
// and walking up to parent directories, stopping at a repository root.
// Returns the path and the parsed config, or ("", nil, nil) if not found.
func FindProjectConfig(dir string) (string, *Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			config, err := LoadConfig(path)
			if err != nil {
				return "", nil, err
			}
			return path, config, nil
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// LPOptions derives solver limits.
func (c *Config) LPOptions() lp.Options {
	return lp.Options{
		MaxIterations:  c.Limits.SimplexIterations,
		MaxNodes:       c.Limits.ILPIterations,
		MaxBinaryNodes: c.Limits.BinaryIterations,
	}
}

// SaveOptions derives snapshot write options.
func (c *Config) SaveOptions() persist.SaveOptions {
	opts := persist.DefaultSaveOptions()
	opts.Compress = c.Persist.Compress
	if c.Persist.CompressionLevel > 0 {
		opts.CompressionLevel = c.Persist.CompressionLevel
	}
	return opts
}

// LoadOptions derives snapshot read options.
func (c *Config) LoadOptions() persist.LoadOptions {
	opts := persist.DefaultLoadOptions()
	opts.VerifyChecksum = c.Persist.VerifyChecksum
	opts.StrictVersion = c.Persist.StrictVersion
	return opts
}
