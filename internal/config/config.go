// Package config loads the optional mtlxgen configuration file.
//
// The file is TOML:
//
//	target = "genglsl"
//	library_search_path = "/opt/materialx:builtin"
//	library_folders = ["libraries"]
//	target_color_space = "acescg"
//	target_distance_unit = "centimeter"
//	cache_ttl = "72h"
//
//	[serve]
//	addr = ":9000"
//	redis_addr = "localhost:6379"
//	max_document_bytes = 1048576
//
// Command-line flags override file values, which override built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/pipeline"
)

// Config holds the settings read from the configuration file. Zero values
// mean "use the built-in default".
type Config struct {
	Target             string        `toml:"target"`
	LibrarySearchPath  string        `toml:"library_search_path"`
	LibraryFolders     []string      `toml:"library_folders"`
	TargetColorSpace   string        `toml:"target_color_space"`
	TargetDistanceUnit string        `toml:"target_distance_unit"`
	CacheTTL           time.Duration `toml:"cache_ttl"`
	Serve              Serve         `toml:"serve"`
}

// Serve holds the settings of the HTTP API.
type Serve struct {
	Addr             string `toml:"addr"`
	RedisAddr        string `toml:"redis_addr"`
	MaxDocumentBytes int64  `toml:"max_document_bytes"`
}

// DefaultPath returns $XDG_CONFIG_HOME/mtlxgen/config.toml, falling back to
// ~/.config/mtlxgen/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "mtlxgen", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "mtlxgen", "config.toml"), nil
}

// Load reads the file at path. An empty path loads the default file, which
// may be missing; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return &Config{}, nil
		}
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Config{}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that can be checked without loading libraries.
func (c *Config) Validate() error {
	if c.Target != "" {
		if err := pipeline.ValidateTarget(c.Target); err != nil {
			return err
		}
	}
	if c.CacheTTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache_ttl must not be negative")
	}
	if c.Serve.MaxDocumentBytes < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "serve.max_document_bytes must not be negative")
	}
	return nil
}

// Apply fills the empty fields of opts from the configuration.
func (c *Config) Apply(opts *pipeline.Options) {
	if opts.Target == "" {
		opts.Target = c.Target
	}
	if opts.LibrarySearchPath == "" {
		opts.LibrarySearchPath = c.LibrarySearchPath
	}
	if len(opts.LibraryFolders) == 0 {
		opts.LibraryFolders = c.LibraryFolders
	}
	if opts.TargetColorSpace == "" {
		opts.TargetColorSpace = c.TargetColorSpace
	}
	if opts.TargetDistanceUnit == "" {
		opts.TargetDistanceUnit = c.TargetDistanceUnit
	}
}
