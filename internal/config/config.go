// Package config loads project settings from a .garnet.toml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/garnet/internal/loader"
)

// FileName is the configuration file looked up from the working directory.
const FileName = ".garnet.toml"

// Config holds project settings. Relative paths are resolved against Root.
type Config struct {
	// Builtins names a Ruby stub file that replaces the embedded builtins.
	Builtins string `toml:"builtins"`
	// SearchPaths are the directories searched for require targets.
	SearchPaths []string `toml:"search_paths"`
	// ResolverScript is a Risor script mapping require strings to files.
	ResolverScript string `toml:"resolver_script"`
	// Rails enables the app/ to lib/ autoloader.
	Rails bool `toml:"rails"`
	// Database is the SQLite index path.
	Database    string   `toml:"database"`
	Parallelism int      `toml:"parallelism"`
	LogLevel    string   `toml:"log_level"`
	Exclude     []string `toml:"exclude"`

	// Path is the file the settings came from, empty for defaults.
	Path string `toml:"-"`
	// Root is the directory holding Path, or the start directory.
	Root string `toml:"-"`
}

// Default returns the settings used when no file is found.
func Default(root string) Config {
	return Config{
		SearchPaths: []string{"lib"},
		Database:    ".garnet.db",
		Parallelism: runtime.GOMAXPROCS(0),
		LogLevel:    "info",
		Exclude:     []string{"**/vendor/**", "**/node_modules/**", "**/.git/**"},
		Root:        root,
	}
}

// Find walks up from dir looking for FileName.
func Find(dir string) (string, bool, error) {
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false, fmt.Errorf("config: resolve %q: %w", dir, err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("config: stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load finds and reads the configuration for dir. A missing file yields the
// defaults rooted at dir.
func Load(dir string) (Config, error) {
	path, ok, err := Find(dir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve %q: %w", dir, err)
		}
		return Default(abs), nil
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path. Keys absent from the file keep
// their defaults.
func LoadFile(path string) (Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: resolve %q: %w", path, err)
	}
	cfg := Default(filepath.Dir(abs))
	meta, err := toml.DecodeFile(abs, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", abs, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: %s: unknown key %q", abs, undecoded[0].String())
	}
	cfg.Path = abs
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", abs, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be positive, got %d", c.Parallelism)
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// Resolve returns p relative to the config root unless it is absolute or empty.
func (c Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// SearchDirs returns the search paths resolved against the root.
func (c Config) SearchDirs() []string {
	out := make([]string, 0, len(c.SearchPaths))
	for _, p := range c.SearchPaths {
		out = append(out, c.Resolve(p))
	}
	return out
}

// Excluded reports whether the slash-separated path rel matches an exclude
// pattern.
func (c Config) Excluded(rel string) bool {
	return loader.Excluded(rel, c.Exclude)
}
