package pipeline

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/tapesched/pkg/errors"
)

// DefaultAddr is the listen address of the HTTP API.
const DefaultAddr = ":8080"

// Config is the layout of the TOML config file.
//
//	[schedule]
//	algorithm  = "tabu"
//	iterations = 200
//	time_limit = "5s"
//
//	[cache]
//	url = "redis://localhost:6379/0"
//
//	[server]
//	addr = ":8080"
type Config struct {
	Schedule Options      `toml:"schedule"`
	Cache    CacheConfig  `toml:"cache"`
	Server   ServerConfig `toml:"server"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	// URL selects a Redis cache. When empty the file cache is used.
	URL string `toml:"url"`
	// Dir overrides the file cache directory.
	Dir string `toml:"dir"`
	// Disabled turns caching off.
	Disabled bool `toml:"disabled"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/tapesched/config.toml, falling
// back to the platform's user config directory.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tapesched", "config.toml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tapesched", "config.toml"), nil
}

// LoadConfig reads the config file at path. A missing file is reported with
// ErrCodeFileNotFound so callers can treat the default path as optional.
func LoadConfig(path string) (*Config, error) {
	if err := errs.ValidatePath(path); err != nil {
		return nil, err
	}
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "config %s", path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown key %q in %s", undecoded[0].String(), path)
	}
	if cfg.Cache.URL != "" {
		if err := errs.ValidateCacheURL(cfg.Cache.URL); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
