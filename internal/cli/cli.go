// Package cli implements the tapesched command-line interface.
//
// # Commands
//
//   - schedule: order a batch of tape requests and report the drive metrics
//   - inspect: browse the visit order of a saved result
//   - serve: run the HTTP API
//   - cache: manage the result cache
//   - completion: generate shell completion scripts
//
// # Configuration
//
// Defaults come from the TOML config file at
// $XDG_CONFIG_HOME/tapesched/config.toml, or the file named by --config.
// Flags override file values.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// passed to commands through context.Context.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tapesched/pkg/buildinfo"
	"github.com/matzehuels/tapesched/pkg/cache"
	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/observability"
	"github.com/matzehuels/tapesched/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "tapesched"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag. Empty selects the default path.
	configPath string
	// config is loaded before any command runs.
	config pipeline.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "tapesched orders tape read requests to minimise head movement",
		Long: `tapesched schedules batches of read requests on a linear tape drive.
It builds a greedy visit order and refines it with simulated annealing or
tabu search, then reports seek cost, read time and drive wear.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			hooks := observability.NewLogHooks(c.Logger)
			observability.SetSchedulerHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/tapesched/config.toml)")

	root.AddCommand(c.scheduleCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config
// =============================================================================

// loadConfig reads the config file. A missing file at the default path is
// not an error; a missing file named with --config is.
func (c *CLI) loadConfig() error {
	path := c.configPath
	if path == "" {
		p, err := pipeline.DefaultConfigPath()
		if err != nil {
			return nil
		}
		path = p
	}

	cfg, err := pipeline.LoadConfig(path)
	switch {
	case err == nil:
		c.config = *cfg
		c.Logger.Debug("loaded config", "path", path)
	case errs.Is(err, errs.ErrCodeFileNotFound) && c.configPath == "":
		c.config = pipeline.Config{}
	default:
		return err
	}
	return nil
}

// =============================================================================
// Cache Factory
// =============================================================================

// cacheFlags are the cache flags shared by schedule and serve.
type cacheFlags struct {
	noCache bool
	url     string
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().StringVar(&f.url, "cache-url", "", "use a Redis result cache (redis://host:port/db)")
}

// newCache opens the cache selected by flags and config. Flags win.
func (c *CLI) newCache(ctx context.Context, f cacheFlags) (cache.Cache, error) {
	if f.noCache || (c.config.Cache.Disabled && f.url == "") {
		return cache.NewNullCache(), nil
	}

	url := f.url
	if url == "" {
		url = c.config.Cache.URL
	}
	if url != "" {
		if err := errs.ValidateCacheURL(url); err != nil {
			return nil, err
		}
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: url})
		if errors.Is(err, cache.ErrUnavailable) {
			c.Logger.Warn("redis cache unavailable; caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "open redis cache")
		}
		return rc, nil
	}

	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory; caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("cannot open cache directory; caching disabled", "dir", dir, "err", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// cacheDir returns the file cache directory: the config value or the
// user cache directory.
func (c *CLI) cacheDir() (string, error) {
	if c.config.Cache.Dir != "" {
		return c.config.Cache.Dir, nil
	}
	return cache.DefaultDir()
}
