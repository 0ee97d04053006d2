package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tapesched/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand. It clears the
// Redis cache when one is configured, the file cache otherwise.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if url == "" {
				url = c.config.Cache.URL
			}

			if url != "" {
				rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: url})
				if err != nil {
					return err
				}
				defer rc.Close()

				spinner := newSpinner(ctx, "Clearing redis cache...")
				spinner.Start()
				n, err := rc.Clear(ctx)
				if err != nil {
					spinner.StopWithError("Clearing redis cache failed")
					return fmt.Errorf("clear redis cache: %w", err)
				}
				spinner.StopWithSuccess(fmt.Sprintf("Cleared %d cached results", n))
				printDetail("Redis: %s", url)
				return nil
			}

			dir, err := c.cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return fmt.Errorf("open cache dir: %w", err)
			}
			n, err := fc.Clear()
			if err != nil {
				return err
			}
			if n == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached results", n)
			printDetail("Directory: %s", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "cache-url", "", "clear this Redis cache instead of the file cache")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}
