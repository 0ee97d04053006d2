package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/tapesched/pkg/pipeline"
	"github.com/matzehuels/tapesched/pkg/server"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr  string
		flags cacheFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scheduling API over HTTP",
		Long: `Serve exposes POST /v1/schedule, GET /healthz and GET /version.
Schedule options from the config file are applied to every request before
the request's own options.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			if !cmd.Flags().Changed("addr") && c.config.Server.Addr != "" {
				addr = c.config.Server.Addr
			}

			store, err := c.newCache(ctx, flags)
			if err != nil {
				return err
			}
			srv := server.New(store, logger, server.Config{Defaults: c.config.Schedule})
			defer srv.Close()

			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", pipeline.DefaultAddr, "listen address")
	flags.register(cmd)
	return cmd
}
