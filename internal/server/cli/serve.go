package cli

import (
	"context"

	"github.com/dmitrijs2005/idverifier/internal/logging"
	"github.com/dmitrijs2005/idverifier/internal/server"
	"github.com/dmitrijs2005/idverifier/internal/server/config"
	"github.com/spf13/cobra"
)

var runServer = func(ctx context.Context, c *config.Config, logger logging.Logger) error {
	app, err := server.NewApp(ctx, c, logger)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func newServeCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o)
		},
	}
}

func runServe(cmd *cobra.Command, o *rootOptions) error {
	c, logger, err := o.load()
	if err != nil {
		return err
	}
	return runServer(cmd.Context(), c, logger)
}
