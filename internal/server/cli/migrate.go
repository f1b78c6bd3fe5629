package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/idverifier/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

var openRepositories = repomanager.Open

func newMigrateCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the credential store schema",
		Long: `Applies the embedded PostgreSQL migrations, or creates the DynamoDB
table when it does not exist yet. The memory backend has nothing to do.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := o.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repos, err := openRepositories(ctx, c, logger)
			if err != nil {
				return fmt.Errorf("store init error: %w", err)
			}

			err = repos.RunMigrations(ctx)
			if err == nil {
				logger.Info(ctx, "schema is up to date", "store_backend", c.StoreBackend)
			}
			return errors.Join(err, repos.Close())
		},
	}
}
