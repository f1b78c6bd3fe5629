// Package cli is the idverifier command line: serve (default), migrate and
// hash-password.
package cli

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/idverifier/internal/logging"
	"github.com/dmitrijs2005/idverifier/internal/server/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type rootOptions struct {
	cfgFile string
	v       *viper.Viper
}

// NewRootCommand builds the command tree around a fresh viper instance.
func NewRootCommand() *cobra.Command {
	o := &rootOptions{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "idverifier",
		Short: "Identity verification and authentication backend",
		Long: `idverifier issues signed bearer tokens for registered accounts and
accepts identity documents for verification.

Without a subcommand it starts the HTTP server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return fmt.Errorf("dotenv: %w", err)
			}
			return config.Setup(o.v, o.cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o)
		},
	}

	var d config.Config
	d.LoadDefaults()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&o.cfgFile, "config", "", "config file (default is ./idverifier.yaml)")
	pf.String("http-addr", d.HTTPAddr, "HTTP listen address")
	pf.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	pf.String("store-backend", d.StoreBackend, "credential store: postgres, dynamodb, memory")
	pf.String("database-dsn", d.DatabaseDSN, "PostgreSQL connection string")
	pf.String("dynamodb-table", d.DynamoDBTable, "DynamoDB table name")
	pf.String("dynamodb-endpoint", d.DynamoDBEndpoint, "DynamoDB endpoint override")
	pf.String("aws-region", d.AWSRegion, "AWS region")
	pf.String("password-algorithm", d.PasswordAlgorithm, "password hashing: bcrypt, argon2id")

	for key, flag := range map[string]string{
		config.KeyHTTPAddr:          "http-addr",
		config.KeyLogLevel:          "log-level",
		config.KeyStoreBackend:      "store-backend",
		config.KeyDatabaseDSN:       "database-dsn",
		config.KeyDynamoDBTable:     "dynamodb-table",
		config.KeyDynamoDBEndpoint:  "dynamodb-endpoint",
		config.KeyAWSRegion:         "aws-region",
		config.KeyPasswordAlgorithm: "password-algorithm",
	} {
		_ = o.v.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(newServeCommand(o), newMigrateCommand(o), newHashPasswordCommand(o))

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *rootOptions) load() (*config.Config, logging.Logger, error) {
	c, err := config.Load(o.v)
	if err != nil {
		return nil, nil, err
	}
	return c, logging.NewJSONLogger(os.Stdout, c.LogLevel), nil
}
