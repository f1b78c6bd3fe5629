// Package server wires configuration, the credential store, the auth and
// verification services and the HTTP API into a runnable application.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/idverifier/internal/logging"
	"github.com/dmitrijs2005/idverifier/internal/server/auth"
	"github.com/dmitrijs2005/idverifier/internal/server/awsx"
	"github.com/dmitrijs2005/idverifier/internal/server/config"
	"github.com/dmitrijs2005/idverifier/internal/server/documents"
	"github.com/dmitrijs2005/idverifier/internal/server/httpapi"
	"github.com/dmitrijs2005/idverifier/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/idverifier/internal/server/services"
)

var openRepositories = repomanager.Open

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	if c.UsesInsecureDefaults() {
		logger.Warn(ctx, "insecure default credentials in use, set IDV_JWT_SECRET and IDV_ADMIN_PASSWORD_HASH for production")
	}

	repos, err := openRepositories(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("schema bootstrap error: %w", err)
	}

	hasher, err := auth.NewPasswordHasher(c.PasswordAlgorithm, c.PasswordCost)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}
	issuer := auth.NewTokenIssuer(c.JWTSecret, c.JWTTTL)

	admin := services.AdminCredentials{
		Username:     c.AdminUsername,
		PasswordHash: c.AdminPasswordHash,
		Password:     c.AdminPassword,
	}
	as := services.NewAuthService(repos.Users(), hasher, issuer, admin, logger)

	var archive services.DocumentArchive
	if c.S3Bucket != "" {
		a, err := documents.NewS3Archive(ctx, awsx.Settings{
			Region:    c.AWSRegion,
			AccessKey: c.AWSAccessKey,
			SecretKey: c.AWSSecretKey,
		}, c.S3Bucket, c.S3BaseEndpoint)
		if err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("document archive init error: %w", err)
		}
		archive = a
	}
	vs := services.NewVerificationService(nil, archive, logger)

	srv := httpapi.NewServer(httpapi.Options{
		Address:        c.HTTPAddr,
		MaxUploadBytes: c.MaxUploadBytes,
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
	}, logger, as, vs, issuer)

	return &App{config: c, logger: logger, repos: repos, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until ctx is canceled or a termination signal arrives,
// then closes the store.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store_backend", app.config.StoreBackend)

	app.initSignalHandler(cancelFunc)

	err := app.server.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, err.Error())
	}

	return errors.Join(err, app.repos.Close())
}
