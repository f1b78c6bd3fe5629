package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/dmitrijs2005/idverifier/internal/logging"
	"github.com/dmitrijs2005/idverifier/internal/server/awsx"
	"github.com/dmitrijs2005/idverifier/internal/server/config"
	"github.com/dmitrijs2005/idverifier/internal/server/repositories/users"
)

var (
	sqlOpen = sql.Open

	loadAWSConfig = awsx.LoadConfig

	newDynamoDBClient = func(cfg aws.Config, optFns ...func(*dynamodb.Options)) users.DynamoDBAPI {
		return dynamodb.NewFromConfig(cfg, optFns...)
	}

	// sleep waits between connection attempts; tests replace it.
	sleep = func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
)

// Open builds the RepositoryManager for cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (RepositoryManager, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := connectPostgres(ctx, cfg.DatabaseDSN, cfg.DBConnectRetries, logger)
		if err != nil {
			return nil, err
		}
		return NewPostgresRepositoryManager(db), nil

	case config.BackendDynamoDB:
		awsCfg, err := loadAWSConfig(ctx, awsx.Settings{
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		client := newDynamoDBClient(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
			}
		})
		return NewDynamoDBRepositoryManager(client, cfg.DynamoDBTable), nil

	case config.BackendMemory:
		logger.Warn(ctx, "using in-memory credential store, accounts are lost on restart")
		return NewInMemoryRepositoryManager(), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// connectPostgres opens the pool and pings it, retrying with exponential
// backoff (1s, 2s, 4s, ...) up to retries extra attempts.
func connectPostgres(ctx context.Context, dsn string, retries int, logger logging.Logger) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	attempts := retries + 1
	for i := 0; i < attempts; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if i == attempts-1 {
			break
		}

		wait := time.Duration(1<<uint(i)) * time.Second
		logger.Warn(ctx, "database connection failed, retrying",
			"attempt", i+1, "max_attempts", attempts, "retry_in", wait.String(), "error", err)
		if serr := sleep(ctx, wait); serr != nil {
			_ = db.Close()
			return nil, serr
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("db connect failed after %d attempts: %w", attempts, err)
}
