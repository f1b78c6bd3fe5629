package repomanager

import (
	"context"

	"github.com/dmitrijs2005/idverifier/internal/server/repositories/users"
)

type DynamoDBRepositoryManager struct {
	users *users.DynamoDBRepository
}

func NewDynamoDBRepositoryManager(client users.DynamoDBAPI, table string) *DynamoDBRepositoryManager {
	return &DynamoDBRepositoryManager{users: users.NewDynamoDBRepository(client, table)}
}

func (m *DynamoDBRepositoryManager) Users() users.Repository {
	return m.users
}

// RunMigrations creates the accounts table when missing.
func (m *DynamoDBRepositoryManager) RunMigrations(ctx context.Context) error {
	return m.users.EnsureTable(ctx)
}

func (m *DynamoDBRepositoryManager) Close() error { return nil }
