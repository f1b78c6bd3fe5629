// Package repomanager selects the credential store backend, owns its
// connection and runs its schema bootstrap.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/idverifier/internal/server/repositories/users"
)

type RepositoryManager interface {
	// RunMigrations brings the backend schema up to date. It is safe to
	// call on every start.
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Close() error
}
