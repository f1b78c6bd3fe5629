// Package users holds the credential store: username-keyed account records
// with atomic insert-if-absent creation.
package users

import (
	"context"

	"github.com/dmitrijs2005/idverifier/internal/server/models"
)

// Repository is the credential store contract.
//
// GetByUsername returns common.ErrorNotFound when no record exists.
// Create must be an atomic conditional write: it returns
// common.ErrorAlreadyExists, without modifying the stored record, when the
// username is already present.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (*models.UserAccount, error)
	Create(ctx context.Context, account *models.UserAccount) (*models.UserAccount, error)
}
