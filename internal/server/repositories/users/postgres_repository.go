package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/idverifier/internal/common"
	"github.com/dmitrijs2005/idverifier/internal/dbx"
	"github.com/dmitrijs2005/idverifier/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account unless the username is taken. ON CONFLICT DO
// NOTHING makes the uniqueness check and the write a single statement, so
// concurrent signups for one username cannot both succeed.
func (r *PostgresRepository) Create(ctx context.Context, account *models.UserAccount) (*models.UserAccount, error) {

	query :=
		`INSERT INTO user_accounts (username, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (username) DO NOTHING
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.Username, account.PasswordHash, account.Role.String(), account.CreatedAt, account.UpdatedAt).
		Scan(&account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.UserAccount, error) {
	query :=
		`SELECT username, password_hash, role, created_at, updated_at FROM user_accounts
		 WHERE username = $1
		 `

	account := &models.UserAccount{}
	var role string
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&account.Username, &account.PasswordHash, &role, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.Role = models.ParseRole(role)
	return account, nil
}
