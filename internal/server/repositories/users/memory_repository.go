package users

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/idverifier/internal/common"
	"github.com/dmitrijs2005/idverifier/internal/server/models"
)

// MemoryRepository keeps accounts in a map. It is safe for concurrent use
// and intended for development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]models.UserAccount
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]models.UserAccount)}
}

func (r *MemoryRepository) Create(ctx context.Context, account *models.UserAccount) (*models.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.Username]; exists {
		return nil, common.ErrorAlreadyExists
	}
	r.accounts[account.Username] = *account

	clone := *account
	return &clone, nil
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*models.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &account, nil
}

// Len reports how many accounts are stored.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}
