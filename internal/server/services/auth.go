// Package services contains server-side business logic. This file implements
// AuthService: signup, login against the credential store or the bootstrap
// admin, and token validation.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/idverifier/internal/common"
	"github.com/dmitrijs2005/idverifier/internal/logging"
	"github.com/dmitrijs2005/idverifier/internal/server/auth"
	"github.com/dmitrijs2005/idverifier/internal/server/models"
	"github.com/dmitrijs2005/idverifier/internal/server/repositories/users"
)

// TokenIssuer mints and parses signed tokens.
type TokenIssuer interface {
	Issue(subject string, role models.Role) (auth.IssuedToken, error)
	Parse(raw string) (*auth.Claims, error)
}

// AdminCredentials describe the bootstrap administrator. It lives only in
// configuration and is never written to the store. Password is an optional
// plaintext fallback, used when non-empty.
type AdminCredentials struct {
	Username     string
	PasswordHash string
	Password     string
}

// TokenResponse is returned by a successful Login or Signup. ExpiresIn is the
// expiry instant in Unix milliseconds.
type TokenResponse struct {
	Token     string
	Username  string
	Role      string
	ExpiresIn int64
}

// ValidationResult reports the outcome of Validate. Username and Role are
// empty when Valid is false.
type ValidationResult struct {
	Valid    bool
	Username string
	Role     string
}

type AuthService struct {
	repo   users.Repository
	hasher auth.PasswordHasher
	issuer TokenIssuer
	admin  AdminCredentials
	logger logging.Logger
	now    func() time.Time
}

func NewAuthService(repo users.Repository, hasher auth.PasswordHasher, issuer TokenIssuer, admin AdminCredentials, logger logging.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		issuer: issuer,
		admin:  admin,
		logger: logger.With("module", "auth"),
		now:    time.Now,
	}
}

// Login authenticates username/password. The bootstrap admin username never
// reaches the store, so no stored record can shadow it. Unknown users and
// wrong passwords both yield common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	if s.admin.Username != "" && username == s.admin.Username {
		if !s.isAdmin(password) {
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Info(ctx, "bootstrap admin login", "username", username)
		return s.respond(username, models.RoleAdmin)
	}

	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.storeFailure(ctx, "lookup", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.respond(account.Username, models.ParseRole(account.Role.String()))
}

// Signup registers a USER account and returns its first token.
func (s *AuthService) Signup(ctx context.Context, username, password string) (*TokenResponse, error) {
	if username == s.admin.Username {
		return nil, common.ErrUsernameReserved
	}

	_, err := s.repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, common.ErrUsernameTaken
	case !errors.Is(err, common.ErrorNotFound):
		return nil, s.storeFailure(ctx, "lookup", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// Create is a conditional write; a concurrent signup that won the race
	// surfaces here as ErrorAlreadyExists.
	account := models.NewUserAccount(username, digest, models.RoleUser, s.now().UTC())
	if _, err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrUsernameTaken
		}
		return nil, s.storeFailure(ctx, "create", err)
	}

	s.logger.Info(ctx, "account created", "username", username)
	return s.respond(username, models.RoleUser)
}

// Validate never fails: any parse, signature or expiry problem yields
// Valid=false.
func (s *AuthService) Validate(token string) ValidationResult {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return ValidationResult{}
	}
	return ValidationResult{
		Valid:    true,
		Username: claims.Subject,
		Role:     claims.RoleOrDefault().String(),
	}
}

// isAdmin checks password against the configured hash, or against the
// plaintext fallback only when no hash is configured.
func (s *AuthService) isAdmin(password string) bool {
	if s.admin.PasswordHash != "" {
		return s.hasher.Verify(password, s.admin.PasswordHash)
	}
	return s.admin.Password != "" &&
		subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
}

func (s *AuthService) respond(username string, role models.Role) (*TokenResponse, error) {
	tok, err := s.issuer.Issue(username, role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &TokenResponse{
		Token:     tok.Token,
		Username:  username,
		Role:      role.String(),
		ExpiresIn: tok.ExpiresAt.UnixMilli(),
	}, nil
}

func (s *AuthService) storeFailure(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "credential store failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", common.ErrStoreUnavailable, op, err)
}
