package auth

import (
	"crypto/sha512"
	"errors"
	"time"

	"github.com/dmitrijs2005/idverifier/internal/common"
	"github.com/dmitrijs2005/idverifier/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is used when a non-positive TTL is configured.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the token payload: standard registered claims (sub, iat, exp)
// plus the account role.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// IssuedToken is a signed token together with its expiry instant.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS512 tokens with a key derived from a
// configured passphrase.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option customizes a TokenIssuer.
type Option func(*TokenIssuer)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(i *TokenIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// DeriveSigningKey hashes the passphrase with SHA-512 so the HMAC key is
// always 64 bytes regardless of the configured secret length.
func DeriveSigningKey(secret string) []byte {
	sum := sha512.Sum512([]byte(secret))
	return sum[:]
}

func NewTokenIssuer(secret string, ttl time.Duration, opts ...Option) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	i := &TokenIssuer{
		key: DeriveSigningKey(secret),
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// TTL reports the configured token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a token for subject carrying role, valid for the configured TTL.
func (i *TokenIssuer) Issue(subject string, role models.Role) (IssuedToken, error) {
	if subject == "" {
		return IssuedToken{}, common.ErrInvalidInput
	}
	if role == "" {
		role = models.RoleUser
	}

	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Role: role.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	tokenString, err := token.SignedString(i.key)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{Token: tokenString, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Parse verifies the signature, algorithm and expiry of raw and returns its
// claims. Expired tokens yield common.ErrTokenExpired, every other failure
// common.ErrInvalidToken.
func (i *TokenIssuer) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// Verify reports whether raw is a correctly signed, unexpired token.
func (i *TokenIssuer) Verify(raw string) bool {
	_, err := i.Parse(raw)
	return err == nil
}

// Subject returns the username the token was issued for.
func (i *TokenIssuer) Subject(raw string) (string, error) {
	claims, err := i.Parse(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Role returns the role claim, "USER" when absent.
func (i *TokenIssuer) Role(raw string) (string, error) {
	claims, err := i.Parse(raw)
	if err != nil {
		return "", err
	}
	return claims.RoleOrDefault().String(), nil
}

// RoleOrDefault returns the role claim as a models.Role.
func (c *Claims) RoleOrDefault() models.Role {
	return models.ParseRole(c.Role)
}
