package models

import "time"

// Role is the authorization level carried by an account and its tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps a stored role string to a Role. Empty or unknown values
// fall back to RoleUser.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

func (r Role) String() string { return string(r) }

// UserAccount is a persisted credential record keyed by Username.
type UserAccount struct {
	Username     string    `dynamodbav:"username"`
	PasswordHash string    `dynamodbav:"passwordHash"`
	Role         Role      `dynamodbav:"role"`
	CreatedAt    time.Time `dynamodbav:"createdAt"`
	UpdatedAt    time.Time `dynamodbav:"updatedAt"`
}

// NewUserAccount returns an account stamped with now for both timestamps.
func NewUserAccount(username, passwordHash string, role Role, now time.Time) *UserAccount {
	if role == "" {
		role = RoleUser
	}
	return &UserAccount{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
