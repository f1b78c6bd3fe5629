package httpapi

import "github.com/dmitrijs2005/idverifier/internal/server/services"

type errorBody struct {
	Error string `json:"error"`
}

// tokenBody is the login/signup response. Every field is null on failure.
type tokenBody struct {
	Token     *string `json:"token"`
	Username  *string `json:"username"`
	Role      *string `json:"role"`
	ExpiresIn *int64  `json:"expiresIn"`
}

type validateBody struct {
	Valid    bool    `json:"valid"`
	Username *string `json:"username"`
	Role     *string `json:"role"`
}

type statusBody struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

type whoamiBody struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func newTokenBody(r *services.TokenResponse) tokenBody {
	return tokenBody{
		Token:     &r.Token,
		Username:  &r.Username,
		Role:      &r.Role,
		ExpiresIn: &r.ExpiresIn,
	}
}

func newValidateBody(r services.ValidationResult) validateBody {
	if !r.Valid {
		return validateBody{}
	}
	return validateBody{Valid: true, Username: &r.Username, Role: &r.Role}
}
