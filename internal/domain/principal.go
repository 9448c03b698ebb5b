package domain

import (
	"strings"
	"time"
)

// Principal represents a registered identity that owns books. Principals are
// immutable after registration.
type Principal struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}

// RegisterRequest holds parameters for registering a new principal.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// Validate checks that the request is well-formed.
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return ErrValidation("username is required")
	}
	if r.Password == "" {
		return ErrValidation("password is required")
	}
	return nil
}
