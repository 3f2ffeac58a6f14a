package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	dErrors "countriapi/pkg/domain-errors"
)

// User is a stored credential. Email is the identity and becomes the token subject.
type User struct {
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type AuthenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims the email. Identities are otherwise compared exactly.
func (r *AuthenticateRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// Validate rejects only requests that cannot name a user. Whether the identity
// exists and the password matches is decided by the credential lookup.
func (r *AuthenticateRequest) Validate() error {
	if !govalidator.StringLength(r.Email, "1", "255") {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	if govalidator.IsNull(r.Password) {
		return dErrors.New(dErrors.CodeValidation, "invalid password")
	}
	return nil
}

type AuthenticateResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"-"`
}
