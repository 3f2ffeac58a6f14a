package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "countriapi/pkg/domain-errors"
)

func TestAuthenticateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     AuthenticateRequest
		wantErr string
	}{
		{name: "valid", req: AuthenticateRequest{Email: "user@example.com", Password: "secret"}},
		{name: "missing email", req: AuthenticateRequest{Password: "secret"}, wantErr: "invalid email"},
		{name: "identity that is not email shaped", req: AuthenticateRequest{Email: "alice", Password: "secret"}},
		{name: "email too long", req: AuthenticateRequest{Email: strings.Repeat("a", 256), Password: "secret"}, wantErr: "invalid email"},
		{name: "missing password", req: AuthenticateRequest{Email: "user@example.com"}, wantErr: "invalid password"},
		{name: "long password left to the verifier", req: AuthenticateRequest{Email: "user@example.com", Password: strings.Repeat("x", 73)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestAuthenticateRequestNormalize(t *testing.T) {
	req := AuthenticateRequest{Email: "  User@Example.com \n"}
	req.Normalize()
	assert.Equal(t, "User@Example.com", req.Email)
}
