package service

import (
	"context"
	"errors"
	"log/slog"

	"countriapi/internal/auth/metrics"
	"countriapi/internal/auth/models"
	jwttoken "countriapi/internal/jwt_token"
	dErrors "countriapi/pkg/domain-errors"
	"countriapi/pkg/platform/sentinel"
)

const (
	MsgIdentityNotFound = "The request could not be completed. Username was not found."
	MsgBadCredentials   = "The user could not be authenticated due to incorrect credentials."
)

type UserStore interface {
	FindByIdentity(ctx context.Context, identity string) (*models.User, error)
}

type PasswordVerifier interface {
	Verify(plain, hash string) bool
}

type TokenIssuer interface {
	Issue(identity string) (jwttoken.Token, error)
}

// Service authenticates credentials and issues session tokens. It holds no
// session state; the token is the session.
type Service struct {
	users     UserStore
	passwords PasswordVerifier
	tokens    TokenIssuer
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(users UserStore, passwords PasswordVerifier, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if passwords == nil {
		return nil, errors.New("password verifier is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}

	s := &Service{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Authenticate verifies the password of the identity in req and issues a token.
// Unknown identities fail with CodeNotFound and wrong passwords with CodeUnauthorized.
func (s *Service) Authenticate(ctx context.Context, req *models.AuthenticateRequest) (*models.AuthenticateResult, error) {
	user, err := s.users.FindByIdentity(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.record(ctx, "identity_not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, MsgIdentityNotFound)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credentials")
	}

	if !s.passwords.Verify(req.Password, user.PasswordHash) {
		s.record(ctx, "bad_credentials")
		return nil, dErrors.New(dErrors.CodeUnauthorized, MsgBadCredentials)
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.record(ctx, "success")
	if s.metrics != nil {
		s.metrics.IncrementTokensIssued()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "token issued", "expires_at", token.ExpiresAt())
	}

	return &models.AuthenticateResult{
		Token:     token.String(),
		ExpiresAt: token.ExpiresAt(),
	}, nil
}

func (s *Service) record(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAttempt(outcome)
	}
	if s.logger != nil && outcome != "success" {
		s.logger.InfoContext(ctx, "authentication failed", "reason", outcome)
	}
}
