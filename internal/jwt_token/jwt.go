package jwttoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures. Callers treat all of them as "unauthenticated".
var (
	ErrMalformed        = errors.New("token is malformed")
	ErrSignatureInvalid = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
)

// Clock returns the current time; injected for tests.
type Clock func() time.Time

// Claims is the signed payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
}

// Token is a verified or freshly issued session token. It is immutable.
type Token struct {
	raw       string
	subject   string
	issuedAt  time.Time
	expiresAt time.Time
}

func (t Token) String() string       { return t.raw }
func (t Token) Subject() string      { return t.subject }
func (t Token) IssuedAt() time.Time  { return t.issuedAt }
func (t Token) ExpiresAt() time.Time { return t.expiresAt }

// JWTService issues and verifies HS256 session tokens. It holds no mutable state
// and is safe for concurrent use.
type JWTService struct {
	signingKey []byte
	ttl        time.Duration
	clock      Clock
	parser     *jwt.Parser
}

type Option func(*JWTService)

// WithClock overrides time.Now for issuance and expiry checks.
func WithClock(clock Clock) Option {
	return func(s *JWTService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewJWTService(signingKey []byte, ttl time.Duration, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey: signingKey,
		ttl:        ttl,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Expiry is checked in Verify: a token stays valid up to and including exp.
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	return s
}

// Issue signs a token for identity valid for the configured TTL.
func (s *JWTService) Issue(identity string) (Token, error) {
	now := s.clock()
	expiresAt := now.Add(s.ttl)
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})

	signed, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return Token{}, err
	}
	return Token{
		raw:       signed,
		subject:   identity,
		issuedAt:  now.Truncate(jwt.TimePrecision),
		expiresAt: expiresAt.Truncate(jwt.TimePrecision),
	}, nil
}

// Verify checks the signature, then expiry, and returns the token's claims.
func (s *JWTService) Verify(tokenString string) (Token, error) {
	if strings.Count(tokenString, ".") != 2 {
		return Token{}, ErrMalformed
	}

	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		return Token{}, s.classify(tokenString, err)
	}

	if claims.ExpiresAt == nil {
		return Token{}, ErrMalformed
	}
	if s.clock().After(claims.ExpiresAt.Time) {
		return Token{}, ErrExpired
	}

	token := Token{raw: tokenString, subject: claims.Subject, expiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		token.issuedAt = claims.IssuedAt.Time
	}
	return token, nil
}

// IsValidFor reports whether the token verifies and was issued to exactly identity.
func (s *JWTService) IsValidFor(tokenString, identity string) bool {
	token, err := s.Verify(tokenString)
	if err != nil {
		return false
	}
	return token.Subject() == identity
}

// classify maps parser errors onto the signature and format failures. A token whose
// header and claims decode but whose signature segment does not is a signature
// failure, not a malformed token.
func (s *JWTService) classify(tokenString string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		if _, _, perr := s.parser.ParseUnverified(tokenString, &Claims{}); perr == nil {
			return ErrSignatureInvalid
		}
		return ErrMalformed
	default:
		return ErrMalformed
	}
}
