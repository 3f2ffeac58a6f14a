package jwttoken

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	signingKey = []byte("0123456789abcdef0123456789abcdef")
	subject    = "jane.doe@example.com"
	ttl        = 10 * time.Minute
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newService(clock *fakeClock) *JWTService {
	return NewJWTService(signingKey, ttl, WithClock(clock.Now))
}

func Test_Issue(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	svc := newService(clock)

	token, err := svc.Issue(subject)
	require.NoError(t, err)
	assert.Equal(t, subject, token.Subject())
	assert.True(t, clock.now.Equal(token.IssuedAt()))
	assert.True(t, clock.now.Add(ttl).Equal(token.ExpiresAt()))
	assert.Len(t, strings.Split(token.String(), "."), 3)
}

func Test_Verify_RoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	svc := newService(clock)

	issued, err := svc.Issue(subject)
	require.NoError(t, err)

	verified, err := svc.Verify(issued.String())
	require.NoError(t, err)
	assert.Equal(t, subject, verified.Subject())
	assert.True(t, issued.ExpiresAt().Equal(verified.ExpiresAt()))
	assert.True(t, issued.IssuedAt().Equal(verified.IssuedAt()))
}

func Test_Verify_Expired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	svc := newService(clock)

	issued, err := svc.Issue(subject)
	require.NoError(t, err)

	clock.now = clock.now.Add(ttl - time.Second)
	_, err = svc.Verify(issued.String())
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Second)
	_, err = svc.Verify(issued.String())
	require.ErrorIs(t, err, ErrExpired)
}

func Test_Verify_ExpiryBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	svc := newService(clock)

	issued, err := svc.Issue(subject)
	require.NoError(t, err)

	clock.now = issued.ExpiresAt()
	verified, err := svc.Verify(issued.String())
	require.NoError(t, err, "a token is still valid at its exact expiry instant")
	assert.Equal(t, subject, verified.Subject())

	clock.now = issued.ExpiresAt().Add(time.Nanosecond)
	_, err = svc.Verify(issued.String())
	require.ErrorIs(t, err, ErrExpired)
}

func Test_Verify_MissingExpiry(t *testing.T) {
	svc := newService(&fakeClock{now: time.Now()})
	unbounded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}).SignedString(signingKey)
	require.NoError(t, err)

	_, err = svc.Verify(unbounded)
	require.ErrorIs(t, err, ErrMalformed)
}

func Test_Verify_SignatureMutation(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc := newService(clock)

	issued, err := svc.Issue(subject)
	require.NoError(t, err)
	raw := issued.String()
	sigStart := strings.LastIndex(raw, ".") + 1

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	for i := sigStart; i < len(raw); i++ {
		replacement := alphabet[(strings.IndexByte(alphabet, raw[i])+1)%len(alphabet)]
		mutated := raw[:i] + string(replacement) + raw[i+1:]

		_, err := svc.Verify(mutated)
		require.ErrorIs(t, err, ErrSignatureInvalid, "mutation at offset %d", i-sigStart)
	}
}

func Test_Verify_TamperedClaims(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc := newService(clock)

	issued, err := svc.Issue(subject)
	require.NoError(t, err)
	parts := strings.Split(issued.String(), ".")

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var claims map[string]any
	require.NoError(t, json.Unmarshal(payload, &claims))
	claims["sub"] = "mallory@example.com"
	forged, err := json.Marshal(claims)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	_, err = svc.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func Test_Verify_WrongKey(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	other := NewJWTService([]byte("another-key-another-key-another!!"), ttl, WithClock(clock.Now))

	issued, err := other.Issue(subject)
	require.NoError(t, err)

	_, err = newService(clock).Verify(issued.String())
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func Test_Verify_RejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newService(clock).Verify(raw)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func Test_Verify_Malformed(t *testing.T) {
	svc := newService(&fakeClock{now: time.Now()})

	for _, raw := range []string{"", "invalid-token-string", "a.b", "a.b.c.d", "!!!.???.***"} {
		_, err := svc.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func Test_IsValidFor(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc := newService(clock)

	issued, err := svc.Issue(subject)
	require.NoError(t, err)

	assert.True(t, svc.IsValidFor(issued.String(), subject))
	assert.False(t, svc.IsValidFor(issued.String(), strings.ToUpper(subject)))
	assert.False(t, svc.IsValidFor(issued.String(), "someone.else@example.com"))

	clock.now = clock.now.Add(ttl + time.Minute)
	assert.False(t, svc.IsValidFor(issued.String(), subject))
}
