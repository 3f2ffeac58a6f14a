//go:build integration

package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"countriapi/internal/auth/models"
	"countriapi/internal/auth/store/user"
	"countriapi/pkg/platform/sentinel"
	"countriapi/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = user.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func (s *PostgresUserStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	u := &models.User{Email: "jane@example.com", PasswordHash: "hash-1", CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	s.Require().NoError(s.store.Save(ctx, u))

	found, err := s.store.FindByIdentity(ctx, u.Email)
	s.Require().NoError(err)
	s.Equal(u.Email, found.Email)
	s.Equal(u.PasswordHash, found.PasswordHash)
	s.True(u.CreatedAt.Equal(found.CreatedAt))

	u.PasswordHash = "hash-2"
	s.Require().NoError(s.store.Save(ctx, u))
	found, err = s.store.FindByIdentity(ctx, u.Email)
	s.Require().NoError(err)
	s.Equal("hash-2", found.PasswordHash)
}

func (s *PostgresUserStoreSuite) TestNotFound() {
	_, err := s.store.FindByIdentity(context.Background(), "missing@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
