package user

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"countriapi/internal/auth/models"
	"countriapi/pkg/platform/sentinel"
	"countriapi/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the users table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, user *models.User) error {
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (email, password_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash
	`, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByIdentity(ctx context.Context, identity string) (*models.User, error) {
	var u models.User
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT email, password_hash, created_at FROM users WHERE email = $1
	`, identity).Scan(&u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by identity: %w", err)
	}
	return &u, nil
}
