package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"countriapi/internal/auth/models"
)

// Hasher produces password hashes for seeded users.
type Hasher interface {
	Hash(plain string) (string, error)
}

// Saver is implemented by both user stores.
type Saver interface {
	Save(ctx context.Context, user *models.User) error
}

// ParseSeed parses "email:password,email:password". The password is
// everything after the first colon, so it may itself contain colons.
func ParseSeed(list string) (map[string]string, error) {
	users := make(map[string]string)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		email, password, ok := strings.Cut(entry, ":")
		email = strings.TrimSpace(email)
		if !ok || email == "" || password == "" {
			return nil, fmt.Errorf("invalid seed user entry %q: want email:password", entry)
		}
		users[email] = password
	}
	return users, nil
}

// Seed hashes and saves every user in list. It returns the number of users saved.
func Seed(ctx context.Context, store Saver, hasher Hasher, list string, now time.Time) (int, error) {
	users, err := ParseSeed(list)
	if err != nil {
		return 0, err
	}
	for email, password := range users {
		hash, err := hasher.Hash(password)
		if err != nil {
			return 0, err
		}
		if err := store.Save(ctx, &models.User{Email: email, PasswordHash: hash, CreatedAt: now}); err != nil {
			return 0, fmt.Errorf("seed user %s: %w", email, err)
		}
	}
	return len(users), nil
}
