// Package cache is a Redis read-through decorator for country lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"countriapi/internal/countries/models"
)

const (
	keyPrefix  = "countries:code:"
	DefaultTTL = time.Hour
)

// Source is the store being cached.
type Source interface {
	FindByCodes(ctx context.Context, codes []string) ([]models.Country, error)
}

type Store struct {
	client *redis.Client
	next   Source
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func New(client *redis.Client, next Source, opts ...Option) *Store {
	s := &Store{
		client: client,
		next:   next,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the cache key of a country code.
func Key(code string) string {
	return keyPrefix + code
}

type entry struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	ContinentCode string   `json:"continentCode"`
	ContinentName string   `json:"continentName"`
	Members       []string `json:"members"`
}

func toEntry(c models.Country) entry {
	return entry{
		Code:          c.Code,
		Name:          c.Name,
		ContinentCode: c.Continent.Code,
		ContinentName: c.Continent.Name,
		Members:       c.Continent.Members,
	}
}

func (e entry) country() models.Country {
	return models.Country{
		Code: e.Code,
		Name: e.Name,
		Continent: models.Continent{
			Code:    e.ContinentCode,
			Name:    e.ContinentName,
			Members: e.Members,
		},
	}
}

// FindByCodes serves cached countries from Redis and fetches all misses from
// the wrapped store in a single call. Any Redis failure degrades to the wrapped
// store for the whole request.
func (s *Store) FindByCodes(ctx context.Context, codes []string) ([]models.Country, error) {
	if len(codes) == 0 {
		return s.next.FindByCodes(ctx, codes)
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = Key(code)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		s.warn(ctx, "country cache read failed", err)
		return s.next.FindByCodes(ctx, codes)
	}

	out := make([]models.Country, 0, len(codes))
	var misses []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			misses = append(misses, codes[i])
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			misses = append(misses, codes[i])
			continue
		}
		out = append(out, e.country())
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := s.next.FindByCodes(ctx, misses)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, fetched)
	return append(out, fetched...), nil
}

func (s *Store) fill(ctx context.Context, countries []models.Country) {
	if len(countries) == 0 {
		return
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range countries {
			payload, err := json.Marshal(toEntry(c))
			if err != nil {
				return fmt.Errorf("encode country %s: %w", c.Code, err)
			}
			pipe.Set(ctx, Key(c.Code), payload, s.ttl)
		}
		return nil
	})
	if err != nil {
		s.warn(ctx, "country cache write failed", err)
	}
}

// Invalidate drops the cached entries for codes.
func (s *Store) Invalidate(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = Key(code)
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) warn(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "error", err)
	}
}
