// Package postgres is the PostgreSQL-backed country store.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/lib/pq"

	"countriapi/internal/countries/models"
	"countriapi/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the continents and countries tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure countries schema: %w", err)
	}
	return nil
}

const findByCodesQuery = `
	SELECT c.code, c.name, ct.code, ct.name,
		ARRAY(
			SELECT m.code FROM countries m
			WHERE m.continent_code = ct.code
			ORDER BY m.code
		) AS members
	FROM countries c
	JOIN continents ct ON ct.code = c.continent_code
	WHERE c.code = ANY($1)
`

// FindByCodes resolves all codes in one query, each row carrying the full
// membership of its continent.
func (s *Store) FindByCodes(ctx context.Context, codes []string) ([]models.Country, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, findByCodesQuery, pq.Array(codes))
	if err != nil {
		return nil, fmt.Errorf("find countries by codes: %w", err)
	}
	defer rows.Close()

	out := make([]models.Country, 0, len(codes))
	for rows.Next() {
		var (
			country models.Country
			members []string
		)
		if err := rows.Scan(&country.Code, &country.Name, &country.Continent.Code, &country.Continent.Name, pq.Array(&members)); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		country.Continent.Members = members
		out = append(out, country)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate countries: %w", err)
	}
	return out, nil
}

// UpsertContinents writes continents and their countries in one transaction.
// Existing rows are updated in place so the load can be repeated.
func (s *Store) UpsertContinents(ctx context.Context, records []models.ContinentRecord) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		exec := tx.Executor(ctx, s.db)
		for _, r := range records {
			if _, err := exec.ExecContext(ctx, `
				INSERT INTO continents (code, name) VALUES ($1, $2)
				ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
			`, r.Code, r.Name); err != nil {
				return fmt.Errorf("upsert continent %s: %w", r.Code, err)
			}
			for _, c := range r.Countries {
				if _, err := exec.ExecContext(ctx, `
					INSERT INTO countries (code, name, continent_code) VALUES ($1, $2, $3)
					ON CONFLICT (code) DO UPDATE SET
						name = EXCLUDED.name,
						continent_code = EXCLUDED.continent_code
				`, c.Code, c.Name, r.Code); err != nil {
					return fmt.Errorf("upsert country %s: %w", c.Code, err)
				}
			}
		}
		return nil
	})
}

// Count returns the number of stored countries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM countries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count countries: %w", err)
	}
	return n, nil
}
