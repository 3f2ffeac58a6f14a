// Package memory serves country lookups from an immutable in-process index.
package memory

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"countriapi/internal/countries/models"
)

//go:embed fixture/continents.json
var fixtureJSON []byte

// Store is read-only after construction and safe for concurrent use.
type Store struct {
	records   []models.ContinentRecord
	countries map[string]models.Country
}

// New indexes records by country code. A country listed under two continents
// keeps the first one.
func New(records []models.ContinentRecord) *Store {
	s := &Store{
		records:   slices.Clone(records),
		countries: make(map[string]models.Country),
	}
	for _, r := range records {
		continent := r.Continent()
		for _, c := range r.Countries {
			if _, exists := s.countries[c.Code]; exists {
				continue
			}
			s.countries[c.Code] = models.Country{Code: c.Code, Name: c.Name, Continent: continent}
		}
	}
	return s
}

// LoadFixture builds a store from the embedded continents snapshot.
func LoadFixture() (*Store, error) {
	records, err := FixtureRecords()
	if err != nil {
		return nil, err
	}
	return New(records), nil
}

// FixtureRecords decodes the embedded snapshot, which has the same shape as the
// countries GraphQL API response.
func FixtureRecords() ([]models.ContinentRecord, error) {
	var payload struct {
		Data struct {
			Continents []models.ContinentRecord `json:"continents"`
		} `json:"data"`
	}
	if err := json.Unmarshal(fixtureJSON, &payload); err != nil {
		return nil, fmt.Errorf("decode continents fixture: %w", err)
	}
	return payload.Data.Continents, nil
}

func (s *Store) FindByCodes(ctx context.Context, codes []string) ([]models.Country, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.Country, 0, len(codes))
	for _, code := range codes {
		if c, ok := s.countries[code]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Records returns the continents the store was built from.
func (s *Store) Records() []models.ContinentRecord {
	return slices.Clone(s.records)
}

// Len reports the number of indexed countries.
func (s *Store) Len() int {
	return len(s.countries)
}
