// Package aggregate turns a raw list of country codes into continent groups.
package aggregate

import (
	"context"
	"slices"

	"countriapi/internal/countries/models"
	dErrors "countriapi/pkg/domain-errors"
	strutil "countriapi/pkg/platform/strings"
)

const (
	MsgInvalidLength  = "Country code must be 2 characters long"
	MsgNoValidEntries = "The list of countries contains only invalid country codes."
)

// CountryStore resolves codes to countries. Unknown codes are simply absent
// from the result; the order of the result is not significant.
type CountryStore interface {
	FindByCodes(ctx context.Context, codes []string) ([]models.Country, error)
}

// NormalizeCodes strips all whitespace, upper-cases and deduplicates raw while
// keeping first-seen order. Any resulting code that is not exactly two
// characters long rejects the whole input.
func NormalizeCodes(raw []string) ([]string, error) {
	codes := strutil.DedupeFunc(raw, strutil.StripUpper)
	for _, code := range codes {
		if len([]rune(code)) != 2 {
			return nil, dErrors.New(dErrors.CodeValidation, MsgInvalidLength)
		}
	}
	return codes, nil
}

// GroupByContinent resolves codes with a single store call and groups the
// matches by continent. Groups appear in the order their first code appears in
// codes; unmatched codes are dropped. When nothing matches the call fails with
// CodeNoValidEntries.
func GroupByContinent(ctx context.Context, codes []string, store CountryStore) ([]models.ContinentGroup, error) {
	if len(codes) == 0 {
		return nil, dErrors.New(dErrors.CodeNoValidEntries, MsgNoValidEntries)
	}

	found, err := store.FindByCodes(ctx, codes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up countries")
	}

	byCode := make(map[string]models.Country, len(found))
	for _, c := range found {
		byCode[c.Code] = c
	}

	var (
		order    []string
		builders = make(map[string]*groupBuilder)
	)
	for _, code := range codes {
		country, ok := byCode[code]
		if !ok {
			continue
		}
		b, ok := builders[country.Continent.Code]
		if !ok {
			b = newGroupBuilder(country.Continent)
			builders[country.Continent.Code] = b
			order = append(order, country.Continent.Code)
		}
		b.add(country.Code)
	}

	if len(order) == 0 {
		return nil, dErrors.New(dErrors.CodeNoValidEntries, MsgNoValidEntries)
	}

	groups := make([]models.ContinentGroup, 0, len(order))
	for _, continentCode := range order {
		groups = append(groups, builders[continentCode].build())
	}
	return groups, nil
}

// groupBuilder accumulates requested codes for one continent. otherCountries
// is recomputed from the full membership on every addition.
type groupBuilder struct {
	name      string
	members   []string
	requested []string
	others    []string
}

func newGroupBuilder(c models.Continent) *groupBuilder {
	return &groupBuilder{
		name:    c.Name,
		members: slices.Clone(c.Members),
		others:  slices.Clone(c.Members),
	}
}

func (b *groupBuilder) add(code string) {
	if slices.Contains(b.requested, code) {
		return
	}
	b.requested = append(b.requested, code)
	b.others = membersExcept(b.members, b.requested)
}

// membersExcept returns members minus requested, in membership order.
func membersExcept(members, requested []string) []string {
	others := make([]string, 0, len(members))
	for _, m := range members {
		if !slices.Contains(requested, m) {
			others = append(others, m)
		}
	}
	return others
}

func (b *groupBuilder) build() models.ContinentGroup {
	others := slices.Clone(b.others)
	if others == nil {
		others = []string{}
	}
	return models.ContinentGroup{
		Countries:      slices.Clone(b.requested),
		Name:           b.name,
		OtherCountries: others,
	}
}
