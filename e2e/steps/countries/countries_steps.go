// Package countries asserts on continent-grouped lookup responses.
package countries

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GetLastResponseBody() []byte
}

type continentGroup struct {
	Countries      []string `json:"countries"`
	Name           string   `json:"name"`
	OtherCountries []string `json:"otherCountries"`
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &countriesSteps{tc: tc}

	ctx.Step(`^the response should contain (\d+) continent groups?$`, steps.groupCount)
	ctx.Step(`^the continents should be in order "([^"]*)"$`, steps.continentOrder)
	ctx.Step(`^continent "([^"]*)" should list countries "([^"]*)"$`, steps.continentCountries)
	ctx.Step(`^continent "([^"]*)" should not list "([^"]*)" among its other countries$`, steps.notInOthers)
	ctx.Step(`^continent "([^"]*)" should have (\d+) other countries$`, steps.otherCount)
}

type countriesSteps struct {
	tc TestContext
}

func (s *countriesSteps) groups() ([]continentGroup, error) {
	var groups []continentGroup
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &groups); err != nil {
		return nil, fmt.Errorf("response is not a list of continent groups: %w", err)
	}
	return groups, nil
}

func (s *countriesSteps) group(name string) (continentGroup, error) {
	groups, err := s.groups()
	if err != nil {
		return continentGroup{}, err
	}
	for _, g := range groups {
		if g.Name == name {
			return g, nil
		}
	}
	return continentGroup{}, fmt.Errorf("continent %q not in response", name)
}

func (s *countriesSteps) groupCount(ctx context.Context, n int) error {
	groups, err := s.groups()
	if err != nil {
		return err
	}
	if len(groups) != n {
		return fmt.Errorf("expected %d groups, got %d", n, len(groups))
	}
	return nil
}

func (s *countriesSteps) continentOrder(ctx context.Context, csv string) error {
	groups, err := s.groups()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	if want := splitList(csv); !slices.Equal(names, want) {
		return fmt.Errorf("expected continents %v, got %v", want, names)
	}
	return nil
}

func (s *countriesSteps) continentCountries(ctx context.Context, name, csv string) error {
	g, err := s.group(name)
	if err != nil {
		return err
	}
	if want := splitList(csv); !slices.Equal(g.Countries, want) {
		return fmt.Errorf("expected %s countries %v, got %v", name, want, g.Countries)
	}
	return nil
}

func (s *countriesSteps) notInOthers(ctx context.Context, name, code string) error {
	g, err := s.group(name)
	if err != nil {
		return err
	}
	if slices.Contains(g.OtherCountries, code) {
		return fmt.Errorf("%s lists %s among other countries", name, code)
	}
	return nil
}

func (s *countriesSteps) otherCount(ctx context.Context, name string, n int) error {
	g, err := s.group(name)
	if err != nil {
		return err
	}
	if len(g.OtherCountries) != n {
		return fmt.Errorf("expected %d other countries in %s, got %d", n, name, len(g.OtherCountries))
	}
	return nil
}

func splitList(csv string) []string {
	parts := strings.Split(csv, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
