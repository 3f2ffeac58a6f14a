// Package auth holds login and bearer-token steps.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

const authenticatePath = "/api/v1/auth/authenticate"

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetAccessToken() string
	SetAccessToken(token string)
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I authenticate as "([^"]*)" with password "([^"]*)"$`, steps.authenticate)
	ctx.Step(`^I save the token$`, steps.saveToken)
	ctx.Step(`^I GET "([^"]*)" with my token$`, steps.getWithToken)
	ctx.Step(`^I GET "([^"]*)" with a tampered token$`, steps.getWithTamperedToken)
	ctx.Step(`^I GET "([^"]*)" with invalid token "([^"]*)"$`, steps.getWithInvalidToken)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) authenticate(ctx context.Context, email, password string) error {
	return s.tc.POST(authenticatePath, map[string]string{"email": email, "password": password})
}

func (s *authSteps) saveToken(ctx context.Context) error {
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("cannot save token from a %d response", status)
	}
	v, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	token, ok := v.(string)
	if !ok || strings.Count(token, ".") != 2 {
		return fmt.Errorf("token %v is not a compact JWT", v)
	}
	s.tc.SetAccessToken(token)
	return nil
}

func (s *authSteps) getWithToken(ctx context.Context, path string) error {
	if s.tc.GetAccessToken() == "" {
		return fmt.Errorf("no saved token")
	}
	return s.tc.GET(path, map[string]string{"Authorization": "Bearer " + s.tc.GetAccessToken()})
}

// getWithTamperedToken flips the first signature character of the saved token.
func (s *authSteps) getWithTamperedToken(ctx context.Context, path string) error {
	token := s.tc.GetAccessToken()
	sig := strings.LastIndex(token, ".") + 1
	if sig <= 0 || sig >= len(token) {
		return fmt.Errorf("no saved token")
	}
	replacement := "A"
	if token[sig] == 'A' {
		replacement = "B"
	}
	tampered := token[:sig] + replacement + token[sig+1:]
	return s.tc.GET(path, map[string]string{"Authorization": "Bearer " + tampered})
}

func (s *authSteps) getWithInvalidToken(ctx context.Context, path, token string) error {
	return s.tc.GET(path, map[string]string{"Authorization": "Bearer " + token})
}
