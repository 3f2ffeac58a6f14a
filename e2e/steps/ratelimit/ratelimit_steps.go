// Package ratelimit drives bursts of lookups and checks the admitted share.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I send (\d+) lookups to "([^"]*)"$`, steps.sendLookups)
	ctx.Step(`^the rejected lookups should answer (\d+)$`, steps.rejectedStatus)
	ctx.Step(`^a rejected lookup should carry a Retry-After of at least (\d+) seconds?$`, steps.retryAfterAtLeast)
}

type ratelimitSteps struct {
	tc         TestContext
	statuses   []int
	retryAfter string
}

func (s *ratelimitSteps) sendLookups(ctx context.Context, n int, path string) error {
	s.statuses = s.statuses[:0]
	s.retryAfter = ""
	for range n {
		if err := s.tc.GET(path, nil); err != nil {
			return err
		}
		status := s.tc.GetLastResponseStatus()
		if status != 200 {
			s.retryAfter = s.tc.GetLastResponseHeader("Retry-After")
		}
		s.statuses = append(s.statuses, status)
	}
	return nil
}

func (s *ratelimitSteps) rejectedStatus(ctx context.Context, want int) error {
	rejected := 0
	for _, st := range s.statuses {
		if st == 200 {
			continue
		}
		if st != want {
			return fmt.Errorf("unexpected status %d (statuses %v)", st, s.statuses)
		}
		rejected++
	}
	if rejected == 0 {
		return fmt.Errorf("no lookup was rejected (statuses %v)", s.statuses)
	}
	return nil
}

func (s *ratelimitSteps) retryAfterAtLeast(ctx context.Context, secs int) error {
	raw := s.retryAfter
	got, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("header Retry-After %q is not a number", raw)
	}
	if got < secs {
		return fmt.Errorf("header Retry-After %d < %d", got, secs)
	}
	return nil
}
