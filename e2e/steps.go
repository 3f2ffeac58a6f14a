package e2e

import (
	"github.com/cucumber/godog"

	"countriapi/e2e/steps/auth"
	"countriapi/e2e/steps/common"
	"countriapi/e2e/steps/countries"
	"countriapi/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	countries.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
