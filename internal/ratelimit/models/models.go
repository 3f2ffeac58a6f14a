package models

import (
	"time"

	dErrors "countriapi/pkg/domain-errors"
)

// MsgRateLimitExceeded is the client-facing message of every rate limit rejection.
const MsgRateLimitExceeded = "Sorry, we couldn't complete your request at this time. " +
	"The server has received more requests than the allowed limit. " +
	"Please try again later or contact support if the problem persists."

// Tier is an access class with its own rate limit.
type Tier string

const (
	TierPublic        Tier = "public"
	TierAuthenticated Tier = "authenticated"
)

// IsValid checks if the tier is one of the supported values.
func (t Tier) IsValid() bool {
	return t == TierPublic || t == TierAuthenticated
}

func (t Tier) String() string {
	return string(t)
}

// Limit is the fixed-window configuration of one tier.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// Validate enforces positive limits.
func (l Limit) Validate() error {
	if l.RequestsPerWindow <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "requests per window must be positive")
	}
	if l.Window <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "window must be positive")
	}
	return nil
}

// RateLimitResult represents the outcome of one admission check.
type RateLimitResult struct {
	Tier       Tier          `json:"tier"`
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"-"` // only set when not allowed
	Degraded   bool          `json:"-"` // decided by the in-process fallback
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1.
func (r *RateLimitResult) RetryAfterSeconds() int {
	secs := int((r.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
