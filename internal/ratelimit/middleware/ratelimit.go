package middleware

import (
	"net/http"
	"strconv"

	"countriapi/internal/ratelimit/models"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderStatus     = "X-RateLimit-Status"
	HeaderRetryAfter = "Retry-After"
)

// AddHeaders sets the rate limit headers for an admitted or rejected request.
func AddHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set(HeaderLimit, strconv.Itoa(result.Limit))
	w.Header().Set(HeaderRemaining, strconv.Itoa(result.Remaining))
	w.Header().Set(HeaderReset, strconv.FormatInt(result.ResetAt.Unix(), 10))
	if result.Degraded {
		w.Header().Set(HeaderStatus, "degraded")
	}
	if !result.Allowed {
		w.Header().Set(HeaderRetryAfter, strconv.Itoa(result.RetryAfterSeconds()))
	}
}
