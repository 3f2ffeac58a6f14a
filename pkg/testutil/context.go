package testutil

import (
	"net/http"
	"time"

	"countriapi/pkg/requestcontext"
)

// WithIdentity marks the request as carrying a verified identity, the state
// the pipeline leaves behind after a valid bearer token.
func WithIdentity(req *http.Request, identity string) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), identity))
}

// WithClientIP sets the client IP the metadata middleware would derive.
func WithClientIP(req *http.Request, ip string) *http.Request {
	return req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
