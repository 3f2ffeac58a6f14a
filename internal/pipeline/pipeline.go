// Package pipeline runs a country lookup through its ordered stages: tier
// resolution, bearer token check, rate limiting, the authentication
// requirement, normalization and aggregation.
//
// Rate limiting always happens before the authentication requirement is
// enforced, so an unauthenticated caller on the authenticated tier still
// consumes that tier's budget and sees 429 before 401.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	authmodels "countriapi/internal/auth/models"
	"countriapi/internal/countries/aggregate"
	"countriapi/internal/countries/models"
	jwttoken "countriapi/internal/jwt_token"
	rlmodels "countriapi/internal/ratelimit/models"
	dErrors "countriapi/pkg/domain-errors"
	"countriapi/pkg/requestcontext"
)

const (
	MsgRateLimited     = rlmodels.MsgRateLimitExceeded
	MsgUnauthenticated = "Full authentication is required to access this resource."
	MsgEmptyInput      = "No country codes were provided."

	bearerPrefix = "Bearer "

	tracerName = "countriapi/internal/pipeline"
)

type TokenVerifier interface {
	Verify(tokenString string) (jwttoken.Token, error)
	IsValidFor(tokenString, identity string) bool
}

type CredentialStore interface {
	FindByIdentity(ctx context.Context, identity string) (*authmodels.User, error)
}

type RateLimiter interface {
	Admit(ctx context.Context, tier rlmodels.Tier) (*rlmodels.RateLimitResult, error)
}

// Observer receives every state transition in order.
type Observer func(ctx context.Context, t Transition)

// Request is one lookup as seen by the pipeline.
type Request struct {
	Tier          rlmodels.Tier
	Authorization string
	RawCodes      []string
}

// Result carries everything the transport needs, including on failure: the
// rate limit decision is set whenever the limiter ran.
type Result struct {
	State     State
	Identity  string
	RateLimit *rlmodels.RateLimitResult
	Groups    []models.ContinentGroup
}

type Pipeline struct {
	tokens      TokenVerifier
	credentials CredentialStore
	limiter     RateLimiter
	countries   aggregate.CountryStore
	observers   []Observer
	logger      *slog.Logger
	tracer      trace.Tracer
}

type Option func(*Pipeline)

// WithObserver registers an observer; several may be registered.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// WithLogger logs every transition at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithTracerProvider records one span per request on tp instead of the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		p.tracer = tp.Tracer(tracerName)
	}
}

func New(tokens TokenVerifier, credentials CredentialStore, limiter RateLimiter, countries aggregate.CountryStore, opts ...Option) (*Pipeline, error) {
	if tokens == nil {
		return nil, errors.New("token verifier is required")
	}
	if credentials == nil {
		return nil, errors.New("credential store is required")
	}
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if countries == nil {
		return nil, errors.New("country store is required")
	}

	p := &Pipeline{
		tokens:      tokens,
		credentials: credentials,
		limiter:     limiter,
		countries:   countries,
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// run tracks the current state of one request.
type run struct {
	p      *Pipeline
	ctx    context.Context
	span   trace.Span
	result *Result
}

func (r *run) advance(to State) {
	from := r.result.State
	r.result.State = to
	r.span.AddEvent(to.String())
	r.p.notify(r.ctx, Transition{From: from, To: to})
}

func (r *run) fail(err error) (*Result, error) {
	from := r.result.State
	r.result.State = Failed
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, from.String())
	r.p.notify(r.ctx, Transition{From: from, To: Failed, Err: err})
	return r.result, err
}

// Handle processes one lookup. The returned Result is never nil.
func (p *Pipeline) Handle(ctx context.Context, req Request) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Handle",
		trace.WithAttributes(
			attribute.String("tier", req.Tier.String()),
			attribute.Int("codes.raw", len(req.RawCodes)),
		),
	)
	defer span.End()

	r := &run{p: p, ctx: ctx, span: span, result: &Result{State: Received}}

	if !req.Tier.IsValid() {
		return r.fail(dErrors.New(dErrors.CodeInternal, "unknown tier "+req.Tier.String()))
	}
	r.advance(TierResolved)

	if req.Tier == rlmodels.TierAuthenticated {
		r.result.Identity = p.resolveIdentity(ctx, req.Authorization)
		if r.result.Identity != "" {
			ctx = requestcontext.WithIdentity(ctx, r.result.Identity)
			r.ctx = ctx
		}
		r.advance(TokenChecked)
	}

	decision, err := p.limiter.Admit(ctx, req.Tier)
	if err != nil {
		return r.fail(err)
	}
	r.result.RateLimit = decision
	if !decision.Allowed {
		return r.fail(dErrors.New(dErrors.CodeTooManyRequests, MsgRateLimited))
	}
	r.advance(RateLimitChecked)

	if req.Tier == rlmodels.TierAuthenticated && r.result.Identity == "" {
		return r.fail(dErrors.New(dErrors.CodeUnauthorized, MsgUnauthenticated))
	}

	if len(req.RawCodes) == 0 {
		return r.fail(dErrors.New(dErrors.CodeBadRequest, MsgEmptyInput))
	}

	codes, err := aggregate.NormalizeCodes(req.RawCodes)
	if err != nil {
		return r.fail(err)
	}
	r.advance(Normalized)

	groups, err := aggregate.GroupByContinent(ctx, codes, p.countries)
	if err != nil {
		return r.fail(err)
	}
	r.result.Groups = groups
	span.SetAttributes(attribute.Int("groups", len(groups)))
	r.advance(Aggregated)

	r.advance(Responded)
	return r.result, nil
}

// resolveIdentity returns the verified subject of the bearer token, or "" when
// the header is missing, the token does not verify, or its subject no longer
// has a credential. It never fails the request on its own.
func (p *Pipeline) resolveIdentity(ctx context.Context, authorization string) string {
	tokenString, ok := BearerToken(authorization)
	if !ok {
		return ""
	}

	token, err := p.tokens.Verify(tokenString)
	if err != nil {
		if p.logger != nil {
			p.logger.DebugContext(ctx, "bearer token rejected", "error", err)
		}
		return ""
	}

	user, err := p.credentials.FindByIdentity(ctx, token.Subject())
	if err != nil {
		if p.logger != nil {
			p.logger.DebugContext(ctx, "token subject has no credential", "error", err)
		}
		return ""
	}

	if !p.tokens.IsValidFor(tokenString, user.Email) {
		return ""
	}
	return user.Email
}

func (p *Pipeline) notify(ctx context.Context, t Transition) {
	if p.logger != nil {
		attrs := []any{"from", t.From.String(), "to", t.To.String()}
		if t.Err != nil {
			attrs = append(attrs, "error", t.Err)
		}
		p.logger.DebugContext(ctx, "pipeline transition", attrs...)
	}
	for _, o := range p.observers {
		o(ctx, t)
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
