package ingest

import (
	"context"
	"errors"
	"log/slog"

	"countriapi/internal/countries/models"
	dErrors "countriapi/pkg/domain-errors"
)

// Source yields the full continent dataset.
type Source interface {
	FetchContinents(ctx context.Context) ([]models.ContinentRecord, error)
}

// Sink persists continents, replacing any previous membership.
type Sink interface {
	UpsertContinents(ctx context.Context, records []models.ContinentRecord) error
}

// Invalidator drops cached copies of countries after they are rewritten.
type Invalidator interface {
	Invalidate(ctx context.Context, codes ...string) error
}

type Loader struct {
	source      Source
	sink        Sink
	invalidator Invalidator
	logger      *slog.Logger
}

type LoaderOption func(*Loader)

func WithInvalidator(inv Invalidator) LoaderOption {
	return func(l *Loader) {
		l.invalidator = inv
	}
}

func NewLoader(source Source, sink Sink, logger *slog.Logger, opts ...LoaderOption) (*Loader, error) {
	if source == nil {
		return nil, errors.New("continent source is required")
	}
	if sink == nil {
		return nil, errors.New("continent sink is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{source: source, sink: sink, logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Stats summarizes one load.
type Stats struct {
	Continents int
	Countries  int
}

// Run fetches the dataset and writes it in one upsert.
func (l *Loader) Run(ctx context.Context) (Stats, error) {
	records, err := l.source.FetchContinents(ctx)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch continents")
	}

	stats := Stats{Continents: len(records)}
	var codes []string
	for _, r := range records {
		stats.Countries += len(r.Countries)
		for _, c := range r.Countries {
			codes = append(codes, c.Code)
		}
	}

	if err := l.sink.UpsertContinents(ctx, records); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store continents")
	}

	// On failure the stale entries live until their TTL.
	if l.invalidator != nil {
		if err := l.invalidator.Invalidate(ctx, codes...); err != nil {
			l.logger.WarnContext(ctx, "country cache invalidation failed", "error", err)
		}
	}

	l.logger.InfoContext(ctx, "continents loaded",
		"continents", stats.Continents,
		"countries", stats.Countries,
	)
	return stats, nil
}
