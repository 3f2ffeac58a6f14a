package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countriapi/internal/countries/models"
	dErrors "countriapi/pkg/domain-errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func graphQLServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, continentsQuery, req.Query)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchContinents(t *testing.T) {
	t.Run("decodes continents and countries", func(t *testing.T) {
		srv := graphQLServer(t, http.StatusOK, `{"data":{"continents":[
			{"code":"EU","name":"Europe","countries":[{"code":"IT","name":"Italy"},{"code":"FR","name":"France"}]},
			{"code":"OC","name":"Oceania","countries":[{"code":"NZ","name":"New Zealand"}]}
		]}}`)

		records, err := NewClient(srv.URL, WithLogger(discardLogger())).FetchContinents(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Europe", records[0].Name)
		assert.Equal(t, []string{"IT", "FR"}, records[0].Continent().Members)
		assert.Equal(t, models.CountryRecord{Code: "NZ", Name: "New Zealand"}, records[1].Countries[0])
	})

	t.Run("graphql errors fail the call", func(t *testing.T) {
		srv := graphQLServer(t, http.StatusOK, `{"data":null,"errors":[{"message":"boom"},{"message":"again"}]}`)

		_, err := NewClient(srv.URL, WithLogger(discardLogger())).FetchContinents(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom; again")
	})

	t.Run("non-200 status fails", func(t *testing.T) {
		srv := graphQLServer(t, http.StatusBadGateway, "upstream down")

		_, err := NewClient(srv.URL, WithLogger(discardLogger())).FetchContinents(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("empty dataset fails", func(t *testing.T) {
		srv := graphQLServer(t, http.StatusOK, `{"data":{"continents":[]}}`)

		_, err := NewClient(srv.URL, WithLogger(discardLogger())).FetchContinents(context.Background())
		assert.ErrorIs(t, err, ErrNoContinents)
	})

	t.Run("malformed body fails", func(t *testing.T) {
		srv := graphQLServer(t, http.StatusOK, `{"data":`)

		_, err := NewClient(srv.URL, WithLogger(discardLogger())).FetchContinents(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode graphql response")
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(func() {
			close(release)
			srv.Close()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := NewClient(srv.URL, WithLogger(discardLogger())).FetchContinents(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("empty url falls back to the public endpoint", func(t *testing.T) {
		assert.Equal(t, DefaultURL, NewClient("").url)
	})
}

type stubSource struct {
	records []models.ContinentRecord
	err     error
}

func (s stubSource) FetchContinents(context.Context) ([]models.ContinentRecord, error) {
	return s.records, s.err
}

type recordingSink struct {
	got []models.ContinentRecord
	err error
}

func (s *recordingSink) UpsertContinents(_ context.Context, records []models.ContinentRecord) error {
	s.got = records
	return s.err
}

type recordingInvalidator struct {
	codes []string
	err   error
}

func (i *recordingInvalidator) Invalidate(_ context.Context, codes ...string) error {
	i.codes = append(i.codes, codes...)
	return i.err
}

func TestLoaderRun(t *testing.T) {
	records := []models.ContinentRecord{
		{Code: "EU", Name: "Europe", Countries: []models.CountryRecord{{Code: "IT"}, {Code: "FR"}}},
		{Code: "SA", Name: "South America", Countries: []models.CountryRecord{{Code: "BR"}}},
	}

	t.Run("writes the fetched dataset", func(t *testing.T) {
		sink := &recordingSink{}
		loader, err := NewLoader(stubSource{records: records}, sink, discardLogger())
		require.NoError(t, err)

		stats, err := loader.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Stats{Continents: 2, Countries: 3}, stats)
		assert.Equal(t, records, sink.got)
	})

	t.Run("fetch failure skips the write", func(t *testing.T) {
		sink := &recordingSink{}
		loader, err := NewLoader(stubSource{err: errors.New("offline")}, sink, discardLogger())
		require.NoError(t, err)

		_, err = loader.Run(context.Background())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
		assert.Nil(t, sink.got)
	})

	t.Run("write failure is internal", func(t *testing.T) {
		loader, err := NewLoader(stubSource{records: records}, &recordingSink{err: errors.New("disk full")}, discardLogger())
		require.NoError(t, err)

		_, err = loader.Run(context.Background())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("invalidates every loaded country", func(t *testing.T) {
		inv := &recordingInvalidator{}
		loader, err := NewLoader(stubSource{records: records}, &recordingSink{}, discardLogger(), WithInvalidator(inv))
		require.NoError(t, err)

		_, err = loader.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"IT", "FR", "BR"}, inv.codes)
	})

	t.Run("invalidation failure does not fail the load", func(t *testing.T) {
		inv := &recordingInvalidator{err: errors.New("redis down")}
		loader, err := NewLoader(stubSource{records: records}, &recordingSink{}, discardLogger(), WithInvalidator(inv))
		require.NoError(t, err)

		stats, err := loader.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Countries)
	})

	t.Run("failed write skips invalidation", func(t *testing.T) {
		inv := &recordingInvalidator{}
		loader, err := NewLoader(stubSource{records: records}, &recordingSink{err: errors.New("disk full")}, discardLogger(), WithInvalidator(inv))
		require.NoError(t, err)

		_, err = loader.Run(context.Background())
		require.Error(t, err)
		assert.Empty(t, inv.codes)
	})

	t.Run("requires collaborators", func(t *testing.T) {
		_, err := NewLoader(nil, &recordingSink{}, nil)
		assert.Error(t, err)
		_, err = NewLoader(stubSource{}, nil, nil)
		assert.Error(t, err)
	})
}
