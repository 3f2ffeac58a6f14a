// Package ingest pulls continent reference data from the public countries
// GraphQL API and loads it into a continent store.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"countriapi/internal/countries/models"
)

const (
	DefaultURL = "https://countries.trevorblades.com/"

	continentsQuery = "{ continents { code name countries { code name } } }"

	// maxResponseBytes bounds the decoded payload; the full dataset is well under 100KB.
	maxResponseBytes = 4 << 20
)

var ErrNoContinents = errors.New("graphql response contained no continents")

// Client queries a GraphQL endpoint for continents and their countries.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type continentsResponse struct {
	Data struct {
		Continents []models.ContinentRecord `json:"continents"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// FetchContinents runs the continents query. A non-empty GraphQL errors array
// fails the call even when partial data is present.
func (c *Client) FetchContinents(ctx context.Context) ([]models.ContinentRecord, error) {
	body, err := json.Marshal(graphQLRequest{Query: continentsQuery})
	if err != nil {
		return nil, fmt.Errorf("encode graphql query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query continents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("query continents: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload continentsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(payload.Errors) > 0 {
		msgs := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}
	if len(payload.Data.Continents) == 0 {
		return nil, ErrNoContinents
	}

	c.logger.InfoContext(ctx, "fetched continents",
		"url", c.url,
		"continents", len(payload.Data.Continents),
	)
	return payload.Data.Continents, nil
}
