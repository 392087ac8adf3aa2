// Package jobsearch is the client for the external job-listing aggregator API.
package jobsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/config"
)

// Searcher is implemented by the HTTP client below and by test fakes.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Posting, error)
}

type Query struct {
	Keywords  string   `json:"keywords"`
	Locations []string `json:"locations,omitempty"`
	Remote    bool     `json:"remote,omitempty"`
	MinSalary int      `json:"min_salary,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// Posting is one listing as returned by the aggregator.
type Posting struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	Remote      bool       `json:"remote"`
	Description string     `json:"description"`
	SalaryMin   int        `json:"salary_min"`
	SalaryMax   int        `json:"salary_max"`
	URL         string     `json:"url"`
	Tags        []string   `json:"tags"`
	PostedAt    *time.Time `json:"posted_at"`
}

type Client struct {
	cfg        config.SearchConfig
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewClient(cfg config.SearchConfig, log *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.Sugar(),
	}
}

// Search posts the query to the aggregator and decodes the postings.
func (c *Client) Search(ctx context.Context, q Query) ([]Posting, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	start := time.Now()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/search"
	raw, err := c.post(ctx, endpoint, q)
	if err != nil {
		c.log.Errorw("jobsearch.search.error", "keywords", q.Keywords, "error", err)
		return nil, err
	}

	var out struct {
		Results []Posting `json:"results"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode aggregator response: %w", err)
	}
	c.log.Infow("jobsearch.search.ok",
		"keywords", q.Keywords,
		"results", len(out.Results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Results, nil
}

func (c *Client) post(ctx context.Context, url string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aggregator http error: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warnw("aggregator response body close error", "error", cerr)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read aggregator response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("aggregator status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
