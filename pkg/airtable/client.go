// Package airtable provides a client for the Airtable REST API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client defines the Airtable operations used by the lead store.
type Client interface {
	// ListRecords fetches every record in a table, transparently
	// following pagination offsets until the listing is exhausted.
	ListRecords(ctx context.Context, table string, opts ...ListOption) ([]Record, error)
	// CreateRecord inserts one record.
	CreateRecord(ctx context.Context, table string, fields map[string]any) (*Record, error)
	// UpdateRecord patches the given fields of one record.
	UpdateRecord(ctx context.Context, table, recordID string, fields map[string]any) (*Record, error)
	// DeleteRecords deletes records in API-sized chunks. A failed chunk
	// is reported and the remaining chunks are still attempted. Returns
	// the number of records actually deleted.
	DeleteRecords(ctx context.Context, table string, recordIDs []string) (int, error)
}

// Record is one Airtable record.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime time.Time      `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// ListOption configures a ListRecords call.
type ListOption func(*listOpts)

type listOpts struct {
	filterFormula string
	pageSize      int
}

// WithFilterFormula restricts the listing to records matching an
// Airtable filterByFormula expression.
func WithFilterFormula(formula string) ListOption {
	return func(o *listOpts) {
		o.filterFormula = formula
	}
}

// WithPageSize overrides the page size (default 100, the API maximum).
func WithPageSize(n int) ListOption {
	return func(o *listOpts) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// Option configures the Airtable client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithDeleteBatchSize overrides the delete chunk size (API maximum 10).
func WithDeleteBatchSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.deleteBatchSize = n
		}
	}
}

// WithRateLimit overrides the default request rate (5 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey          string
	baseID          string
	baseURL         string
	deleteBatchSize int
	http            *http.Client
	limiter         *rate.Limiter
}

// NewClient creates an Airtable client for one base. Requests are
// throttled to 5 req/s, Airtable's documented per-base limit.
func NewClient(apiKey, baseID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:          apiKey,
		baseID:          baseID,
		baseURL:         "https://api.airtable.com/v0",
		deleteBatchSize: 10,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(5, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))
}

// retryableStatusCode returns true if the HTTP status should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// doJSON performs one API call with rate limiting and exponential
// backoff retries on transient failures (429, 5xx, network errors).
// The request is rebuilt per attempt so payloads survive retries.
func (c *httpClient) doJSON(ctx context.Context, method, rawURL string, query url.Values, payload any) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, 0, eris.Wrap(err, "airtable: rate limit")
			}
		}

		var body *bytes.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, 0, eris.Wrap(err, "airtable: marshal payload")
			}
			body = bytes.NewReader(data)
		} else {
			body = bytes.NewReader(nil)
		}

		reqURL := rawURL
		if len(query) > 0 {
			reqURL += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return nil, 0, eris.Wrap(err, "airtable: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, eris.Wrap(lastErr, "airtable: request failed")
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "airtable: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("airtable: status %d: %s", resp.StatusCode, string(respBody))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return respBody, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

func (c *httpClient) ListRecords(ctx context.Context, table string, opts ...ListOption) ([]Record, error) {
	lo := &listOpts{pageSize: 100}
	for _, opt := range opts {
		opt(lo)
	}

	var records []Record
	offset := ""
	for {
		query := url.Values{}
		query.Set("pageSize", fmt.Sprint(lo.pageSize))
		if lo.filterFormula != "" {
			query.Set("filterByFormula", lo.filterFormula)
		}
		if offset != "" {
			query.Set("offset", offset)
		}

		body, status, err := c.doJSON(ctx, http.MethodGet, c.tableURL(table), query, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "airtable: list %s", table)
		}
		if status != http.StatusOK {
			return nil, eris.Errorf("airtable: list %s: status %d: %s", table, status, string(body))
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, eris.Wrapf(err, "airtable: unmarshal %s listing", table)
		}
		records = append(records, page.Records...)

		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

func (c *httpClient) CreateRecord(ctx context.Context, table string, fields map[string]any) (*Record, error) {
	payload := map[string]any{"fields": fields}

	body, status, err := c.doJSON(ctx, http.MethodPost, c.tableURL(table), nil, payload)
	if err != nil {
		return nil, eris.Wrapf(err, "airtable: create in %s", table)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, eris.Errorf("airtable: create in %s: status %d: %s", table, status, string(body))
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, eris.Wrapf(err, "airtable: unmarshal created record")
	}
	return &rec, nil
}

func (c *httpClient) UpdateRecord(ctx context.Context, table, recordID string, fields map[string]any) (*Record, error) {
	payload := map[string]any{"fields": fields}
	reqURL := c.tableURL(table) + "/" + url.PathEscape(recordID)

	body, status, err := c.doJSON(ctx, http.MethodPatch, reqURL, nil, payload)
	if err != nil {
		return nil, eris.Wrapf(err, "airtable: update %s", recordID)
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("airtable: update %s: status %d: %s", recordID, status, string(body))
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, eris.Wrap(err, "airtable: unmarshal updated record")
	}
	return &rec, nil
}

func (c *httpClient) DeleteRecords(ctx context.Context, table string, recordIDs []string) (int, error) {
	deleted := 0
	var lastErr error

	for start := 0; start < len(recordIDs); start += c.deleteBatchSize {
		end := min(start+c.deleteBatchSize, len(recordIDs))
		chunk := recordIDs[start:end]

		query := url.Values{}
		for _, id := range chunk {
			query.Add("records[]", id)
		}

		body, status, err := c.doJSON(ctx, http.MethodDelete, c.tableURL(table), query, nil)
		if err == nil && status != http.StatusOK {
			err = eris.Errorf("airtable: delete chunk: status %d: %s", status, string(body))
		}
		if err != nil {
			lastErr = err
			zap.L().Warn("airtable: delete chunk failed",
				zap.String("table", table),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			continue
		}
		deleted += len(chunk)
	}

	if lastErr != nil {
		return deleted, eris.Wrapf(lastErr, "airtable: delete from %s", table)
	}
	return deleted, nil
}
