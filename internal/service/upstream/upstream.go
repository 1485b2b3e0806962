// Package upstream holds the HTTP plumbing shared by provider clients.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinGate/internal/domain/models"
	xhttp "FinGate/pkg/http"
)

// StatusTable maps HTTP status codes to error kinds. Statuses not listed are
// classified by class: 5xx transient, other 4xx no-data.
type StatusTable map[int]models.ErrorKind

// DefaultStatusTable covers the statuses most providers agree on.
var DefaultStatusTable = StatusTable{
	400: models.KindNoData,
	401: models.KindUnauthorized,
	403: models.KindUnauthorized,
	404: models.KindNoData,
	429: models.KindRateLimited,
}

// With returns a copy of t with overrides applied.
func (t StatusTable) With(overrides StatusTable) StatusTable {
	out := make(StatusTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Kind returns the error kind for status.
func (t StatusTable) Kind(status int) models.ErrorKind {
	if k, ok := t[status]; ok {
		return k
	}
	if status >= 500 {
		return models.KindTransient
	}
	if status >= 400 {
		return models.KindNoData
	}
	return models.KindTransient
}

// Classify turns a transport or status error into a *models.ProviderError.
func (t StatusTable) Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *models.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return models.NewProviderError(provider, t.Kind(se.Status), se.Status, err)
	}
	return models.NewProviderError(provider, models.KindTransient, 0, err)
}

// Option configures Caller.
type Option func(*Caller)

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Caller) {
		if value != "" {
			c.headers[key] = value
		}
	}
}

// WithStatusTable replaces the status classification table.
func WithStatusTable(t StatusTable) Option {
	return func(c *Caller) {
		c.table = t
	}
}

// WithClient sets the HTTP client.
func WithClient(client *xhttp.Client) Option {
	return func(c *Caller) {
		if client != nil {
			c.client = client
		}
	}
}

// Caller issues JSON requests for one provider and classifies failures.
type Caller struct {
	provider string
	baseURL  string
	client   *xhttp.Client
	table    StatusTable
	headers  map[string]string
}

// NewCaller creates a Caller rooted at baseURL.
func NewCaller(provider, baseURL string, opts ...Option) *Caller {
	c := &Caller{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		table:    DefaultStatusTable,
		headers:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))
	}
	return c
}

// Provider returns the provider id.
func (c *Caller) Provider() string { return c.provider }

// Table returns the status classification table.
func (c *Caller) Table() StatusTable { return c.table }

// GetJSON performs GET baseURL+path with query and decodes the body into dest.
func (c *Caller) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	return c.do(ctx, xhttp.MethodGet, path, query, nil, dest)
}

// PostJSON performs POST baseURL+path with a JSON body and decodes the response.
func (c *Caller) PostJSON(ctx context.Context, path string, query map[string][]string, body, dest interface{}) error {
	return c.do(ctx, xhttp.MethodPost, path, query, body, dest)
}

func (c *Caller) do(ctx context.Context, method, path string, query map[string][]string, body, dest interface{}) error {
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      method,
		URL:         c.baseURL + path,
		Headers:     c.headers,
		QueryParams: query,
		Body:        body,
	}, dest)
	if err != nil {
		return c.table.Classify(c.provider, fmt.Errorf("%s %s: %w", method, path, err))
	}
	return nil
}

// Errorf builds a ProviderError for this caller.
func (c *Caller) Errorf(kind models.ErrorKind, format string, args ...interface{}) error {
	return models.NewProviderError(c.provider, kind, 0, fmt.Errorf(format, args...))
}

// Query builds a query map from alternating key/value pairs. Empty values are dropped.
func Query(kv ...string) map[string][]string {
	q := make(map[string][]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		q[kv[i]] = append(q[kv[i]], kv[i+1])
	}
	return q
}
