// Package metals is a client for metalpriceapi-compatible rate APIs. Rates
// are quoted as USD per troy ounce.
package metals

import (
	"context"
	"strings"
	"time"

	"FinGate/internal/domain/models"
	"FinGate/internal/service/upstream"
	"FinGate/internal/services/normalize"
	xhttp "FinGate/pkg/http"
)

const (
	ProviderName   = "metals"
	DefaultBaseURL = "https://api.metalpriceapi.com"
)

// errorCodes maps the API's in-band error codes.
var errorCodes = map[int]models.ErrorKind{
	101: models.KindUnauthorized, // missing key
	102: models.KindUnauthorized, // inactive account
	104: models.KindRateLimited,  // monthly quota reached
	105: models.KindRateLimited,  // endpoint over plan
	106: models.KindNoData,       // no results
}

var aliases = map[string]string{
	"GOLD":      "XAU",
	"SILVER":    "XAG",
	"PLATINUM":  "XPT",
	"PALLADIUM": "XPD",
}

var lookbacks = map[models.Timeframe]int{
	models.TF1D: 5,
	models.TF1W: 7,
	models.TF1M: 30,
	models.TF3M: 90,
	models.TF1Y: 365,
}

// Option configures Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client fetches daily metal rates and latest quotes.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	now     func() time.Time
	caller  *upstream.Caller
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: apiKey, baseURL: DefaultBaseURL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.caller = upstream.NewCaller(ProviderName, c.baseURL, upstream.WithClient(c.http))
	return c
}

func (c *Client) Name() string { return ProviderName }

// Code resolves a metal name or ISO code to its currency code.
func Code(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if code, ok := aliases[s]; ok {
		return code
	}
	return s
}

type apiError struct {
	Code int    `json:"statusCode"`
	Info string `json:"message"`
}

type envelope struct {
	Success *bool    `json:"success"`
	Error   apiError `json:"error"`
}

func (e envelope) err(c *Client) error {
	if e.Success == nil || *e.Success {
		return nil
	}
	kind, ok := errorCodes[e.Error.Code]
	if !ok {
		kind = models.KindTransient
	}
	return c.caller.Errorf(kind, "error %d: %s", e.Error.Code, e.Error.Info)
}

type timeframeResponse struct {
	envelope
	Rates map[string]map[string]interface{} `json:"rates"`
}

// FetchCandles loads one rate per day for the timeframe's lookback. The API
// has no intraday history, so every timeframe resolves to daily points.
func (c *Client) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe) (models.Series, error) {
	if c.apiKey == "" {
		return models.Series{}, c.caller.Errorf(models.KindUnauthorized, "api key not configured")
	}
	days, ok := lookbacks[tf]
	if !ok {
		days = lookbacks[models.TF1M]
	}
	code := Code(symbol)
	end := c.now().UTC()
	start := end.AddDate(0, 0, -days)

	var resp timeframeResponse
	if err := c.caller.GetJSON(ctx, "/v1/timeframe", upstream.Query(
		"api_key", c.apiKey,
		"start_date", start.Format("2006-01-02"),
		"end_date", end.Format("2006-01-02"),
		"base", "USD",
		"currencies", code,
	), &resp); err != nil {
		return models.Series{}, err
	}
	if err := resp.err(c); err != nil {
		return models.Series{}, err
	}

	key := "USD" + code
	rows := make([]normalize.RawScalar, 0, len(resp.Rates))
	for date, rates := range resp.Rates {
		ts, ok := normalize.ParseTimestamp(date)
		if !ok {
			continue
		}
		v, ok := rates[key]
		if !ok {
			v = invert(rates[code])
		}
		rows = append(rows, normalize.RawScalar{Time: ts, Value: v})
	}
	s := normalize.Scalars(rows)
	if s.Empty() {
		return models.Series{}, c.caller.Errorf(models.KindNoData, "no rates for %s", code)
	}
	return s, nil
}

type latestResponse struct {
	envelope
	Timestamp int64                  `json:"timestamp"`
	Rates     map[string]interface{} `json:"rates"`
}

// FetchQuote loads the latest rate from /v1/latest. The change is measured
// against the last daily rate before the quote's day; when that history is
// unavailable the quote carries no change.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	if c.apiKey == "" {
		return models.Quote{}, c.caller.Errorf(models.KindUnauthorized, "api key not configured")
	}
	code := Code(symbol)

	var resp latestResponse
	if err := c.caller.GetJSON(ctx, "/v1/latest", upstream.Query(
		"api_key", c.apiKey,
		"base", "USD",
		"currencies", code,
	), &resp); err != nil {
		return models.Quote{}, err
	}
	if err := resp.err(c); err != nil {
		return models.Quote{}, err
	}
	v, ok := resp.Rates["USD"+code]
	if !ok {
		v = invert(resp.Rates[code])
	}
	price, ok := normalize.ParseNumber(v)
	if !ok || price <= 0 {
		return models.Quote{}, c.caller.Errorf(models.KindNoData, "no latest rate for %s", code)
	}

	q := models.Quote{Price: price, AsOf: c.now().UTC()}
	if resp.Timestamp > 0 {
		q.AsOf = normalize.UnixAuto(resp.Timestamp)
	}
	day := q.AsOf.Truncate(24 * time.Hour)
	if hist, err := c.FetchCandles(ctx, code, models.TF1D); err == nil {
		for i := len(hist.Points) - 1; i >= 0; i-- {
			prev := hist.Points[i]
			if prev.Timestamp.Before(day) && prev.Close > 0 {
				q.AbsoluteChange = price - prev.Close
				q.PercentChange = q.AbsoluteChange / prev.Close * 100
				break
			}
		}
	}
	return q, nil
}

// invert turns an ounces-per-dollar rate into dollars per ounce.
func invert(v interface{}) interface{} {
	f, ok := normalize.ParseNumber(v)
	if !ok || f == 0 {
		return nil
	}
	return 1 / f
}
