package finnhub

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"FinGate/internal/domain/models"
	"FinGate/internal/service/upstream"
	"FinGate/internal/services/normalize"
	xhttp "FinGate/pkg/http"
)

const (
	ProviderName   = "finnhub"
	DefaultBaseURL = "https://finnhub.io/api/v1"
)

type resolution struct {
	res      string
	lookback time.Duration
}

var resolutions = map[models.Timeframe]resolution{
	models.TF1D: {res: "5", lookback: 24 * time.Hour},
	models.TF1W: {res: "60", lookback: 7 * 24 * time.Hour},
	models.TF1M: {res: "D", lookback: 30 * 24 * time.Hour},
	models.TF3M: {res: "D", lookback: 90 * 24 * time.Hour},
	models.TF1Y: {res: "W", lookback: 365 * 24 * time.Hour},
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock overrides the clock used for lookback windows.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client is the Finnhub REST client for stock candles, quotes and news.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	now     func() time.Time
	caller  *upstream.Caller
}

// New creates a Finnhub client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: apiKey, baseURL: DefaultBaseURL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.caller = upstream.NewCaller(ProviderName, c.baseURL,
		upstream.WithClient(c.http),
		upstream.WithHeader("X-Finnhub-Token", apiKey),
	)
	return c
}

func (c *Client) Name() string { return ProviderName }

type candleResponse struct {
	C []float64 `json:"c"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	O []float64 `json:"o"`
	T []int64   `json:"t"`
	V []float64 `json:"v"`
	S string    `json:"s"`
}

// FetchCandles loads stock candles for tf.
func (c *Client) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe) (models.Series, error) {
	if c.apiKey == "" {
		return models.Series{}, c.caller.Errorf(models.KindUnauthorized, "api key not configured")
	}
	r, ok := resolutions[tf]
	if !ok {
		return models.Series{}, c.caller.Errorf(models.KindNoData, "unsupported timeframe %s", tf)
	}
	to := c.now().UTC()
	from := to.Add(-r.lookback)

	var resp candleResponse
	err := c.caller.GetJSON(ctx, "/stock/candle", upstream.Query(
		"symbol", symbol,
		"resolution", r.res,
		"from", strconv.FormatInt(from.Unix(), 10),
		"to", strconv.FormatInt(to.Unix(), 10),
	), &resp)
	if err != nil {
		return models.Series{}, err
	}
	if resp.S == "no_data" || len(resp.T) == 0 {
		return models.Series{}, c.caller.Errorf(models.KindNoData, "no candles for %s", symbol)
	}
	if resp.S != "" && resp.S != "ok" {
		return models.Series{}, c.caller.Errorf(models.KindTransient, "unexpected status %q", resp.S)
	}

	rows := make([]normalize.RawCandle, 0, len(resp.T))
	for i, ts := range resp.T {
		rows = append(rows, normalize.RawCandle{
			Time:   time.Unix(ts, 0),
			Open:   at(resp.O, i),
			High:   at(resp.H, i),
			Low:    at(resp.L, i),
			Close:  at(resp.C, i),
			Volume: at(resp.V, i),
		})
	}
	s := normalize.Candles(rows)
	if s.Empty() {
		return models.Series{}, c.caller.Errorf(models.KindNoData, "no usable candles for %s", symbol)
	}
	return s, nil
}

type quoteResponse struct {
	C  float64  `json:"c"`
	D  *float64 `json:"d"`
	DP *float64 `json:"dp"`
	PC float64  `json:"pc"`
	T  int64    `json:"t"`
}

// FetchQuote loads the latest stock quote.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	if c.apiKey == "" {
		return models.Quote{}, c.caller.Errorf(models.KindUnauthorized, "api key not configured")
	}
	var resp quoteResponse
	if err := c.caller.GetJSON(ctx, "/quote", upstream.Query("symbol", symbol), &resp); err != nil {
		return models.Quote{}, err
	}
	// unknown symbols come back as an all-zero 200
	if resp.C == 0 && resp.T == 0 {
		return models.Quote{}, c.caller.Errorf(models.KindNoData, "no quote for %s", symbol)
	}
	q := models.Quote{Price: resp.C, AsOf: time.Unix(resp.T, 0).UTC()}
	if resp.D != nil {
		q.AbsoluteChange = *resp.D
	} else if resp.PC != 0 {
		q.AbsoluteChange = resp.C - resp.PC
	}
	if resp.DP != nil {
		q.PercentChange = *resp.DP
	} else if resp.PC != 0 {
		q.PercentChange = (resp.C - resp.PC) / resp.PC * 100
	}
	return q, nil
}

type newsItem struct {
	ID       int64  `json:"id"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// FetchNews loads company news for stocks and the crypto category feed.
// Finnhub does not score articles, so SentimentScore is left nil.
func (c *Client) FetchNews(ctx context.Context, kind models.AssetKind, symbol string, limit int) ([]models.NewsArticle, error) {
	if c.apiKey == "" {
		return nil, c.caller.Errorf(models.KindUnauthorized, "api key not configured")
	}
	var (
		items []newsItem
		err   error
	)
	switch {
	case kind == models.AssetStock && symbol != "":
		to := c.now().UTC()
		from := to.AddDate(0, 0, -7)
		err = c.caller.GetJSON(ctx, "/company-news", upstream.Query(
			"symbol", symbol,
			"from", from.Format("2006-01-02"),
			"to", to.Format("2006-01-02"),
		), &items)
	case kind == models.AssetCrypto:
		err = c.caller.GetJSON(ctx, "/news", upstream.Query("category", "crypto"), &items)
	default:
		return nil, c.caller.Errorf(models.KindNoData, "no news feed for %s", kind)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, c.caller.Errorf(models.KindNoData, "no news for %s %s", kind, symbol)
	}

	out := make([]models.NewsArticle, 0, min(len(items), limit))
	for _, it := range items {
		if len(out) >= limit {
			break
		}
		if it.Headline == "" {
			continue
		}
		out = append(out, models.NewsArticle{
			ID:          fmt.Sprintf("%s-%d", ProviderName, it.ID),
			Title:       it.Headline,
			URL:         it.URL,
			Snippet:     it.Summary,
			PublishedAt: time.Unix(it.Datetime, 0).UTC(),
			Source:      it.Source,
		})
	}
	return out, nil
}

func at(xs []float64, i int) interface{} {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}
