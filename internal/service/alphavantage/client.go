// Package alphavantage talks to the Alpha Vantage query API. It serves crude
// oil series, daily equity series and scored news.
//
// Alpha Vantage reports most failures inside a 200 response. The marker table
// below classifies them by field instead of matching message text.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FinGate/internal/domain/models"
	"FinGate/internal/service/upstream"
	"FinGate/internal/services/normalize"
	xhttp "FinGate/pkg/http"
)

const (
	ProviderName   = "alphavantage"
	DefaultBaseURL = "https://www.alphavantage.co"
)

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

// envelope carries the in-band error fields every response may contain.
type envelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (e envelope) classify(c *Client) error {
	switch {
	case e.Note != "":
		return c.caller.Errorf(models.KindRateLimited, "note: %s", e.Note)
	case e.Information != "":
		// quota exhaustion and premium-only endpoints share this field
		return c.caller.Errorf(models.KindRateLimited, "information: %s", e.Information)
	case e.ErrorMessage != "":
		return c.caller.Errorf(models.KindNoData, "error message: %s", e.ErrorMessage)
	}
	return nil
}

func (c *Client) query(ctx context.Context, dest interface{}, kv ...string) error {
	if c.apiKey == "" {
		return c.caller.Errorf(models.KindUnauthorized, "api key not configured")
	}
	kv = append(kv, "apikey", c.apiKey)
	return c.caller.GetJSON(ctx, "/query", upstream.Query(kv...), dest)
}

// rawObject keeps a response undecoded so the series key can vary per function.
type rawObject map[string]json.RawMessage

func (r rawObject) envelope() envelope {
	var e envelope
	_ = r.field("Note", &e.Note)
	_ = r.field("Information", &e.Information)
	_ = r.field("Error Message", &e.ErrorMessage)
	return e
}

func (r rawObject) field(key string, dest interface{}) error {
	v, ok := r[key]
	if !ok {
		return fmt.Errorf("missing %q", key)
	}
	return json.Unmarshal(v, dest)
}

type commodityWindow struct {
	interval string
	lookback time.Duration
}

var commodityWindows = map[models.Timeframe]commodityWindow{
	models.TF1D: {interval: "daily", lookback: 5 * 24 * time.Hour},
	models.TF1W: {interval: "daily", lookback: 7 * 24 * time.Hour},
	models.TF1M: {interval: "daily", lookback: 30 * 24 * time.Hour},
	models.TF3M: {interval: "daily", lookback: 90 * 24 * time.Hour},
	models.TF1Y: {interval: "weekly", lookback: 365 * 24 * time.Hour},
}

var commodityFunctions = map[string]string{
	"WTI":   "WTI",
	"CL":    "WTI",
	"CRUDE": "WTI",
	"BRENT": "BRENT",
	"BZ":    "BRENT",
}

type commodityResponse struct {
	envelope
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Data     []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"data"`
}

// FetchCommodity loads a crude oil benchmark. The API publishes a single
// value per period, so the series is price-only.
func (c *Client) FetchCommodity(ctx context.Context, symbol string, tf models.Timeframe) (models.Series, error) {
	fn, ok := commodityFunctions[strings.ToUpper(symbol)]
	if !ok {
		return models.Series{}, c.caller.Errorf(models.KindNoData, "unknown commodity %q", symbol)
	}
	w, ok := commodityWindows[tf]
	if !ok {
		w = commodityWindows[models.TF1M]
	}

	var resp commodityResponse
	if err := c.query(ctx, &resp, "function", fn, "interval", w.interval); err != nil {
		return models.Series{}, err
	}
	if err := resp.classify(c); err != nil {
		return models.Series{}, err
	}

	rows := make([]normalize.RawScalar, 0, len(resp.Data))
	for _, d := range resp.Data {
		ts, ok := normalize.ParseTimestamp(d.Date)
		if !ok {
			continue
		}
		rows = append(rows, normalize.RawScalar{Time: ts, Value: d.Value})
	}
	s := normalize.Trim(normalize.Scalars(rows), c.now().UTC().Add(-w.lookback))
	if s.Empty() {
		return models.Series{}, c.caller.Errorf(models.KindNoData, "no %s data in window", fn)
	}
	return s, nil
}

type equityWindow struct {
	function string
	interval string
	key      string
	lookback time.Duration
}

var equityWindows = map[models.Timeframe]equityWindow{
	models.TF1D: {function: "TIME_SERIES_INTRADAY", interval: "5min", key: "Time Series (5min)", lookback: 24 * time.Hour},
	models.TF1W: {function: "TIME_SERIES_INTRADAY", interval: "60min", key: "Time Series (60min)", lookback: 7 * 24 * time.Hour},
	models.TF1M: {function: "TIME_SERIES_DAILY", key: "Time Series (Daily)", lookback: 30 * 24 * time.Hour},
	models.TF3M: {function: "TIME_SERIES_DAILY", key: "Time Series (Daily)", lookback: 90 * 24 * time.Hour},
	models.TF1Y: {function: "TIME_SERIES_WEEKLY", key: "Weekly Time Series", lookback: 365 * 24 * time.Hour},
}

type ohlcv struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// FetchEquity loads stock candles from the time series functions.
func (c *Client) FetchEquity(ctx context.Context, symbol string, tf models.Timeframe) (models.Series, error) {
	w, ok := equityWindows[tf]
	if !ok {
		w = equityWindows[models.TF1M]
	}
	kv := []string{"function", w.function, "symbol", symbol, "interval", w.interval}
	if w.function != "TIME_SERIES_WEEKLY" {
		kv = append(kv, "outputsize", "compact")
	}

	var raw rawObject
	if err := c.query(ctx, &raw, kv...); err != nil {
		return models.Series{}, err
	}
	if err := raw.envelope().classify(c); err != nil {
		return models.Series{}, err
	}

	var series map[string]ohlcv
	if err := raw.field(w.key, &series); err != nil || len(series) == 0 {
		return models.Series{}, c.caller.Errorf(models.KindNoData, "no %s for %s", w.key, symbol)
	}

	rows := make([]normalize.RawCandle, 0, len(series))
	for stamp, v := range series {
		ts, ok := normalize.ParseTimestamp(stamp)
		if !ok {
			continue
		}
		rows = append(rows, normalize.RawCandle{Time: ts, Open: v.Open, High: v.High, Low: v.Low, Close: v.Close, Volume: v.Volume})
	}
	s := normalize.Candles(rows)
	// intraday stamps are exchange-local; the lookback is applied against the newest point
	if last, ok := s.Last(); ok {
		s = normalize.Trim(s, last.Timestamp.Add(-w.lookback))
	}
	if s.Empty() {
		return models.Series{}, c.caller.Errorf(models.KindNoData, "no usable candles for %s", symbol)
	}
	return s, nil
}

type newsResponse struct {
	envelope
	Items string `json:"items"`
	Feed  []struct {
		Title                 string      `json:"title"`
		URL                   string      `json:"url"`
		TimePublished         string      `json:"time_published"`
		Summary               string      `json:"summary"`
		Source                string      `json:"source"`
		OverallSentimentScore interface{} `json:"overall_sentiment_score"`
		TickerSentiment       []struct {
			Ticker               string      `json:"ticker"`
			TickerSentimentScore interface{} `json:"ticker_sentiment_score"`
		} `json:"ticker_sentiment"`
	} `json:"feed"`
}

var newsTopics = map[models.AssetKind]string{
	models.AssetOil:   "energy_transportation",
	models.AssetMetal: "economy_monetary",
}

// NewsTicker returns the ticker filter used for kind and symbol.
func NewsTicker(kind models.AssetKind, symbol string) string {
	if symbol == "" {
		return ""
	}
	switch kind {
	case models.AssetStock:
		return strings.ToUpper(symbol)
	case models.AssetCrypto:
		return "CRYPTO:" + strings.ToUpper(symbol)
	default:
		return ""
	}
}

// FetchNews loads scored headlines. Stocks and crypto filter by ticker;
// commodities and metals filter by topic.
func (c *Client) FetchNews(ctx context.Context, kind models.AssetKind, symbol string, limit int) ([]models.NewsArticle, error) {
	ticker := NewsTicker(kind, symbol)
	topic := newsTopics[kind]
	if ticker == "" && topic == "" {
		return nil, c.caller.Errorf(models.KindNoData, "no news filter for %s %q", kind, symbol)
	}

	var resp newsResponse
	if err := c.query(ctx, &resp,
		"function", "NEWS_SENTIMENT",
		"tickers", ticker,
		"topics", topic,
		"sort", "LATEST",
		"limit", fmt.Sprint(max(limit, 1)),
	); err != nil {
		return nil, err
	}
	if err := resp.classify(c); err != nil {
		return nil, err
	}
	if len(resp.Feed) == 0 {
		return nil, c.caller.Errorf(models.KindNoData, "empty feed")
	}

	out := make([]models.NewsArticle, 0, min(len(resp.Feed), limit))
	for _, f := range resp.Feed {
		if len(out) >= limit {
			break
		}
		a := models.NewsArticle{
			ID:      normalize.ArticleID(f.URL, f.Title),
			Title:   f.Title,
			URL:     f.URL,
			Snippet: f.Summary,
			Source:  f.Source,
		}
		if ts, ok := normalize.ParseTimestamp(f.TimePublished); ok {
			a.PublishedAt = ts
		}
		if v, ok := normalize.ParseNumber(f.OverallSentimentScore); ok {
			a.SentimentScore = models.Float(clamp(v))
		}
		for _, ts := range f.TickerSentiment {
			if ticker != "" && strings.EqualFold(ts.Ticker, ticker) {
				if v, ok := normalize.ParseNumber(ts.TickerSentimentScore); ok {
					a.SentimentScore = models.Float(clamp(v))
				}
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func quoteOf(c *Client, s models.Series) (models.Quote, error) {
	q, ok := normalize.QuoteFromSeries(s)
	if !ok {
		return models.Quote{}, c.caller.Errorf(models.KindNoData, "empty series")
	}
	return q, nil
}
