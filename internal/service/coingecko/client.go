// Package coingecko fetches crypto OHLC candles and spot quotes.
package coingecko

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"FinGate/internal/domain/models"
	"FinGate/internal/service/upstream"
	"FinGate/internal/services/normalize"
	xhttp "FinGate/pkg/http"
)

const (
	ProviderName   = "coingecko"
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
)

var coinIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"BNB":  "binancecoin",
	"DOT":  "polkadot",
	"LTC":  "litecoin",
	"AVAX": "avalanche-2",
	"LINK": "chainlink",
	"USDT": "tether",
	"USDC": "usd-coin",
}

var days = map[models.Timeframe]int{
	models.TF1D: 1,
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

// Client works keyless against the public API; a demo key raises the quota.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	caller  *upstream.Caller
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: apiKey, baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	c.caller = upstream.NewCaller(ProviderName, c.baseURL,
		upstream.WithClient(c.http),
		upstream.WithHeader("x-cg-demo-api-key", apiKey),
	)
	return c
}

func (c *Client) Name() string { return ProviderName }

// CoinID maps a ticker to a CoinGecko id. Unknown symbols pass through lowercased.
func CoinID(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if id, ok := coinIDs[s]; ok {
		return id
	}
	return strings.ToLower(s)
}

// FetchCandles loads OHLC rows. Granularity is chosen by the API from the day count.
func (c *Client) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe) (models.Series, error) {
	d, ok := days[tf]
	if !ok {
		d = days[models.TF1M]
	}
	id := CoinID(symbol)
	var rows [][]interface{}
	if err := c.caller.GetJSON(ctx, "/coins/"+url.PathEscape(id)+"/ohlc", upstream.Query(
		"vs_currency", "usd",
		"days", strconv.Itoa(d),
	), &rows); err != nil {
		return models.Series{}, err
	}

	raw := make([]normalize.RawCandle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 5 {
			continue
		}
		ms, ok := normalize.ParseNumber(r[0])
		if !ok {
			continue
		}
		raw = append(raw, normalize.RawCandle{
			Time:  normalize.UnixAuto(int64(ms)),
			Open:  r[1],
			High:  r[2],
			Low:   r[3],
			Close: r[4],
		})
	}
	s := normalize.Candles(raw)
	if s.Empty() {
		return models.Series{}, c.caller.Errorf(models.KindNoData, "no candles for %s", id)
	}
	return s, nil
}

// FetchQuote loads the spot price with its 24h change.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	id := CoinID(symbol)
	var resp map[string]map[string]float64
	if err := c.caller.GetJSON(ctx, "/simple/price", upstream.Query(
		"ids", id,
		"vs_currencies", "usd",
		"include_24hr_change", "true",
		"include_last_updated_at", "true",
	), &resp); err != nil {
		return models.Quote{}, err
	}
	row, ok := resp[id]
	if !ok || row["usd"] <= 0 {
		return models.Quote{}, c.caller.Errorf(models.KindNoData, "no price for %s", id)
	}
	price := row["usd"]
	pct := row["usd_24h_change"]
	q := models.Quote{Price: price, PercentChange: pct, AsOf: time.Now().UTC()}
	if ts := int64(row["last_updated_at"]); ts > 0 {
		q.AsOf = normalize.UnixAuto(ts)
	}
	if pct != -100 {
		q.AbsoluteChange = price - price/(1+pct/100)
	}
	return q, nil
}
