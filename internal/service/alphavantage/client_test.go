package alphavantage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinGate/internal/domain/models"
	"FinGate/internal/domain/repository"
	"FinGate/internal/service/alphavantage"
)

var now = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

var (
	_ repository.CandleProvider = alphavantage.Commodities{}
	_ repository.CandleProvider = alphavantage.Equities{}
	_ repository.QuoteProvider  = alphavantage.Equities{}
	_ repository.NewsProvider   = (*alphavantage.Client)(nil)
)

func newClient(t *testing.T, body string) *alphavantage.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "demo", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return alphavantage.New("demo", alphavantage.WithBaseURL(srv.URL), alphavantage.WithClock(func() time.Time { return now }))
}

func TestFetchCommodity_DescendingWithMissingValues(t *testing.T) {
	t.Parallel()

	c := newClient(t, `{"name":"Crude Oil Prices WTI","interval":"daily","data":[
		{"date":"2025-03-07","value":"67.04"},
		{"date":"2025-03-06","value":"."},
		{"date":"2025-03-05","value":"66.31"},
		{"date":"2024-12-01","value":"70.00"}
	]}`)

	s, err := alphavantage.Commodities{Client: c}.FetchCandles(context.Background(), "wti", models.TF1M)
	require.NoError(t, err)
	require.Len(t, s.Points, 2)
	assert.False(t, s.HasFullOHLC)
	assert.Equal(t, 66.31, s.Points[0].Close)
	assert.Equal(t, 67.04, s.Points[1].Close)
	require.NotNil(t, s.Points[1].High)
	assert.Equal(t, 67.04, *s.Points[1].High)
}

func TestFetchCommodity_UnknownSymbol(t *testing.T) {
	t.Parallel()

	c := alphavantage.New("demo")
	_, err := c.FetchCommodity(context.Background(), "GOLD", models.TF1M)
	require.ErrorIs(t, err, models.ErrNoData)
}

func TestInBandErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want error
	}{
		{"note", `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`, models.ErrRateLimited},
		{"information", `{"Information":"We have detected your API key and our standard API rate limit is 25 requests per day."}`, models.ErrRateLimited},
		{"error message", `{"Error Message":"Invalid API call."}`, models.ErrNoData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, tt.body)
			_, err := c.FetchEquity(context.Background(), "IBM", models.TF1M)
			require.ErrorIs(t, err, tt.want)
			_, err = c.FetchCommodity(context.Background(), "WTI", models.TF1M)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchEquity_Daily(t *testing.T) {
	t.Parallel()

	c := newClient(t, `{"Meta Data":{"2. Symbol":"IBM"},"Time Series (Daily)":{
		"2025-03-07":{"1. open":"250.0","2. high":"255.5","3. low":"249.0","4. close":"254.1","5. volume":"1200"},
		"2025-03-06":{"1. open":"248.0","2. high":"251.0","3. low":"247.5","4. close":"250.2","5. volume":"900"}
	}}`)

	s, err := c.FetchEquity(context.Background(), "IBM", models.TF1M)
	require.NoError(t, err)
	require.Len(t, s.Points, 2)
	assert.True(t, s.HasFullOHLC)
	assert.Equal(t, 250.2, s.Points[0].Close)
	assert.Equal(t, 1200.0, s.Points[1].Volume)

	q, err := alphavantage.Equities{Client: c}.FetchQuote(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, 254.1, q.Price)
	assert.InDelta(t, 3.9, q.AbsoluteChange, 1e-9)
}

func TestFetchEquity_MissingSeriesKey(t *testing.T) {
	t.Parallel()

	c := newClient(t, `{"Meta Data":{}}`)
	_, err := c.FetchEquity(context.Background(), "IBM", models.TF1D)
	require.ErrorIs(t, err, models.ErrNoData)
}

func TestFetchNews_PrefersTickerScore(t *testing.T) {
	t.Parallel()

	c := newClient(t, `{"items":"2","feed":[
		{"title":"Apple rallies","url":"https://n/1","time_published":"20250310T120000","summary":"s","source":"Reuters",
		 "overall_sentiment_score":0.1,"ticker_sentiment":[{"ticker":"AAPL","ticker_sentiment_score":"0.45"}]},
		{"title":"Market wrap","url":"https://n/2","time_published":"20250310T110000","summary":"s","source":"AP",
		 "overall_sentiment_score":-3}
	]}`)

	news, err := c.FetchNews(context.Background(), models.AssetStock, "aapl", 10)
	require.NoError(t, err)
	require.Len(t, news, 2)
	require.NotNil(t, news[0].SentimentScore)
	assert.Equal(t, 0.45, *news[0].SentimentScore)
	assert.Equal(t, -1.0, *news[1].SentimentScore)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), news[0].PublishedAt)
	assert.NotEmpty(t, news[0].ID)
	assert.NotEqual(t, news[0].ID, news[1].ID)
}

func TestFetchNews_EmptyFeed(t *testing.T) {
	t.Parallel()

	c := newClient(t, `{"items":"0","feed":[]}`)
	_, err := c.FetchNews(context.Background(), models.AssetOil, "WTI", 5)
	require.ErrorIs(t, err, models.ErrNoData)
}

func TestMissingKey(t *testing.T) {
	t.Parallel()

	_, err := alphavantage.New("").FetchEquity(context.Background(), "IBM", models.TF1M)
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestNewsTicker(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AAPL", alphavantage.NewsTicker(models.AssetStock, "aapl"))
	assert.Equal(t, "CRYPTO:BTC", alphavantage.NewsTicker(models.AssetCrypto, "btc"))
	assert.Equal(t, "", alphavantage.NewsTicker(models.AssetOil, "WTI"))
}
