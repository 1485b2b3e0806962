package finnhub_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinGate/internal/domain/models"
	"FinGate/internal/service/finnhub"
)

var now = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func newClient(t *testing.T, h http.HandlerFunc) *finnhub.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return finnhub.New("test-key", finnhub.WithBaseURL(srv.URL), finnhub.WithClock(func() time.Time { return now }))
}

func TestFetchCandles(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Assert: the timeframe is mapped to the native resolution and token header
		assert.Equal(t, "/stock/candle", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "60", r.URL.Query().Get("resolution"))
		assert.Equal(t, "test-key", r.Header.Get("X-Finnhub-Token"))
		_, _ = w.Write([]byte(`{"s":"ok","t":[1741500000,1741496400],"o":[2,1],"h":[3,2],"l":[1.5,0.5],"c":[2.5,1.5],"v":[100,200]}`))
	})

	s, err := client.FetchCandles(context.Background(), "AAPL", models.TF1W)
	require.NoError(t, err)
	require.Len(t, s.Points, 2)
	assert.True(t, s.HasFullOHLC)
	assert.Equal(t, 1.5, s.Points[0].Close)
	assert.Equal(t, 200.0, s.Points[0].Volume)
}

func TestFetchCandles_NoData(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"no_data"}`))
	})
	_, err := client.FetchCandles(context.Background(), "ZZZZ", models.TF1M)
	require.ErrorIs(t, err, models.ErrNoData)
}

func TestFetchCandles_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, models.ErrUnauthorized},
		{http.StatusUnauthorized, models.ErrUnauthorized},
		{http.StatusTooManyRequests, models.ErrRateLimited},
		{http.StatusBadGateway, models.ErrTransient},
	}
	for _, tt := range tests {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		})
		_, err := client.FetchCandles(context.Background(), "AAPL", models.TF1D)
		require.ErrorIsf(t, err, tt.want, "status %d", tt.status)
	}
}

func TestFetchCandles_MissingKeyIsUnauthorized(t *testing.T) {
	t.Parallel()

	client := finnhub.New("")
	_, err := client.FetchCandles(context.Background(), "AAPL", models.TF1M)
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestFetchQuote(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		_, _ = w.Write([]byte(`{"c":190.5,"d":1.5,"dp":0.7937,"pc":189,"t":1741500000}`))
	})
	q, err := client.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.5, q.Price)
	assert.Equal(t, 1.5, q.AbsoluteChange)
	assert.Equal(t, 0.7937, q.PercentChange)
}

func TestFetchQuote_UnknownSymbol(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
	})
	_, err := client.FetchQuote(context.Background(), "ZZZZ")
	require.ErrorIs(t, err, models.ErrNoData)
}

func TestFetchNews(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company-news", r.URL.Path)
		assert.Equal(t, "2025-03-03", r.URL.Query().Get("from"))
		_, _ = w.Write([]byte(`[
			{"id":1,"datetime":1741500000,"headline":"First","source":"Reuters","summary":"s1","url":"https://x/1"},
			{"id":2,"datetime":1741490000,"headline":"","source":"AP","summary":"","url":"https://x/2"},
			{"id":3,"datetime":1741480000,"headline":"Third","source":"AP","summary":"s3","url":"https://x/3"}
		]`))
	})
	news, err := client.FetchNews(context.Background(), models.AssetStock, "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, news, 2)
	assert.Equal(t, "finnhub-1", news[0].ID)
	assert.Nil(t, news[0].SentimentScore)

	_, err = client.FetchNews(context.Background(), models.AssetOil, "WTI", 10)
	require.ErrorIs(t, err, models.ErrNoData)
}
