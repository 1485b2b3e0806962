package coingecko_test

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
	"FinGate/internal/service/coingecko"
)

var (
	_ repository.CandleProvider = (*coingecko.Client)(nil)
	_ repository.QuoteProvider  = (*coingecko.Client)(nil)
)

func newClient(t *testing.T, h http.HandlerFunc) *coingecko.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return coingecko.New("demo", coingecko.WithBaseURL(srv.URL))
}

func TestFetchCandles(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/ohlc", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		assert.Equal(t, "demo", r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`[[1741600800000,80100,80500,79900,80300],[1741586400000,79000,80200,78800,80100],[1741600800000,80100,80600,79900,80400],[1,2]]`))
	})

	s, err := c.FetchCandles(context.Background(), "btc", models.TF1W)
	require.NoError(t, err)
	require.Len(t, s.Points, 2)
	assert.True(t, s.HasFullOHLC)
	assert.Equal(t, time.UnixMilli(1741586400000).UTC(), s.Points[0].Timestamp)
	assert.Equal(t, 80400.0, s.Points[1].Close)
	assert.Zero(t, s.Points[1].Volume)
}

func TestFetchCandles_EscapesCoinID(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/x%2F..%2F..%2Fsimple%2Fprice%3Fids=bitcoin%23/ohlc", r.URL.EscapedPath())
		assert.Empty(t, r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		_, _ = w.Write([]byte(`[[1741586400000,1,1,1,1]]`))
	})

	_, err := c.FetchCandles(context.Background(), "X/../../simple/price?ids=bitcoin#", models.TF1M)
	require.NoError(t, err)
}

func TestFetchCandles_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusTooManyRequests, `{"status":{"error_code":429}}`, models.ErrRateLimited},
		{http.StatusUnauthorized, `{}`, models.ErrUnauthorized},
		{http.StatusNotFound, `{"error":"coin not found"}`, models.ErrNoData},
		{http.StatusOK, `[]`, models.ErrNoData},
		{http.StatusServiceUnavailable, ``, models.ErrTransient},
	}
	for _, tt := range tests {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		})
		_, err := c.FetchCandles(context.Background(), "nope", models.TF1M)
		require.ErrorIsf(t, err, tt.want, "status %d", tt.status)
	}
}

func TestFetchQuote(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "ethereum", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"ethereum":{"usd":2200,"usd_24h_change":10,"last_updated_at":1741600000}}`))
	})
	q, err := c.FetchQuote(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 2200.0, q.Price)
	assert.Equal(t, 10.0, q.PercentChange)
	assert.InDelta(t, 200.0, q.AbsoluteChange, 1e-9)
	assert.Equal(t, time.Unix(1741600000, 0).UTC(), q.AsOf)
}

func TestFetchQuote_Unknown(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := c.FetchQuote(context.Background(), "ZZZ")
	require.ErrorIs(t, err, models.ErrNoData)
}

func TestCoinID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bitcoin", coingecko.CoinID("btc"))
	assert.Equal(t, "avalanche-2", coingecko.CoinID("AVAX"))
	assert.Equal(t, "pepe", coingecko.CoinID("PEPE"))
}
