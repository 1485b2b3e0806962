package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinGate/internal/domain/models"
	"FinGate/internal/handler/api"
	"FinGate/internal/service/ratelimit"
	"FinGate/internal/usecase"
	xhttp "FinGate/pkg/http"
	xlogger "FinGate/pkg/logger"
)

type fakeMarket struct {
	candles    usecase.CandlesParams
	news       usecase.NewsParams
	invalidate []string
	degraded   bool
}

func (f *fakeMarket) Candles(_ context.Context, p usecase.CandlesParams) *usecase.CandlesResult {
	f.candles = p
	md := models.SeriesMetadata{Symbol: p.Symbol, Timeframe: p.Timeframe, AssetKind: p.AssetKind, Source: models.SourceLive}
	if f.degraded {
		md.IsSynthetic, md.Source, md.Note = true, models.SourceSynthetic, "simulated"
	}
	return &usecase.CandlesResult{
		Points:   []models.PricePoint{{Timestamp: time.Unix(1741500000, 0).UTC(), Close: 10}},
		Metadata: md,
	}
}

func (f *fakeMarket) Quote(_ context.Context, p usecase.QuoteParams) *usecase.QuoteResult {
	return &usecase.QuoteResult{
		Quote:    models.Quote{Price: 12.5},
		Metadata: models.SeriesMetadata{Symbol: p.Symbol, AssetKind: p.AssetKind, Source: models.SourceCache},
	}
}

func (f *fakeMarket) News(_ context.Context, p usecase.NewsParams) *usecase.NewsResult {
	f.news = p
	return &usecase.NewsResult{Articles: []models.NewsArticle{}, Sentiment: models.SentimentSummary{Label: models.SentimentNeutral}}
}

func (f *fakeMarket) Invalidate(_ context.Context, kind models.AssetKind, symbol string, tf models.Timeframe) error {
	f.invalidate = []string{string(kind), symbol, string(tf)}
	return nil
}

type fakeAssistant struct {
	err  error
	last usecase.AskParams
}

func (f *fakeAssistant) Ask(_ context.Context, p usecase.AskParams) (*usecase.Answer, error) {
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.Answer{Answer: "answer to " + p.Question, Source: usecase.SourceOffline}, nil
}

func newEcho(market *fakeMarket, assistant *fakeAssistant, perHour int) *echo.Echo {
	e := echo.New()
	h := api.NewMarketEchoHandler(xlogger.Nop(), market, assistant, ratelimit.New(), perHour)
	h.RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCandles(t *testing.T) {
	market := &fakeMarket{}
	e := newEcho(market, &fakeAssistant{}, 10)

	rec := do(e, http.MethodGet, "/api/candles?assetKind=STOCK&symbol=aapl&withSentiment=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, models.AssetStock, market.candles.AssetKind)
	assert.Equal(t, "AAPL", market.candles.Symbol)
	assert.Equal(t, models.TF1M, market.candles.Timeframe)
	assert.True(t, market.candles.WithSentiment)
	assert.Equal(t, "private, max-age=15", rec.Header().Get(echo.HeaderCacheControl))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	md := body["metadata"].(map[string]interface{})
	assert.Equal(t, "live", md["source"])
	assert.Equal(t, false, md["isSynthetic"])
	assert.Len(t, body["points"], 1)
}

func TestCandles_DegradedIsNotCacheable(t *testing.T) {
	e := newEcho(&fakeMarket{degraded: true}, &fakeAssistant{}, 10)

	rec := do(e, http.MethodGet, "/api/candles?assetKind=oil&symbol=WTI&timeframe=1y", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
	assert.Contains(t, rec.Body.String(), `"isSynthetic":true`)
}

func TestCandles_Validation(t *testing.T) {
	e := newEcho(&fakeMarket{}, &fakeAssistant{}, 10)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"unknown asset kind", "assetKind=bond&symbol=X", "assetKind"},
		{"missing symbol", "assetKind=stock", "symbol"},
		{"bad timeframe", "assetKind=stock&symbol=AAPL&timeframe=5Y", "timeframe"},
		{"symbol with path separator", "assetKind=crypto&symbol=X%2F..%2F..%2Fsimple%2Fprice", "symbol"},
		{"symbol with query characters", "assetKind=crypto&symbol=BTC%3Fids%3Dbitcoin%23", "symbol"},
		{"symbol too long", "assetKind=stock&symbol=" + strings.Repeat("A", 33), "symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodGet, "/api/candles?"+tt.query, "", nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body xhttp.ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "ERR_BAD_REQUEST", body.Error)
			assert.Equal(t, http.StatusBadRequest, body.Status)
			require.NotEmpty(t, body.Details)
			assert.Equal(t, tt.field, body.Details[0].Field)
		})
	}
}

func TestQuote(t *testing.T) {
	e := newEcho(&fakeMarket{}, &fakeAssistant{}, 10)

	rec := do(e, http.MethodGet, "/api/quote?assetKind=crypto&symbol=btc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":12.5`)
	assert.Contains(t, rec.Body.String(), `"symbol":"BTC"`)
}

func TestNews_DefaultLimit(t *testing.T) {
	market := &fakeMarket{}
	e := newEcho(market, &fakeAssistant{}, 10)

	rec := do(e, http.MethodGet, "/api/news?assetKind=metal", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, market.news.Limit)
	assert.Contains(t, rec.Body.String(), `"articles":[]`)

	rec = do(e, http.MethodGet, "/api/news?assetKind=metal&limit=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssistant_QuestionLimit(t *testing.T) {
	e := newEcho(&fakeMarket{}, &fakeAssistant{}, 2)
	body := `{"assetKind":"stock","symbolOrCode":"AAPL","question":"what now?"}`
	session := map[string]string{api.SessionHeader: "s-1"}

	for i := 0; i < 2; i++ {
		rec := do(e, http.MethodPost, "/api/assistant", body, session)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"answer":"answer to what now?"`)
	}

	rec := do(e, http.MethodPost, "/api/assistant", body, session)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var eb xhttp.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eb))
	assert.Equal(t, "ERR_QUESTION_RATE_LIMIT", eb.Error)

	// a different session has its own bucket
	rec = do(e, http.MethodPost, "/api/assistant", body, map[string]string{api.SessionHeader: "s-2"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAssistant_RejectsEmptyQuestion(t *testing.T) {
	e := newEcho(&fakeMarket{}, &fakeAssistant{}, 10)
	rec := do(e, http.MethodPost, "/api/assistant", `{"assetKind":"stock","question":"   "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssistant_ForwardsSnapshotFlags(t *testing.T) {
	assistant := &fakeAssistant{}
	e := newEcho(&fakeMarket{}, assistant, 10)

	body := `{"assetKind":"crypto","symbolOrCode":"btc","isSynthetic":true,"isStale":true,` +
		`"chartData":[{"timestamp":"2025-01-02T00:00:00Z","close":120}],"question":"trend?"}`
	rec := do(e, http.MethodPost, "/api/assistant", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "BTC", assistant.last.Symbol)
	assert.True(t, assistant.last.IsSynthetic)
	assert.True(t, assistant.last.IsStale)
	require.Len(t, assistant.last.ChartData, 1)
	assert.Equal(t, 120.0, assistant.last.ChartData[0].Close)
}

func TestAssistant_RejectsBadSymbol(t *testing.T) {
	e := newEcho(&fakeMarket{}, &fakeAssistant{}, 10)
	rec := do(e, http.MethodPost, "/api/assistant", `{"assetKind":"stock","symbolOrCode":"A/B","question":"q"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssistant_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{models.NewProviderError("genai", models.KindRateLimited, 429, nil), http.StatusTooManyRequests, "ERR_UPSTREAM_RATE_LIMITED"},
		{fmt.Errorf("ask: %w", models.NewProviderError("genai", models.KindUnauthorized, 401, nil)), http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
		{context.Canceled, http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tt := range tests {
		e := newEcho(&fakeMarket{}, &fakeAssistant{err: tt.err}, 10)
		rec := do(e, http.MethodPost, "/api/assistant", `{"assetKind":"metal","question":"why?"}`, nil)
		require.Equal(t, tt.status, rec.Code)

		var eb xhttp.ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eb))
		assert.Equal(t, tt.code, eb.Error)
	}
}

func TestInvalidate(t *testing.T) {
	market := &fakeMarket{}
	e := newEcho(market, &fakeAssistant{}, 10)

	rec := do(e, http.MethodDelete, "/api/cache?assetKind=stock&symbol=msft", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"stock", "MSFT", ""}, market.invalidate)
}
