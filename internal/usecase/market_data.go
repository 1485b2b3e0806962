package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinGate/internal/domain/models"
	domrepo "FinGate/internal/domain/repository"
	"FinGate/internal/services/analytics"
	"FinGate/internal/services/normalize"
	"FinGate/internal/services/synthetic"
	"FinGate/pkg/cache"
	applogger "FinGate/pkg/logger"
)

const maxNews = 50

// TTLConfig sets how long cached data counts as fresh.
type TTLConfig struct {
	Intraday time.Duration
	Daily    time.Duration
	Quote    time.Duration
	News     time.Duration
}

// DefaultTTLs are used when no TTLs are configured.
var DefaultTTLs = TTLConfig{
	Intraday: 5 * time.Minute,
	Daily:    time.Hour,
	Quote:    time.Minute,
	News:     15 * time.Minute,
}

// MarketDataOption configures MarketData.
type MarketDataOption func(*MarketData)

// WithCandleProviders sets the ordered candle chain for kind.
func WithCandleProviders(kind models.AssetKind, providers ...domrepo.CandleProvider) MarketDataOption {
	return func(m *MarketData) { m.candles[kind] = providers }
}

// WithQuoteProviders sets the ordered live quote chain for kind. Kinds
// without one derive quotes from candles.
func WithQuoteProviders(kind models.AssetKind, providers ...domrepo.QuoteProvider) MarketDataOption {
	return func(m *MarketData) { m.quotes[kind] = providers }
}

// WithNewsProviders sets the ordered news chain.
func WithNewsProviders(providers ...domrepo.NewsProvider) MarketDataOption {
	return func(m *MarketData) { m.news = providers }
}

func WithMetrics(r domrepo.Metrics) MarketDataOption {
	return func(m *MarketData) {
		if r != nil {
			m.metrics = r
		}
	}
}

func WithEvents(p domrepo.EventPublisher) MarketDataOption {
	return func(m *MarketData) {
		if p != nil {
			m.events = p
		}
	}
}

func WithLogger(l *applogger.Logger) MarketDataOption {
	return func(m *MarketData) {
		if l != nil {
			m.log = l
		}
	}
}

func WithClock(now func() time.Time) MarketDataOption {
	return func(m *MarketData) { m.now = now }
}

func WithTTLs(t TTLConfig) MarketDataOption {
	return func(m *MarketData) { m.ttl = t }
}

// WithFetchTimeout bounds each live attempt, limiter wait included.
func WithFetchTimeout(d time.Duration) MarketDataOption {
	return func(m *MarketData) { m.fetchTimeout = d }
}

// WithCoarserRetry toggles the one-shot retry of intraday requests at 1M.
func WithCoarserRetry(on bool) MarketDataOption {
	return func(m *MarketData) { m.coarserRetry = on }
}

// MarketData is the fetch orchestrator: cache first, then the live provider
// chain behind the rate limiter, then stale cache, then synthetic data.
// Read methods never fail; degraded results carry flags and a note.
type MarketData struct {
	candles map[models.AssetKind][]domrepo.CandleProvider
	quotes  map[models.AssetKind][]domrepo.QuoteProvider
	news    []domrepo.NewsProvider

	store   *cache.Store
	limiter domrepo.RateLimiter
	synth   *synthetic.Generator
	metrics domrepo.Metrics
	events  domrepo.EventPublisher
	log     *applogger.Logger
	now     func() time.Time

	ttl          TTLConfig
	fetchTimeout time.Duration
	coarserRetry bool

	flights flights
}

func NewMarketData(store *cache.Store, limiter domrepo.RateLimiter, synth *synthetic.Generator, opts ...MarketDataOption) *MarketData {
	m := &MarketData{
		candles:      make(map[models.AssetKind][]domrepo.CandleProvider),
		quotes:       make(map[models.AssetKind][]domrepo.QuoteProvider),
		store:        store,
		limiter:      limiter,
		synth:        synth,
		metrics:      nopMetrics{},
		events:       nopEvents{},
		log:          applogger.Nop(),
		now:          time.Now,
		ttl:          DefaultTTLs,
		fetchTimeout: 25 * time.Second,
		coarserRetry: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type CandlesParams struct {
	AssetKind     models.AssetKind
	Symbol        string
	Timeframe     models.Timeframe
	WithSentiment bool
}

type CandlesResult struct {
	Points   []models.PricePoint   `json:"points"`
	Metadata models.SeriesMetadata `json:"metadata"`
}

type QuoteParams struct {
	AssetKind models.AssetKind
	Symbol    string
}

type QuoteResult struct {
	Quote    models.Quote          `json:"quote"`
	Metadata models.SeriesMetadata `json:"metadata"`
}

type NewsParams struct {
	AssetKind models.AssetKind
	Symbol    string
	Limit     int
}

type NewsResult struct {
	Articles       []models.NewsArticle    `json:"articles"`
	Sentiment      models.SentimentSummary `json:"sentiment"`
	IsStale        bool                    `json:"isStale"`
	Note           string                  `json:"note,omitempty"`
	SentimentError string                  `json:"sentimentError,omitempty"`
}

// cachedSeries is the cache payload for candles.
type cachedSeries struct {
	Series          models.Series    `json:"series"`
	Provider        string           `json:"provider"`
	ServedTimeframe models.Timeframe `json:"servedTimeframe,omitempty"`
	FetchedAt       time.Time        `json:"fetchedAt"`
}

type cachedQuote struct {
	Quote     models.Quote `json:"quote"`
	Provider  string       `json:"provider"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

type cachedNews struct {
	Articles  []models.NewsArticle `json:"articles"`
	Provider  string               `json:"provider"`
	FetchedAt time.Time            `json:"fetchedAt"`
}

func candlesKey(kind models.AssetKind, symbol string, tf models.Timeframe) string {
	return cache.GenerateKeyWithParams("candles", string(kind), symbol, string(tf))
}

func quoteKey(kind models.AssetKind, symbol string) string {
	return cache.GenerateKeyWithParams("quote", string(kind), symbol)
}

func newsKey(kind models.AssetKind, symbol string) string {
	return cache.GenerateKeyWithParams("news", string(kind), symbol)
}

func (m *MarketData) candleTTL(tf models.Timeframe) time.Duration {
	if domrepo.IsIntraday(tf) {
		return m.ttl.Intraday
	}
	return m.ttl.Daily
}

// Candles returns a series for the request. Identical concurrent requests
// share one upstream fetch; a caller that gives up early gets a degraded
// answer without affecting the others.
func (m *MarketData) Candles(ctx context.Context, p CandlesParams) *CandlesResult {
	p.Symbol = domrepo.NormalizeSymbol(p.Symbol)
	p.Timeframe = domrepo.NormalizeTimeframe(string(p.Timeframe))
	key := candlesKey(p.AssetKind, p.Symbol, p.Timeframe)
	v, err := m.flights.do(ctx, key, func(fctx context.Context) interface{} {
		return m.loadCandles(fctx, p, key)
	})
	var res CandlesResult
	if err != nil {
		res = *m.abandonedCandles(ctx, p, key, err)
	} else {
		res = *v.(*CandlesResult)
	}

	if p.WithSentiment {
		news := m.News(ctx, NewsParams{AssetKind: p.AssetKind, Symbol: p.Symbol, Limit: 20})
		if news.SentimentError != "" {
			res.Metadata.SentimentError = news.SentimentError
		} else {
			s := news.Sentiment
			res.Metadata.Sentiment = &s
		}
	}
	return &res
}

func (m *MarketData) loadCandles(ctx context.Context, p CandlesParams, key string) *CandlesResult {
	start := m.now()
	var (
		entry    cachedSeries
		hasStale bool
	)
	stale, err := m.store.Get(ctx, key, &entry)
	switch {
	case err == nil && !stale && !entry.Series.Empty():
		return m.finishCandles(ctx, p, entry, models.SourceCache, "", start, "")
	case err == nil && !entry.Series.Empty():
		hasStale = true
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		m.log.Warn("market.candles cache_error", applogger.String("key", key), applogger.Error(err))
	}

	live, lastErr := m.liveCandles(ctx, p)
	if lastErr == nil {
		if ctx.Err() == nil {
			if err := m.store.Set(ctx, key, live, m.candleTTL(p.Timeframe)); err != nil {
				m.log.Warn("market.candles cache_write_error", applogger.String("key", key), applogger.Error(err))
			}
		}
		note := ""
		if live.ServedTimeframe != "" && live.ServedTimeframe != p.Timeframe {
			note = fmt.Sprintf("Intraday data is not available on the current plan; showing %s data instead.", live.ServedTimeframe)
		}
		return m.finishCandles(ctx, p, live, models.SourceLive, note, start, "")
	}

	if !hasStale {
		return m.degradedCandles(ctx, p, nil, lastErr, start)
	}
	return m.degradedCandles(ctx, p, &entry, lastErr, start)
}

// degradedCandles serves the stale entry when there is one, else synthetic data.
func (m *MarketData) degradedCandles(ctx context.Context, p CandlesParams, stale *cachedSeries, cause error, start time.Time) *CandlesResult {
	reason := failureReason(cause)
	if stale != nil {
		note := fmt.Sprintf("Live data unavailable (%s); showing cached data from %s.", reason, analytics.RelativeAge(m.now(), stale.FetchedAt))
		return m.finishCandles(ctx, p, *stale, models.SourceStale, note, start, reason)
	}
	synth := cachedSeries{Series: m.synth.Series(p.AssetKind, p.Symbol, p.Timeframe)}
	note := fmt.Sprintf("Live data unavailable (%s); showing simulated data for illustration only.", reason)
	return m.finishCandles(ctx, p, synth, models.SourceSynthetic, note, start, reason)
}

// abandonedCandles answers a caller that stopped waiting for a shared load.
// Only the cache is consulted; the shared load keeps running for the others.
func (m *MarketData) abandonedCandles(ctx context.Context, p CandlesParams, key string, cause error) *CandlesResult {
	start := m.now()
	var entry cachedSeries
	if err := m.store.GetStale(context.WithoutCancel(ctx), key, &entry); err == nil && !entry.Series.Empty() {
		return m.degradedCandles(ctx, p, &entry, cause, start)
	}
	return m.degradedCandles(ctx, p, nil, cause, start)
}

// liveCandles walks the provider chain. Unauthorized or rate limited intraday
// requests are retried once per provider at the coarser timeframe.
func (m *MarketData) liveCandles(ctx context.Context, p CandlesParams) (cachedSeries, error) {
	chain := m.candles[p.AssetKind]
	if len(chain) == 0 {
		return cachedSeries{}, errNoProviders
	}
	var lastErr error
	for _, prov := range chain {
		s, err := m.fetchCandles(ctx, prov, p.Symbol, p.Timeframe)
		if err == nil {
			return cachedSeries{Series: s, Provider: prov.Name(), ServedTimeframe: p.Timeframe, FetchedAt: m.now().UTC()}, nil
		}
		lastErr = err

		coarse, ok := domrepo.CoarserTimeframe(p.Timeframe)
		kind := models.KindOf(err)
		if ok && m.coarserRetry && (kind == models.KindUnauthorized || kind == models.KindRateLimited) && ctx.Err() == nil {
			s, cerr := m.fetchCandles(ctx, prov, p.Symbol, coarse)
			m.metrics.RecordCoarserRetry(prov.Name(), cerr == nil)
			if cerr == nil {
				return cachedSeries{Series: s, Provider: prov.Name(), ServedTimeframe: coarse, FetchedAt: m.now().UTC()}, nil
			}
			lastErr = cerr
		}
		if ctx.Err() != nil {
			return cachedSeries{}, ctx.Err()
		}
	}
	return cachedSeries{}, lastErr
}

func (m *MarketData) fetchCandles(ctx context.Context, prov domrepo.CandleProvider, symbol string, tf models.Timeframe) (models.Series, error) {
	var s models.Series
	err := m.attempt(ctx, prov.Name(), "market.candles", func(ctx context.Context) error {
		var err error
		s, err = prov.FetchCandles(ctx, symbol, tf)
		if err == nil && s.Empty() {
			err = models.NewProviderError(prov.Name(), models.KindNoData, 0, fmt.Errorf("empty series for %s", symbol))
		}
		return err
	})
	return s, err
}

// attempt runs one live call under the limiter and the fetch timeout. A call
// that returns after its context ended counts as aborted, whatever it returned.
func (m *MarketData) attempt(ctx context.Context, provider, op string, call func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()

	if err := m.limiter.Acquire(ctx, provider); err != nil {
		return models.NewProviderError(provider, models.KindTransient, 0, fmt.Errorf("rate limiter: %w", err))
	}
	start := time.Now()
	err := call(ctx)
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("%s: aborted: %w", provider, ctx.Err())
	}
	m.metrics.RecordProviderLatency(provider, time.Since(start))
	if err != nil {
		kind := models.KindOf(err)
		m.metrics.RecordProviderError(provider, kind)
		m.log.Warn(op+" live_error",
			applogger.String("provider", provider),
			applogger.String("kind", string(kind)),
			applogger.Error(err),
		)
	}
	return err
}

func (m *MarketData) finishCandles(ctx context.Context, p CandlesParams, e cachedSeries, src models.DataSource, note string, start time.Time, errKind string) *CandlesResult {
	md := models.SeriesMetadata{
		Symbol:      p.Symbol,
		Timeframe:   p.Timeframe,
		AssetKind:   p.AssetKind,
		HasFullOHLC: e.Series.HasFullOHLC,
		IsStale:     src == models.SourceStale,
		IsSynthetic: src == models.SourceSynthetic,
		Source:      src,
		Provider:    e.Provider,
		Note:        note,
	}
	if e.ServedTimeframe != "" && e.ServedTimeframe != p.Timeframe {
		md.ServedTimeframe = e.ServedTimeframe
	}
	if last, ok := e.Series.Last(); ok {
		ts := last.Timestamp
		md.AsOf = &ts
	}
	if lv, ok := analytics.SupportResistance(e.Series.Points); ok {
		md.Support = models.Float(lv.Support)
		md.Resistance = models.Float(lv.Resistance)
	}
	m.record(ctx, "candles", p.AssetKind, p.Symbol, p.Timeframe, src, e.Provider, errKind, start)
	points := e.Series.Points
	if points == nil {
		points = []models.PricePoint{}
	}
	return &CandlesResult{Points: points, Metadata: md}
}

// Quote returns a live quote when a quote provider serves the kind, otherwise
// a quote derived from the candles chain (with its flags).
func (m *MarketData) Quote(ctx context.Context, p QuoteParams) *QuoteResult {
	p.Symbol = domrepo.NormalizeSymbol(p.Symbol)
	key := quoteKey(p.AssetKind, p.Symbol)
	v, err := m.flights.do(ctx, key, func(fctx context.Context) interface{} {
		return m.loadQuote(fctx, p, key)
	})
	if err != nil {
		return m.abandonedQuote(ctx, p, key, err)
	}
	res := *v.(*QuoteResult)
	return &res
}

// abandonedQuote answers a caller that stopped waiting for a shared load from
// the cached quote or, failing that, the cached or synthetic series.
func (m *MarketData) abandonedQuote(ctx context.Context, p QuoteParams, key string, cause error) *QuoteResult {
	start := m.now()
	reason := failureReason(cause)
	var entry cachedQuote
	if err := m.store.GetStale(context.WithoutCancel(ctx), key, &entry); err == nil {
		note := fmt.Sprintf("Live quote unavailable (%s); showing cached quote from %s.", reason, analytics.RelativeAge(m.now(), entry.FetchedAt))
		return m.finishQuote(ctx, p, entry, models.SourceStale, note, start, reason)
	}
	c := m.abandonedCandles(ctx, CandlesParams{AssetKind: p.AssetKind, Symbol: p.Symbol, Timeframe: models.TF1M}, candlesKey(p.AssetKind, p.Symbol, models.TF1M), cause)
	return m.quoteFromCandles(ctx, p, c, cause, start)
}

func (m *MarketData) loadQuote(ctx context.Context, p QuoteParams, key string) *QuoteResult {
	start := m.now()
	chain := m.quotes[p.AssetKind]
	var (
		entry    cachedQuote
		hasStale bool
		lastErr  error
	)
	if len(chain) > 0 {
		stale, err := m.store.Get(ctx, key, &entry)
		switch {
		case err == nil && !stale:
			return m.finishQuote(ctx, p, entry, models.SourceCache, "", start, "")
		case err == nil:
			hasStale = true
		case !errors.Is(err, cache.ErrCacheMiss):
			m.log.Warn("market.quote cache_error", applogger.String("key", key), applogger.Error(err))
		}

		for _, prov := range chain {
			var q models.Quote
			err := m.attempt(ctx, prov.Name(), "market.quote", func(ctx context.Context) error {
				var err error
				q, err = prov.FetchQuote(ctx, p.Symbol)
				return err
			})
			if err == nil {
				live := cachedQuote{Quote: q, Provider: prov.Name(), FetchedAt: m.now().UTC()}
				if ctx.Err() == nil {
					if err := m.store.Set(ctx, key, live, m.ttl.Quote); err != nil {
						m.log.Warn("market.quote cache_write_error", applogger.String("key", key), applogger.Error(err))
					}
				}
				return m.finishQuote(ctx, p, live, models.SourceLive, "", start, "")
			}
			lastErr = err
			if ctx.Err() != nil {
				break
			}
		}
		if hasStale {
			reason := failureReason(lastErr)
			note := fmt.Sprintf("Live quote unavailable (%s); showing cached quote from %s.", reason, analytics.RelativeAge(m.now(), entry.FetchedAt))
			return m.finishQuote(ctx, p, entry, models.SourceStale, note, start, reason)
		}
	}

	// derive from the candles chain
	c := m.Candles(ctx, CandlesParams{AssetKind: p.AssetKind, Symbol: p.Symbol, Timeframe: models.TF1M})
	return m.quoteFromCandles(ctx, p, c, lastErr, start)
}

func (m *MarketData) quoteFromCandles(ctx context.Context, p QuoteParams, c *CandlesResult, lastErr error, start time.Time) *QuoteResult {
	q, ok := normalize.QuoteFromSeries(models.Series{Points: c.Points})
	md := c.Metadata
	md.Timeframe = ""
	md.ServedTimeframe = ""
	md.Support, md.Resistance = nil, nil
	if !ok {
		md.Note = strings.TrimSpace(md.Note + " No price available.")
	}
	if lastErr != nil && md.Note == "" {
		md.Note = fmt.Sprintf("Live quote unavailable (%s); derived from the latest series.", failureReason(lastErr))
	}
	errKind := ""
	if lastErr != nil {
		errKind = failureReason(lastErr)
	}
	m.record(ctx, "quote", p.AssetKind, p.Symbol, "", md.Source, md.Provider, errKind, start)
	return &QuoteResult{Quote: q, Metadata: md}
}

func (m *MarketData) finishQuote(ctx context.Context, p QuoteParams, e cachedQuote, src models.DataSource, note string, start time.Time, errKind string) *QuoteResult {
	md := models.SeriesMetadata{
		Symbol:    p.Symbol,
		AssetKind: p.AssetKind,
		IsStale:   src == models.SourceStale,
		Source:    src,
		Provider:  e.Provider,
		Note:      note,
	}
	if !e.Quote.AsOf.IsZero() {
		ts := e.Quote.AsOf
		md.AsOf = &ts
	}
	m.record(ctx, "quote", p.AssetKind, p.Symbol, "", src, e.Provider, errKind, start)
	return &QuoteResult{Quote: e.Quote, Metadata: md}
}

// News returns recent headlines with aggregated sentiment. When every source
// fails and nothing is cached, the result is an empty list with a note; news
// is never synthesized.
func (m *MarketData) News(ctx context.Context, p NewsParams) *NewsResult {
	p.Symbol = domrepo.NormalizeSymbol(p.Symbol)
	if p.Limit <= 0 || p.Limit > maxNews {
		p.Limit = 20
	}
	key := newsKey(p.AssetKind, p.Symbol)
	v, err := m.flights.do(ctx, key, func(fctx context.Context) interface{} {
		return m.loadNews(fctx, p, key)
	})
	var res NewsResult
	if err != nil {
		res = *m.abandonedNews(ctx, p, key, err)
	} else {
		res = *v.(*NewsResult)
	}
	if len(res.Articles) > p.Limit {
		res.Articles = res.Articles[:p.Limit]
		res.Sentiment = analytics.AggregateSentiment(res.Articles)
	}
	return &res
}

func (m *MarketData) loadNews(ctx context.Context, p NewsParams, key string) *NewsResult {
	start := m.now()
	var (
		entry    cachedNews
		hasStale bool
		lastErr  error = errNoProviders
	)
	stale, err := m.store.Get(ctx, key, &entry)
	switch {
	case err == nil && !stale:
		return m.finishNews(ctx, p, entry, models.SourceCache, "", start, "")
	case err == nil:
		hasStale = true
	case !errors.Is(err, cache.ErrCacheMiss):
		m.log.Warn("market.news cache_error", applogger.String("key", key), applogger.Error(err))
	}

	for _, prov := range m.news {
		var articles []models.NewsArticle
		err := m.attempt(ctx, prov.Name(), "market.news", func(ctx context.Context) error {
			var err error
			articles, err = prov.FetchNews(ctx, p.AssetKind, p.Symbol, maxNews)
			if err == nil && len(articles) == 0 {
				err = models.NewProviderError(prov.Name(), models.KindNoData, 0, errors.New("empty feed"))
			}
			return err
		})
		if err == nil {
			live := cachedNews{Articles: articles, Provider: prov.Name(), FetchedAt: m.now().UTC()}
			if ctx.Err() == nil {
				if err := m.store.Set(ctx, key, live, m.ttl.News); err != nil {
					m.log.Warn("market.news cache_write_error", applogger.String("key", key), applogger.Error(err))
				}
			}
			return m.finishNews(ctx, p, live, models.SourceLive, "", start, "")
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	if !hasStale {
		return m.degradedNews(ctx, p, nil, lastErr, start)
	}
	return m.degradedNews(ctx, p, &entry, lastErr, start)
}

func (m *MarketData) abandonedNews(ctx context.Context, p NewsParams, key string, cause error) *NewsResult {
	start := m.now()
	var entry cachedNews
	if err := m.store.GetStale(context.WithoutCancel(ctx), key, &entry); err == nil {
		return m.degradedNews(ctx, p, &entry, cause, start)
	}
	return m.degradedNews(ctx, p, nil, cause, start)
}

// degradedNews serves stale headlines when there are some, else an empty list.
func (m *MarketData) degradedNews(ctx context.Context, p NewsParams, stale *cachedNews, cause error, start time.Time) *NewsResult {
	reason := failureReason(cause)
	if stale != nil {
		note := fmt.Sprintf("News feed unavailable (%s); showing headlines cached %s.", reason, analytics.RelativeAge(m.now(), stale.FetchedAt))
		return m.finishNews(ctx, p, *stale, models.SourceStale, note, start, reason)
	}
	m.record(ctx, "news", p.AssetKind, p.Symbol, "", models.SourceNone, "", reason, start)
	return &NewsResult{
		Articles:       []models.NewsArticle{},
		Sentiment:      models.SentimentSummary{Label: models.SentimentNeutral},
		Note:           fmt.Sprintf("News is currently unavailable (%s).", reason),
		SentimentError: fmt.Sprintf("sentiment unavailable: %s", reason),
	}
}

func (m *MarketData) finishNews(ctx context.Context, p NewsParams, e cachedNews, src models.DataSource, note string, start time.Time, errKind string) *NewsResult {
	m.record(ctx, "news", p.AssetKind, p.Symbol, "", src, e.Provider, errKind, start)
	articles := e.Articles
	if articles == nil {
		articles = []models.NewsArticle{}
	}
	return &NewsResult{
		Articles:  articles,
		Sentiment: analytics.AggregateSentiment(articles),
		IsStale:   src == models.SourceStale,
		Note:      note,
	}
}

// Invalidate drops cached candles (one timeframe, or all when tf is empty),
// the quote and the news for an asset.
func (m *MarketData) Invalidate(ctx context.Context, kind models.AssetKind, symbol string, tf models.Timeframe) error {
	symbol = domrepo.NormalizeSymbol(symbol)
	keys := []string{quoteKey(kind, symbol), newsKey(kind, symbol)}
	if tf != "" {
		keys = append(keys, candlesKey(kind, symbol, tf))
	} else {
		for _, t := range models.Timeframes {
			keys = append(keys, candlesKey(kind, symbol, t))
		}
	}
	if err := m.store.Invalidate(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate %s %s: %w", kind, symbol, err)
	}
	m.log.Info("market.cache invalidated",
		applogger.String("asset_kind", string(kind)),
		applogger.String("symbol", symbol),
		applogger.Int("keys", len(keys)),
	)
	return nil
}

func (m *MarketData) record(ctx context.Context, kind string, asset models.AssetKind, symbol string, tf models.Timeframe, src models.DataSource, provider, errKind string, start time.Time) {
	m.metrics.RecordFetch(kind, string(asset), src)
	ev := models.FetchEvent{
		Kind:       kind,
		AssetKind:  asset,
		Symbol:     symbol,
		Timeframe:  tf,
		Source:     src,
		Provider:   provider,
		ErrorKind:  errKind,
		DurationMs: m.now().Sub(start).Milliseconds(),
		At:         m.now().UTC(),
	}
	if err := m.events.PublishFetch(context.WithoutCancel(ctx), ev); err != nil {
		m.log.Debug("market.events publish_error", applogger.Error(err))
	}
}

var errNoProviders = errors.New("no providers configured")

func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errNoProviders):
		return "no_provider"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return string(models.KindOf(err))
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string, string, models.DataSource) {}
func (nopMetrics) RecordProviderError(string, models.ErrorKind) {}
func (nopMetrics) RecordProviderLatency(string, time.Duration)  {}
func (nopMetrics) RecordCoarserRetry(string, bool)              {}
func (nopMetrics) RecordAssistant(string, time.Duration)        {}

type nopEvents struct{}

func (nopEvents) PublishFetch(context.Context, models.FetchEvent) error { return nil }
func (nopEvents) Close() error                                       { return nil }
