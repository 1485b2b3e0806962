package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"FinGate/internal/domain/models"
	domrepo "FinGate/internal/domain/repository"
	"FinGate/internal/services/analytics"
	"FinGate/internal/services/normalize"
	applogger "FinGate/pkg/logger"
)

const (
	SourceModel   = "model"
	SourceOffline = "offline"

	genaiLimiterID = "genai"
)

const systemPrompt = `You are a market data assistant. Answer the user's question using only the data provided.
Be concise and factual. Do not give personalised investment advice.
If the data is marked cached or SYNTHETIC, say so plainly in the answer.`

// MarketReader is the part of MarketData the assistant loads from.
type MarketReader interface {
	Candles(ctx context.Context, p CandlesParams) *CandlesResult
	News(ctx context.Context, p NewsParams) *NewsResult
}

type AssistantConfig struct {
	MaxContextChars int
	MaxHeadlines    int
	Timeout         time.Duration
}

type AskParams struct {
	AssetKind models.AssetKind
	Symbol    string
	Timeframe models.Timeframe
	ChartData []models.PricePoint
	News      []models.NewsArticle
	Question  string
	// flags of client-supplied ChartData, as returned by the candles endpoint
	IsStale     bool
	IsSynthetic bool
}

type Answer struct {
	Answer     string `json:"answer"`
	Source     string `json:"source"`
	Disclaimer string `json:"disclaimer,omitempty"`
}

// Assistant answers questions about an asset from a bounded context digest.
type Assistant struct {
	market  MarketReader
	gen     domrepo.TextGenerator
	limiter domrepo.RateLimiter
	metrics domrepo.Metrics
	log     *applogger.Logger
	cfg     AssistantConfig
	now     func() time.Time
}

func NewAssistant(market MarketReader, gen domrepo.TextGenerator, limiter domrepo.RateLimiter, metrics domrepo.Metrics, log *applogger.Logger, cfg AssistantConfig) *Assistant {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = applogger.Nop()
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = analytics.DefaultMaxContextChars
	}
	if cfg.MaxHeadlines <= 0 {
		cfg.MaxHeadlines = analytics.DefaultMaxHeadlines
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Assistant{market: market, gen: gen, limiter: limiter, metrics: metrics, log: log, cfg: cfg, now: time.Now}
}

// Ask answers p.Question. Chart data and news supplied by the client are used
// with the client's stale and synthetic flags; missing ones are loaded when a
// symbol is given. It only fails when ctx is done.
func (a *Assistant) Ask(ctx context.Context, p AskParams) (*Answer, error) {
	start := time.Now()
	p.Symbol = domrepo.NormalizeSymbol(p.Symbol)
	p.Timeframe = domrepo.NormalizeTimeframe(string(p.Timeframe))

	stale, synthetic := p.IsStale, p.IsSynthetic
	if p.Symbol != "" && (len(p.ChartData) == 0 || len(p.News) == 0) {
		g, gctx := errgroup.WithContext(ctx)
		if len(p.ChartData) == 0 {
			g.Go(func() error {
				c := a.market.Candles(gctx, CandlesParams{AssetKind: p.AssetKind, Symbol: p.Symbol, Timeframe: p.Timeframe})
				p.ChartData = c.Points
				stale, synthetic = c.Metadata.IsStale, c.Metadata.IsSynthetic
				return nil
			})
		}
		if len(p.News) == 0 {
			g.Go(func() error {
				n := a.market.News(gctx, NewsParams{AssetKind: p.AssetKind, Symbol: p.Symbol, Limit: a.cfg.MaxHeadlines * 2})
				p.News = n.Articles
				return nil
			})
		}
		_ = g.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.ChartData = normalize.Ordered(p.ChartData)

	digest := analytics.BuildContext(analytics.ContextInput{
		AssetKind:    p.AssetKind,
		Symbol:       p.Symbol,
		Timeframe:    p.Timeframe,
		Points:       p.ChartData,
		News:         p.News,
		IsStale:      stale,
		IsSynthetic:  synthetic,
		Now:          a.now(),
		MaxChars:     a.cfg.MaxContextChars,
		MaxHeadlines: a.cfg.MaxHeadlines,
	})

	ans := &Answer{Source: SourceOffline}
	if text, err := a.generate(ctx, digest, p.Question); err == nil {
		ans.Answer, ans.Source = text, SourceModel
	} else {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.log.Warn("assistant.ask model_error",
			applogger.String("asset_kind", string(p.AssetKind)),
			applogger.String("symbol", p.Symbol),
			applogger.Error(err),
		)
		ans.Answer = offlineAnswer(p, stale, synthetic)
	}

	if d := disclaimer(stale, synthetic); d != "" {
		ans.Disclaimer = d
		ans.Answer = strings.TrimRight(ans.Answer, "\n") + "\n\n" + d
	}
	a.metrics.RecordAssistant(ans.Source, time.Since(start))
	return ans, nil
}

func (a *Assistant) generate(ctx context.Context, digest, question string) (string, error) {
	if a.gen == nil || !a.gen.Configured() {
		return "", models.NewProviderError(genaiLimiterID, models.KindUnauthorized, 0, fmt.Errorf("text generator not configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	if a.limiter != nil {
		if err := a.limiter.Acquire(ctx, genaiLimiterID); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}
	prompt := fmt.Sprintf("Market data:\n%s\nQuestion: %s", digest, question)
	text, err := a.gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewProviderError(a.gen.Name(), models.KindNoData, 0, fmt.Errorf("empty answer"))
	}
	return text, nil
}

// offlineAnswer is the templated analysis used when the model is unavailable.
func offlineAnswer(p AskParams, stale, synthetic bool) string {
	var b strings.Builder
	name := p.Symbol
	if name == "" {
		name = string(p.AssetKind)
	}
	fmt.Fprintf(&b, "[Offline analysis: the AI model is unavailable, this summary is computed from the data only.]\n")
	fmt.Fprintf(&b, "%s over %s (%s data).\n", name, p.Timeframe, analytics.DataLabel(stale, synthetic))

	if s, ok := analytics.Summarize(p.ChartData, p.Timeframe); ok {
		fmt.Fprintf(&b, "Last price %s, %+.2f%% over the period, range %s to %s. Trend: %s.\n",
			analytics.FormatPrice(s.Current), s.ChangePct, analytics.FormatPrice(s.Low), analytics.FormatPrice(s.High), s.Trend)
		fmt.Fprintf(&b, "Volatility (stddev/mean of closes): %.2f%%.\n", s.Volatility*100)
	} else {
		b.WriteString("No chart data is available.\n")
	}
	if lv, ok := analytics.SupportResistance(p.ChartData); ok {
		fmt.Fprintf(&b, "Support near %s, resistance near %s.\n", analytics.FormatPrice(lv.Support), analytics.FormatPrice(lv.Resistance))
	}
	if len(p.News) > 0 {
		sent := analytics.AggregateSentiment(p.News)
		fmt.Fprintf(&b, "News sentiment across %d headlines: %s.\n", len(p.News), sent.Label)
	}
	return b.String()
}

func disclaimer(stale, synthetic bool) string {
	switch {
	case synthetic:
		return "Note: live data was unavailable. The figures above are simulated for illustration and are not real market data."
	case stale:
		return "Note: live data was unavailable. The figures above come from cached data and may be out of date."
	}
	return ""
}
