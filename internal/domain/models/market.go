package models

import "time"

// AssetKind selects the provider family for a request. It is always supplied by
// the caller and never inferred from the symbol.
type AssetKind string

const (
	AssetStock  AssetKind = "stock"
	AssetOil    AssetKind = "oil"
	AssetMetal  AssetKind = "metal"
	AssetCrypto AssetKind = "crypto"
)

// Valid reports whether k is a known asset kind.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetStock, AssetOil, AssetMetal, AssetCrypto:
		return true
	default:
		return false
	}
}

// Timeframe is a logical lookback/granularity selector.
type Timeframe string

const (
	TF1D Timeframe = "1D"
	TF1W Timeframe = "1W"
	TF1M Timeframe = "1M"
	TF3M Timeframe = "3M"
	TF1Y Timeframe = "1Y"
)

// Timeframes lists every supported timeframe, finest first.
var Timeframes = []Timeframe{TF1D, TF1W, TF1M, TF3M, TF1Y}

// DataSource records where a response came from.
type DataSource string

const (
	SourceLive      DataSource = "live"
	SourceCache     DataSource = "cache"
	SourceStale     DataSource = "stale"
	SourceSynthetic DataSource = "synthetic"
	// SourceNone marks a news response with nothing to serve.
	SourceNone DataSource = "none"
)

// PricePoint is one OHLCV observation. Close is always set; Open, High and Low
// are nil for providers that only publish a scalar price.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      *float64  `json:"open,omitempty"`
	High      *float64  `json:"high,omitempty"`
	Low       *float64  `json:"low,omitempty"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// LowOrClose returns Low when present, otherwise Close.
func (p PricePoint) LowOrClose() float64 {
	if p.Low != nil {
		return *p.Low
	}
	return p.Close
}

// HighOrClose returns High when present, otherwise Close.
func (p PricePoint) HighOrClose() float64 {
	if p.High != nil {
		return *p.High
	}
	return p.Close
}

// Series is an ascending, timestamp-unique sequence of points.
type Series struct {
	Points      []PricePoint `json:"points"`
	HasFullOHLC bool         `json:"hasFullOhlc"`
}

// Empty reports whether the series carries no points.
func (s Series) Empty() bool { return len(s.Points) == 0 }

// Last returns the most recent point.
func (s Series) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Quote is a single-instant price snapshot.
type Quote struct {
	Price          float64   `json:"price"`
	AbsoluteChange float64   `json:"absoluteChange"`
	PercentChange  float64   `json:"percentChange"`
	AsOf           time.Time `json:"asOf,omitempty"`
}

// NewsArticle is a normalized headline. SentimentScore is in [-1, 1] when present.
type NewsArticle struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Snippet        string    `json:"snippet"`
	PublishedAt    time.Time `json:"publishedAt"`
	Source         string    `json:"source"`
	SentimentScore *float64  `json:"sentimentScore,omitempty"`
}

type SentimentLabel string

const (
	SentimentBullish SentimentLabel = "bullish"
	SentimentBearish SentimentLabel = "bearish"
	SentimentNeutral SentimentLabel = "neutral"
)

// SentimentSummary aggregates article scores. Score is nil when no article was scored.
type SentimentSummary struct {
	Score *float64       `json:"score"`
	Label SentimentLabel `json:"label"`
}

// SeriesMetadata travels alongside every candles and quote response.
type SeriesMetadata struct {
	Symbol          string            `json:"symbol"`
	Timeframe       Timeframe         `json:"timeframe"`
	AssetKind       AssetKind         `json:"assetKind"`
	HasFullOHLC     bool              `json:"hasFullOhlc"`
	IsStale         bool              `json:"isStale"`
	IsSynthetic     bool              `json:"isSynthetic"`
	Source          DataSource        `json:"source"`
	Provider        string            `json:"provider,omitempty"`
	ServedTimeframe Timeframe         `json:"servedTimeframe,omitempty"`
	AsOf            *time.Time        `json:"asOf,omitempty"`
	Note            string            `json:"note,omitempty"`
	Support         *float64          `json:"support,omitempty"`
	Resistance      *float64          `json:"resistance,omitempty"`
	Sentiment       *SentimentSummary `json:"sentiment,omitempty"`
	SentimentError  string            `json:"sentimentError,omitempty"`
}

// Degraded reports whether the response is not fresh live or cached data.
func (m SeriesMetadata) Degraded() bool { return m.IsStale || m.IsSynthetic }

// FetchEvent describes the outcome of one orchestrated fetch.
type FetchEvent struct {
	Kind       string     `json:"kind"`
	AssetKind  AssetKind  `json:"assetKind"`
	Symbol     string     `json:"symbol"`
	Timeframe  Timeframe  `json:"timeframe,omitempty"`
	Source     DataSource `json:"source"`
	Provider   string     `json:"provider,omitempty"`
	ErrorKind  string     `json:"errorKind,omitempty"`
	DurationMs int64      `json:"durationMs"`
	At         time.Time  `json:"at"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
