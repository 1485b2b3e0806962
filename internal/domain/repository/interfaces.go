package repository

//go:generate mockgen -destination=../../usecase/mock_providers_test.go -package=usecase FinGate/internal/domain/repository CandleProvider,QuoteProvider,NewsProvider,TextGenerator

import (
	"context"
	"time"

	"FinGate/internal/domain/models"
)

// CandleProvider fetches a normalized price series for one asset kind.
type CandleProvider interface {
	Name() string
	FetchCandles(ctx context.Context, symbol string, tf models.Timeframe) (models.Series, error)
}

// QuoteProvider fetches a live quote snapshot.
type QuoteProvider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// NewsProvider fetches scored headlines for an asset.
type NewsProvider interface {
	Name() string
	FetchNews(ctx context.Context, kind models.AssetKind, symbol string, limit int) ([]models.NewsArticle, error)
}

// TextGenerator calls a generative model.
type TextGenerator interface {
	Name() string
	Configured() bool
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// RateLimiter serializes live calls per provider.
type RateLimiter interface {
	Acquire(ctx context.Context, provider string) error
}

// EventPublisher emits fetch outcomes. Implementations must not block the caller
// for long and may drop events.
type EventPublisher interface {
	PublishFetch(ctx context.Context, ev models.FetchEvent) error
	Close() error
}

type Metrics interface {
	RecordFetch(kind, assetKind string, source models.DataSource)
	RecordProviderError(provider string, kind models.ErrorKind)
	RecordProviderLatency(provider string, d time.Duration)
	RecordCoarserRetry(provider string, ok bool)
	RecordAssistant(source string, d time.Duration)
}
