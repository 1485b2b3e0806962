package di

import (
	"fmt"
	"time"

	"FinGate/internal/domain/models"
	"FinGate/internal/domain/repository"
	"FinGate/internal/handler/api"
	internalrepo "FinGate/internal/repository"
	"FinGate/internal/service/alphavantage"
	"FinGate/internal/service/coingecko"
	"FinGate/internal/service/finnhub"
	"FinGate/internal/service/genai"
	"FinGate/internal/service/metals"
	"FinGate/internal/service/ratelimit"
	"FinGate/internal/services/synthetic"
	"FinGate/internal/usecase"
	"FinGate/pkg/cache"
	"FinGate/pkg/config"
	xhttp "FinGate/pkg/http"
	pkgkafka "FinGate/pkg/kafka"
	applogger "FinGate/pkg/logger"
	"FinGate/pkg/metrics"
	"FinGate/pkg/server"
	"FinGate/pkg/util"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.Producer.AutoCreateTopics),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger. Error logs are aggregated and
// shipped to the log topic when Kafka is enabled.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Kafka.LogCollector.FlushInterval,
			CountThreshold: cfg.Kafka.LogCollector.BatchSize,
			Topic:          cfg.Kafka.LogTopic,
			Service:        "fingate-" + cfg.Environment,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideEventPublisher publishes fetch events to Kafka, or drops them.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideCacheStore builds the cache over the configured backend. An
// unreachable Redis degrades to the in-process cache.
func ProvideCacheStore(cfg *config.Config, rec *metrics.Recorder, l *applogger.Logger) *cache.Store {
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.Memory.MaxSize))
	var backend cache.Backend = mem

	if cfg.Cache.Backend != "memory" {
		host, port := util.SplitHostPort(cfg.Cache.Redis.Addr, 6379)
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(host),
			cache.WithRedisPort(port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, 2, 30*time.Second),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			cache.WithRedisRetention(cfg.Cache.Redis.Retention),
		)
		switch {
		case err != nil:
			l.Warn("cache.redis unavailable, using memory", applogger.String("addr", cfg.Cache.Redis.Addr), applogger.Error(err))
		case cfg.Cache.Backend == "layered":
			backend = cache.NewLayeredCache(mem, rc)
		default:
			backend = rc
		}
	}
	l.Info("cache ready", applogger.String("backend", cfg.Cache.Backend))
	return cache.NewStore(backend, cache.WithObserver(rec))
}

// ProvideLimiter creates the per-provider call limiter.
func ProvideLimiter(cfg *config.Config, rec *metrics.Recorder) *ratelimit.Limiter {
	return ratelimit.New(
		ratelimit.WithDefaultInterval(cfg.RateLimit.Default),
		ratelimit.WithIntervals(cfg.RateLimit.Intervals),
		ratelimit.WithWaitObserver(rec),
	)
}

func httpClient(p config.Provider) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(p.Timeout))
}

// ProvideMarketData wires the provider chains per asset kind.
func ProvideMarketData(
	cfg *config.Config,
	store *cache.Store,
	limiter *ratelimit.Limiter,
	rec *metrics.Recorder,
	events repository.EventPublisher,
	l *applogger.Logger,
) *usecase.MarketData {
	p := cfg.Providers
	fh := finnhub.New(p.Finnhub.APIKey, finnhub.WithHTTPClient(httpClient(p.Finnhub)), finnhub.WithBaseURL(orDefault(p.Finnhub.BaseURL, finnhub.DefaultBaseURL)))
	av := alphavantage.New(p.AlphaVantage.APIKey, alphavantage.WithHTTPClient(httpClient(p.AlphaVantage)), alphavantage.WithBaseURL(orDefault(p.AlphaVantage.BaseURL, alphavantage.DefaultBaseURL)))
	mt := metals.New(p.Metals.APIKey, metals.WithHTTPClient(httpClient(p.Metals)), metals.WithBaseURL(orDefault(p.Metals.BaseURL, metals.DefaultBaseURL)))
	cg := coingecko.New(p.CoinGecko.APIKey, coingecko.WithHTTPClient(httpClient(p.CoinGecko)), coingecko.WithBaseURL(orDefault(p.CoinGecko.BaseURL, coingecko.DefaultBaseURL)))

	return usecase.NewMarketData(store, limiter, synthetic.New(),
		usecase.WithCandleProviders(models.AssetStock, fh, alphavantage.Equities{Client: av}),
		usecase.WithCandleProviders(models.AssetOil, alphavantage.Commodities{Client: av}),
		usecase.WithCandleProviders(models.AssetMetal, mt),
		usecase.WithCandleProviders(models.AssetCrypto, cg),
		usecase.WithQuoteProviders(models.AssetStock, fh, alphavantage.Equities{Client: av}),
		usecase.WithQuoteProviders(models.AssetMetal, mt),
		usecase.WithQuoteProviders(models.AssetCrypto, cg),
		usecase.WithNewsProviders(av, fh),
		usecase.WithMetrics(rec),
		usecase.WithEvents(events),
		usecase.WithLogger(l),
		usecase.WithTTLs(usecase.TTLConfig{
			Intraday: cfg.Cache.TTL.Intraday,
			Daily:    cfg.Cache.TTL.Daily,
			Quote:    cfg.Cache.TTL.Quote,
			News:     cfg.Cache.TTL.News,
		}),
		usecase.WithFetchTimeout(cfg.Fetch.Timeout),
		usecase.WithCoarserRetry(cfg.Fetch.CoarserRetry),
	)
}

// ProvideTextGenerator creates the generative model client.
func ProvideTextGenerator(cfg *config.Config) repository.TextGenerator {
	g := cfg.Providers.GenAI
	return genai.New(g.APIKey,
		genai.WithHTTPClient(httpClient(g.Provider)),
		genai.WithBaseURL(orDefault(g.BaseURL, genai.DefaultBaseURL)),
		genai.WithModel(g.Model),
		genai.WithDecoding(g.Temperature, g.MaxTokens),
	)
}

// ProvideAssistant creates the assistant use case.
func ProvideAssistant(
	cfg *config.Config,
	market *usecase.MarketData,
	gen repository.TextGenerator,
	limiter *ratelimit.Limiter,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.Assistant {
	if !gen.Configured() {
		l.Warn("assistant model not configured, answers will be offline")
	}
	return usecase.NewAssistant(market, gen, limiter, rec, l, usecase.AssistantConfig{
		MaxContextChars: cfg.Assistant.MaxContextChars,
		MaxHeadlines:    cfg.Assistant.MaxHeadlines,
		Timeout:         cfg.Assistant.Timeout,
	})
}

// ProvideHandler creates the API route handler.
func ProvideHandler(
	cfg *config.Config,
	l *applogger.Logger,
	market *usecase.MarketData,
	assistant *usecase.Assistant,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return api.NewMarketEchoHandler(l, market, assistant, limiter, cfg.Assistant.QuestionsPerHour)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	store *cache.Store,
	events repository.EventPublisher,
) *server.App {
	return server.New(cfg, l, handler, store, events)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
