package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"FinGate/pkg/util"
)

// Provider holds the credentials and endpoint of one upstream API. An empty
// BaseURL keeps the client's default.
type Provider struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Cache struct {
		Backend string `yaml:"backend" default:"memory"`
		TTL     struct {
			Intraday time.Duration `yaml:"intraday" default:"5m"`
			Daily    time.Duration `yaml:"daily" default:"1h"`
			Quote    time.Duration `yaml:"quote" default:"1m"`
			News     time.Duration `yaml:"news" default:"15m"`
		} `yaml:"ttl"`
		Memory struct {
			MaxSize int `yaml:"max_size"`
		} `yaml:"memory"`
		Redis struct {
			Addr      string        `yaml:"addr" default:"localhost:6379"`
			Password  string        `yaml:"password"`
			DB        int           `yaml:"db"`
			Prefix    string        `yaml:"prefix" default:"fingate"`
			Retention time.Duration `yaml:"retention" default:"168h"`
			PoolSize  int           `yaml:"pool_size" default:"10"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	RateLimit struct {
		Default   time.Duration            `yaml:"default" default:"1s"`
		Intervals map[string]time.Duration `yaml:"intervals"`
	} `yaml:"ratelimit"`
	Fetch struct {
		Timeout      time.Duration `yaml:"timeout" default:"25s"`
		CoarserRetry bool          `yaml:"coarser_retry" default:"true"`
	} `yaml:"fetch"`
	Providers struct {
		Finnhub      Provider `yaml:"finnhub"`
		AlphaVantage Provider `yaml:"alphavantage"`
		Metals       Provider `yaml:"metals"`
		CoinGecko    Provider `yaml:"coingecko"`
		GenAI        struct {
			Provider    `yaml:",inline"`
			Model       string  `yaml:"model" default:"gemini-1.5-flash"`
			Temperature float64 `yaml:"temperature" default:"0.3"`
			MaxTokens   int     `yaml:"max_tokens" default:"512"`
		} `yaml:"genai"`
	} `yaml:"providers"`
	Assistant struct {
		QuestionsPerHour int           `yaml:"questions_per_hour" default:"10"`
		MaxContextChars  int           `yaml:"max_context_chars" default:"2400"`
		MaxHeadlines     int           `yaml:"max_headlines" default:"5"`
		Timeout          time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"assistant"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"fingate.fetch-events"`
		LogTopic     string   `yaml:"log_topic" default:"fingate.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts      int           `yaml:"max_attempts" default:"3"`
			Linger           time.Duration `yaml:"linger" default:"50ms"`
			WriteTimeout     time.Duration `yaml:"write_timeout" default:"5s"`
			Async            bool          `yaml:"async" default:"true"`
			AutoCreateTopics bool          `yaml:"auto_create_topics"`
		} `yaml:"producer"`
		LogCollector struct {
			FlushInterval time.Duration `yaml:"flush_interval" default:"30s"`
			BatchSize     int           `yaml:"batch_size" default:"100"`
		} `yaml:"log_collector"`
	} `yaml:"kafka"`
}

// DefaultIntervals is the minimum spacing between live calls per provider,
// sized for the free tiers.
var DefaultIntervals = map[string]time.Duration{
	"finnhub":      time.Second,
	"alphavantage": 12 * time.Second,
	"metals":       time.Second,
	"coingecko":    2 * time.Second,
	"genai":        time.Second,
}

// Load reads and parses a YAML configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	var c Config
	// defaults first so the file can turn boolean defaults off
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if c.RateLimit.Intervals == nil {
		c.RateLimit.Intervals = make(map[string]time.Duration, len(DefaultIntervals))
	}
	for p, d := range DefaultIntervals {
		if _, ok := c.RateLimit.Intervals[p]; !ok {
			c.RateLimit.Intervals[p] = d
		}
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set("FINNHUB_API_KEY", &c.Providers.Finnhub.APIKey)
	set("ALPHAVANTAGE_API_KEY", &c.Providers.AlphaVantage.APIKey)
	set("METALS_API_KEY", &c.Providers.Metals.APIKey)
	set("COINGECKO_API_KEY", &c.Providers.CoinGecko.APIKey)
	set("GEMINI_API_KEY", &c.Providers.GenAI.APIKey)
	set("CACHE_BACKEND", &c.Cache.Backend)
	set("REDIS_PASSWORD", &c.Cache.Redis.Password)
	set("LOG_LEVEL", &c.Log.Level)
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port := util.SplitHostPort(v, 6379)
		c.Cache.Redis.Addr = fmt.Sprintf("%s:%d", host, port)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
		c.Kafka.Enabled = len(c.Kafka.Brokers) > 0
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Cache.Backend != "memory" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for backend '%s'", c.Cache.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got '%s'", c.Log.Level)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Assistant.QuestionsPerHour <= 0 {
		return fmt.Errorf("assistant.questions_per_hour must be positive")
	}
	for p, d := range c.RateLimit.Intervals {
		if d < 0 {
			return fmt.Errorf("ratelimit.intervals.%s must not be negative", p)
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required")
		}
	}
	return nil
}
