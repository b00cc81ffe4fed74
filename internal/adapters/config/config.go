package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	News       NewsConfig       `envconfig:"NEWS"`
	Prices     PricesConfig     `envconfig:"PRICES"`
	Sentiment  SentimentConfig  `envconfig:"SENTIMENT"`
	Fetch      FetchConfig      `envconfig:"FETCH"`
	Database   DatabaseConfig   `envconfig:"DATABASE"`
	ClickHouse ClickHouseConfig `envconfig:"CLICKHOUSE"`
	Telegram   TelegramConfig   `envconfig:"TELEGRAM"`
	Logging    LoggingConfig    `envconfig:"LOGGING"`
}

// NewsConfig represents news collection configuration
type NewsConfig struct {
	Interval       time.Duration `envconfig:"NEWS_INTERVAL" default:"15m"`
	CountPerSource int           `envconfig:"NEWS_COUNT_PER_SOURCE" default:"20"`
	RSSFeeds       []string      `envconfig:"NEWS_RSS_FEEDS" default:"https://feeds.finance.yahoo.com/rss/2.0/headline"`
	FeedURL        string        `envconfig:"NEWS_FEED_URL" required:"false"`
	FeedEnabled    bool          `envconfig:"NEWS_FEED_ENABLED" default:"false"`
	NewsAPIKey     string        `envconfig:"NEWSAPI_KEY" required:"false"`
	NewsAPIEnabled bool          `envconfig:"NEWSAPI_ENABLED" default:"false"`
	Keywords       []string      `envconfig:"NEWS_KEYWORDS" default:"stocks,earnings,market,shares,fed,inflation"`
	SourcePriority []string      `envconfig:"NEWS_SOURCE_PRIORITY" default:"newsapi,feed,rss"`
	Retention      time.Duration `envconfig:"NEWS_RETENTION" default:"720h"`
}

// PricesConfig represents price collection configuration
type PricesConfig struct {
	Interval     time.Duration `envconfig:"PRICES_INTERVAL" default:"1h"`
	Watchlist    []string      `envconfig:"PRICES_WATCHLIST" default:"AAPL,MSFT,GOOGL,AMZN,TSLA"`
	LookbackDays int           `envconfig:"PRICES_LOOKBACK_DAYS" default:"120"`
	APIKey       string        `envconfig:"PRICES_API_KEY" required:"false"`
	BaseURL      string        `envconfig:"PRICES_BASE_URL" default:"https://www.alphavantage.co/query"`
	SMAPeriods   []int         `envconfig:"PRICES_SMA_PERIODS" default:"20,50"`
	EMAPeriods   []int         `envconfig:"PRICES_EMA_PERIODS" default:"12,26"`
}

// SentimentConfig represents sentiment scoring configuration
type SentimentConfig struct {
	OpenAIKey            string  `envconfig:"OPENAI_API_KEY" required:"false"`
	OpenAIModel          string  `envconfig:"SENTIMENT_OPENAI_MODEL" default:"gpt-4o-mini"`
	ReliabilityThreshold float64 `envconfig:"SENTIMENT_RELIABILITY_THRESHOLD" default:"0.7"`
	HeadlineWeight       float64 `envconfig:"SENTIMENT_HEADLINE_WEIGHT" default:"0.6"`
	BodyWeight           float64 `envconfig:"SENTIMENT_BODY_WEIGHT" default:"0.4"`
	MaxTextLength        int     `envconfig:"SENTIMENT_MAX_TEXT_LENGTH" default:"1024"`
	BatchSize            int     `envconfig:"SENTIMENT_BATCH_SIZE" default:"16"`
}

// FetchConfig represents rate-limited fetcher configuration
type FetchConfig struct {
	RequestsPerMinute int           `envconfig:"FETCH_REQUESTS_PER_MINUTE" default:"60"`
	MaxRetries        int           `envconfig:"FETCH_MAX_RETRIES" default:"3"`
	BackoffFactor     float64       `envconfig:"FETCH_BACKOFF_FACTOR" default:"2.0"`
	MaxBackoff        time.Duration `envconfig:"FETCH_MAX_BACKOFF" default:"1m"`
	CallTimeout       time.Duration `envconfig:"FETCH_CALL_TIMEOUT" default:"15s"`
}

// DatabaseConfig represents database connection parameters
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"marketpulse"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// ClickHouseConfig represents ClickHouse sink configuration
type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	Name     string `envconfig:"CLICKHOUSE_DB" default:"marketpulse"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD" required:"false"`
}

// TelegramConfig represents Telegram alerting configuration
type TelegramConfig struct {
	BotToken        string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID          int64   `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
	AlertOnNews     bool    `envconfig:"TELEGRAM_ALERT_ON_NEWS" default:"true"`
	AlertConfidence float64 `envconfig:"TELEGRAM_ALERT_CONFIDENCE" default:"0.85"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if len(c.News.RSSFeeds) == 0 && !c.News.FeedEnabled && !c.News.NewsAPIEnabled {
		return fmt.Errorf("at least one news source must be configured")
	}
	if c.News.NewsAPIEnabled && c.News.NewsAPIKey == "" {
		return fmt.Errorf("NEWSAPI_KEY is required when NewsAPI source is enabled")
	}
	if c.News.FeedEnabled && c.News.FeedURL == "" {
		return fmt.Errorf("NEWS_FEED_URL is required when the aggregated feed source is enabled")
	}

	if len(c.Prices.Watchlist) == 0 {
		return fmt.Errorf("price watchlist must not be empty")
	}
	if c.Prices.LookbackDays < 1 {
		return fmt.Errorf("prices lookback must be at least 1 day")
	}

	if c.Sentiment.ReliabilityThreshold < 0 || c.Sentiment.ReliabilityThreshold > 1 {
		return fmt.Errorf("reliability threshold must be between 0 and 1")
	}
	weightSum := c.Sentiment.HeadlineWeight + c.Sentiment.BodyWeight
	if weightSum < 0.999 || weightSum > 1.001 {
		return fmt.Errorf("headline and body weights must sum to 1, got %.3f", weightSum)
	}
	if c.Sentiment.MaxTextLength < 1 {
		return fmt.Errorf("max text length must be positive")
	}
	if c.Sentiment.BatchSize < 1 {
		return fmt.Errorf("sentiment batch size must be at least 1")
	}

	if c.Fetch.RequestsPerMinute < 1 {
		return fmt.Errorf("fetch requests per minute must be at least 1")
	}
	if c.Fetch.BackoffFactor < 1 {
		return fmt.Errorf("backoff factor must be at least 1")
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat_id is required when a bot token is set")
	}

	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetDSN returns ClickHouse connection string
func (c *ClickHouseConfig) GetDSN() string {
	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
}
