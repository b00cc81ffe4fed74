package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "pulse")
	t.Setenv("DB_PASSWORD", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.News.Interval != 15*time.Minute {
		t.Errorf("Expected default news interval 15m, got %v", cfg.News.Interval)
	}
	if cfg.News.CountPerSource != 20 {
		t.Errorf("Expected default count per source 20, got %d", cfg.News.CountPerSource)
	}
	if cfg.Sentiment.ReliabilityThreshold != 0.7 {
		t.Errorf("Expected default reliability threshold 0.7, got %f", cfg.Sentiment.ReliabilityThreshold)
	}
	if cfg.Sentiment.HeadlineWeight != 0.6 || cfg.Sentiment.BodyWeight != 0.4 {
		t.Errorf("Expected default weights 0.6/0.4, got %f/%f", cfg.Sentiment.HeadlineWeight, cfg.Sentiment.BodyWeight)
	}
	if cfg.Fetch.RequestsPerMinute != 60 {
		t.Errorf("Expected default 60 requests per minute, got %d", cfg.Fetch.RequestsPerMinute)
	}
	if cfg.Prices.LookbackDays != 120 {
		t.Errorf("Expected default lookback 120 days, got %d", cfg.Prices.LookbackDays)
	}
	if len(cfg.Prices.Watchlist) == 0 {
		t.Error("Default watchlist should not be empty")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NEWS_INTERVAL", "5m")
	t.Setenv("PRICES_WATCHLIST", "NVDA,AMD")
	t.Setenv("FETCH_REQUESTS_PER_MINUTE", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.News.Interval != 5*time.Minute {
		t.Errorf("Expected news interval 5m, got %v", cfg.News.Interval)
	}
	if len(cfg.Prices.Watchlist) != 2 || cfg.Prices.Watchlist[0] != "NVDA" {
		t.Errorf("Expected watchlist NVDA,AMD, got %v", cfg.Prices.Watchlist)
	}
	if cfg.Fetch.RequestsPerMinute != 10 {
		t.Errorf("Expected 10 requests per minute, got %d", cfg.Fetch.RequestsPerMinute)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name: "no news sources",
			mutate: func(c *Config) {
				c.News.RSSFeeds = nil
			},
			wantErr: "news source",
		},
		{
			name: "newsapi without key",
			mutate: func(c *Config) {
				c.News.NewsAPIEnabled = true
			},
			wantErr: "NEWSAPI_KEY",
		},
		{
			name: "empty watchlist",
			mutate: func(c *Config) {
				c.Prices.Watchlist = nil
			},
			wantErr: "watchlist",
		},
		{
			name: "weights do not sum to 1",
			mutate: func(c *Config) {
				c.Sentiment.HeadlineWeight = 0.9
			},
			wantErr: "weights",
		},
		{
			name: "threshold out of range",
			mutate: func(c *Config) {
				c.Sentiment.ReliabilityThreshold = 1.5
			},
			wantErr: "threshold",
		},
		{
			name: "telegram token without chat",
			mutate: func(c *Config) {
				c.Telegram.BotToken = "token"
				c.Telegram.ChatID = 0
			},
			wantErr: "chat_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			tt.mutate(cfg)
			err = cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		Name:     "pulse",
		User:     "app",
		Password: "secret",
		SSLMode:  "require",
	}

	dsn := cfg.GetDSN()
	for _, part := range []string{"db.internal", "5433", "pulse", "app", "require"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN missing %q: %s", part, dsn)
		}
	}
}
