package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT" validate:"gt=0,lte=65535"`

	// Extraction Configuration
	YtdlpPath        string        `mapstructure:"YTDLP_PATH"`
	ExtractTimeout   time.Duration `mapstructure:"EXTRACT_TIMEOUT"`
	ScrollBudget     time.Duration `mapstructure:"SCROLL_BUDGET"`
	YouTubeCookies   string        `mapstructure:"YOUTUBE_COOKIES"`
	InstagramCookies string        `mapstructure:"INSTAGRAM_COOKIES"`

	// Proxy Configuration
	ProxyFile        string `mapstructure:"PROXY_FILE"`
	FallbackProxyURL string `mapstructure:"FALLBACK_PROXY_URL" validate:"omitempty,url"`

	// Browser Configuration
	BrowserBin      string `mapstructure:"BROWSER_BIN"`
	BrowserHeadless bool   `mapstructure:"BROWSER_HEADLESS"`

	// Cache Configuration
	RedisURL        string        `mapstructure:"REDIS_URL"`
	CacheTTL        time.Duration `mapstructure:"CACHE_TTL"`
	CacheMaxEntries int           `mapstructure:"CACHE_MAX_ENTRIES"`

	// Rate Limiting
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gt=0"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("mapstructure")
		if tag != "" {
			viper.BindEnv(tag)
		}
	}
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 8000)
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("EXTRACT_TIMEOUT", "60s")
	viper.SetDefault("SCROLL_BUDGET", "30s")
	viper.SetDefault("YOUTUBE_COOKIES", "youtube_cookies.txt")
	viper.SetDefault("INSTAGRAM_COOKIES", "instagram_cookies.txt")
	viper.SetDefault("PROXY_FILE", "proxies.txt")
	viper.SetDefault("BROWSER_HEADLESS", true)
	viper.SetDefault("CACHE_TTL", "15m")
	viper.SetDefault("CACHE_MAX_ENTRIES", 1000)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration",
		slog.Int("port", cfg.WebServerPort),
		slog.String("ytdlp", cfg.YtdlpPath),
		slog.String("proxy_file", cfg.ProxyFile),
		slog.Bool("redis", cfg.RedisURL != ""))

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
