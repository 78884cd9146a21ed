package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig is the runtime configuration of the API server, read from
// the environment.
type ServerConfig struct {
	Server   HTTPConfig
	Logger   LoggerConfig
	Store    StoreConfig
	Upstream UpstreamConfig
	Cache    CacheConfig
	Data     ServerDataConfig
}

type HTTPConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins []string
}

func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

type LoggerConfig struct {
	Level  string
	Format string
}

type StoreConfig struct {
	Driver string // memory | sqlite | postgres
	DSN    string
}

type UpstreamConfig struct {
	ClinicalTrialsURL string
	StooqURL          string
	Timeout           time.Duration
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type ServerDataConfig struct {
	SponsorMapFile string
	PriceProvider  string // csv | stooq
	PricesDir      string
}

func LoadServer() (*ServerConfig, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("API_ENV", "development")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("STORE_DSN", "eventstudy.db")
	v.SetDefault("CTGOV_URL", "https://clinicaltrials.gov")
	v.SetDefault("STOOQ_URL", "https://stooq.com")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL", "1h")
	v.SetDefault("SPONSOR_MAP_FILE", "sponsor_ticker_map.csv")
	v.SetDefault("PRICE_PROVIDER", "stooq")
	v.SetDefault("PRICES_DIR", "data/prices")

	// Env
	v.AutomaticEnv()

	timeout, err := time.ParseDuration(v.GetString("UPSTREAM_TIMEOUT"))
	if err != nil {
		timeout = 30 * time.Second
	}
	ttl, err := time.ParseDuration(v.GetString("CACHE_TTL"))
	if err != nil {
		ttl = time.Hour
	}

	cfg := &ServerConfig{
		Server: HTTPConfig{
			Host:        v.GetString("SERVER_HOST"),
			Port:        v.GetInt("SERVER_PORT"),
			Env:         v.GetString("API_ENV"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
			DSN:    v.GetString("STORE_DSN"),
		},
		Upstream: UpstreamConfig{
			ClinicalTrialsURL: v.GetString("CTGOV_URL"),
			StooqURL:          v.GetString("STOOQ_URL"),
			Timeout:           timeout,
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("CACHE_ENABLED"),
			TTL:     ttl,
		},
		Data: ServerDataConfig{
			SponsorMapFile: v.GetString("SPONSOR_MAP_FILE"),
			PriceProvider:  strings.ToLower(v.GetString("PRICE_PROVIDER")),
			PricesDir:      v.GetString("PRICES_DIR"),
		},
	}

	switch cfg.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (expected memory|sqlite|postgres)", cfg.Store.Driver)
	}
	switch cfg.Data.PriceProvider {
	case "csv", "stooq":
	default:
		return nil, fmt.Errorf("invalid PRICE_PROVIDER %q (expected csv|stooq)", cfg.Data.PriceProvider)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
