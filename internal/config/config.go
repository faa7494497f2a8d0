// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by POLYARB_* environment
// variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the upstream API endpoints.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	ClobHost  string `toml:"clob_host"`
}

// ScannerConfig holds the detection thresholds and cycle cadence.
type ScannerConfig struct {
	ScanInterval    duration `toml:"scan_interval"`
	MinProfitPct    float64  `toml:"min_profit_percent"`
	MinLiquidityUSD float64  `toml:"min_liquidity_usd"`
	FeePct          float64  `toml:"fee_percent"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the event bus.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for cold-storage
// archival. Archival is disabled when Bucket is empty.
type S3Config struct {
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	ForcePathStyle bool     `toml:"force_path_style"`
	RetentionDays  int      `toml:"retention_days"`
	Interval       duration `toml:"interval"`
}

// ServerConfig holds the HTTP API server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds outbound alerting parameters.
type NotifyConfig struct {
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so it can be decoded from TOML strings like
// "10s" or "5m".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults returns a Config pre-populated with sensible defaults. Load
// decodes the TOML file on top of this.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			ClobHost:  "https://clob.polymarket.com",
		},
		Scanner: ScannerConfig{
			ScanInterval:    duration{10 * time.Second},
			MinProfitPct:    0.5,
			MinLiquidityUSD: 100,
			FeePct:          0.02,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "polyarb",
			User:          "polyarb",
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 8,
		},
		S3: S3Config{
			Region:        "us-east-1",
			RetentionDays: 30,
			Interval:      duration{6 * time.Hour},
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    5000,
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// Validate checks the configuration for internal consistency. It should be
// called after Load and before wiring any dependencies.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Polymarket.GammaHost) == "" {
		return fmt.Errorf("config: polymarket.gamma_host is required")
	}
	if strings.TrimSpace(c.Polymarket.ClobHost) == "" {
		return fmt.Errorf("config: polymarket.clob_host is required")
	}
	if c.Scanner.ScanInterval.Duration <= 0 {
		return fmt.Errorf("config: scanner.scan_interval must be positive")
	}
	if c.Scanner.MinProfitPct < 0 {
		return fmt.Errorf("config: scanner.min_profit_percent must not be negative")
	}
	if c.Scanner.MinLiquidityUSD < 0 {
		return fmt.Errorf("config: scanner.min_liquidity_usd must not be negative")
	}
	if c.Scanner.FeePct < 0 || c.Scanner.FeePct >= 1 {
		return fmt.Errorf("config: scanner.fee_percent must be in [0,1)")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.S3.Bucket != "" && c.S3.Region == "" {
		return fmt.Errorf("config: s3.region is required when s3.bucket is set")
	}
	switch strings.ToLower(c.Mode) {
	case "scan", "serve", "once":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}
	return nil
}
