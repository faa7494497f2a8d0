package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYARB_* environment variable overrides, and
// returns the final Config. A missing config file is not an error; the
// defaults plus environment overrides are used instead. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Polymarket.GammaHost, "POLYARB_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "POLYARB_CLOB_HOST")

	setDuration(&cfg.Scanner.ScanInterval, "POLYARB_SCAN_INTERVAL")
	setFloat64(&cfg.Scanner.MinProfitPct, "POLYARB_MIN_PROFIT_PERCENT")
	setFloat64(&cfg.Scanner.MinLiquidityUSD, "POLYARB_MIN_LIQUIDITY_USD")
	setFloat64(&cfg.Scanner.FeePct, "POLYARB_FEE_PERCENT")

	setStr(&cfg.Postgres.DSN, "POLYARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POLYARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYARB_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYARB_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "POLYARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYARB_REDIS_TLS_ENABLED")

	setStr(&cfg.S3.Endpoint, "POLYARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYARB_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "POLYARB_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "POLYARB_S3_RETENTION_DAYS")
	setDuration(&cfg.S3.Interval, "POLYARB_S3_INTERVAL")

	setBool(&cfg.Server.Enabled, "POLYARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "POLYARB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYARB_SERVER_CORS_ORIGINS")

	setStr(&cfg.Notify.DiscordWebhookURL, "POLYARB_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYARB_NOTIFY_EVENTS")

	setStr(&cfg.Mode, "POLYARB_MODE")
	setStr(&cfg.LogLevel, "POLYARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
