package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "MARKETWIRE_"

// Load lays the TOML file at path over Defaults, loads .env when present and
// applies MARKETWIRE_* overrides. An empty path skips the file. The result is
// not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// database
	setStr(&cfg.Database.DSN, "DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL")
	setStr(&cfg.Database.Host, "DATABASE_HOST")
	setInt(&cfg.Database.Port, "DATABASE_PORT")
	setStr(&cfg.Database.Database, "DATABASE_NAME")
	setStr(&cfg.Database.User, "DATABASE_USER")
	setStr(&cfg.Database.Password, "DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "DATABASE_RUN_MIGRATIONS")

	// redis
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "REDIS_TLS_ENABLED")

	// s3
	setBool(&cfg.S3.Enabled, "S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setStr(&cfg.S3.Region, "S3_REGION")
	setStr(&cfg.S3.Bucket, "S3_BUCKET")
	setStr(&cfg.S3.Prefix, "S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.PartSizeMB, "S3_PART_SIZE_MB")

	// venues
	setStr(&cfg.Polymarket.GammaHost, "POLYMARKET_GAMMA_HOST")
	setBool(&cfg.Kalshi.Enabled, "KALSHI_ENABLED")
	setStr(&cfg.Kalshi.BaseURL, "KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.APIKeyID, "KALSHI_API_KEY_ID")
	setStr(&cfg.Kalshi.RSAPrivateKeyPath, "KALSHI_RSA_PRIVATE_KEY_PATH")

	// llm
	setStr(&cfg.LLM.Endpoint, "LLM_ENDPOINT")
	setStr(&cfg.LLM.APIKey, "LLM_API_KEY")
	setStr(&cfg.LLM.Model, "LLM_MODEL")
	setFloat64(&cfg.LLM.Temperature, "LLM_TEMPERATURE")
	setInt(&cfg.LLM.MaxTokens, "LLM_MAX_TOKENS")
	setDuration(&cfg.LLM.Timeout, "LLM_TIMEOUT")
	setInt(&cfg.LLM.RateLimit, "LLM_RATE_LIMIT")
	setDuration(&cfg.LLM.RateWindow, "LLM_RATE_WINDOW")

	// research
	setStr(&cfg.Research.TavilyAPIKey, "RESEARCH_TAVILY_API_KEY")
	setStr(&cfg.Research.TavilyURL, "RESEARCH_TAVILY_URL")
	setInt(&cfg.Research.MaxResults, "RESEARCH_MAX_RESULTS")
	setStringSlice(&cfg.Research.ExcludeDomains, "RESEARCH_EXCLUDE_DOMAINS")
	setStringSlice(&cfg.Research.Feeds, "RESEARCH_FEEDS")
	setDuration(&cfg.Research.CacheTTL, "RESEARCH_CACHE_TTL")

	// wallet
	setStr(&cfg.Wallet.Address, "WALLET_ADDRESS")
	setStr(&cfg.Wallet.PrivateKey, "WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.RPCURL, "WALLET_RPC_URL")
	setStr(&cfg.Wallet.TokenAddress, "WALLET_TOKEN_ADDRESS")
	setStr(&cfg.Wallet.MinBalanceUSDC, "WALLET_MIN_BALANCE_USDC")
	setBool(&cfg.Wallet.SignManifests, "WALLET_SIGN_MANIFESTS")

	// ingest
	setDuration(&cfg.Ingest.Interval, "INGEST_INTERVAL")
	setInt(&cfg.Ingest.FetchLimit, "INGEST_FETCH_LIMIT")
	setInt(&cfg.Ingest.ChunkSize, "INGEST_CHUNK_SIZE")
	setFloat64(&cfg.Ingest.MatchThreshold, "INGEST_MATCH_THRESHOLD")

	// edition
	setDuration(&cfg.Edition.Interval, "EDITION_INTERVAL")
	setStr(&cfg.Edition.Type, "EDITION_TYPE")
	setInt(&cfg.Edition.PerSourceCap, "EDITION_PER_SOURCE_CAP")
	setInt(&cfg.Edition.ImageBudget, "EDITION_IMAGE_BUDGET")
	setFloat64(&cfg.Edition.DedupThreshold, "EDITION_DEDUP_THRESHOLD")
	setDuration(&cfg.Edition.LockTTL, "EDITION_LOCK_TTL")

	// notify
	setStr(&cfg.Notify.TelegramToken, "NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NOTIFY_EVENTS")

	setStr(&cfg.Mode, "MODE")
	setStr(&cfg.LogLevel, "LOG_LEVEL")
}

// The set* helpers change dst only when the variable is set, non-empty and
// parses.

func lookup(key string) (string, bool) {
	v := os.Getenv(EnvPrefix + key)
	return v, v != ""
}

func setStr(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v, ok := lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
