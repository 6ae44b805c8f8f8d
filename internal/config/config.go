// Package config defines the marketwire configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration. Fields come from a TOML file laid over
// Defaults and are then overridden by MARKETWIRE_* environment variables.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	LLM        LLMConfig        `toml:"llm"`
	Research   ResearchConfig   `toml:"research"`
	Wallet     WalletConfig     `toml:"wallet"`
	Ingest     IngestConfig     `toml:"ingest"`
	Edition    EditionConfig    `toml:"edition"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters. DSN wins over the
// individual fields.
type DatabaseConfig struct {
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

type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds object storage parameters. Archiving is skipped entirely
// when Enabled is false.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	PartSizeMB     int    `toml:"part_size_mb"`
}

type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
}

// KalshiConfig holds the secondary venue settings. Market listings are
// public; the key only raises rate limits.
type KalshiConfig struct {
	Enabled           bool   `toml:"enabled"`
	BaseURL           string `toml:"base_url"`
	APIKeyID          string `toml:"api_key_id"`
	RSAPrivateKeyPath string `toml:"rsa_private_key_path"`
}

// LLMConfig configures the OpenAI-compatible chat endpoint behind the layout
// decider and the article writer.
type LLMConfig struct {
	Endpoint    string   `toml:"endpoint"`
	APIKey      string   `toml:"api_key"`
	Model       string   `toml:"model"`
	Temperature float64  `toml:"temperature"`
	MaxTokens   int      `toml:"max_tokens"`
	Timeout     duration `toml:"timeout"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

type ResearchConfig struct {
	TavilyAPIKey   string   `toml:"tavily_api_key"`
	TavilyURL      string   `toml:"tavily_url"`
	MaxResults     int      `toml:"max_results"`
	ExcludeDomains []string `toml:"exclude_domains"`
	Feeds          []string `toml:"feeds"`
	CacheTTL       duration `toml:"cache_ttl"`
}

// WalletConfig identifies the operator wallet whose USDC balance gates
// publication. Address may be derived from the key instead of being set.
type WalletConfig struct {
	Address          string `toml:"address"`
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	RPCURL           string `toml:"rpc_url"`
	TokenAddress     string `toml:"token_address"`
	MinBalanceUSDC   string `toml:"min_balance_usdc"`
	SignManifests    bool   `toml:"sign_manifests"`
}

type IngestConfig struct {
	Interval       duration `toml:"interval"`
	FetchLimit     int      `toml:"fetch_limit"`
	ChunkSize      int      `toml:"chunk_size"`
	MatchThreshold float64  `toml:"match_threshold"`
}

type EditionConfig struct {
	Interval       duration `toml:"interval"`
	Type           string   `toml:"type"`
	PerSourceCap   int      `toml:"per_source_cap"`
	ImageBudget    int      `toml:"image_budget"`
	DedupThreshold float64  `toml:"dedup_threshold"`
	LockTTL        duration `toml:"lock_ttl"`
	MinWords       int      `toml:"min_words"`
	MaxWords       int      `toml:"max_words"`
	MinHeadline    int      `toml:"min_headline"`
	MaxHeadline    int      `toml:"max_headline"`
}

type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	DiscordUsername   string   `toml:"discord_username"`
	Events            []string `toml:"events"`
}

// duration decodes TOML strings such as "5m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "marketwire",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketwire",
			ForcePathStyle: true,
			PartSizeMB:     8,
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
		},
		Kalshi: KalshiConfig{
			Enabled: true,
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		LLM: LLMConfig{
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1800,
			Timeout:     duration{90 * time.Second},
			RateLimit:   20,
			RateWindow:  duration{time.Minute},
		},
		Research: ResearchConfig{
			TavilyURL:      "https://api.tavily.com/search",
			MaxResults:     5,
			ExcludeDomains: []string{"polymarket.com", "kalshi.com"},
			CacheTTL:       duration{6 * time.Hour},
		},
		Wallet: WalletConfig{
			RPCURL:         "https://polygon-rpc.com",
			TokenAddress:   "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
			MinBalanceUSDC: "5",
		},
		Ingest: IngestConfig{
			Interval:       duration{15 * time.Minute},
			FetchLimit:     500,
			ChunkSize:      100,
			MatchThreshold: 0.75,
		},
		Edition: EditionConfig{
			Interval:       duration{24 * time.Hour},
			Type:           "daily",
			PerSourceCap:   10,
			ImageBudget:    5,
			DedupThreshold: 0.70,
			LockTTL:        duration{30 * time.Minute},
			MinWords:       30,
			MaxWords:       600,
			MinHeadline:    5,
			MaxHeadline:    200,
		},
		Notify: NotifyConfig{
			DiscordUsername: "marketwire",
			Events:          []string{"edition_published", "edition_halted", "job_failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"ingest":  true,
	"edition": true,
	"full":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// RunsIngest reports whether the mode includes the ingestion job.
func (c *Config) RunsIngest() bool {
	m := strings.ToLower(c.Mode)
	return m == "ingest" || m == "full"
}

// RunsEdition reports whether the mode includes the edition job.
func (c *Config) RunsEdition() bool {
	m := strings.ToLower(c.Mode)
	return m == "edition" || m == "full"
}

// HasWalletKey reports whether a signing key is configured.
func (c *Config) HasWalletKey() bool {
	return c.Wallet.PrivateKey != "" || c.Wallet.EncryptedKeyPath != ""
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if !validModes[strings.ToLower(c.Mode)] {
		add("unknown mode %q (valid: ingest, edition, full)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			add("database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			add("database: port must be 1-65535, got %d", c.Database.Port)
		}
		if c.Database.Database == "" {
			add("database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		add("database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 || c.Database.PoolMinConns > c.Database.PoolMaxConns {
		add("database: pool_min_conns must be between 0 and pool_max_conns")
	}

	if c.Redis.Addr == "" {
		add("redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		add("redis: pool_size must be >= 1")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			add("s3: region must not be empty when enabled")
		}
	}

	if c.RunsIngest() {
		if c.Polymarket.GammaHost == "" {
			add("polymarket: gamma_host must not be empty")
		}
		if c.Kalshi.Enabled && c.Kalshi.BaseURL == "" {
			add("kalshi: base_url must not be empty when enabled")
		}
		if c.Kalshi.RSAPrivateKeyPath != "" && c.Kalshi.APIKeyID == "" {
			add("kalshi: api_key_id is required with rsa_private_key_path")
		}
		if c.Ingest.Interval.Duration <= 0 {
			add("ingest: interval must be positive")
		}
		if c.Ingest.MatchThreshold <= 0 || c.Ingest.MatchThreshold > 1 {
			add("ingest: match_threshold must be in (0, 1], got %v", c.Ingest.MatchThreshold)
		}
	}

	if c.RunsEdition() {
		c.validateEdition(add)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validateEdition(add func(string, ...any)) {
	if c.LLM.APIKey == "" {
		add("llm: api_key is required for mode %s", c.Mode)
	}
	if c.LLM.Model == "" {
		add("llm: model must not be empty")
	}
	if c.LLM.RateLimit < 0 {
		add("llm: rate_limit must be >= 0")
	}

	if c.Wallet.Address == "" && !c.HasWalletKey() {
		add("wallet: address, private_key or encrypted_key_path must be set for mode %s", c.Mode)
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		add("wallet: key_password is required when encrypted_key_path is set")
	}
	if c.Wallet.SignManifests && !c.HasWalletKey() {
		add("wallet: sign_manifests needs private_key or encrypted_key_path")
	}
	if c.Wallet.RPCURL == "" {
		add("wallet: rpc_url must not be empty")
	}
	if d, err := decimal.NewFromString(c.Wallet.MinBalanceUSDC); err != nil || d.IsNegative() {
		add("wallet: min_balance_usdc must be a non-negative decimal, got %q", c.Wallet.MinBalanceUSDC)
	}

	e := c.Edition
	if e.Interval.Duration <= 0 {
		add("edition: interval must be positive")
	}
	if e.Type != "daily" && e.Type != "breaking" {
		add("edition: type must be daily or breaking, got %q", e.Type)
	}
	if e.PerSourceCap < 1 {
		add("edition: per_source_cap must be >= 1")
	}
	if e.DedupThreshold <= 0 || e.DedupThreshold > 1 {
		add("edition: dedup_threshold must be in (0, 1], got %v", e.DedupThreshold)
	}
	if e.MinWords < 1 || e.MaxWords < e.MinWords {
		add("edition: need 1 <= min_words <= max_words, got %d and %d", e.MinWords, e.MaxWords)
	}
	if e.MinHeadline < 1 || e.MaxHeadline < e.MinHeadline {
		add("edition: need 1 <= min_headline <= max_headline, got %d and %d", e.MinHeadline, e.MaxHeadline)
	}
}

// MinBalance parses Wallet.MinBalanceUSDC. Call after Validate.
func (c *Config) MinBalance() decimal.Decimal {
	d, err := decimal.NewFromString(c.Wallet.MinBalanceUSDC)
	if err != nil {
		return decimal.Zero
	}
	return d
}
