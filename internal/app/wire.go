package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	s3blob "github.com/alanyoungcy/marketwire/internal/blob/s3"
	"github.com/alanyoungcy/marketwire/internal/cache/redis"
	"github.com/alanyoungcy/marketwire/internal/config"
	"github.com/alanyoungcy/marketwire/internal/crypto"
	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/edition"
	"github.com/alanyoungcy/marketwire/internal/editorial"
	"github.com/alanyoungcy/marketwire/internal/gate"
	"github.com/alanyoungcy/marketwire/internal/notify"
	"github.com/alanyoungcy/marketwire/internal/platform/chain"
	"github.com/alanyoungcy/marketwire/internal/platform/kalshi"
	"github.com/alanyoungcy/marketwire/internal/platform/openai"
	"github.com/alanyoungcy/marketwire/internal/platform/polymarket"
	"github.com/alanyoungcy/marketwire/internal/platform/tavily"
	"github.com/alanyoungcy/marketwire/internal/reconcile"
	"github.com/alanyoungcy/marketwire/internal/research"
	"github.com/alanyoungcy/marketwire/internal/store/postgres"
)

// Dependencies holds everything the jobs need. Fields for a job the mode
// does not run are left nil.
type Dependencies struct {
	MarketStore   *postgres.MarketStore
	SnapshotStore *postgres.SnapshotStore
	EditionStore  *postgres.EditionStore
	ArticleStore  *postgres.ArticleStore
	AuditStore    *postgres.AuditStore

	LockManager   *redis.LockManager
	RateLimiter   *redis.RateLimiter
	ResearchCache *redis.ResearchCache
	SignalBus     *redis.SignalBus

	Archiver *s3blob.Archiver // nil when S3 is disabled
	Notifier *notify.Notifier

	Reconciler *reconcile.Reconciler
	Editions   *edition.Orchestrator
}

// Wire connects to every backing service the configured mode needs and
// builds the jobs on top of them. The returned cleanup closes connections in
// reverse order; it is also called internally when wiring fails part way.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(step string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %s: %w", step, err)
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:             cfg.Database.DSN,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Database,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.PoolMaxConns,
		MinConns:        cfg.Database.PoolMinConns,
		ApplicationName: "marketwire",
	})
	if err != nil {
		return fail("postgres", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			return fail("postgres migrations", err)
		}
	}

	pool := pgClient.Pool()
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.SnapshotStore = postgres.NewSnapshotStore(pool)
	deps.EditionStore = postgres.NewEditionStore(pool)
	deps.ArticleStore = postgres.NewArticleStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return fail("redis", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.LockManager = redis.NewLockManager(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.ResearchCache = redis.NewResearchCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail("s3", err)
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			cfg.S3.Prefix,
			int64(cfg.S3.PartSizeMB)<<20,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender("", cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL, cfg.Notify.DiscordUsername))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	if cfg.RunsIngest() {
		r, err := wireReconciler(cfg, deps, logger)
		if err != nil {
			return fail("reconciler", err)
		}
		deps.Reconciler = r
	}

	if cfg.RunsEdition() {
		o, closeChain, err := wireEditions(ctx, cfg, deps, logger)
		if err != nil {
			return fail("editions", err)
		}
		closers = append(closers, closeChain)
		deps.Editions = o
	}

	return deps, cleanup, nil
}

func wireReconciler(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*reconcile.Reconciler, error) {
	primary := reconcile.NewPolymarketFeed(polymarket.NewGammaClient(cfg.Polymarket.GammaHost))

	var secondary reconcile.Feed = disabledFeed{source: domain.SourceKalshi}
	if cfg.Kalshi.Enabled {
		client := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.APIKeyID)
		if path := cfg.Kalshi.RSAPrivateKeyPath; path != "" {
			pem, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read kalshi key: %w", err)
			}
			if err := client.SetRSAPrivateKey(pem); err != nil {
				return nil, err
			}
		}
		secondary = reconcile.NewKalshiFeed(client)
	}

	opts := []reconcile.Option{reconcile.WithSignalBus(deps.SignalBus)}
	if deps.Archiver != nil {
		opts = append(opts, reconcile.WithArchiver(deps.Archiver))
	}
	return reconcile.New(primary, secondary, deps.MarketStore, deps.SnapshotStore, reconcile.Config{
		FetchLimit:     cfg.Ingest.FetchLimit,
		ChunkSize:      cfg.Ingest.ChunkSize,
		MatchThreshold: cfg.Ingest.MatchThreshold,
	}, logger, opts...), nil
}

// wireEditions builds the orchestrator. The returned func closes the RPC
// connection.
func wireEditions(ctx context.Context, cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*edition.Orchestrator, func(), error) {
	var signer *crypto.Signer
	keyCfg := crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	}
	if keyCfg.Configured() {
		key, err := crypto.LoadKey(keyCfg)
		if err != nil {
			return nil, nil, err
		}
		signer, err = crypto.NewSigner(key)
		if err != nil {
			return nil, nil, err
		}
	}

	wallet := cfg.Wallet.Address
	if wallet == "" && signer != nil {
		wallet = signer.Address()
	}
	solvency, rpc, err := chain.Dial(ctx, cfg.Wallet.RPCURL, cfg.Wallet.TokenAddress, wallet, cfg.MinBalance())
	if err != nil {
		return nil, nil, err
	}

	llm := openai.NewClient(openai.Config{
		BaseURL:     cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout.Duration,
	}, logger)

	limits := gate.Limits{
		MinWords:    cfg.Edition.MinWords,
		MaxWords:    cfg.Edition.MaxWords,
		MinHeadline: cfg.Edition.MinHeadline,
		MaxHeadline: cfg.Edition.MaxHeadline,
	}

	var searcher research.Searcher
	if cfg.Research.TavilyAPIKey != "" {
		searcher = tavily.NewClient(
			cfg.Research.TavilyURL,
			cfg.Research.TavilyAPIKey,
			cfg.Research.MaxResults,
			cfg.Research.ExcludeDomains,
		)
	}
	researcher := research.New(searcher, deps.ResearchCache, research.Config{
		Feeds:    cfg.Research.Feeds,
		CacheTTL: cfg.Research.CacheTTL.Duration,
	}, logger)

	opts := []edition.Option{
		edition.WithResearcher(researcher),
		edition.WithLedger(deps.AuditStore),
		edition.WithLocks(deps.LockManager),
		edition.WithSignalBus(deps.SignalBus),
		edition.WithNotifier(deps.Notifier),
		edition.WithHistory(deps.SnapshotStore),
	}
	if deps.Archiver != nil {
		opts = append(opts, edition.WithManifestArchiver(deps.Archiver))
	}
	if cfg.Wallet.SignManifests && signer != nil {
		opts = append(opts, edition.WithAttestor(signer))
	}

	o := edition.New(edition.Deps{
		Solvency: solvency,
		Markets:  deps.MarketStore,
		Editions: deps.EditionStore,
		Articles: deps.ArticleStore,
		Decider:  editorial.NewDecider(llm, cfg.Edition.ImageBudget, logger),
		Writer: editorial.NewWriter(llm, deps.RateLimiter, editorial.WriterConfig{
			RateLimit:  cfg.LLM.RateLimit,
			RateWindow: cfg.LLM.RateWindow.Duration,
			Limits:     limits,
		}, logger),
	}, edition.Config{
		Type:           domain.EditionType(cfg.Edition.Type),
		PerSourceCap:   cfg.Edition.PerSourceCap,
		ImageBudget:    cfg.Edition.ImageBudget,
		DedupThreshold: cfg.Edition.DedupThreshold,
		LockTTL:        cfg.Edition.LockTTL.Duration,
		Limits:         limits,
	}, logger, opts...)

	return o, rpc.Close, nil
}

// disabledFeed stands in for a venue that is switched off.
type disabledFeed struct {
	source domain.Source
}

func (f disabledFeed) Source() domain.Source { return f.source }

func (f disabledFeed) Fetch(context.Context, int) ([]domain.NormalizedMarket, error) {
	return nil, nil
}
