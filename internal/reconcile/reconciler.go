// Package reconcile merges the two venue feeds into canonical markets and
// records their probability history.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/matcher"
	"github.com/google/uuid"
)

const (
	defaultChunkSize  = 100
	defaultFetchLimit = 500

	// ReconciledChannel carries a summary after every successful run.
	ReconciledChannel = "markets:reconciled"
)

// FeedArchiver keeps a raw copy of what each venue returned.
type FeedArchiver interface {
	ArchiveFeed(ctx context.Context, runAt time.Time, source domain.Source, records []domain.NormalizedMarket) error
}

// Config tunes a reconciliation run.
type Config struct {
	FetchLimit     int
	ChunkSize      int
	MatchThreshold float64
}

// Result summarises one run.
type Result struct {
	FetchedPrimary   int `json:"fetched_primary"`
	FetchedSecondary int `json:"fetched_secondary"`
	Merged           int `json:"merged"`
	Upserted         int `json:"upserted"`
	Snapshots        int `json:"snapshots"`
	// TotalMarkets is the table size after the run; -1 when the count failed.
	TotalMarkets int64 `json:"total_markets"`
}

// Reconciler is the only writer of markets and probability snapshots.
type Reconciler struct {
	primary   Feed
	secondary Feed
	markets   domain.MarketStore
	snapshots domain.SnapshotStore
	archiver  FeedArchiver
	bus       domain.SignalBus
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithArchiver stores each run's normalized feeds. Failures are logged only.
func WithArchiver(a FeedArchiver) Option {
	return func(r *Reconciler) { r.archiver = a }
}

// WithSignalBus announces each completed run. Failures are logged only.
func WithSignalBus(bus domain.SignalBus) Option {
	return func(r *Reconciler) { r.bus = bus }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler. The primary feed's failure fails the run; the
// secondary feed's failure degrades to an empty listing.
func New(
	primary, secondary Feed,
	markets domain.MarketStore,
	snapshots domain.SnapshotStore,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Reconciler {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = defaultFetchLimit
	}
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = matcher.CrossSourceThreshold
	}
	r := &Reconciler{
		primary:   primary,
		secondary: secondary,
		markets:   markets,
		snapshots: snapshots,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "reconciler")),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run fetches both feeds, merges them, and persists markets and snapshots in
// chunks. Nothing spans the whole run in a transaction, so a failure part way
// leaves earlier chunks committed; the next run repairs the rest.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	var res Result
	runAt := r.now().UTC()

	primary, err := r.primary.Fetch(ctx, r.cfg.FetchLimit)
	if err != nil {
		return res, fmt.Errorf("reconcile: fetch %s: %w", r.primary.Source(), err)
	}
	res.FetchedPrimary = len(primary)

	secondary, err := r.secondary.Fetch(ctx, r.cfg.FetchLimit)
	if err != nil {
		r.logger.Warn("secondary feed unavailable, continuing without it",
			slog.String("source", string(r.secondary.Source())),
			slog.String("error", err.Error()),
		)
		secondary = nil
	}
	res.FetchedSecondary = len(secondary)

	r.archive(ctx, runAt, r.primary.Source(), primary)
	r.archive(ctx, runAt, r.secondary.Source(), secondary)

	rows, merged := Merge(primary, secondary, r.cfg.MatchThreshold)
	res.Merged = merged

	index, err := r.markets.LoadIDIndex(ctx)
	if err != nil {
		return res, fmt.Errorf("reconcile: load id index: %w", err)
	}
	assignIDs(rows, index)

	for start := 0; start < len(rows); start += r.cfg.ChunkSize {
		chunk := rows[start:min(start+r.cfg.ChunkSize, len(rows))]
		if err := r.markets.UpsertBatch(ctx, chunk); err != nil {
			return res, fmt.Errorf("reconcile: upsert markets %d-%d: %w", start, start+len(chunk), err)
		}
		res.Upserted += len(chunk)
	}

	snaps := buildSnapshots(rows, runAt)
	for start := 0; start < len(snaps); start += r.cfg.ChunkSize {
		chunk := snaps[start:min(start+r.cfg.ChunkSize, len(snaps))]
		if err := r.snapshots.InsertBatch(ctx, chunk); err != nil {
			return res, fmt.Errorf("reconcile: insert snapshots %d-%d: %w", start, start+len(chunk), err)
		}
		res.Snapshots += len(chunk)
	}

	res.TotalMarkets = -1
	if n, err := r.markets.Count(ctx); err != nil {
		r.logger.Warn("count markets failed", slog.String("error", err.Error()))
	} else {
		res.TotalMarkets = n
	}

	r.logger.Info("reconciliation complete",
		slog.Int("fetched_primary", res.FetchedPrimary),
		slog.Int("fetched_secondary", res.FetchedSecondary),
		slog.Int("merged", res.Merged),
		slog.Int("upserted", res.Upserted),
		slog.Int("snapshots", res.Snapshots),
		slog.Int64("total_markets", res.TotalMarkets),
	)
	r.announce(ctx, res)
	return res, nil
}

// RunLoop runs the reconciler on a repeating interval until the context is
// cancelled.
func (r *Reconciler) RunLoop(ctx context.Context, interval time.Duration) error {
	if _, err := r.Run(ctx); err != nil {
		r.logger.Error("reconciliation failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				r.logger.Error("reconciliation failed", slog.String("error", err.Error()))
			}
		}
	}
}

// assignIDs resolves each row to an existing market through either venue ID,
// or mints a new one. A stored market is claimed by at most one row per run;
// a later row resolving to an already claimed market becomes a new market and
// takes its venue ID with it.
func assignIDs(rows []domain.Market, index domain.MarketIDIndex) {
	claimed := make(map[string]bool, len(rows))
	for i := range rows {
		id, ok := index.Resolve(rows[i].PolymarketID, rows[i].KalshiID)
		if !ok || claimed[id] {
			id = uuid.NewString()
		}
		claimed[id] = true
		rows[i].ID = id
	}
}

// buildSnapshots emits one snapshot per venue probability on each row.
func buildSnapshots(rows []domain.Market, at time.Time) []domain.ProbabilitySnapshot {
	snaps := make([]domain.ProbabilitySnapshot, 0, len(rows))
	for _, m := range rows {
		if m.PolymarketProbability != nil {
			snaps = append(snaps, domain.ProbabilitySnapshot{
				MarketID:    m.ID,
				Source:      domain.SourcePolymarket,
				Probability: *m.PolymarketProbability,
				Volume:      m.PolymarketVolume,
				RecordedAt:  at,
			})
		}
		if m.KalshiProbability != nil {
			snaps = append(snaps, domain.ProbabilitySnapshot{
				MarketID:    m.ID,
				Source:      domain.SourceKalshi,
				Probability: *m.KalshiProbability,
				Volume:      m.KalshiVolume,
				RecordedAt:  at,
			})
		}
	}
	return snaps
}

func (r *Reconciler) archive(ctx context.Context, runAt time.Time, source domain.Source, records []domain.NormalizedMarket) {
	if r.archiver == nil || len(records) == 0 {
		return
	}
	if err := r.archiver.ArchiveFeed(ctx, runAt, source, records); err != nil {
		r.logger.Warn("feed archive failed",
			slog.String("source", string(source)),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Reconciler) announce(ctx context.Context, res Result) {
	if r.bus == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.bus.Publish(ctx, ReconciledChannel, payload); err != nil {
		r.logger.Warn("publish reconciliation summary failed", slog.String("error", err.Error()))
	}
}
