package domain

import (
	"context"
	"time"
)

// ListOpts bounds a history query by time window and page.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// SourceFilter selects markets by venue listing.
type SourceFilter int

const (
	// ListedOnPolymarket matches any market with a Polymarket ID, merged or not.
	ListedOnPolymarket SourceFilter = iota
	// KalshiOnly matches markets with a Kalshi ID and no Polymarket ID.
	KalshiOnly
)

// MarketStore persists canonical markets.
type MarketStore interface {
	LoadIDIndex(ctx context.Context) (MarketIDIndex, error)
	UpsertBatch(ctx context.Context, markets []Market) error
	ListActiveBySource(ctx context.Context, filter SourceFilter, limit int) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// SnapshotStore persists the append-only probability history.
type SnapshotStore interface {
	InsertBatch(ctx context.Context, snaps []ProbabilitySnapshot) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]ProbabilitySnapshot, error)
}

// EditionStore persists editions and their article placements.
type EditionStore interface {
	MaxVolumeNumber(ctx context.Context) (int, error)
	Create(ctx context.Context, e Edition) error
	MarkPublished(ctx context.Context, id string, at time.Time) error
	AppendArticle(ctx context.Context, editionID, articleID string) (int, error)
	UpdatePosition(ctx context.Context, editionID, articleID string, position int) error
}

// ArticleStore persists generated articles.
type ArticleStore interface {
	Create(ctx context.Context, a Article) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}
