package reconcile

import (
	"context"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/normalize"
	"github.com/alanyoungcy/marketwire/internal/platform/kalshi"
	"github.com/alanyoungcy/marketwire/internal/platform/polymarket"
)

// Feed is one venue's listing, already converted to the shared vocabulary.
type Feed interface {
	Source() domain.Source
	Fetch(ctx context.Context, limit int) ([]domain.NormalizedMarket, error)
}

type gammaLister interface {
	FetchMarkets(ctx context.Context, limit int) ([]polymarket.APIMarket, error)
}

type kalshiLister interface {
	FetchMarkets(ctx context.Context, limit int) ([]kalshi.KalshiMarket, error)
}

// PolymarketFeed adapts the Gamma client to a Feed.
type PolymarketFeed struct {
	client gammaLister
}

// NewPolymarketFeed wraps a Gamma client.
func NewPolymarketFeed(client gammaLister) *PolymarketFeed {
	return &PolymarketFeed{client: client}
}

func (f *PolymarketFeed) Source() domain.Source { return domain.SourcePolymarket }

func (f *PolymarketFeed) Fetch(ctx context.Context, limit int) ([]domain.NormalizedMarket, error) {
	raw, err := f.client.FetchMarkets(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.NormalizedMarket, 0, len(raw))
	for _, m := range raw {
		n := normalize.FromPolymarket(m)
		if n.SourceID == "" || n.Title == "" {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// KalshiFeed adapts the Kalshi client to a Feed.
type KalshiFeed struct {
	client kalshiLister
}

// NewKalshiFeed wraps a Kalshi client.
func NewKalshiFeed(client kalshiLister) *KalshiFeed {
	return &KalshiFeed{client: client}
}

func (f *KalshiFeed) Source() domain.Source { return domain.SourceKalshi }

func (f *KalshiFeed) Fetch(ctx context.Context, limit int) ([]domain.NormalizedMarket, error) {
	raw, err := f.client.FetchMarkets(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.NormalizedMarket, 0, len(raw))
	for _, m := range raw {
		n := normalize.FromKalshi(m)
		if n.SourceID == "" || n.Title == "" {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

var (
	_ Feed = (*PolymarketFeed)(nil)
	_ Feed = (*KalshiFeed)(nil)
)
