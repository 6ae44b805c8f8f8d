package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies an upstream prediction-market venue.
type Source string

const (
	// SourcePolymarket is the primary feed (Gamma API).
	SourcePolymarket Source = "polymarket"
	// SourceKalshi is the secondary feed (trade API v2).
	SourceKalshi Source = "kalshi"
)

// Category is the editorial section a market belongs to.
type Category string

const (
	CategoryPolitics      Category = "politics"
	CategoryEconomy       Category = "economy"
	CategoryCrypto        Category = "crypto"
	CategorySports        Category = "sports"
	CategoryScience       Category = "science"
	CategoryEntertainment Category = "entertainment"
	CategoryWorld         Category = "world"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryPolitics, CategoryEconomy, CategoryCrypto, CategorySports,
		CategoryScience, CategoryEntertainment, CategoryWorld:
		return true
	}
	return false
}

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
)

// Rank orders statuses along the lifecycle. A market never moves to a lower rank.
func (s MarketStatus) Rank() int {
	switch s {
	case MarketStatusResolved:
		return 2
	case MarketStatusClosed:
		return 1
	default:
		return 0
	}
}

// NormalizedMarket is a single venue's market converted to the shared vocabulary.
type NormalizedMarket struct {
	Source            Source          `json:"source"`
	SourceID          string          `json:"sourceId"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Category          Category        `json:"category"`
	Probability       int             `json:"probability"` // 0-100
	Volume24h         decimal.Decimal `json:"volume24h"`
	Status            MarketStatus    `json:"status"`
	ResolutionOutcome string          `json:"resolutionOutcome,omitempty"`
	EndDate           *time.Time      `json:"endDate,omitempty"`
}

// Market is the canonical record for one real-world question, possibly listed
// on both venues. Empty source IDs mean the market is not listed there.
type Market struct {
	ID                    string
	PolymarketID          string
	KalshiID              string
	Title                 string
	Description           string
	Category              Category
	CurrentProbability    int
	PolymarketProbability *int
	KalshiProbability     *int
	Volume24h             decimal.Decimal
	PolymarketVolume      decimal.Decimal
	KalshiVolume          decimal.Decimal
	Status                MarketStatus
	ResolutionOutcome     string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Merged reports whether the market is listed on both venues.
func (m Market) Merged() bool {
	return m.PolymarketID != "" && m.KalshiID != ""
}

// ProbabilitySnapshot is an immutable point in a market's probability history.
type ProbabilitySnapshot struct {
	MarketID    string
	Source      Source
	Probability int
	Volume      decimal.Decimal
	RecordedAt  time.Time
}

// MarketIDIndex maps venue IDs to internal market IDs.
type MarketIDIndex struct {
	ByPolymarket map[string]string
	ByKalshi     map[string]string
}

// NewMarketIDIndex returns an empty index.
func NewMarketIDIndex() MarketIDIndex {
	return MarketIDIndex{
		ByPolymarket: make(map[string]string),
		ByKalshi:     make(map[string]string),
	}
}

// Resolve looks up the internal ID for a market by either venue ID. The
// Polymarket ID wins when both are known and disagree.
func (x MarketIDIndex) Resolve(polymarketID, kalshiID string) (string, bool) {
	if polymarketID != "" {
		if id, ok := x.ByPolymarket[polymarketID]; ok {
			return id, true
		}
	}
	if kalshiID != "" {
		if id, ok := x.ByKalshi[kalshiID]; ok {
			return id, true
		}
	}
	return "", false
}

// Add records the venue IDs of m.
func (x MarketIDIndex) Add(m Market) {
	if m.PolymarketID != "" {
		x.ByPolymarket[m.PolymarketID] = m.ID
	}
	if m.KalshiID != "" {
		x.ByKalshi[m.KalshiID] = m.ID
	}
}
