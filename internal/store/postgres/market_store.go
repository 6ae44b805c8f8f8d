package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketwire/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

var _ domain.MarketStore = (*MarketStore)(nil)

const marketCols = `id, COALESCE(polymarket_id, ''), COALESCE(kalshi_id, ''),
	title, description, category,
	current_probability, polymarket_probability, kalshi_probability,
	volume_24h, polymarket_volume, kalshi_volume,
	status, resolution_outcome, created_at, updated_at`

// upsertMarketSQL overwrites mutable fields and keeps the internal ID. Venue
// IDs are only ever added, and status never moves back along
// active -> closed -> resolved.
const upsertMarketSQL = `
	INSERT INTO markets (
		id, polymarket_id, kalshi_id, title, description, category,
		current_probability, polymarket_probability, kalshi_probability,
		volume_24h, polymarket_volume, kalshi_volume,
		status, resolution_outcome, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9,
		$10, $11, $12,
		$13, $14, NOW(), NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		polymarket_id          = COALESCE(EXCLUDED.polymarket_id, markets.polymarket_id),
		kalshi_id              = COALESCE(EXCLUDED.kalshi_id, markets.kalshi_id),
		title                  = EXCLUDED.title,
		description            = EXCLUDED.description,
		category               = EXCLUDED.category,
		current_probability    = EXCLUDED.current_probability,
		polymarket_probability = EXCLUDED.polymarket_probability,
		kalshi_probability     = EXCLUDED.kalshi_probability,
		volume_24h             = EXCLUDED.volume_24h,
		polymarket_volume      = EXCLUDED.polymarket_volume,
		kalshi_volume          = EXCLUDED.kalshi_volume,
		status                 = CASE
			WHEN (CASE markets.status WHEN 'resolved' THEN 2 WHEN 'closed' THEN 1 ELSE 0 END) >
			     (CASE EXCLUDED.status WHEN 'resolved' THEN 2 WHEN 'closed' THEN 1 ELSE 0 END)
			THEN markets.status ELSE EXCLUDED.status END,
		resolution_outcome     = COALESCE(NULLIF(EXCLUDED.resolution_outcome, ''), markets.resolution_outcome),
		updated_at             = NOW()`

// UpsertBatch writes markets in one round trip. A venue ID that now belongs
// to a different market is detached from its previous owner first. The batch
// runs as one implicit transaction.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range markets {
		if m.PolymarketID != "" {
			batch.Queue(`UPDATE markets SET polymarket_id = NULL, updated_at = NOW()
				WHERE polymarket_id = $1 AND id <> $2`, m.PolymarketID, m.ID)
		}
		if m.KalshiID != "" {
			batch.Queue(`UPDATE markets SET kalshi_id = NULL, updated_at = NOW()
				WHERE kalshi_id = $1 AND id <> $2`, m.KalshiID, m.ID)
		}
		batch.Queue(upsertMarketSQL,
			m.ID, nullIfEmpty(m.PolymarketID), nullIfEmpty(m.KalshiID),
			m.Title, m.Description, string(m.Category),
			m.CurrentProbability, m.PolymarketProbability, m.KalshiProbability,
			m.Volume24h, m.PolymarketVolume, m.KalshiVolume,
			string(m.Status), m.ResolutionOutcome,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch statement %d: %w", i, err)
		}
	}
	return nil
}

// LoadIDIndex reads every venue ID mapping.
func (s *MarketStore) LoadIDIndex(ctx context.Context) (domain.MarketIDIndex, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(polymarket_id, ''), COALESCE(kalshi_id, '')
		FROM markets
		WHERE polymarket_id IS NOT NULL OR kalshi_id IS NOT NULL`)
	if err != nil {
		return domain.MarketIDIndex{}, fmt.Errorf("postgres: load market id index: %w", err)
	}
	defer rows.Close()

	idx := domain.NewMarketIDIndex()
	for rows.Next() {
		var m domain.Market
		if err := rows.Scan(&m.ID, &m.PolymarketID, &m.KalshiID); err != nil {
			return domain.MarketIDIndex{}, fmt.Errorf("postgres: scan market id: %w", err)
		}
		idx.Add(m)
	}
	if err := rows.Err(); err != nil {
		return domain.MarketIDIndex{}, fmt.Errorf("postgres: load market id index rows: %w", err)
	}
	return idx, nil
}

// ListActiveBySource returns active markets matching filter, highest 24h
// volume first.
func (s *MarketStore) ListActiveBySource(ctx context.Context, filter domain.SourceFilter, limit int) ([]domain.Market, error) {
	var where string
	switch filter {
	case domain.ListedOnPolymarket:
		where = "polymarket_id IS NOT NULL"
	case domain.KalshiOnly:
		where = "kalshi_id IS NOT NULL AND polymarket_id IS NULL"
	default:
		return nil, fmt.Errorf("postgres: unknown source filter %d", filter)
	}

	rows, err := s.pool.Query(ctx, `SELECT `+marketCols+` FROM markets
		WHERE status = 'active' AND `+where+`
		ORDER BY volume_24h DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list active markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return n, nil
}

// scanMarket scans a single market row selected with marketCols.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m                domain.Market
		category, status string
	)
	err := row.Scan(
		&m.ID, &m.PolymarketID, &m.KalshiID,
		&m.Title, &m.Description, &category,
		&m.CurrentProbability, &m.PolymarketProbability, &m.KalshiProbability,
		&m.Volume24h, &m.PolymarketVolume, &m.KalshiVolume,
		&status, &m.ResolutionOutcome, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Category = domain.Category(category)
	m.Status = domain.MarketStatus(status)
	return m, nil
}
