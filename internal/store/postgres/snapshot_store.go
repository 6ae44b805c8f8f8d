package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketwire/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a new SnapshotStore backed by the given connection pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

var _ domain.SnapshotStore = (*SnapshotStore)(nil)

// InsertBatch appends snapshots in one round trip. Rows are never updated.
func (s *SnapshotStore) InsertBatch(ctx context.Context, snaps []domain.ProbabilitySnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	const query = `
		INSERT INTO probability_snapshots (market_id, source, probability, volume, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`

	batch := &pgx.Batch{}
	for _, snap := range snaps {
		batch.Queue(query, snap.MarketID, string(snap.Source), snap.Probability, snap.Volume, snap.RecordedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range snaps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert snapshot %d for %s: %w", i, snaps[i].MarketID, err)
		}
	}
	return nil
}

// ListByMarket returns a market's snapshots, newest first.
func (s *SnapshotStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ProbabilitySnapshot, error) {
	where, args := timeWindow("recorded_at", opts, []string{"market_id = $1"}, marketID)
	query := `SELECT market_id, source, probability, volume, recorded_at
		FROM probability_snapshots` + where +
		` ORDER BY recorded_at DESC, id DESC` + pageClause(opts, &args)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots for %s: %w", marketID, err)
	}
	defer rows.Close()

	var snaps []domain.ProbabilitySnapshot
	for rows.Next() {
		var (
			snap   domain.ProbabilitySnapshot
			source string
		)
		if err := rows.Scan(&snap.MarketID, &source, &snap.Probability, &snap.Volume, &snap.RecordedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		snap.Source = domain.Source(source)
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list snapshots rows: %w", err)
	}
	return snaps, nil
}
