package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketwire/internal/domain"
)

// EditionStore implements domain.EditionStore using PostgreSQL.
type EditionStore struct {
	pool *pgxpool.Pool
}

// NewEditionStore creates a new EditionStore backed by the given connection pool.
func NewEditionStore(pool *pgxpool.Pool) *EditionStore {
	return &EditionStore{pool: pool}
}

var _ domain.EditionStore = (*EditionStore)(nil)

// MaxVolumeNumber returns the highest volume number, or 0 with no editions.
func (s *EditionStore) MaxVolumeNumber(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(volume_number), 0) FROM editions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: max volume number: %w", err)
	}
	return n, nil
}

// Create inserts an edition. A taken volume number yields
// domain.ErrAlreadyExists.
func (s *EditionStore) Create(ctx context.Context, e domain.Edition) error {
	const query = `
		INSERT INTO editions (id, type, edition_date, volume_number, published_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query, e.ID, string(e.Type), e.Date, e.VolumeNumber, e.PublishedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: create edition volume %d: %w", e.VolumeNumber, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create edition %s: %w", e.ID, err)
	}
	return nil
}

// MarkPublished stamps the edition's publication time.
func (s *EditionStore) MarkPublished(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE editions SET published_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("postgres: mark edition %s published: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendArticle links an article at the next free position and returns it.
func (s *EditionStore) AppendArticle(ctx context.Context, editionID, articleID string) (int, error) {
	const query = `
		INSERT INTO edition_articles (edition_id, article_id, position)
		SELECT $1, $2, COALESCE(MAX(position), 0) + 1
		FROM edition_articles
		WHERE edition_id = $1
		RETURNING position`

	var pos int
	if err := s.pool.QueryRow(ctx, query, editionID, articleID).Scan(&pos); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("postgres: append article %s: %w", articleID, domain.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("postgres: append article %s to edition %s: %w", articleID, editionID, err)
	}
	return pos, nil
}

// UpdatePosition moves an article within its edition.
func (s *EditionStore) UpdatePosition(ctx context.Context, editionID, articleID string, position int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE edition_articles SET position = $3 WHERE edition_id = $1 AND article_id = $2`,
		editionID, articleID, position,
	)
	if err != nil {
		return fmt.Errorf("postgres: update position of %s: %w", articleID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
