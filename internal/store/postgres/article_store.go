package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketwire/internal/domain"
)

// ArticleStore implements domain.ArticleStore using PostgreSQL.
type ArticleStore struct {
	pool *pgxpool.Pool
}

// NewArticleStore creates a new ArticleStore backed by the given connection pool.
func NewArticleStore(pool *pgxpool.Pool) *ArticleStore {
	return &ArticleStore{pool: pool}
}

var _ domain.ArticleStore = (*ArticleStore)(nil)

// Create inserts an article. A taken slug yields domain.ErrAlreadyExists.
func (s *ArticleStore) Create(ctx context.Context, a domain.Article) error {
	const query = `
		INSERT INTO articles (
			id, market_id, headline, subheadline, body, contrarian_take,
			category, slug, image_ref, probability_at_publish
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.MarketID, a.Headline, a.Subheadline, a.Body, a.ContrarianTake,
		string(a.Category), a.Slug, a.ImageRef, a.ProbabilityAtPublish,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: create article %q: %w", a.Slug, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create article %s: %w", a.ID, err)
	}
	return nil
}

func (s *ArticleStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM articles WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check slug %q: %w", slug, err)
	}
	return exists, nil
}
