package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/marketwire/internal/domain"
)

func TestTimeWindow(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	where, args := timeWindow("recorded_at", domain.ListOpts{}, nil)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = timeWindow("recorded_at", domain.ListOpts{Since: &since, Until: &until},
		[]string{"market_id = $1"}, "m1")
	assert.Equal(t, " WHERE market_id = $1 AND recorded_at >= $2 AND recorded_at <= $3", where)
	assert.Equal(t, []any{"m1", since, until}, args)
}

func TestPageClause(t *testing.T) {
	args := []any{"m1"}
	clause := pageClause(domain.ListOpts{Limit: 10, Offset: 20}, &args)
	assert.Equal(t, " LIMIT $2 OFFSET $3", clause)
	assert.Equal(t, []any{"m1", 10, 20}, args)

	args = nil
	assert.Empty(t, pageClause(domain.ListOpts{}, &args))
	assert.Empty(t, args)
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	if got := nullIfEmpty("0xabc"); assert.NotNil(t, got) {
		assert.Equal(t, "0xabc", *got)
	}
}
