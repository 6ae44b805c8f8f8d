package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tvly-key", req.APIKey)
		assert.Equal(t, "fed rate cut", req.Query)
		assert.Equal(t, 3, req.MaxResults)
		assert.Equal(t, []string{"polymarket.com"}, req.ExcludeDomains)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Fed signals cut", "url": "https://example.com/a", "content": "Officials said...", "score": 0.91},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tvly-key", 3, []string{"polymarket.com"})
	got, err := c.Search(context.Background(), "  fed rate cut ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Fed signals cut", got[0].Title)
	assert.InDelta(t, 0.91, got[0].Score, 1e-9)
}

func TestSearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", 0, nil).Search(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = NewClient(srv.URL, "", 0, nil).Search(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	_, err = NewClient(srv.URL, "k", 0, nil).Search(context.Background(), "   ")
	assert.Error(t, err)
}
