package editorial

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/extract"
	"github.com/alanyoungcy/marketwire/internal/gate"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCompleter struct {
	answer string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.answer, f.err
}

type waitRecorder struct {
	err   error
	calls []string
}

func (w *waitRecorder) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

func (w *waitRecorder) Wait(_ context.Context, key string, _ int, window time.Duration) error {
	w.calls = append(w.calls, key+"/"+window.String())
	return w.err
}

func TestDeciderSendsCandidates(t *testing.T) {
	llm := &fakeCompleter{answer: `{"layout":[{"marketId":"m1","position":1}]}`}
	d := NewDecider(llm, 5, discardLogger())

	out, err := d.Decide(context.Background(), []domain.CandidateSummary{
		{MarketID: "m1", Title: "Will the strike end by May?", Probability: 41, Volume24h: "1200", Source: domain.SourcePolymarket},
	})
	require.NoError(t, err)
	assert.Equal(t, llm.answer, out)
	assert.Contains(t, llm.system, "At most 5 stories")
	assert.Contains(t, llm.user, `"marketId": "m1"`)
	assert.Contains(t, llm.user, `"title": "Will the strike end by May?"`)

	decision, err := extract.Decode[domain.LayoutDecision](out)
	require.NoError(t, err)
	assert.Equal(t, "m1", decision.Layout[0].MarketID)
}

func TestDeciderWrapsErrors(t *testing.T) {
	d := NewDecider(&fakeCompleter{err: domain.ErrRateLimited}, 5, discardLogger())
	_, err := d.Decide(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestWriterPrompt(t *testing.T) {
	pa, ka := 62, 58
	m := domain.Market{
		ID:                    "m1",
		Title:                 "Will the strike end by May?",
		Description:           "Resolves YES if the union ratifies a contract before May 1.",
		Category:              domain.CategoryEconomy,
		CurrentProbability:    60,
		PolymarketProbability: &pa,
		KalshiProbability:     &ka,
		Volume24h:             decimal.RequireFromString("15234.7"),
	}
	llm := &fakeCompleter{answer: "{}"}
	limiter := &waitRecorder{}
	w := NewWriter(llm, limiter, WriterConfig{RateLimit: 10, RateWindow: time.Minute}, discardLogger())

	_, err := w.Generate(context.Background(), m, "Talks resumed Monday.", "focus on the ratification vote")
	require.NoError(t, err)

	assert.Equal(t, []string{RateLimitKey + "/1m0s"}, limiter.calls)
	assert.Contains(t, llm.system, "between 30 and 600 words")
	assert.Contains(t, llm.system, "under 200 characters")
	for _, want := range []string{
		"Market: Will the strike end by May?",
		"Probability of YES: 60%",
		"Venues: Polymarket 62%, Kalshi 58%",
		"24h volume: $15235",
		"Resolution: Resolves YES",
		"Editor's angle: focus on the ratification vote",
		"Research:\nTalks resumed Monday.",
	} {
		assert.Contains(t, llm.user, want)
	}
}

func TestWriterWithoutResearch(t *testing.T) {
	llm := &fakeCompleter{answer: "{}"}
	w := NewWriter(llm, nil, WriterConfig{Limits: gate.Limits{MinWords: 50, MaxWords: 300, MinHeadline: 5, MaxHeadline: 90}}, discardLogger())

	_, err := w.Generate(context.Background(), domain.Market{ID: "m2", Title: "Will it snow?"}, "  ", "")
	require.NoError(t, err)
	assert.Contains(t, llm.user, "No research available")
	assert.NotContains(t, llm.user, "Editor's angle")
	assert.NotContains(t, llm.user, "Venues:")
	assert.Contains(t, llm.system, "between 50 and 300 words")
}

func TestWriterRateLimitErrorStopsGeneration(t *testing.T) {
	llm := &fakeCompleter{answer: "{}"}
	w := NewWriter(llm, &waitRecorder{err: context.Canceled}, WriterConfig{RateLimit: 1}, discardLogger())

	_, err := w.Generate(context.Background(), domain.Market{ID: "m1"}, "", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, llm.user)
}

func TestWriterWrapsCompletionError(t *testing.T) {
	w := NewWriter(&fakeCompleter{err: errors.New("boom")}, nil, WriterConfig{}, discardLogger())
	_, err := w.Generate(context.Background(), domain.Market{ID: "m9"}, "", "")
	assert.ErrorContains(t, err, "editorial: generate m9: boom")
}
