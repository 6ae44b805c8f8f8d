package edition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	snaps map[string][]domain.ProbabilitySnapshot
	errs  map[string]error
	since []time.Time
}

func (s *stubHistory) ListByMarket(_ context.Context, marketID string, opts domain.ListOpts) ([]domain.ProbabilitySnapshot, error) {
	if opts.Since != nil {
		s.since = append(s.since, *opts.Since)
	}
	if err := s.errs[marketID]; err != nil {
		return nil, err
	}
	return s.snaps[marketID], nil
}

func snap(src domain.Source, prob int) domain.ProbabilitySnapshot {
	return domain.ProbabilitySnapshot{Source: src, Probability: prob}
}

func TestProbabilityShift(t *testing.T) {
	pm, ks := domain.SourcePolymarket, domain.SourceKalshi
	tests := []struct {
		name   string
		snaps  []domain.ProbabilitySnapshot
		source domain.Source
		want   int
		ok     bool
	}{
		{"no history", nil, pm, 0, false},
		{"single snapshot", []domain.ProbabilitySnapshot{snap(pm, 40)}, pm, 0, false},
		{"rise", []domain.ProbabilitySnapshot{snap(pm, 62), snap(pm, 55), snap(pm, 48)}, pm, 14, true},
		{"fall", []domain.ProbabilitySnapshot{snap(pm, 30), snap(pm, 41)}, pm, -11, true},
		{"flat", []domain.ProbabilitySnapshot{snap(pm, 50), snap(pm, 50)}, pm, 0, true},
		{"other venue ignored", []domain.ProbabilitySnapshot{snap(ks, 90), snap(pm, 52), snap(ks, 10), snap(pm, 50)}, pm, 2, true},
		{"only other venue", []domain.ProbabilitySnapshot{snap(ks, 90), snap(ks, 10)}, pm, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := probabilityShift(tt.snaps, tt.source)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeciderSeesProbabilityShift(t *testing.T) {
	h := newHarness(
		[]domain.Market{
			market("a1", "Will inflation top four percent", 20, 900),
			market("a2", "Will the senate pass the budget", 60, 800),
		},
		[]domain.Market{market("b1", "Champions League final winner", 35, 700)},
	)
	hist := &stubHistory{snaps: map[string][]domain.ProbabilitySnapshot{
		"a1": {snap(domain.SourcePolymarket, 20), snap(domain.SourcePolymarket, 8)},
		"b1": {snap(domain.SourceKalshi, 35), snap(domain.SourceKalshi, 41)},
	}}

	_, err := h.orchestrator(Config{}, WithHistory(hist)).Run(context.Background())
	require.NoError(t, err)

	shifts := make(map[string]*int)
	for _, c := range h.decider.got {
		shifts[c.MarketID] = c.Shift24h
	}
	require.Len(t, shifts, 3)
	require.NotNil(t, shifts["a1"])
	assert.Equal(t, 12, *shifts["a1"])
	require.NotNil(t, shifts["b1"])
	assert.Equal(t, -6, *shifts["b1"])
	assert.Nil(t, shifts["a2"], "no history, no shift")

	require.NotEmpty(t, hist.since)
	for _, since := range hist.since {
		assert.Equal(t, fixedClock().Add(-24*time.Hour), since)
	}
}

func TestHistoryFailureLeavesShiftUnset(t *testing.T) {
	h := newHarness([]domain.Market{
		market("a1", "Will inflation top four percent", 20, 900),
		market("a2", "Will the senate pass the budget", 60, 800),
	}, nil)
	hist := &stubHistory{
		snaps: map[string][]domain.ProbabilitySnapshot{
			"a2": {snap(domain.SourcePolymarket, 60), snap(domain.SourcePolymarket, 55)},
		},
		errs: map[string]error{"a1": errors.New("connection reset")},
	}

	res, err := h.orchestrator(Config{}, WithHistory(hist)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Generated)

	require.Len(t, h.decider.got, 2)
	for _, c := range h.decider.got {
		switch c.MarketID {
		case "a1":
			assert.Nil(t, c.Shift24h)
		case "a2":
			require.NotNil(t, c.Shift24h)
			assert.Equal(t, 5, *c.Shift24h)
		}
	}
}

func TestSummariesWithoutHistoryOmitShift(t *testing.T) {
	h := newHarness([]domain.Market{market("a1", "Will inflation top four percent", 20, 900)}, nil)
	_, err := h.orchestrator(Config{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, h.decider.got, 1)
	assert.Nil(t, h.decider.got[0].Shift24h)
}
