package normalize

import (
	"testing"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/platform/kalshi"
	"github.com/alanyoungcy/marketwire/internal/platform/polymarket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPolymarket(t *testing.T) {
	m := polymarket.APIMarket{
		ID:            "512340",
		Question:      " Will Bitcoin reach $100k by 2025? ",
		Description:   "Resolves yes if...",
		Active:        true,
		OutcomePrices: `["0.625","0.375"]`,
		Volume24hr:    15432.5,
		Volume:        990000,
	}

	got := FromPolymarket(m)
	assert.Equal(t, domain.SourcePolymarket, got.Source)
	assert.Equal(t, "512340", got.SourceID)
	assert.Equal(t, "Will Bitcoin reach $100k by 2025?", got.Title)
	assert.Equal(t, 63, got.Probability)
	assert.Equal(t, domain.CategoryCrypto, got.Category)
	assert.Equal(t, domain.MarketStatusActive, got.Status)
	assert.True(t, decimal.RequireFromString("15432.5").Equal(got.Volume24h))
}

func TestPolymarketProbabilityFallbacks(t *testing.T) {
	tests := []struct {
		name string
		m    polymarket.APIMarket
		want int
	}{
		{"outcome prices", polymarket.APIMarket{OutcomePrices: `["0.12","0.88"]`}, 12},
		{"last trade", polymarket.APIMarket{LastTradePrice: 0.41}, 41},
		{"book midpoint", polymarket.APIMarket{BestBid: 0.30, BestAsk: 0.40}, 35},
		{"malformed prices fall through", polymarket.APIMarket{OutcomePrices: `not json`, LastTradePrice: 0.9}, 90},
		{"nothing known", polymarket.APIMarket{}, DefaultProbability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, polymarketProbability(tt.m))
		})
	}
}

func TestPolymarketStatus(t *testing.T) {
	assert.Equal(t, domain.MarketStatusActive, polymarketStatus(polymarket.APIMarket{Active: true}))
	assert.Equal(t, domain.MarketStatusClosed, polymarketStatus(polymarket.APIMarket{Active: false}))
	assert.Equal(t, domain.MarketStatusClosed, polymarketStatus(polymarket.APIMarket{Active: true, Closed: true}))
	assert.Equal(t, domain.MarketStatusResolved, polymarketStatus(polymarket.APIMarket{
		Closed: true,
		Tokens: []polymarket.Token{{Outcome: "Yes", Winner: true}},
	}))

	resolved := FromPolymarket(polymarket.APIMarket{
		Closed: true,
		Tokens: []polymarket.Token{{Outcome: "No", Winner: true}},
	})
	assert.Equal(t, "no", resolved.ResolutionOutcome)
}

func TestFromKalshi(t *testing.T) {
	m := kalshi.KalshiMarket{
		Ticker:      "FED-25DEC-T4.00",
		Title:       "Fed funds rate after December meeting",
		YesSubTitle: "Above 4.00%",
		Status:      "active",
		YesBid:      44,
		YesAsk:      48,
		Volume24H:   2100,
		Category:    "Economics",
		CloseTime:   "2025-12-10T19:00:00Z",
	}

	got := FromKalshi(m)
	assert.Equal(t, domain.SourceKalshi, got.Source)
	assert.Equal(t, "FED-25DEC-T4.00", got.SourceID)
	assert.Equal(t, "Fed funds rate after December meeting: Above 4.00%", got.Title)
	assert.Equal(t, 46, got.Probability)
	assert.Equal(t, domain.CategoryEconomy, got.Category)
	assert.Equal(t, domain.MarketStatusActive, got.Status)
	assert.True(t, decimal.NewFromInt(2100).Equal(got.Volume24h))
	require.NotNil(t, got.EndDate)
	assert.Equal(t, 2025, got.EndDate.Year())
}

func TestKalshiProbability(t *testing.T) {
	tests := []struct {
		name string
		m    kalshi.KalshiMarket
		want int
	}{
		{"last price cents", kalshi.KalshiMarket{LastPrice: 72, YesBid: 10, YesAsk: 20}, 72},
		{"midpoint", kalshi.KalshiMarket{YesBid: 30, YesAsk: 35}, 33},
		{"ask only", kalshi.KalshiMarket{YesAsk: 9}, 9},
		{"one cent last price", kalshi.KalshiMarket{LastPrice: 1}, 1},
		{"one cent midpoint", kalshi.KalshiMarket{YesBid: 1, YesAsk: 1}, 1},
		{"one cent ask", kalshi.KalshiMarket{YesAsk: 1}, 1},
		{"two cent last price", kalshi.KalshiMarket{LastPrice: 2}, 2},
		{"ninety-nine cents", kalshi.KalshiMarket{LastPrice: 99}, 99},
		{"dollar last price", kalshi.KalshiMarket{LastPriceDollars: "0.5500"}, 55},
		{"dollar midpoint", kalshi.KalshiMarket{YesBidDollars: "0.0100", YesAskDollars: "0.0300"}, 2},
		{"cents win over dollars", kalshi.KalshiMarket{LastPrice: 40, LastPriceDollars: "0.9000"}, 40},
		{"malformed dollars", kalshi.KalshiMarket{LastPriceDollars: "n/a"}, DefaultProbability},
		{"no quotes", kalshi.KalshiMarket{}, DefaultProbability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kalshiProbability(tt.m))
		})
	}
}

func TestKalshiStatus(t *testing.T) {
	cases := map[string]domain.MarketStatus{
		"open":       domain.MarketStatusActive,
		"active":     domain.MarketStatusActive,
		"closed":     domain.MarketStatusClosed,
		"unopened":   domain.MarketStatusClosed,
		"settled":    domain.MarketStatusResolved,
		"finalized":  domain.MarketStatusResolved,
		"determined": domain.MarketStatusResolved,
		"who-knows":  domain.MarketStatusClosed,
	}
	for in, want := range cases {
		assert.Equal(t, want, kalshiStatus(in), in)
	}

	settled := FromKalshi(kalshi.KalshiMarket{Status: "settled", Result: "YES"})
	assert.Equal(t, "yes", settled.ResolutionOutcome)
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name  string
		tags  []string
		title string
		want  domain.Category
	}{
		{"tag wins over keyword", []string{"Sports"}, "Will Bitcoin sponsor the Super Bowl?", domain.CategorySports},
		{"unknown tag falls through", []string{"misc"}, "Will ETH flip BTC?", domain.CategoryCrypto},
		{"crypto before politics", nil, "Will Trump launch a memecoin?", domain.CategoryCrypto},
		{"politics before economy", nil, "Will the Senate pass new tariffs?", domain.CategoryPolitics},
		{"economy", nil, "Fed rate cut in March?", domain.CategoryEconomy},
		{"sports", nil, "Who wins the NBA Finals?", domain.CategorySports},
		{"entertainment", nil, "Best Picture at the Oscars", domain.CategoryEntertainment},
		{"science via tag", []string{"Science and Technology"}, "Starship orbit", domain.CategoryScience},
		{"world via tag", []string{"geopolitics"}, "Ceasefire by June?", domain.CategoryWorld},
		{"default", nil, "Will it happen?", domain.CategoryPolitics},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferCategory(tt.tags, tt.title))
		})
	}
}
