// Package normalize converts venue-specific market records into the shared
// domain vocabulary. Every function here is pure.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/platform/kalshi"
	"github.com/alanyoungcy/marketwire/internal/platform/polymarket"
	"github.com/shopspring/decimal"
)

// DefaultProbability is used when a venue reports no usable price.
const DefaultProbability = 50

// FromPolymarket converts a Gamma market.
func FromPolymarket(m polymarket.APIMarket) domain.NormalizedMarket {
	tags := make([]string, 0, len(m.Tags)+1)
	for _, t := range m.AllTags() {
		if t.Slug != "" {
			tags = append(tags, t.Slug)
		}
		if t.Label != "" {
			tags = append(tags, t.Label)
		}
	}
	if m.Category != "" {
		tags = append(tags, m.Category)
	}

	volume := decimal.NewFromFloat(float64(m.Volume24hr))
	if m.Volume24hr == 0 {
		volume = decimal.NewFromFloat(float64(m.Volume))
	}

	status := polymarketStatus(m)
	return domain.NormalizedMarket{
		Source:            domain.SourcePolymarket,
		SourceID:          m.ID,
		Title:             strings.TrimSpace(m.Question),
		Description:       strings.TrimSpace(m.Description),
		Category:          InferCategory(tags, m.Question),
		Probability:       polymarketProbability(m),
		Volume24h:         volume,
		Status:            status,
		ResolutionOutcome: polymarketOutcome(m, status),
		EndDate:           parseTime(m.EndDate),
	}
}

// FromKalshi converts a Kalshi market. The subtitle is appended to the title
// when it disambiguates a multi-market event.
func FromKalshi(m kalshi.KalshiMarket) domain.NormalizedMarket {
	title := strings.TrimSpace(m.Title)
	if sub := strings.TrimSpace(m.YesSubTitle); sub != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(sub)) {
		title = title + ": " + sub
	}

	status := kalshiStatus(m.Status)
	outcome := ""
	if status == domain.MarketStatusResolved {
		outcome = strings.ToLower(m.Result)
	}

	var tags []string
	if m.Category != "" {
		tags = append(tags, m.Category)
	}

	end := parseTime(m.CloseTime)
	if end == nil {
		end = parseTime(m.ExpirationTime)
	}

	return domain.NormalizedMarket{
		Source:            domain.SourceKalshi,
		SourceID:          m.Ticker,
		Title:             title,
		Description:       strings.TrimSpace(m.RulesPrimary),
		Category:          InferCategory(tags, title),
		Probability:       kalshiProbability(m),
		Volume24h:         decimal.NewFromInt(m.Volume24H),
		Status:            status,
		ResolutionOutcome: outcome,
		EndDate:           end,
	}
}

// polymarketProbability reads the Yes price from outcomePrices, falling back
// to the last trade and then the book midpoint.
func polymarketProbability(m polymarket.APIMarket) int {
	if prices := m.Prices(); len(prices) > 0 {
		return toPercent(prices[0])
	}
	if m.LastTradePrice > 0 {
		return toPercent(float64(m.LastTradePrice))
	}
	if m.BestBid > 0 && m.BestAsk > 0 {
		return toPercent((float64(m.BestBid) + float64(m.BestAsk)) / 2)
	}
	return DefaultProbability
}

// kalshiProbability reads the last traded price, falling back to the Yes
// bid/ask midpoint and then the ask alone. Cent quotes win; the *_dollars
// strings are read only when no cent quote is present.
func kalshiProbability(m kalshi.KalshiMarket) int {
	switch {
	case m.LastPrice > 0:
		return toPercent(m.LastPrice / 100)
	case m.YesBid > 0 && m.YesAsk > 0:
		return toPercent((m.YesBid + m.YesAsk) / 200)
	case m.YesAsk > 0:
		return toPercent(m.YesAsk / 100)
	}

	last, bid, ask := dollars(m.LastPriceDollars), dollars(m.YesBidDollars), dollars(m.YesAskDollars)
	switch {
	case last > 0:
		return toPercent(last)
	case bid > 0 && ask > 0:
		return toPercent((bid + ask) / 2)
	case ask > 0:
		return toPercent(ask)
	}
	return DefaultProbability
}

// dollars parses a fixed-point dollar quote such as "0.5600". Blank or
// malformed values read as 0.
func dollars(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// toPercent maps a 0..1 price onto a clamped 0-100 integer.
func toPercent(p float64) int {
	if math.IsNaN(p) {
		return DefaultProbability
	}
	pct := int(math.Round(p * 100))
	return max(0, min(100, pct))
}

func polymarketStatus(m polymarket.APIMarket) domain.MarketStatus {
	if m.Closed {
		if strings.EqualFold(m.UMAResolutionStatus, "resolved") {
			return domain.MarketStatusResolved
		}
		for _, t := range m.Tokens {
			if t.Winner {
				return domain.MarketStatusResolved
			}
		}
		return domain.MarketStatusClosed
	}
	if !bool(m.Active) {
		return domain.MarketStatusClosed
	}
	return domain.MarketStatusActive
}

func polymarketOutcome(m polymarket.APIMarket, status domain.MarketStatus) string {
	if status != domain.MarketStatusResolved {
		return ""
	}
	for _, t := range m.Tokens {
		if t.Winner {
			return strings.ToLower(t.Outcome)
		}
	}
	if prices := m.Prices(); len(prices) > 0 {
		switch {
		case prices[0] >= 0.99:
			return "yes"
		case prices[0] <= 0.01:
			return "no"
		}
	}
	return ""
}

func kalshiStatus(s string) domain.MarketStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open", "active":
		return domain.MarketStatusActive
	case "settled", "determined", "finalized":
		return domain.MarketStatusResolved
	default:
		// closed, unopened, initialized, paused and anything unknown.
		return domain.MarketStatusClosed
	}
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
