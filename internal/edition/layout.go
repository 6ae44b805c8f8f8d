package edition

import (
	"sort"

	"github.com/alanyoungcy/marketwire/internal/domain"
)

// slot is a candidate market with its decided placement.
type slot struct {
	market        domain.Market
	source        domain.Source
	position      int
	requiresImage bool
	angle         string
}

// naturalOrder places candidates in selection order and grants images to the
// first imageBudget of them.
func naturalOrder(candidates []candidate, imageBudget int) []slot {
	slots := make([]slot, len(candidates))
	for i, c := range candidates {
		slots[i] = slot{
			market:        c.market,
			source:        c.source,
			position:      i + 1,
			requiresImage: i < imageBudget,
		}
	}
	return slots
}

// applyLayout orders candidates by the decision. Slots naming unknown or
// already placed markets are dropped; candidates the decision left out follow
// in selection order. Positions are renumbered 1..n. ok is false when the
// decision placed nothing usable.
func applyLayout(candidates []candidate, decision domain.LayoutDecision) (slots []slot, ok bool) {
	byID := make(map[string]candidate, len(candidates))
	for _, c := range candidates {
		byID[c.market.ID] = c
	}

	decided := append([]domain.LayoutSlot(nil), decision.Layout...)
	sort.SliceStable(decided, func(i, j int) bool {
		return decided[i].Position < decided[j].Position
	})

	placed := make(map[string]bool, len(candidates))
	for _, d := range decided {
		c, known := byID[d.MarketID]
		if !known || placed[d.MarketID] {
			continue
		}
		placed[d.MarketID] = true
		slots = append(slots, slot{
			market:        c.market,
			source:        c.source,
			requiresImage: d.RequiresImage,
			angle:         d.Angle,
		})
	}
	if len(slots) == 0 {
		return nil, false
	}

	for _, c := range candidates {
		if !placed[c.market.ID] {
			slots = append(slots, slot{market: c.market, source: c.source})
		}
	}
	for i := range slots {
		slots[i].position = i + 1
	}
	return slots, true
}

func summaries(candidates []candidate) []domain.CandidateSummary {
	out := make([]domain.CandidateSummary, len(candidates))
	for i, c := range candidates {
		out[i] = domain.CandidateSummary{
			MarketID:    c.market.ID,
			Title:       c.market.Title,
			Category:    c.market.Category,
			Probability: c.market.CurrentProbability,
			Volume24h:   c.market.Volume24h.String(),
			Source:      c.source,
		}
	}
	return out
}

func slotIDs(slots []slot) []string {
	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.market.ID
	}
	return ids
}
