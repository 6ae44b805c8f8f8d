package reconcile

import (
	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/matcher"
)

// Merge pairs primary (Polymarket) and secondary (Kalshi) listings by title.
//
// Each primary record takes the best-scoring secondary record that is still
// unused and scores at least threshold; ties go to the earlier secondary
// record. The result holds one row per primary record, in input order,
// followed by one row per unmatched secondary record. Rows carry no internal
// ID yet. The second return value is the number of merged pairs.
func Merge(primary, secondary []domain.NormalizedMarket, threshold float64) ([]domain.Market, int) {
	secondaryTitles := make([]string, len(secondary))
	for i, b := range secondary {
		secondaryTitles[i] = matcher.Normalize(b.Title)
	}

	used := make([]bool, len(secondary))
	rows := make([]domain.Market, 0, len(primary)+len(secondary))
	merged := 0

	for _, a := range primary {
		title := matcher.Normalize(a.Title)
		best, bestScore := -1, 0.0
		for j := range secondary {
			if used[j] {
				continue
			}
			bound := matcher.UpperBound(title, secondaryTitles[j])
			if bound < threshold || bound <= bestScore {
				continue
			}
			score := matcher.ScoreNormalized(title, secondaryTitles[j])
			if score >= threshold && score > bestScore {
				best, bestScore = j, score
			}
		}

		if best < 0 {
			rows = append(rows, fromSingle(a))
			continue
		}
		used[best] = true
		merged++
		rows = append(rows, mergePair(a, secondary[best]))
	}

	for j, b := range secondary {
		if !used[j] {
			rows = append(rows, fromSingle(b))
		}
	}
	return rows, merged
}

// fromSingle builds a row for a market listed on one venue only.
func fromSingle(n domain.NormalizedMarket) domain.Market {
	m := domain.Market{
		Title:              n.Title,
		Description:        n.Description,
		Category:           n.Category,
		CurrentProbability: n.Probability,
		Volume24h:          n.Volume24h,
		Status:             n.Status,
		ResolutionOutcome:  n.ResolutionOutcome,
	}
	p := n.Probability
	switch n.Source {
	case domain.SourcePolymarket:
		m.PolymarketID = n.SourceID
		m.PolymarketProbability = &p
		m.PolymarketVolume = n.Volume24h
	case domain.SourceKalshi:
		m.KalshiID = n.SourceID
		m.KalshiProbability = &p
		m.KalshiVolume = n.Volume24h
	}
	return m
}

// mergePair combines a matched pair. The primary listing supplies the
// editorial fields; probability is the rounded mean and volume the sum.
func mergePair(a, b domain.NormalizedMarket) domain.Market {
	m := fromSingle(a)
	pb := b.Probability
	m.KalshiID = b.SourceID
	m.KalshiProbability = &pb
	m.KalshiVolume = b.Volume24h
	m.CurrentProbability = roundedMean(a.Probability, b.Probability)
	m.Volume24h = a.Volume24h.Add(b.Volume24h)
	if m.Description == "" {
		m.Description = b.Description
	}
	if m.ResolutionOutcome == "" {
		m.ResolutionOutcome = b.ResolutionOutcome
	}
	return m
}

// roundedMean averages two 0-100 probabilities, rounding halves up.
func roundedMean(a, b int) int {
	return (a + b + 1) / 2
}
