package edition

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
)

// shiftWindow is how far back the layout decider sees probability moves.
const shiftWindow = 24 * time.Hour

// ProbabilityHistory reads recorded snapshots, newest first.
// postgres.SnapshotStore satisfies it.
type ProbabilityHistory interface {
	ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ProbabilitySnapshot, error)
}

// WithHistory adds each candidate's 24h probability shift to the summaries
// handed to the layout decider.
func WithHistory(h ProbabilityHistory) Option {
	return func(o *Orchestrator) { o.history = h }
}

// summarize builds the decider input. A candidate whose history cannot be
// read simply has no shift.
func (o *Orchestrator) summarize(ctx context.Context, candidates []candidate) []domain.CandidateSummary {
	out := summaries(candidates)
	if o.history == nil {
		return out
	}
	since := o.now().Add(-shiftWindow)
	for i, c := range candidates {
		snaps, err := o.history.ListByMarket(ctx, c.market.ID, domain.ListOpts{Since: &since})
		if err != nil {
			o.logger.Warn("probability history unavailable",
				slog.String("market_id", c.market.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if shift, ok := probabilityShift(snaps, c.source); ok {
			out[i].Shift24h = &shift
		}
	}
	return out
}

// probabilityShift is the newest minus the oldest probability among the
// snapshots recorded for source. snaps are newest first. ok is false with
// fewer than two such snapshots.
func probabilityShift(snaps []domain.ProbabilitySnapshot, source domain.Source) (shift int, ok bool) {
	var newest, oldest *domain.ProbabilitySnapshot
	for i := range snaps {
		if snaps[i].Source != source {
			continue
		}
		if newest == nil {
			newest = &snaps[i]
		}
		oldest = &snaps[i]
	}
	if newest == nil || newest == oldest {
		return 0, false
	}
	return newest.Probability - oldest.Probability, true
}
