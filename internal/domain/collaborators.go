package domain

import "context"

// SolvencyChecker reports whether the operator can afford to publish.
type SolvencyChecker interface {
	CheckBalance(ctx context.Context) (Solvency, error)
}

// LayoutDecider orders candidates for an edition. The response is free text
// expected to contain one JSON LayoutDecision object.
type LayoutDecider interface {
	Decide(ctx context.Context, candidates []CandidateSummary) (string, error)
}

// ContentGenerator writes an article for a market. The response is free text
// expected to contain one JSON ArticleDraft object.
type ContentGenerator interface {
	Generate(ctx context.Context, market Market, research, angle string) (string, error)
}

// Researcher gathers background context for a market.
type Researcher interface {
	Research(ctx context.Context, market Market) (string, error)
}

// Illustrator produces an image for a draft. An empty ref means no image.
type Illustrator interface {
	Illustrate(ctx context.Context, draft ArticleDraft, market Market) (string, error)
}

// Ledger records publication events. Callers treat it as best-effort.
type Ledger interface {
	Record(ctx context.Context, event string, detail map[string]any) error
}
