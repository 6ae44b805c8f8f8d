// Package editorial turns markets into LLM prompts: the layout decision for
// an edition and the article for each slot.
package editorial

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/gate"
)

const (
	// RateLimitKey is shared by every process generating articles.
	RateLimitKey = "llm:writer"

	maxDescriptionChars = 800
	maxResearchChars    = 4000
)

// Completer runs one chat completion. *openai.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const deciderSystemPrompt = `You are the front-page editor of a newspaper that covers prediction markets.
You receive the candidate markets for today's edition as a JSON array.
Order them for the reader: lead with what is most consequential and most contested
(probabilities near 50 are contested, very high or low ones are near-settled),
favour markets that moved sharply (shift24h, in points, when present),
spread categories so similar stories are not adjacent, and give each story an angle.
At most %d stories may carry an image; give images to the top of the page.

Return ONLY a single JSON object, no prose:
{
  "layout": [
    {"marketId": string, "position": number, "requiresImage": boolean, "angle": string}
  ]
}
Use every marketId exactly once. Positions start at 1.`

// Decider implements domain.LayoutDecider.
type Decider struct {
	llm         Completer
	imageBudget int
	logger      *slog.Logger
}

// NewDecider creates a Decider that offers imageBudget images per edition.
func NewDecider(llm Completer, imageBudget int, logger *slog.Logger) *Decider {
	return &Decider{
		llm:         llm,
		imageBudget: max(imageBudget, 0),
		logger:      logger.With(slog.String("component", "editorial-decider")),
	}
}

// Decide returns the model's raw answer. Parsing and validation belong to the
// caller.
func (d *Decider) Decide(ctx context.Context, candidates []domain.CandidateSummary) (string, error) {
	payload, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("editorial: encode candidates: %w", err)
	}
	start := time.Now()
	out, err := d.llm.Complete(ctx, fmt.Sprintf(deciderSystemPrompt, d.imageBudget), "Candidates:\n"+string(payload))
	if err != nil {
		return "", fmt.Errorf("editorial: decide layout: %w", err)
	}
	d.logger.Debug("layout decided",
		slog.Int("candidates", len(candidates)),
		slog.Duration("took", time.Since(start)),
	)
	return out, nil
}

const writerSystemPrompt = `You are a staff writer at a newspaper that reports on prediction markets.
Write one news article about the market you are given. Report the market's
probability as the crowd's current estimate, explain what is driving it using
the research provided, and never invent quotes or figures that are not in it.
The body must be between %d and %d words. The headline must be under %d characters.
Close with a contrarian take: the strongest case that the market is wrong.

Return ONLY a single JSON object, no prose:
{"headline": string, "subheadline": string, "body": string, "contrarianTake": string}`

// WriterConfig tunes a Writer. A zero RateLimit disables rate limiting.
type WriterConfig struct {
	RateLimit  int
	RateWindow time.Duration
	Limits     gate.Limits
}

// Writer implements domain.ContentGenerator.
type Writer struct {
	llm     Completer
	limiter domain.RateLimiter
	cfg     WriterConfig
	logger  *slog.Logger
}

// NewWriter creates a Writer. limiter may be nil.
func NewWriter(llm Completer, limiter domain.RateLimiter, cfg WriterConfig, logger *slog.Logger) *Writer {
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.Limits == (gate.Limits{}) {
		cfg.Limits = gate.DefaultLimits()
	}
	return &Writer{
		llm:     llm,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "editorial-writer")),
	}
}

// Generate waits for a rate-limit slot, then asks for one article.
func (w *Writer) Generate(ctx context.Context, m domain.Market, research, angle string) (string, error) {
	if w.limiter != nil && w.cfg.RateLimit > 0 {
		if err := w.limiter.Wait(ctx, RateLimitKey, w.cfg.RateLimit, w.cfg.RateWindow); err != nil {
			return "", fmt.Errorf("editorial: wait for rate limit: %w", err)
		}
	}

	l := w.cfg.Limits
	system := fmt.Sprintf(writerSystemPrompt, l.MinWords, l.MaxWords, l.MaxHeadline)
	out, err := w.llm.Complete(ctx, system, articlePrompt(m, research, angle))
	if err != nil {
		return "", fmt.Errorf("editorial: generate %s: %w", m.ID, err)
	}
	return out, nil
}

func articlePrompt(m domain.Market, research, angle string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Market: %s\n", m.Title)
	fmt.Fprintf(&b, "Category: %s\n", m.Category)
	fmt.Fprintf(&b, "Probability of YES: %d%%\n", m.CurrentProbability)
	if m.PolymarketProbability != nil && m.KalshiProbability != nil {
		fmt.Fprintf(&b, "Venues: Polymarket %d%%, Kalshi %d%%\n", *m.PolymarketProbability, *m.KalshiProbability)
	}
	fmt.Fprintf(&b, "24h volume: $%s\n", m.Volume24h.StringFixed(0))
	if desc := strings.TrimSpace(m.Description); desc != "" {
		fmt.Fprintf(&b, "Resolution: %s\n", clip(desc, maxDescriptionChars))
	}
	if angle = strings.TrimSpace(angle); angle != "" {
		fmt.Fprintf(&b, "Editor's angle: %s\n", angle)
	}
	b.WriteString("\nResearch:\n")
	if research = strings.TrimSpace(research); research != "" {
		b.WriteString(clip(research, maxResearchChars))
	} else {
		b.WriteString("No research available. Stick to what the market itself shows.")
	}
	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

var (
	_ domain.LayoutDecider    = (*Decider)(nil)
	_ domain.ContentGenerator = (*Writer)(nil)
)
