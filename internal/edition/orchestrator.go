// Package edition turns reconciled markets into a published edition: it gates
// on solvency, selects and orders candidates, generates one article per
// market, and places the results.
package edition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/extract"
	"github.com/alanyoungcy/marketwire/internal/gate"
	"github.com/alanyoungcy/marketwire/internal/matcher"
	"github.com/google/uuid"
)

const (
	// LockKey serializes edition runs across processes.
	LockKey = "edition:run"
	// PublishedChannel names both the Pub/Sub channel and the stream that carry
	// the Result of every published edition.
	PublishedChannel = "editions:published"

	defaultPerSourceCap   = 10
	defaultImageBudget    = 5
	defaultVolumeAttempts = 3
	defaultLockTTL        = 30 * time.Minute
	maxArticleAttempts    = 3
)

// Notifier delivers an operator notification. notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Attestor signs edition manifests. crypto.Signer satisfies it.
type Attestor interface {
	Address() string
	SignMessage(msg []byte) (string, error)
}

// ManifestArchiver stores the manifest of a published edition.
type ManifestArchiver interface {
	ArchiveEdition(ctx context.Context, m domain.EditionManifest) error
}

// Config tunes an edition run.
type Config struct {
	Type           domain.EditionType
	PerSourceCap   int
	ImageBudget    int // images granted by the natural-order fallback; negative disables
	DedupThreshold float64
	VolumeAttempts int
	LockTTL        time.Duration
	Limits         gate.Limits
}

func (c Config) withDefaults() Config {
	if c.Type == "" {
		c.Type = domain.EditionDaily
	}
	if c.PerSourceCap <= 0 {
		c.PerSourceCap = defaultPerSourceCap
	}
	if c.ImageBudget < 0 {
		c.ImageBudget = 0
	} else if c.ImageBudget == 0 {
		c.ImageBudget = defaultImageBudget
	}
	if c.DedupThreshold <= 0 {
		c.DedupThreshold = matcher.EditionDedupThreshold
	}
	if c.VolumeAttempts <= 0 {
		c.VolumeAttempts = defaultVolumeAttempts
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaultLockTTL
	}
	return c
}

// Deps are the collaborators every run needs.
type Deps struct {
	Solvency domain.SolvencyChecker
	Markets  domain.MarketStore
	Editions domain.EditionStore
	Articles domain.ArticleStore
	Decider  domain.LayoutDecider
	Writer   domain.ContentGenerator
}

// Result reports one run. Errors holds one human-readable line per failed
// item or degraded step.
type Result struct {
	EditionID    string   `json:"editionId,omitempty"`
	VolumeNumber int      `json:"volumeNumber,omitempty"`
	Generated    int      `json:"generated"`
	Failed       int      `json:"failed"`
	Errors       []string `json:"errors,omitempty"`
	Halted       bool     `json:"halted,omitempty"`
}

// Orchestrator runs the edition pipeline. It is the only writer of editions,
// articles and their placements.
type Orchestrator struct {
	deps        Deps
	researcher  domain.Researcher
	illustrator domain.Illustrator
	ledger      domain.Ledger
	locks       domain.LockManager
	bus         domain.SignalBus
	notifier    Notifier
	manifests   ManifestArchiver
	attestor    Attestor
	history     ProbabilityHistory
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time
}

// Option customises an Orchestrator. Every optional collaborator is
// best-effort: its failure is logged and the run continues.
type Option func(*Orchestrator)

// WithResearcher supplies background context to the writer.
func WithResearcher(r domain.Researcher) Option {
	return func(o *Orchestrator) { o.researcher = r }
}

// WithIllustrator renders images for slots that ask for one.
func WithIllustrator(i domain.Illustrator) Option {
	return func(o *Orchestrator) { o.illustrator = i }
}

// WithLedger records layout decisions and publications.
func WithLedger(l domain.Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

// WithSignalBus announces published editions on PublishedChannel.
func WithSignalBus(b domain.SignalBus) Option {
	return func(o *Orchestrator) { o.bus = b }
}

// WithNotifier tells the operator about each published edition.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithManifestArchiver stores the manifest of each published edition.
func WithManifestArchiver(m ManifestArchiver) Option {
	return func(o *Orchestrator) { o.manifests = m }
}

// WithAttestor signs the manifest of every published edition.
func WithAttestor(a Attestor) Option {
	return func(o *Orchestrator) { o.attestor = a }
}

// WithLocks serializes runs through a distributed lock. A held lock makes
// Run return domain.ErrLockHeld.
func WithLocks(l domain.LockManager) Option {
	return func(o *Orchestrator) { o.locks = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(deps Deps, cfg Config, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:   deps,
		cfg:    cfg.withDefaults(),
		logger: logger.With(slog.String("component", "edition")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type candidate struct {
	market domain.Market
	source domain.Source
}

type placed struct {
	slot    slot
	article domain.Article
}

// Run executes one edition. It returns an error only when the edition cannot
// be set up; every later failure is reported in Result.Errors.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	var res Result

	if o.locks != nil {
		unlock, err := o.locks.Acquire(ctx, LockKey, o.cfg.LockTTL)
		if err != nil {
			return res, fmt.Errorf("edition: acquire run lock: %w", err)
		}
		defer unlock()
	}

	if reason, ok := o.checkSolvency(ctx); !ok {
		o.logger.Warn("edition halted", slog.String("reason", reason))
		res.Halted = true
		res.Errors = append(res.Errors, reason)
		return res, nil
	}

	ed, err := o.createEdition(ctx)
	if err != nil {
		return res, err
	}
	res.EditionID = ed.ID
	res.VolumeNumber = ed.VolumeNumber

	candidates, err := o.selectCandidates(ctx)
	if err != nil {
		return res, err
	}

	slots := o.decideLayout(ctx, ed, candidates)

	var done []placed
	for _, s := range slots {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("run cancelled: %v", err))
			break
		}
		article, err := o.produce(ctx, ed, s)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", s.market.Title, failureReason(err)))
			o.logFailure(s.market, err)
			continue
		}
		res.Generated++
		done = append(done, placed{slot: s, article: article})
	}

	for _, p := range done {
		if err := o.deps.Editions.UpdatePosition(ctx, ed.ID, p.article.ID, p.slot.position); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: position update failed: %v", p.slot.market.Title, err))
			o.logger.Error("position update failed",
				slog.String("article_id", p.article.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	o.publish(ctx, ed, done, res)

	o.logger.Info("edition complete",
		slog.String("edition_id", ed.ID),
		slog.Int("volume", ed.VolumeNumber),
		slog.Int("candidates", len(slots)),
		slog.Int("generated", res.Generated),
		slog.Int("failed", res.Failed),
	)
	return res, nil
}

func (o *Orchestrator) checkSolvency(ctx context.Context) (string, bool) {
	sol, err := o.deps.Solvency.CheckBalance(ctx)
	if err != nil {
		return fmt.Sprintf("solvency check failed: %v", err), false
	}
	if !sol.Solvent {
		msg := domain.ErrInsolvent.Error()
		if sol.Detail != "" {
			msg += ": " + sol.Detail
		}
		return msg, false
	}
	return "", true
}

// createEdition inserts the edition at max+1. A concurrent writer taking the
// same number makes the insert conflict, and the number is recomputed.
func (o *Orchestrator) createEdition(ctx context.Context) (domain.Edition, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.VolumeAttempts; attempt++ {
		highest, err := o.deps.Editions.MaxVolumeNumber(ctx)
		if err != nil {
			return domain.Edition{}, fmt.Errorf("edition: read volume number: %w", err)
		}

		now := o.now().UTC()
		ed := domain.Edition{
			ID:           uuid.NewString(),
			Type:         o.cfg.Type,
			Date:         time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			VolumeNumber: highest + 1,
			CreatedAt:    now,
		}
		err = o.deps.Editions.Create(ctx, ed)
		if err == nil {
			return ed, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Edition{}, fmt.Errorf("edition: create edition: %w", err)
		}
		lastErr = err
		o.logger.Warn("volume number taken, retrying",
			slog.Int("volume", ed.VolumeNumber),
			slog.Int("attempt", attempt),
		)
	}
	return domain.Edition{}, fmt.Errorf("edition: create edition after %d attempts: %w", o.cfg.VolumeAttempts, lastErr)
}

// selectCandidates takes the top markets listed on Polymarket and the top
// Kalshi-only markets, dropping Kalshi markets that cover a Polymarket pick.
func (o *Orchestrator) selectCandidates(ctx context.Context) ([]candidate, error) {
	primary, err := o.deps.Markets.ListActiveBySource(ctx, domain.ListedOnPolymarket, o.cfg.PerSourceCap)
	if err != nil {
		return nil, fmt.Errorf("edition: select polymarket candidates: %w", err)
	}
	secondary, err := o.deps.Markets.ListActiveBySource(ctx, domain.KalshiOnly, o.cfg.PerSourceCap)
	if err != nil {
		return nil, fmt.Errorf("edition: select kalshi candidates: %w", err)
	}

	out := make([]candidate, 0, len(primary)+len(secondary))
	titles := make([]string, len(primary))
	for i, m := range primary {
		out = append(out, candidate{market: m, source: domain.SourcePolymarket})
		titles[i] = matcher.Normalize(m.Title)
	}

	for _, m := range secondary {
		title := matcher.Normalize(m.Title)
		if dup, score := o.covered(title, titles); dup >= 0 {
			o.logger.Info("dropping duplicate kalshi candidate",
				slog.String("market_id", m.ID),
				slog.String("title", m.Title),
				slog.String("covered_by", primary[dup].ID),
				slog.Float64("score", score),
			)
			continue
		}
		out = append(out, candidate{market: m, source: domain.SourceKalshi})
	}
	return out, nil
}

// covered returns the index of the first title scoring at or above the dedup
// threshold against title, or -1.
func (o *Orchestrator) covered(title string, titles []string) (int, float64) {
	for i, t := range titles {
		if matcher.UpperBound(title, t) < o.cfg.DedupThreshold {
			continue
		}
		if score := matcher.ScoreNormalized(title, t); score >= o.cfg.DedupThreshold {
			return i, score
		}
	}
	return -1, 0
}

func (o *Orchestrator) decideLayout(ctx context.Context, ed domain.Edition, candidates []candidate) []slot {
	if len(candidates) == 0 {
		return nil
	}

	slots, fallback := o.parseLayout(ctx, candidates)
	if fallback != "" {
		o.logger.Warn("layout decision unusable, using natural order", slog.String("reason", fallback))
		slots = naturalOrder(candidates, o.cfg.ImageBudget)
	}

	o.record(ctx, "layout_decided", map[string]any{
		"edition_id": ed.ID,
		"volume":     ed.VolumeNumber,
		"fallback":   fallback != "",
		"order":      slotIDs(slots),
	})
	return slots
}

// parseLayout returns the decided slots, or a non-empty reason to fall back.
func (o *Orchestrator) parseLayout(ctx context.Context, candidates []candidate) ([]slot, string) {
	raw, err := o.deps.Decider.Decide(ctx, o.summarize(ctx, candidates))
	if err != nil {
		return nil, fmt.Sprintf("decider failed: %v", err)
	}
	decision, err := extract.Decode[domain.LayoutDecision](raw)
	if err != nil {
		return nil, fmt.Sprintf("unparseable decision: %v", err)
	}
	slots, ok := applyLayout(candidates, decision)
	if !ok {
		return nil, "decision placed no known market"
	}
	return slots, ""
}

// produce generates, checks and stores one article, appending it to the
// edition as soon as it exists.
func (o *Orchestrator) produce(ctx context.Context, ed domain.Edition, s slot) (domain.Article, error) {
	raw, err := o.deps.Writer.Generate(ctx, s.market, o.research(ctx, s.market), s.angle)
	if err != nil {
		return domain.Article{}, fmt.Errorf("content generation failed: %w", err)
	}
	draft, err := extract.Decode[domain.ArticleDraft](raw)
	if err != nil {
		return domain.Article{}, fmt.Errorf("unparseable draft: %w", err)
	}
	draft.Headline = strings.TrimSpace(draft.Headline)
	if err := gate.Validate(draft.Headline, draft.Body, o.cfg.Limits); err != nil {
		return domain.Article{}, err
	}

	article := domain.Article{
		ID:                   uuid.NewString(),
		MarketID:             s.market.ID,
		Headline:             draft.Headline,
		Subheadline:          strings.TrimSpace(draft.Subheadline),
		Body:                 strings.TrimSpace(draft.Body),
		ContrarianTake:       strings.TrimSpace(draft.ContrarianTake),
		Category:             s.market.Category,
		ImageRef:             o.illustrate(ctx, draft, s),
		ProbabilityAtPublish: s.market.CurrentProbability,
		CreatedAt:            o.now().UTC(),
	}
	if err := o.storeArticle(ctx, &article); err != nil {
		return domain.Article{}, err
	}

	if _, err := o.deps.Editions.AppendArticle(ctx, ed.ID, article.ID); err != nil {
		return domain.Article{}, fmt.Errorf("attach to edition failed: %w", err)
	}
	return article, nil
}

// storeArticle assigns a free slug and inserts the article. A slug taken
// between the check and the insert is retried with the next suffix.
func (o *Orchestrator) storeArticle(ctx context.Context, a *domain.Article) error {
	base := Slugify(a.Headline)
	var err error
	for attempt := 0; attempt < maxArticleAttempts; attempt++ {
		a.Slug, err = uniqueSlug(ctx, o.deps.Articles, base)
		if err != nil {
			return err
		}
		err = o.deps.Articles.Create(ctx, *a)
		if err == nil || !errors.Is(err, domain.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("persist article failed: %w", err)
	}
	return nil
}

func (o *Orchestrator) research(ctx context.Context, m domain.Market) string {
	if o.researcher == nil {
		return ""
	}
	text, err := o.researcher.Research(ctx, m)
	if err != nil {
		o.logger.Warn("research unavailable",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return text
}

func (o *Orchestrator) illustrate(ctx context.Context, draft domain.ArticleDraft, s slot) string {
	if o.illustrator == nil || !s.requiresImage {
		return ""
	}
	ref, err := o.illustrator.Illustrate(ctx, draft, s.market)
	if err != nil {
		o.logger.Warn("illustration failed",
			slog.String("market_id", s.market.ID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return ref
}

// publish stamps the edition and fans the result out. Nothing here fails the
// run.
func (o *Orchestrator) publish(ctx context.Context, ed domain.Edition, done []placed, res Result) {
	at := o.now().UTC()
	if err := o.deps.Editions.MarkPublished(ctx, ed.ID, at); err != nil {
		o.logger.Error("mark published failed", slog.String("edition_id", ed.ID), slog.String("error", err.Error()))
	}

	man := manifest(ed, at, done, res.Failed)
	o.sign(&man)

	detail := map[string]any{
		"edition_id": ed.ID,
		"volume":     ed.VolumeNumber,
		"generated":  res.Generated,
		"failed":     res.Failed,
		"value":      "0",
	}
	if man.Signature != "" {
		detail["signer"] = man.Signer
		detail["signature"] = man.Signature
	}
	o.record(ctx, "edition_published", detail)

	if o.notifier != nil {
		title := fmt.Sprintf("Edition %d published", ed.VolumeNumber)
		msg := fmt.Sprintf("%d articles generated, %d failed", res.Generated, res.Failed)
		if err := o.notifier.Notify(ctx, "edition_published", title, msg); err != nil {
			o.logger.Warn("notify failed", slog.String("error", err.Error()))
		}
	}

	if o.manifests != nil {
		if err := o.manifests.ArchiveEdition(ctx, man); err != nil {
			o.logger.Warn("manifest archive failed", slog.String("error", err.Error()))
		}
	}

	if o.bus != nil {
		payload, err := json.Marshal(res)
		if err == nil {
			err = errors.Join(
				o.bus.Publish(ctx, PublishedChannel, payload),
				o.bus.StreamAppend(ctx, PublishedChannel, payload),
			)
		}
		if err != nil {
			o.logger.Warn("publish edition event failed", slog.String("error", err.Error()))
		}
	}
}

// sign attaches the attestor's signature to m. A failed signature leaves m
// unsigned.
func (o *Orchestrator) sign(m *domain.EditionManifest) {
	if o.attestor == nil {
		return
	}
	m.Signer = o.attestor.Address()
	payload, err := json.Marshal(m)
	if err == nil {
		m.Signature, err = o.attestor.SignMessage(payload)
	}
	if err != nil {
		m.Signer, m.Signature = "", ""
		o.logger.Warn("manifest signing failed", slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) record(ctx context.Context, event string, detail map[string]any) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.Record(ctx, event, detail); err != nil {
		o.logger.Warn("ledger record failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) logFailure(m domain.Market, err error) {
	var rej *gate.Rejection
	if errors.As(err, &rej) {
		o.logger.Info("article rejected",
			slog.String("market_id", m.ID),
			slog.String("reason", rej.Reason),
		)
		return
	}
	o.logger.Warn("article generation failed",
		slog.String("market_id", m.ID),
		slog.String("error", err.Error()),
	)
}

// failureReason renders an item failure for Result.Errors.
func failureReason(err error) string {
	var rej *gate.Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return err.Error()
}

func manifest(ed domain.Edition, at time.Time, done []placed, failed int) domain.EditionManifest {
	m := domain.EditionManifest{
		EditionID:    ed.ID,
		Type:         ed.Type,
		Date:         ed.Date.Format(time.DateOnly),
		VolumeNumber: ed.VolumeNumber,
		PublishedAt:  at,
		Articles:     make([]domain.ManifestEntry, 0, len(done)),
		Failed:       failed,
	}
	for _, p := range done {
		m.Articles = append(m.Articles, domain.ManifestEntry{
			Position:             p.slot.position,
			ArticleID:            p.article.ID,
			MarketID:             p.article.MarketID,
			Slug:                 p.article.Slug,
			Headline:             p.article.Headline,
			Category:             p.article.Category,
			ProbabilityAtPublish: p.article.ProbabilityAtPublish,
			ImageRef:             p.article.ImageRef,
		})
	}
	return m
}
