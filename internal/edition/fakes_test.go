package edition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func market(id, title string, prob int, volume int64) domain.Market {
	return domain.Market{
		ID:                 id,
		Title:              title,
		Category:           domain.CategoryPolitics,
		CurrentProbability: prob,
		Volume24h:          decimal.NewFromInt(volume),
		Status:             domain.MarketStatusActive,
	}
}

type stubSolvency struct {
	sol domain.Solvency
	err error
}

func (s stubSolvency) CheckBalance(context.Context) (domain.Solvency, error) {
	return s.sol, s.err
}

func solvent() stubSolvency {
	return stubSolvency{sol: domain.Solvency{Solvent: true}}
}

type stubMarkets struct {
	primary   []domain.Market
	secondary []domain.Market
	err       error
	limits    []int
}

func (s *stubMarkets) LoadIDIndex(context.Context) (domain.MarketIDIndex, error) {
	return domain.NewMarketIDIndex(), nil
}

func (s *stubMarkets) UpsertBatch(context.Context, []domain.Market) error {
	return errors.New("read only")
}

func (s *stubMarkets) ListActiveBySource(_ context.Context, filter domain.SourceFilter, limit int) ([]domain.Market, error) {
	s.limits = append(s.limits, limit)
	if s.err != nil {
		return nil, s.err
	}
	src := s.primary
	if filter == domain.KalshiOnly {
		src = s.secondary
	}
	if len(src) > limit {
		src = src[:limit]
	}
	return src, nil
}

func (s *stubMarkets) Count(context.Context) (int64, error) {
	return int64(len(s.primary) + len(s.secondary)), nil
}

type memEditions struct {
	mu         sync.Mutex
	editions   []domain.Edition
	placements map[string][]domain.EditionArticle

	// raceOnCreate makes that many Create calls lose to a concurrent writer
	// that takes the same volume number first.
	raceOnCreate  int
	failPositions bool
}

func newMemEditions(volumes ...int) *memEditions {
	s := &memEditions{placements: make(map[string][]domain.EditionArticle)}
	for _, v := range volumes {
		s.editions = append(s.editions, domain.Edition{ID: fmt.Sprintf("old-%d", v), VolumeNumber: v})
	}
	return s
}

func (s *memEditions) MaxVolumeNumber(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	highest := 0
	for _, e := range s.editions {
		highest = max(highest, e.VolumeNumber)
	}
	return highest, nil
}

func (s *memEditions) Create(_ context.Context, e domain.Edition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raceOnCreate > 0 {
		s.raceOnCreate--
		s.editions = append(s.editions, domain.Edition{ID: "rival", VolumeNumber: e.VolumeNumber})
	}
	for _, existing := range s.editions {
		if existing.VolumeNumber == e.VolumeNumber {
			return fmt.Errorf("volume %d: %w", e.VolumeNumber, domain.ErrAlreadyExists)
		}
	}
	s.editions = append(s.editions, e)
	return nil
}

func (s *memEditions) MarkPublished(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.editions {
		if s.editions[i].ID == id {
			s.editions[i].PublishedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *memEditions) AppendArticle(_ context.Context, editionID, articleID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := len(s.placements[editionID]) + 1
	s.placements[editionID] = append(s.placements[editionID], domain.EditionArticle{
		EditionID: editionID, ArticleID: articleID, Position: pos,
	})
	return pos, nil
}

func (s *memEditions) UpdatePosition(_ context.Context, editionID, articleID string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPositions {
		return errors.New("deadlock detected")
	}
	for i, ea := range s.placements[editionID] {
		if ea.ArticleID == articleID {
			s.placements[editionID][i].Position = position
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *memEditions) placementsFor(editionID string) []domain.EditionArticle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.EditionArticle(nil), s.placements[editionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (s *memEditions) byID(id string) (domain.Edition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.editions {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Edition{}, false
}

type memArticles struct {
	mu     sync.Mutex
	bySlug map[string]domain.Article
}

func newMemArticles(taken ...string) *memArticles {
	s := &memArticles{bySlug: make(map[string]domain.Article)}
	for _, slug := range taken {
		s.bySlug[slug] = domain.Article{ID: "old-" + slug, Slug: slug}
	}
	return s
}

func (s *memArticles) Create(_ context.Context, a domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySlug[a.Slug]; ok {
		return domain.ErrAlreadyExists
	}
	s.bySlug[a.Slug] = a
	return nil
}

func (s *memArticles) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bySlug[slug]
	return ok, nil
}

func (s *memArticles) byMarket() map[string]domain.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.Article)
	for _, a := range s.bySlug {
		if a.MarketID != "" {
			out[a.MarketID] = a
		}
	}
	return out
}

type stubDecider struct {
	response string
	err      error
	got      []domain.CandidateSummary
}

func (d *stubDecider) Decide(_ context.Context, candidates []domain.CandidateSummary) (string, error) {
	d.got = candidates
	return d.response, d.err
}

func draftJSON(headline string, words int) string {
	body := strings.TrimSpace(strings.Repeat("analysis ", words))
	return fmt.Sprintf("```json\n{\"headline\": %q, \"body\": %q, \"contrarianTake\": \"maybe not\"}\n```", headline, body)
}

// scriptedWriter answers per market ID; markets without a script get a
// passing draft headlined with the market title.
type scriptedWriter struct {
	responses map[string]string
	errs      map[string]error
	angles    map[string]string
	research  map[string]string
	calls     []string
}

func (w *scriptedWriter) Generate(_ context.Context, m domain.Market, research, angle string) (string, error) {
	w.calls = append(w.calls, m.ID)
	if w.angles == nil {
		w.angles = make(map[string]string)
		w.research = make(map[string]string)
	}
	w.angles[m.ID] = angle
	w.research[m.ID] = research
	if err := w.errs[m.ID]; err != nil {
		return "", err
	}
	if resp, ok := w.responses[m.ID]; ok {
		return resp, nil
	}
	return draftJSON(m.Title, 120), nil
}

type recordingIllustrator struct {
	err   error
	asked []string
}

func (i *recordingIllustrator) Illustrate(_ context.Context, _ domain.ArticleDraft, m domain.Market) (string, error) {
	i.asked = append(i.asked, m.ID)
	if i.err != nil {
		return "", i.err
	}
	return "images/" + m.ID + ".png", nil
}

type stubResearcher struct {
	err error
}

func (r stubResearcher) Research(_ context.Context, m domain.Market) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "context for " + m.Title, nil
}

type recordingLedger struct {
	err    error
	events []string
	detail []map[string]any
}

func (l *recordingLedger) Record(_ context.Context, event string, detail map[string]any) error {
	l.events = append(l.events, event)
	l.detail = append(l.detail, detail)
	return l.err
}

type stubLocks struct {
	err      error
	released bool
}

func (l *stubLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released = true }, nil
}

type recordingBus struct {
	err      error
	channels []string
}

func (b *recordingBus) Publish(_ context.Context, channel string, _ []byte) error {
	b.channels = append(b.channels, channel)
	return b.err
}

func (b *recordingBus) StreamAppend(context.Context, string, []byte) error { return b.err }

type recordingNotifier struct {
	titles []string
}

func (n *recordingNotifier) Notify(_ context.Context, _, title, _ string) error {
	n.titles = append(n.titles, title)
	return nil
}

type recordingManifests struct {
	got []domain.EditionManifest
}

func (m *recordingManifests) ArchiveEdition(_ context.Context, man domain.EditionManifest) error {
	m.got = append(m.got, man)
	return nil
}

var (
	_ domain.MarketStore      = (*stubMarkets)(nil)
	_ domain.EditionStore     = (*memEditions)(nil)
	_ domain.ArticleStore     = (*memArticles)(nil)
	_ domain.LayoutDecider    = (*stubDecider)(nil)
	_ domain.ContentGenerator = (*scriptedWriter)(nil)
	_ domain.SignalBus        = (*recordingBus)(nil)
)
