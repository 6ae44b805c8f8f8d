// Package research assembles background context for a market from web search
// and RSS headlines.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/matcher"
	"github.com/alanyoungcy/marketwire/internal/platform/tavily"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxHeadlines = 8
	defaultCacheTTL     = 6 * time.Hour
	defaultFeedTTL      = 15 * time.Minute
	defaultMaxChars     = 4000
	feedTimeout         = 20 * time.Second
	feedConcurrency     = 4
	snippetChars        = 400
)

// Searcher runs a web search. *tavily.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]tavily.Result, error)
}

// Config tunes a Service. Zero values take defaults.
type Config struct {
	Feeds        []string
	MaxHeadlines int
	CacheTTL     time.Duration
	FeedTTL      time.Duration
	MaxChars     int
}

type headline struct {
	title     string
	link      string
	source    string
	published time.Time
	words     map[string]bool
}

// Service implements domain.Researcher. Either source may be absent; a
// Service with neither returns empty context.
type Service struct {
	searcher Searcher
	cache    domain.ResearchCache
	parser   *gofeed.Parser
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	headlines []headline
	fetchedAt time.Time
}

// New creates a Service. searcher and cache may be nil.
func New(searcher Searcher, cache domain.ResearchCache, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxHeadlines <= 0 {
		cfg.MaxHeadlines = defaultMaxHeadlines
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.FeedTTL <= 0 {
		cfg.FeedTTL = defaultFeedTTL
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: feedTimeout}
	return &Service{
		searcher: searcher,
		cache:    cache,
		parser:   parser,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "research")),
		now:      time.Now,
	}
}

// Research returns cached context when present, otherwise searches and
// scans feeds. It fails only when every configured source failed.
func (s *Service) Research(ctx context.Context, m domain.Market) (string, error) {
	if s.cache != nil {
		text, err := s.cache.Get(ctx, m.ID)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("research cache read failed", slog.String("error", err.Error()))
		}
	}

	var (
		sections []string
		errs     []error
	)
	if s.searcher != nil {
		results, err := s.searcher.Search(ctx, m.Title)
		if err != nil {
			errs = append(errs, err)
		} else if len(results) > 0 {
			sections = append(sections, formatResults(results))
		}
	}
	if len(s.cfg.Feeds) > 0 {
		items, err := s.feedHeadlines(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		if matched := matchHeadlines(items, keywords(m.Title), s.cfg.MaxHeadlines); len(matched) > 0 {
			sections = append(sections, formatHeadlines(matched))
		}
	}

	if len(sections) == 0 && len(errs) > 0 {
		return "", fmt.Errorf("research: %s: %w", m.ID, errors.Join(errs...))
	}
	text := truncate(strings.Join(sections, "\n\n"), s.cfg.MaxChars)

	if s.cache != nil && text != "" {
		if err := s.cache.Set(ctx, m.ID, text, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("research cache write failed", slog.String("error", err.Error()))
		}
	}
	return text, nil
}

// feedHeadlines returns every item from the configured feeds, refetching at
// most once per FeedTTL. Feeds that fail are skipped; the error is non-nil
// only when all of them failed.
func (s *Service) feedHeadlines(ctx context.Context) ([]headline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < s.cfg.FeedTTL {
		return s.headlines, nil
	}

	var (
		mu     sync.Mutex
		items  []headline
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedConcurrency)
	for _, url := range s.cfg.Feeds {
		g.Go(func() error {
			feed, err := s.parser.ParseURLWithContext(url, gctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				s.logger.Warn("feed fetch failed", slog.String("feed", url), slog.String("error", err.Error()))
				return nil
			}
			for _, it := range feed.Items {
				items = append(items, toHeadline(feed.Title, it))
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed == len(s.cfg.Feeds) {
		return nil, fmt.Errorf("research: all %d feeds failed", failed)
	}
	s.headlines, s.fetchedAt = items, s.now()
	return items, nil
}

func toHeadline(source string, it *gofeed.Item) headline {
	h := headline{
		title:  strings.TrimSpace(it.Title),
		link:   it.Link,
		source: source,
		words:  make(map[string]bool),
	}
	if it.PublishedParsed != nil {
		h.published = *it.PublishedParsed
	}
	for _, w := range strings.Fields(matcher.Normalize(it.Title)) {
		h.words[w] = true
	}
	return h
}

var stopwords = map[string]bool{
	"will": true, "what": true, "when": true, "which": true, "with": true,
	"before": true, "after": true, "than": true, "that": true, "this": true,
	"from": true, "into": true, "over": true, "under": true, "more": true,
	"less": true, "least": true, "most": true, "been": true, "have": true,
	"there": true, "their": true, "about": true, "end": true, "the": true,
	"and": true, "for": true, "win": true, "yes": true,
}

// keywords are the distinctive words of a market title: normalized, at
// least four characters and not a stopword.
func keywords(title string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(matcher.Normalize(title)) {
		if len(w) < 4 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// matchHeadlines keeps headlines sharing at least two keywords with the
// market (one when the market has a single keyword), newest first.
func matchHeadlines(items []headline, kws []string, limit int) []headline {
	if len(kws) == 0 {
		return nil
	}
	need := min(2, len(kws))
	var out []headline
	for _, h := range items {
		hits := 0
		for _, k := range kws {
			if h.words[k] {
				hits++
			}
		}
		if hits >= need {
			out = append(out, h)
		}
	}
	slices.SortStableFunc(out, func(a, b headline) int {
		return b.published.Compare(a.published)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func formatResults(results []tavily.Result) string {
	var b strings.Builder
	b.WriteString("Recent coverage:")
	for _, r := range results {
		fmt.Fprintf(&b, "\n- %s (%s): %s", r.Title, r.URL, truncate(strings.TrimSpace(r.Content), snippetChars))
	}
	return b.String()
}

func formatHeadlines(hs []headline) string {
	var b strings.Builder
	b.WriteString("Headlines:")
	for _, h := range hs {
		b.WriteString("\n- ")
		if !h.published.IsZero() {
			b.WriteString(h.published.UTC().Format(time.DateOnly) + " ")
		}
		b.WriteString(h.title)
		if h.source != "" {
			b.WriteString(" [" + h.source + "]")
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

var _ domain.Researcher = (*Service)(nil)
