package domain

import "time"

// EditionType labels the cadence of an edition.
type EditionType string

const (
	EditionDaily    EditionType = "daily"
	EditionBreaking EditionType = "breaking"
)

// Edition is one published batch of articles.
type Edition struct {
	ID           string
	Type         EditionType
	Date         time.Time
	VolumeNumber int
	PublishedAt  *time.Time
	CreatedAt    time.Time
}

// EditionArticle places an article in an edition. Position is 1-based.
type EditionArticle struct {
	EditionID string
	ArticleID string
	Position  int
}

// Article is one generated story about a market.
type Article struct {
	ID                   string
	MarketID             string
	Headline             string
	Subheadline          string
	Body                 string
	ContrarianTake       string
	Category             Category
	Slug                 string
	ImageRef             string
	ProbabilityAtPublish int
	CreatedAt            time.Time
}

// LayoutSlot is the decided placement of one candidate market.
type LayoutSlot struct {
	MarketID      string `json:"marketId"`
	Position      int    `json:"position"`
	RequiresImage bool   `json:"requiresImage"`
	Angle         string `json:"angle,omitempty"`
}

// LayoutDecision is the full ordering for an edition.
type LayoutDecision struct {
	Layout []LayoutSlot `json:"layout"`
}

// CandidateSummary is the market metadata handed to the layout decider.
type CandidateSummary struct {
	MarketID    string   `json:"marketId"`
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Probability int      `json:"probability"`
	Volume24h   string   `json:"volume24h"`
	Source      Source   `json:"source"`
	// Shift24h is the probability move in points over the last day, when
	// enough history exists.
	Shift24h *int `json:"shift24h,omitempty"`
}

// ArticleDraft is a generated article that has not been persisted yet.
type ArticleDraft struct {
	Headline       string `json:"headline"`
	Subheadline    string `json:"subheadline,omitempty"`
	Body           string `json:"body"`
	ContrarianTake string `json:"contrarianTake,omitempty"`
}

// Solvency is the outcome of a funds check.
type Solvency struct {
	Solvent bool
	Detail  string
}

// ManifestEntry is one placed article in an edition manifest.
type ManifestEntry struct {
	Position             int      `json:"position"`
	ArticleID            string   `json:"articleId"`
	MarketID             string   `json:"marketId"`
	Slug                 string   `json:"slug"`
	Headline             string   `json:"headline"`
	Category             Category `json:"category"`
	ProbabilityAtPublish int      `json:"probabilityAtPublish"`
	ImageRef             string   `json:"imageRef,omitempty"`
}

// EditionManifest describes a published edition for downstream consumers.
// When signed, Signature covers the JSON encoding of the manifest with
// Signature itself empty.
type EditionManifest struct {
	EditionID    string          `json:"editionId"`
	Type         EditionType     `json:"type"`
	Date         string          `json:"date"`
	VolumeNumber int             `json:"volumeNumber"`
	PublishedAt  time.Time       `json:"publishedAt"`
	Articles     []ManifestEntry `json:"articles"`
	Failed       int             `json:"failed"`
	Signer       string          `json:"signer,omitempty"`
	Signature    string          `json:"signature,omitempty"`
}
