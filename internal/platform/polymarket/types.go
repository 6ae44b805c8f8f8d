package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string. Gamma is not
// consistent about which it sends for prices and volumes.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// APIMarket is a market as returned by the Gamma API.
type APIMarket struct {
	ID                  string     `json:"id"`
	Question            string     `json:"question"`
	ConditionID         string     `json:"conditionId"`
	Slug                string     `json:"slug"`
	Description         string     `json:"description"`
	Category            string     `json:"category"`
	Active              flexBool   `json:"active"`
	Closed              bool       `json:"closed"`
	Outcomes            string     `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices       string     `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	LastTradePrice      flexFloat  `json:"lastTradePrice"`
	BestBid             flexFloat  `json:"bestBid"`
	BestAsk             flexFloat  `json:"bestAsk"`
	Volume              flexFloat  `json:"volume"`
	Volume24hr          flexFloat  `json:"volume24hr"`
	EndDate             string     `json:"endDate"`
	UMAResolutionStatus string     `json:"umaResolutionStatus"`
	Tokens              []Token    `json:"tokens"`
	Tags                []APITag   `json:"tags"`
	Events              []APIEvent `json:"events"`
}

// Prices decodes the JSON-encoded outcome prices. Unparseable entries are
// skipped.
func (m *APIMarket) Prices() []float64 {
	if m.OutcomePrices == "" {
		return nil
	}
	var raw []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &raw); err != nil {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, s := range raw {
		p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// AllTags returns the market's own tags followed by those of its parent events.
func (m *APIMarket) AllTags() []APITag {
	tags := append([]APITag(nil), m.Tags...)
	for _, e := range m.Events {
		tags = append(tags, e.Tags...)
	}
	return tags
}

// Token represents a token entry inside the Gamma API market response.
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// APITag is a Gamma taxonomy tag.
type APITag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// APIEvent is the parent event of a market.
type APIEvent struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Slug  string   `json:"slug"`
	Tags  []APITag `json:"tags"`
}
