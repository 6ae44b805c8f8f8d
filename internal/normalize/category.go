package normalize

import (
	"regexp"
	"strings"

	"github.com/alanyoungcy/marketwire/internal/domain"
)

// tagCategories maps venue taxonomy tags (Polymarket tag slugs and labels,
// Kalshi categories) to editorial sections. Keys are lowercase.
var tagCategories = map[string]domain.Category{
	"politics":                 domain.CategoryPolitics,
	"us-politics":              domain.CategoryPolitics,
	"elections":                domain.CategoryPolitics,
	"us-elections":             domain.CategoryPolitics,
	"us-presidential-election": domain.CategoryPolitics,
	"trump":                    domain.CategoryPolitics,
	"congress":                 domain.CategoryPolitics,
	"geopolitics":              domain.CategoryWorld,
	"world":                    domain.CategoryWorld,
	"world-elections":          domain.CategoryWorld,
	"global-politics":          domain.CategoryWorld,
	"ukraine":                  domain.CategoryWorld,
	"middle-east":              domain.CategoryWorld,
	"china":                    domain.CategoryWorld,
	"crypto":                   domain.CategoryCrypto,
	"cryptocurrency":           domain.CategoryCrypto,
	"bitcoin":                  domain.CategoryCrypto,
	"ethereum":                 domain.CategoryCrypto,
	"economy":                  domain.CategoryEconomy,
	"economics":                domain.CategoryEconomy,
	"finance":                  domain.CategoryEconomy,
	"financials":               domain.CategoryEconomy,
	"business":                 domain.CategoryEconomy,
	"fed":                      domain.CategoryEconomy,
	"fed-rates":                domain.CategoryEconomy,
	"inflation":                domain.CategoryEconomy,
	"companies":                domain.CategoryEconomy,
	"sports":                   domain.CategorySports,
	"nfl":                      domain.CategorySports,
	"nba":                      domain.CategorySports,
	"mlb":                      domain.CategorySports,
	"nhl":                      domain.CategorySports,
	"soccer":                   domain.CategorySports,
	"tennis":                   domain.CategorySports,
	"golf":                     domain.CategorySports,
	"f1":                       domain.CategorySports,
	"science":                  domain.CategoryScience,
	"science and technology":   domain.CategoryScience,
	"tech":                     domain.CategoryScience,
	"ai":                       domain.CategoryScience,
	"space":                    domain.CategoryScience,
	"climate":                  domain.CategoryScience,
	"climate and weather":      domain.CategoryScience,
	"weather":                  domain.CategoryScience,
	"health":                   domain.CategoryScience,
	"entertainment":            domain.CategoryEntertainment,
	"culture":                  domain.CategoryEntertainment,
	"pop-culture":              domain.CategoryEntertainment,
	"movies":                   domain.CategoryEntertainment,
	"music":                    domain.CategoryEntertainment,
	"awards":                   domain.CategoryEntertainment,
	"mentions":                 domain.CategoryEntertainment,
}

// keywordRule pairs a title pattern with its section. Rules are checked in
// slice order and the first hit wins.
type keywordRule struct {
	category domain.Category
	pattern  *regexp.Regexp
}

var keywordRules = []keywordRule{
	{domain.CategoryCrypto, regexp.MustCompile(`(?i)\b(bitcoin|btc|ethereum|eth|solana|crypto\w*|stablecoin|memecoin|defi|nft|token|airdrop|dogecoin|xrp|binance|coinbase)\b`)},
	{domain.CategoryPolitics, regexp.MustCompile(`(?i)\b(election|elected|president\w*|senate|senator|congress\w*|house|governor|democrat\w*|republican\w*|gop|trump|biden|harris|vance|nominee|primary|impeach\w*|cabinet|supreme court|parliament|prime minister|vote|ballot)\b`)},
	{domain.CategoryEconomy, regexp.MustCompile(`(?i)\b(fed|fomc|interest rates?|rate (cut|hike)s?|inflation|cpi|gdp|recession|unemployment|jobs report|tariffs?|s&p|nasdaq|dow|stocks?|ipo|treasury|yields?|earnings|oil price)\b`)},
	{domain.CategorySports, regexp.MustCompile(`(?i)\b(nfl|nba|mlb|nhl|mls|ufc|super bowl|world series|stanley cup|finals|championship|playoffs?|world cup|premier league|champions league|olympics?|grand slam|wimbledon|f1|formula 1|grand prix|match|mvp)\b`)},
	{domain.CategoryEntertainment, regexp.MustCompile(`(?i)\b(oscars?|grammys?|emmys?|golden globes?|box office|movie|film|album|billboard|spotify|netflix|taylor swift|celebrity|tv show|season finale|eurovision)\b`)},
}

// InferCategory picks a section from venue tags first, then from title
// keywords, and falls back to politics.
func InferCategory(tags []string, title string) domain.Category {
	for _, tag := range tags {
		if c, ok := tagCategories[strings.ToLower(strings.TrimSpace(tag))]; ok {
			return c
		}
	}
	for _, rule := range keywordRules {
		if rule.pattern.MatchString(title) {
			return rule.category
		}
	}
	return domain.CategoryPolitics
}
