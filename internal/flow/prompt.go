package flow

import (
	"regexp"
	"strings"
)

// DefaultPrompt is used until the host customizes the flow prompt
const DefaultPrompt = "Set up a balanced technical analysis of large-cap tech stocks"

// Plan is the payload a flow prompt resolves to
type Plan struct {
	Theme        string   `json:"theme"`
	Symbols      []string `json:"symbols"`
	WalletAmount string   `json:"wallet_amount"`
	MarketType   string   `json:"market_type"`
	Market       string   `json:"market"`
}

type keywordRule struct {
	theme      string
	keywords   []string
	symbols    []string
	marketType string
	market     string
}

// Evaluated top to bottom; the first rule with a matching keyword wins
var keywordRules = []keywordRule{
	{
		theme:      "crypto",
		keywords:   []string{"crypto", "bitcoin", "btc", "ethereum"},
		symbols:    []string{"BTC-USD", "ETH-USD", "SOL-USD"},
		marketType: "crypto",
		market:     "Binance",
	},
	{
		theme:    "healthcare",
		keywords: []string{"healthcare", "pharma", "biotech"},
		symbols:  []string{"JNJ", "PFE", "UNH"},
	},
	{
		theme:    "dividend",
		keywords: []string{"dividend", "income"},
		symbols:  []string{"KO", "PG", "VZ"},
	},
	{
		theme:    "small-cap",
		keywords: []string{"small-cap", "small cap", "smallcap"},
		symbols:  []string{"IWM", "PLTR", "SOFI"},
	},
}

var defaultRule = keywordRule{
	theme:      "default",
	symbols:    []string{"AAPL", "MSFT", "NVDA"},
	marketType: "stocks",
	market:     "NASDAQ",
}

const DefaultWalletAmount = "10000"

// $250, $ 1,500 or 300 dollars
var walletPattern = regexp.MustCompile(`\$\s?(\d[\d,]*)|(\d[\d,]*)\s*dollars`)

// AdaptPrompt resolves a free-text prompt into the step payloads.
// Only the documented keyword sets are recognized.
func AdaptPrompt(prompt string) Plan {
	text := strings.ToLower(prompt)

	rule := defaultRule
	for _, r := range keywordRules {
		if containsAny(text, r.keywords) {
			rule = r
			break
		}
	}

	plan := Plan{
		Theme:        rule.theme,
		Symbols:      append([]string(nil), rule.symbols...),
		WalletAmount: walletAmount(text),
		MarketType:   rule.marketType,
		Market:       rule.market,
	}
	if plan.MarketType == "" {
		plan.MarketType = defaultRule.marketType
		plan.Market = defaultRule.market
	}
	return plan
}

func walletAmount(text string) string {
	m := walletPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultWalletAmount
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	digits = strings.ReplaceAll(digits, ",", "")
	if digits == "" {
		return DefaultWalletAmount
	}
	return digits
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
