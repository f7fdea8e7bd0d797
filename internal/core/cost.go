package core

// CostModel describes how one model's usage is priced. Token-priced models
// bill TokensIn/TokensOut separately; char-priced models bill a single
// per-million rate against CharsIn only.
type CostModel struct {
	TokenPriced   bool
	PricePerMTokIn  float64 // USD per 1,000,000 input tokens
	PricePerMTokOut float64 // USD per 1,000,000 output tokens
	PricePerMChar   float64 // USD per 1,000,000 input characters
}

// DefaultCostTable is the canonical default cost table from spec.md §6.
// deepl-free always contributes zero (Open Question decision 2 in DESIGN.md):
// it is represented as a priced row with rate 0, not an absent row, so
// cost reporting still names it explicitly at zero.
func DefaultCostTable() map[string]CostModel {
	return map[string]CostModel{
		"qwen-mt-turbo": {TokenPriced: true, PricePerMTokIn: 0.16, PricePerMTokOut: 0.49},
		"google-nmt":    {TokenPriced: false, PricePerMChar: 20},
		"google-llm":    {TokenPriced: false, PricePerMChar: 30},
		"deepl-pro":     {TokenPriced: false, PricePerMChar: 25},
		"deepl-free":    {TokenPriced: false, PricePerMChar: 0},
	}
}

// Cost computes the USD cost of one usage event under this model. Unknown
// models (the zero CostModel) contribute zero, per spec.md §4.6. Char-priced
// models bill charsIn only: (chars_in * price_per_million) / 1_000_000.
func (m CostModel) Cost(tokensIn, tokensOut, charsIn, charsOut int) float64 {
	if m.TokenPriced {
		return (float64(tokensIn)*m.PricePerMTokIn + float64(tokensOut)*m.PricePerMTokOut) / 1_000_000
	}
	return float64(charsIn) * m.PricePerMChar / 1_000_000
}
