// Package billing meters LLM-backed operations: per-model tiered
// pricing, a free-quota-then-balance ledger, and idempotent charging.
package billing

import "math"

// PriceTier is one pricing band, selected by the prompt token count.
// Prices are per thousand tokens.
type PriceTier struct {
	MaxTokens   int
	InputPrice  float64
	OutputPrice float64
}

// ModelPricing is the tiered price table for one model, tiers sorted by
// MaxTokens ascending. MaxTokens 0 on the last tier means unbounded.
type ModelPricing struct {
	DisplayName string
	Tiers       []PriceTier
}

var modelPricing = map[string]ModelPricing{
	"qwen3-max": {
		DisplayName: "Qwen3-Max",
		Tiers: []PriceTier{
			{MaxTokens: 32000, InputPrice: 0.0032, OutputPrice: 0.0128},
			{MaxTokens: 128000, InputPrice: 0.0064, OutputPrice: 0.0256},
			{MaxTokens: 256000, InputPrice: 0.0096, OutputPrice: 0.0384},
		},
	},
	"qwen-vl-ocr": {
		DisplayName: "Qwen-VL-OCR",
		Tiers:       []PriceTier{{InputPrice: 0.0003, OutputPrice: 0.0005}},
	},
	"qwen-vl-ocr-2025-11-20": {
		DisplayName: "Qwen-VL-OCR",
		Tiers:       []PriceTier{{InputPrice: 0.0003, OutputPrice: 0.0005}},
	},
}

// defaults for models not in the table.
const (
	defaultInputPrice  = 0.001
	defaultOutputPrice = 0.002
)

// TierPrices returns the per-thousand-token input and output prices for
// the tier the prompt size falls into. Prompts beyond every tier use
// the last tier's prices.
func TierPrices(model string, promptTokens int) (inputPrice, outputPrice float64) {
	pricing, ok := modelPricing[model]
	if !ok || len(pricing.Tiers) == 0 {
		return defaultInputPrice, defaultOutputPrice
	}
	for _, tier := range pricing.Tiers {
		if tier.MaxTokens == 0 || promptTokens <= tier.MaxTokens {
			return tier.InputPrice, tier.OutputPrice
		}
	}
	last := pricing.Tiers[len(pricing.Tiers)-1]
	return last.InputPrice, last.OutputPrice
}

// Cost prices one completed LLM call. The result is rounded to six
// decimal places, the ledger's precision.
func Cost(model string, promptTokens, completionTokens int) float64 {
	inputPrice, outputPrice := TierPrices(model, promptTokens)
	cost := float64(promptTokens)/1000.0*inputPrice + float64(completionTokens)/1000.0*outputPrice
	return math.Round(cost*1e6) / 1e6
}

// DisplayName resolves the human-readable model name.
func DisplayName(model string) string {
	if pricing, ok := modelPricing[model]; ok {
		return pricing.DisplayName
	}
	return model
}

// SupportedModels lists models with an explicit price table.
func SupportedModels() []string {
	out := make([]string, 0, len(modelPricing))
	for model := range modelPricing {
		out = append(out, model)
	}
	return out
}
