package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierPricesSelectsByPromptSize(t *testing.T) {
	in, out := TierPrices("qwen3-max", 10_000)
	assert.Equal(t, 0.0032, in)
	assert.Equal(t, 0.0128, out)

	in, out = TierPrices("qwen3-max", 100_000)
	assert.Equal(t, 0.0064, in)
	assert.Equal(t, 0.0256, out)

	// Past the last boundary the last tier still applies.
	in, out = TierPrices("qwen3-max", 500_000)
	assert.Equal(t, 0.0096, in)
	assert.Equal(t, 0.0384, out)
}

func TestTierPricesUnboundedTier(t *testing.T) {
	in, out := TierPrices("qwen-vl-ocr", 1_000_000)
	assert.Equal(t, 0.0003, in)
	assert.Equal(t, 0.0005, out)
}

func TestTierPricesUnknownModelDefaults(t *testing.T) {
	in, out := TierPrices("some-new-model", 100)
	assert.Equal(t, defaultInputPrice, in)
	assert.Equal(t, defaultOutputPrice, out)
}

func TestCost(t *testing.T) {
	// 2000 prompt + 500 completion tokens on the first qwen3-max tier.
	got := Cost("qwen3-max", 2000, 500)
	assert.InDelta(t, 2.0*0.0032+0.5*0.0128, got, 1e-9)
}

func TestCostRoundsToLedgerPrecision(t *testing.T) {
	got := Cost("qwen-vl-ocr", 333, 111)
	assert.Equal(t, 0.000155, got)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Qwen3-Max", DisplayName("qwen3-max"))
	assert.Equal(t, "mystery", DisplayName("mystery"))
}
