package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCostFreeQuotaFirst(t *testing.T) {
	fromFree, fromBalance := SplitCost(1.0, 0.9, 0.3)
	assert.InDelta(t, 0.1, fromFree, 1e-9)
	assert.InDelta(t, 0.2, fromBalance, 1e-9)
}

func TestSplitCostFullyFree(t *testing.T) {
	fromFree, fromBalance := SplitCost(1.0, 0.2, 0.5)
	assert.InDelta(t, 0.5, fromFree, 1e-9)
	assert.Zero(t, fromBalance)
}

func TestSplitCostQuotaExhausted(t *testing.T) {
	fromFree, fromBalance := SplitCost(1.0, 1.4, 0.3)
	assert.Zero(t, fromFree)
	assert.InDelta(t, 0.3, fromBalance, 1e-9)
}

func TestSplitCostZeroCost(t *testing.T) {
	fromFree, fromBalance := SplitCost(1.0, 0.5, 0)
	assert.Zero(t, fromFree)
	assert.Zero(t, fromBalance)
}
