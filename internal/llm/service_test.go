package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateLayouts(t *testing.T) {
	got := parseDate("2023-05-01")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), *got)

	got = parseDate("2023-05")
	require.NotNil(t, got)
	assert.Equal(t, time.May, got.Month())

	got = parseDate("2023")
	require.NotNil(t, got)
	assert.Equal(t, 2023, got.Year())
}

func TestParseDateOngoingAndGarbage(t *testing.T) {
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("Present"))
	assert.Nil(t, parseDate("current"))
	assert.Nil(t, parseDate("since forever"))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}
