package cv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashTextIgnoresWhitespaceLayout(t *testing.T) {
	a, err := HashText("Jane Doe\nBackend   Engineer\t Go")
	require.NoError(t, err)
	b, err := HashText("  Jane Doe Backend Engineer Go ")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashTextDistinguishesContent(t *testing.T) {
	a, err := HashText("Jane Doe")
	require.NoError(t, err)
	b, err := HashText("John Doe")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashTextRejectsEmpty(t *testing.T) {
	_, err := HashText("   \n\t ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeText(" a\n b\t\tc "))
}
