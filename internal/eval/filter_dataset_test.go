package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFilterCasesNonEmpty(t *testing.T) {
	require.NotEmpty(t, DefaultFilterCases)
	seen := make(map[string]struct{})
	for _, c := range DefaultFilterCases {
		_, dup := seen[c.ID]
		assert.False(t, dup, "duplicate case id %s", c.ID)
		seen[c.ID] = struct{}{}
		assert.NotEmpty(t, c.Query)
		assert.NotEmpty(t, c.Category)
	}
}

func TestByCategory(t *testing.T) {
	cases := ByCategory(DefaultFilterCases, "speaker_filter")
	require.NotEmpty(t, cases)
	for _, c := range cases {
		assert.Equal(t, "speaker_filter", c.Category)
	}
}

func TestByCategoryUnknown(t *testing.T) {
	assert.Empty(t, ByCategory(DefaultFilterCases, "nonexistent"))
}

func TestByID(t *testing.T) {
	c, ok := ByID(DefaultFilterCases, "speaker_001")
	require.True(t, ok)
	assert.Equal(t, "speaker_001", c.ID)
	require.NotNil(t, c.Expected.Speaker)
	assert.Equal(t, "Elon Musk", *c.Expected.Speaker)

	_, ok = ByID(DefaultFilterCases, "missing")
	assert.False(t, ok)
}

func TestCategories(t *testing.T) {
	cats := Categories(DefaultFilterCases)
	assert.Contains(t, cats, "speaker_filter")
	assert.Contains(t, cats, "date_filter")
	assert.Contains(t, cats, "edge_cases")
}
