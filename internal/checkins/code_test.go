package checkins

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Len(t, code, CodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1, "codes should not repeat constantly")
}

func TestCodeMatches(t *testing.T) {
	assert.True(t, CodeMatches("ABC234", "ABC234"))
	assert.True(t, CodeMatches("ABC234", "abc234"), "match is case-insensitive")
	assert.False(t, CodeMatches("ABC234", "ABC235"))
	assert.False(t, CodeMatches("", ""), "empty current code never matches")
	assert.False(t, CodeMatches("", "ABC234"))
}
