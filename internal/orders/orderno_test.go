package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderNo(t *testing.T) {
	at := time.Date(2026, 9, 1, 15, 42, 33, 0, time.UTC)
	no, err := GenerateOrderNo(at)
	require.NoError(t, err)

	assert.Len(t, no, 21)
	assert.Equal(t, "20260901154233-", no[:15])
	for _, r := range no[15:] {
		assert.True(t, r >= '0' && r <= '9', "suffix must be digits, got %q", r)
	}
}

func TestGenerateOrderNoVaries(t *testing.T) {
	at := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		no, err := GenerateOrderNo(at)
		require.NoError(t, err)
		seen[no] = true
	}
	assert.Greater(t, len(seen), 1, "random suffix should vary within one second")
}
