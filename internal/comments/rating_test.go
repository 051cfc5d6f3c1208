package comments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundRating(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{5, 5},
		{4.25, 4.3},
		{4.24, 4.2},
		{3.3333333, 3.3},
		{4.6666666, 4.7},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, RoundRating(tc.in), 1e-9, "round %v", tc.in)
	}
}
