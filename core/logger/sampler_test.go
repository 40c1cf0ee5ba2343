package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRatioSpec(t *testing.T) {
	cases := []struct {
		spec     string
		num, den int
	}{
		{"1/50", 1, 50},
		{" 3 / 10 ", 3, 10},
		{"20", 1, 20},
		{"0", 0, 0},
		{"", 0, 0},
		{"x/2", 0, 0},
		{"often", 0, 0},
	}
	for _, tc := range cases {
		num, den := parseRatioSpec(tc.spec)
		assert.Equal(t, tc.num, num, tc.spec)
		assert.Equal(t, tc.den, den, tc.spec)
	}
}

func TestRatioSamplerAllow(t *testing.T) {
	s := newRatioSampler(2, 5)
	var allowed int
	for i := 0; i < 10; i++ {
		if s.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 4, allowed)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	s.Set(9, 3)
	assert.True(t, s.Allow())
	assert.True(t, s.Allow())
	assert.True(t, s.Allow())
}
