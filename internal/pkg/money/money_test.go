package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatUSD(t *testing.T) {
	cases := map[float64]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		1234.5:    "1,234.5",
		1234567.8: "1,234,567.8",
		12.345:    "12.35",
		-2500:     "-2,500",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatUSD(in), "input %v", in)
	}
}

func TestFixedAndRatio(t *testing.T) {
	assert.Equal(t, "0.1235", Fixed(0.123456, 4))
	assert.Equal(t, "70.0", Fixed(70, 1))
	assert.InDelta(t, 0.25, Ratio(1, 4), 1e-12)
	assert.Equal(t, 0.0, Ratio(1, 0))
}
