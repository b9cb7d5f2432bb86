package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBRL(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1.234,56", 1234.56},
		{"R$ 1.234,56", 1234.56},
		{"0,00", 0},
		{"1.200,00", 1200.0},
		{"999,99", 999.99},
		{"1.000.000,01", 1000000.01},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseBRL(tc.in)
			assert.NoError(t, err)
			assert.InDelta(t, tc.want, got, 0.0001)
		})
	}
}

func TestParseBRLInvalid(t *testing.T) {
	_, err := ParseBRL("")
	assert.Error(t, err)
	_, err = ParseBRL("abc")
	assert.Error(t, err)
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "1.234,56", FormatBRL(1234.56))
	assert.Equal(t, "0,00", FormatBRL(0))
	assert.Equal(t, "12,30", FormatBRL(12.3))
	assert.Equal(t, "1.000.000,01", FormatBRL(1000000.01))
	assert.Equal(t, "-5,50", FormatBRL(-5.5))
}

func TestFormatBRLPrefix(t *testing.T) {
	assert.Equal(t, "R$ 0,00", FormatBRLPrefix(0))
	assert.Equal(t, "R$ 1.234,56", FormatBRLPrefix(1234.56))
}

func TestRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.01, 1.5, 1234.56, 987654.32} {
		got, err := ParseBRL(FormatBRL(v))
		assert.NoError(t, err)
		assert.InDelta(t, v, got, 0.001)
	}
}
