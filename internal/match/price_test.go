// File: internal/match/price_test.go
package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{name: "Rupee Symbol With Commas", input: "₹19,999", expected: 19999, ok: true},
		{name: "Rs Dot Prefix", input: "Rs. 1,29,999", expected: 129999, ok: true},
		{name: "Rs Prefix No Dot", input: "Rs 450", expected: 450, ok: true},
		{name: "Decimal Paise", input: "₹999.50", expected: 999.50, ok: true},
		{name: "Embedded In Text", input: "Deal price: ₹12,499 only", expected: 12499, ok: true},
		{name: "Empty", input: "", ok: false},
		{name: "Not Available Sentinel", input: "N/A", ok: false},
		{name: "No Digits", input: "Out of stock", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v, ok := ParsePrice(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.expected, v, 0.001)
			}
		})
	}
}

func TestPriceOrInf(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 18000, PriceOrInf("₹18,000"), 0.001)
	assert.True(t, math.IsInf(PriceOrInf("N/A"), 1))
	assert.True(t, math.IsInf(PriceOrInf(""), 1))

	// Unparseable prices must sort after every concrete price.
	assert.Less(t, PriceOrInf("₹99,999"), PriceOrInf("sold out"))
}
