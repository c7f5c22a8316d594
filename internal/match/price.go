// File: internal/match/price.go
package match

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numberRe matches the first decimal-number-looking token after currency
// markup has been stripped.
var numberRe = regexp.MustCompile(`\d+(?:\.\d{1,2})?`)

// stripCurrency removes the currency symbols and thousands separators seen
// on Indian listing pages.
func stripCurrency(text string) string {
	r := strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", ",", "")
	return strings.TrimSpace(r.Replace(text))
}

// ParsePrice extracts a numeric price from currency-formatted text.
// The second return value is false when the input is empty, "N/A", or
// contains no parseable number; callers that need a confirmed price must
// check it rather than treating zero as meaningful.
func ParsePrice(text string) (float64, bool) {
	if text == "" || text == "N/A" {
		return 0, false
	}
	m := numberRe.FindString(stripCurrency(text))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PriceOrInf is the sorting variant of ParsePrice: unparseable or absent
// prices come back as +Inf so they sort after every concrete price in an
// ascending order.
func PriceOrInf(text string) float64 {
	v, ok := ParsePrice(text)
	if !ok {
		return math.Inf(1)
	}
	return v
}
