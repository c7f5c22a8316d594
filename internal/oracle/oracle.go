// File: internal/oracle/oracle.go
package oracle

import (
	"context"

	"github.com/raghavx92/dealpilot-cli/internal/device"
	"github.com/raghavx92/dealpilot-cli/internal/match"
)

// Candidate is one cheaper-alternative proposal from the oracle: a price
// and the point to tap to open it.
type Candidate struct {
	Price float64 `json:"price"`
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Title string  `json:"title"`
}

// TapPoint returns the candidate's tap target.
func (c Candidate) TapPoint() device.Point { return device.Point{X: c.X, Y: c.Y} }

// Confidence levels the oracle attaches to single-candidate answers.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Match is a single best-candidate answer. A zero tap point with low
// confidence is the null answer meaning nothing on screen qualified.
type Match struct {
	Price      float64 `json:"price"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Confidence string  `json:"confidence"`
	Title      string  `json:"title"`
}

// TapPoint returns the match's tap target.
func (m Match) TapPoint() device.Point { return device.Point{X: m.X, Y: m.Y} }

// Actionable reports whether the answer is worth tapping: high or medium
// confidence and a nonzero coordinate.
func (m Match) Actionable() bool {
	return (m.Confidence == ConfidenceHigh || m.Confidence == ConfidenceMedium) && !m.TapPoint().IsZero()
}

// Oracle interprets screenshots. It is advisory: implementations never
// return an error for a malformed model response, only for a broken
// transport, and even then callers degrade to "no result".
type Oracle interface {
	// FindCheaper returns exact-match listings strictly cheaper than
	// currentPrice visible in the screenshot, in the order the model
	// proposed them. An empty slice means none qualified.
	FindCheaper(ctx context.Context, shot []byte, currentPrice float64, title string, feats match.ProductFeatures) ([]Candidate, error)

	// FindAvailable looks for an in-stock instance of the out-of-stock
	// product near the given price.
	FindAvailable(ctx context.Context, shot []byte, currentPrice float64, title string, feats match.ProductFeatures) (Match, error)

	// LocateProduct finds the main product card on a search-results page,
	// used once after initial navigation.
	LocateProduct(ctx context.Context, shot []byte, title, priceText string) (Match, error)
}
