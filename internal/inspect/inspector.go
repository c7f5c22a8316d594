// File: internal/inspect/inspector.go
package inspect

import (
	"context"

	"go.uber.org/zap"

	"github.com/raghavx92/dealpilot-cli/internal/device"
	"github.com/raghavx92/dealpilot-cli/internal/match"
)

// currencyMarkers are scanned in order when hunting for the displayed price.
var currencyMarkers = []string{"₹", "Rs"}

// maxPriceElements bounds how many matching elements are parsed per marker
// so a text-heavy page doesn't stall an iteration.
const maxPriceElements = 3

// errorPhrases flag a broken page; any single hit counts.
var errorPhrases = []string{
	"404", "Page not found", "Access Denied", "Error",
	"Something went wrong", "Oops",
}

// stockPhrases flag an unavailable listing. A lone hit is treated as noise
// (dynamic pages routinely show one of these for unrelated sellers); two
// distinct phrases are required before the page is called out of stock.
var stockPhrases = []string{
	"Out of Stock", "Currently unavailable", "Notify Me", "Sold Out",
	"Not Available", "out of stock", "currently unavailable",
}

// purchasePhrases are the affordances that mark a listing as buyable.
var purchasePhrases = []string{
	"Add to Cart", "ADD TO CART", "Add to Bag", "Buy Now", "BUY NOW",
}

// minTitleLen filters out chrome UI fragments when hunting for the product
// title among generic text views.
const minTitleLen = 10

// Inspector reads price, title, and availability signals off the current
// screen. Every lookup tolerates device failures: a missing or unreadable
// element is "not found", never an error.
type Inspector struct {
	dev    device.Automator
	logger *zap.Logger
}

func New(dev device.Automator, logger *zap.Logger) *Inspector {
	return &Inspector{dev: dev, logger: logger.Named("inspect")}
}

// CurrentPrice scans on-screen text for a currency marker and returns the
// first value that parses to a positive number. ok is false when no
// element yields one.
func (i *Inspector) CurrentPrice(ctx context.Context) (float64, bool) {
	for _, marker := range currencyMarkers {
		texts, err := i.dev.ScreenText(ctx, marker)
		if err != nil {
			i.logger.Debug("price scan failed for marker", zap.String("marker", marker), zap.Error(err))
			continue
		}
		if len(texts) > maxPriceElements {
			texts = texts[:maxPriceElements]
		}
		for _, t := range texts {
			if v, ok := match.ParsePrice(t); ok && v > 0 {
				return v, true
			}
		}
	}
	return 0, false
}

// CurrentTitle returns the first sufficiently long text element, which on
// a product detail page is the listing title or the browser tab title.
func (i *Inspector) CurrentTitle(ctx context.Context) (string, bool) {
	texts, err := i.dev.ScreenText(ctx, "")
	if err != nil {
		i.logger.Debug("title scan failed", zap.Error(err))
		return "", false
	}
	for _, t := range texts {
		if len(t) > minTitleLen {
			return t, true
		}
	}
	return "", false
}

// HasError reports whether any error phrase is visible.
func (i *Inspector) HasError(ctx context.Context) bool {
	for _, phrase := range errorPhrases {
		exists, err := i.dev.TextExists(ctx, phrase, false)
		if err != nil {
			continue
		}
		if exists {
			i.logger.Warn("error phrase detected on page", zap.String("phrase", phrase))
			return true
		}
	}
	return false
}

// HasPurchaseAffordance reports whether an add-to-cart/buy control is
// visible.
func (i *Inspector) HasPurchaseAffordance(ctx context.Context) bool {
	for _, phrase := range purchasePhrases {
		exists, err := i.dev.TextExists(ctx, phrase, false)
		if err != nil {
			continue
		}
		if exists {
			return true
		}
	}
	return false
}

// IsOutOfStock classifies availability. A visible purchase affordance
// overrides any number of unavailability phrases, since a purchasable page
// can legitimately show "Notify me" for other sellers. Without one, at
// least two distinct phrases must be present; a single hit stays in-stock.
func (i *Inspector) IsOutOfStock(ctx context.Context) bool {
	if i.HasPurchaseAffordance(ctx) {
		return false
	}
	hits := 0
	for _, phrase := range stockPhrases {
		exists, err := i.dev.TextExists(ctx, phrase, false)
		if err != nil {
			continue
		}
		if exists {
			hits++
		}
	}
	if hits >= 2 {
		i.logger.Warn("multiple unavailability phrases found", zap.Int("hits", hits))
		return true
	}
	return false
}
