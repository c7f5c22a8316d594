// File: internal/cart/finalizer.go
package cart

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/raghavx92/dealpilot-cli/internal/config"
	"github.com/raghavx92/dealpilot-cli/internal/device"
)

// ErrPageBroken is returned when the post-optimization re-check finds an
// error page or an out-of-stock listing. The loop just reported SUCCESS
// for this screen, so this is a contract violation of the verification
// step itself and must terminate the program rather than be retried.
var ErrPageBroken = errors.New("listing broken or unavailable at finalize time")

// goToCartLabels indicate the item already sits in the cart from a
// previous action; checked before the add-to-cart variants.
var goToCartLabels = []string{
	"Go to Cart", "GO TO CART", "Go to cart",
	"View Cart", "VIEW CART", "View cart",
}

// addToCartLabels is the ordered list of add affordance spellings; the
// first one present on screen wins.
var addToCartLabels = []string{
	"Add to Cart", "ADD TO CART", "Add to Bag", "ADD TO BAG",
	"Add to cart", "add to cart", "Add to bag", "add to bag",
	"Add To Cart", "Add To Bag",
}

// Verifier is the subset of screen checks the finalizer re-runs.
type Verifier interface {
	HasError(ctx context.Context) bool
	IsOutOfStock(ctx context.Context) bool
}

// Finalizer puts the verified listing into the cart after the
// optimization loop succeeds.
type Finalizer struct {
	dev    device.Automator
	insp   Verifier
	cfg    config.CartConfig
	logger *zap.Logger
}

func New(dev device.Automator, insp Verifier, cfg config.CartConfig, logger *zap.Logger) *Finalizer {
	return &Finalizer{dev: dev, insp: insp, cfg: cfg, logger: logger.Named("cart")}
}

// Finalize re-verifies the page, then taps a cart affordance: a
// go-to-cart label first (item already in cart), then the add-to-cart
// variants, then the blind scroll-and-tap fallback. Only ErrPageBroken is
// a failure; the fallback path reports success unverified.
func (f *Finalizer) Finalize(ctx context.Context, finalPrice float64) error {
	if f.insp.HasError(ctx) || f.insp.IsOutOfStock(ctx) {
		return ErrPageBroken
	}
	f.logger.Info("listing verified, adding to cart", zap.Float64("price", finalPrice))

	for _, label := range goToCartLabels {
		exists, err := f.dev.TextExists(ctx, label, true)
		if err != nil || !exists {
			continue
		}
		f.logger.Info("item already in cart, opening it", zap.String("label", label))
		if err := f.dev.TapText(ctx, label); err != nil {
			f.logger.Warn("tap failed", zap.String("label", label), zap.Error(err))
			continue
		}
		return nil
	}

	for _, label := range addToCartLabels {
		exists, err := f.dev.TextExists(ctx, label, true)
		if err != nil || !exists {
			continue
		}
		f.logger.Info("adding to cart", zap.String("label", label), zap.Float64("price", finalPrice))
		if err := f.dev.TapText(ctx, label); err != nil {
			f.logger.Warn("tap failed", zap.String("label", label), zap.Error(err))
			continue
		}
		return nil
	}

	f.logger.Warn("no cart affordance found, using blind scroll-and-tap fallback")
	f.blindFallback(ctx)
	return nil
}

// blindFallback scrolls to where the purchase button usually sits and taps
// a fixed coordinate. Best effort, unverified.
func (f *Finalizer) blindFallback(ctx context.Context) {
	for i := 0; i < f.cfg.FallbackScrolls; i++ {
		err := f.dev.Swipe(ctx,
			device.Point{X: 540, Y: 1200},
			device.Point{X: 540, Y: 600},
			200*time.Millisecond)
		if err != nil {
			f.logger.Warn("fallback swipe failed", zap.Error(err))
		}
		wait(ctx, 500*time.Millisecond)
	}
	wait(ctx, 1500*time.Millisecond)

	p := device.Point{X: f.cfg.FallbackTapX, Y: f.cfg.FallbackTapY}
	if err := f.dev.InputTap(ctx, p); err != nil {
		f.logger.Warn("fallback tap failed", zap.Error(err))
		return
	}
	f.logger.Info("fallback tap issued", zap.Int("x", p.X), zap.Int("y", p.Y))
}

func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
