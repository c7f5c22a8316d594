// File: internal/optimizer/loop.go
package optimizer

import (
	"context"

	"go.uber.org/zap"

	"github.com/raghavx92/dealpilot-cli/internal/config"
	"github.com/raghavx92/dealpilot-cli/internal/device"
	"github.com/raghavx92/dealpilot-cli/internal/match"
	"github.com/raghavx92/dealpilot-cli/internal/oracle"
)

// maxStockRetries caps the reload-and-verify pass's hunt for an in-stock
// alternative; past it the run fails rather than scroll-searching forever.
const maxStockRetries = 3

// Inspector is the screen-reading seam the loop consumes; satisfied by
// inspect.Inspector.
type Inspector interface {
	CurrentPrice(ctx context.Context) (float64, bool)
	CurrentTitle(ctx context.Context) (string, bool)
	HasError(ctx context.Context) bool
	IsOutOfStock(ctx context.Context) bool
	HasPurchaseAffordance(ctx context.Context) bool
}

// AlternativeSearcher is the scroll-search seam; satisfied by Searcher.
type AlternativeSearcher interface {
	Run(ctx context.Context, currentPrice float64, title string) (found bool, price float64)
}

// Outcome is the loop's terminal result. Price is the verified final
// price on success, or the best price observed on failure (which may
// belong to an unavailable listing).
type Outcome struct {
	Success bool
	Price   float64
}

// Optimizer is the price-optimization control loop: it repeatedly reads
// price/availability/title signals off the current screen, decides
// whether to keep searching, switch to an alternative, or stop, and
// drives navigation until it converges on a verified lowest-price,
// in-stock instance of the target product.
type Optimizer struct {
	dev      device.Automator
	insp     Inspector
	scroller AlternativeSearcher
	oracle   oracle.Oracle
	shots    *device.ShotStore
	state    *RunState
	feats    match.ProductFeatures
	cfg      config.OptimizerConfig
	logger   *zap.Logger
}

func New(dev device.Automator, insp Inspector, scroller AlternativeSearcher, orc oracle.Oracle, shots *device.ShotStore, state *RunState, feats match.ProductFeatures, cfg config.OptimizerConfig, logger *zap.Logger) *Optimizer {
	return &Optimizer{
		dev:      dev,
		insp:     insp,
		scroller: scroller,
		oracle:   orc,
		shots:    shots,
		state:    state,
		feats:    feats,
		cfg:      cfg,
		logger:   logger.Named("optimizer"),
	}
}

// success clamps the reported price to the global lowest so a late price
// bump can never make the final figure exceed the minimum actually
// observed.
func (o *Optimizer) success(price float64) Outcome {
	if low, ok := o.state.Lowest(); ok && low < price {
		price = low
	}
	return Outcome{Success: true, Price: price}
}

func (o *Optimizer) failure(price float64) Outcome {
	return Outcome{Success: false, Price: o.state.LowestOr(price)}
}

// Run executes the bounded optimization loop. Hitting the iteration cap
// triggers a final reload-and-verify pass rather than an unconditional
// failure.
func (o *Optimizer) Run(ctx context.Context) Outcome {
	o.logger.Info("starting price optimization",
		zap.Int("max_iterations", o.cfg.MaxIterations))

	for iter := 1; iter <= o.cfg.MaxIterations; iter++ {
		if ctx.Err() != nil {
			return o.failure(0)
		}
		o.logger.Info("iteration", zap.Int("n", iter), zap.Int("of", o.cfg.MaxIterations))
		wait(ctx, o.cfg.IterationSettle)

		title, _ := o.insp.CurrentTitle(ctx)
		price, ok := o.insp.CurrentPrice(ctx)
		if !ok {
			// A concrete read failed; substitute the best known price so
			// the loop can keep going instead of aborting.
			price = o.state.LowestOr(0)
			o.logger.Warn("could not detect price, substituting", zap.Float64("price", price))
		}

		fp := Fingerprint(title, price)
		if o.state.Seen(fp) {
			o.logger.Info("already visited this listing, stopping to avoid a cycle",
				zap.Float64("price", price))
			return o.success(price)
		}
		o.state.Record(fp)
		o.state.ObservePrice(price)
		o.logger.Info("current listing", zap.String("title", title), zap.Float64("price", price))

		// Error branch: any alternative beats a broken page.
		if o.insp.HasError(ctx) {
			o.logger.Warn("page error detected, searching for alternatives")
			found, newPrice := o.scroller.Run(ctx, price, title)
			if found {
				o.logger.Info("found working alternative", zap.Float64("price", newPrice))
				wait(ctx, o.cfg.IterationSettle)
				continue
			}
			o.logger.Error("no alternatives found for broken page")
			return o.failure(price)
		}

		// Out-of-stock branch.
		if o.insp.IsOutOfStock(ctx) {
			outcome, terminal := o.handleOutOfStock(ctx, price, title)
			if terminal {
				return outcome
			}
			continue
		}

		// Normal branch.
		if o.state.UpdateLowest(price) {
			o.logger.Info("new lowest price", zap.Float64("price", price))
		}

		found, newPrice := o.scroller.Run(ctx, price, title)
		if found {
			o.logger.Info("switched to cheaper listing, restarting checks",
				zap.Float64("price", newPrice))
			wait(ctx, o.cfg.IterationSettle)
			continue
		}

		// Locally optimal; confirm it survives a reload.
		o.logger.Info("no better deal found, verifying final state", zap.Float64("price", price))
		outcome, terminal := o.reloadAndVerify(ctx, price, title)
		if terminal {
			return outcome
		}
	}

	o.logger.Info("iteration cap reached, running final verification")
	return o.finalVerify(ctx)
}

// handleOutOfStock scrolls past the fold to reveal alternative-seller and
// similar-product sections, asks the oracle for an available exact match,
// and falls back to the cheaper-alternative search. The bool result is
// true when the outcome is terminal.
func (o *Optimizer) handleOutOfStock(ctx context.Context, price float64, title string) (Outcome, bool) {
	o.logger.Warn("listing appears out of stock, hunting for the same product from other sellers")

	from, to := swipeLine(ctx, o.dev)
	for i := 0; i < o.cfg.StockRevealScrolls; i++ {
		if err := o.dev.Swipe(ctx, from, to, swipeDuration); err != nil {
			o.logger.Warn("reveal scroll failed", zap.Error(err))
			break
		}
		wait(ctx, o.cfg.ScrollSettle)
	}

	if shot, path, err := o.shots.Capture(ctx, o.dev); err == nil {
		m, oerr := o.oracle.FindAvailable(ctx, shot, price, title, o.feats)
		o.shots.Remove(path)
		if oerr != nil {
			o.logger.Warn("find-available oracle call failed", zap.Error(oerr))
		} else if m.Actionable() {
			o.logger.Info("found available exact match",
				zap.Float64("price", m.Price),
				zap.String("confidence", m.Confidence),
				zap.String("title", m.Title))
			o.tapWithFallback(ctx, m.TapPoint())
			wait(ctx, o.cfg.TapSettle)
			o.state.UpdateLowest(m.Price)
			return Outcome{}, false
		} else {
			o.logger.Info("oracle found no available exact match",
				zap.String("confidence", m.Confidence))
		}
	} else {
		o.logger.Warn("screenshot failed during stock search", zap.Error(err))
	}

	// Best-effort fallback: any cheaper alternative may also be in stock.
	o.logger.Info("falling back to cheaper-alternative search")
	found, newPrice := o.scroller.Run(ctx, price, title)
	if found {
		o.logger.Info("found alternative listing", zap.Float64("price", newPrice))
		wait(ctx, o.cfg.IterationSettle)
		if o.insp.IsOutOfStock(ctx) {
			o.logger.Warn("alternative also out of stock, continuing search")
		}
		return Outcome{}, false
	}

	o.logger.Error("no available alternatives found",
		zap.Float64("best_price", o.state.LowestOr(price)))
	return o.failure(price), true
}

// tapWithFallback mirrors the scroll searcher's two-channel tap.
func (o *Optimizer) tapWithFallback(ctx context.Context, p device.Point) {
	err := o.dev.Tap(ctx, p)
	if err == nil {
		return
	}
	o.logger.Warn("primary tap failed, using input injection", zap.Error(err))
	if err := o.dev.InputTap(ctx, p); err != nil {
		o.logger.Warn("fallback tap failed", zap.Error(err))
	}
}

// reload triggers a page refresh through key-event injection. The mapping
// to an actual refresh is a contract with the hosting browser, not a
// guaranteed semantic; a failure just shortens the settle.
func (o *Optimizer) reload(ctx context.Context) {
	if err := o.dev.SendKeyEvent(ctx, "KEYCODE_F5"); err != nil {
		o.logger.Warn("reload key event failed, continuing anyway", zap.Error(err))
		wait(ctx, o.cfg.IterationSettle)
		return
	}
	wait(ctx, o.cfg.ReloadSettle)
}

// reloadAndVerify runs the post-optimum verification pass: refresh the
// page, re-run the error and stock checks (searching for alternatives on
// failure), and re-read the price. The bool result is true when the
// outcome is terminal; false means an alternative was adopted and the
// outer loop should resume on it.
func (o *Optimizer) reloadAndVerify(ctx context.Context, price float64, title string) (Outcome, bool) {
	o.logger.Info("reloading page to verify final state")
	o.reload(ctx)

	if o.insp.HasError(ctx) {
		o.logger.Warn("error after reload, searching for alternatives")
		found, newPrice := o.scroller.Run(ctx, price, title)
		if found {
			o.logger.Info("found working alternative", zap.Float64("price", newPrice))
			wait(ctx, o.cfg.IterationSettle)
			return Outcome{}, false
		}
		o.logger.Error("no working alternatives after reload")
		return o.failure(price), true
	}

	if o.insp.IsOutOfStock(ctx) {
		o.logger.Warn("listing unavailable after reload, searching for available alternatives")
		// Retries stay inside this pass and do not consume outer
		// iterations. Each unavailable round lowers the price ceiling to
		// the alternative that just failed, and the rounds are capped, so
		// the pass always terminates.
		for attempt := 0; attempt < maxStockRetries; attempt++ {
			if ctx.Err() != nil {
				return o.failure(price), true
			}
			found, altPrice := o.scroller.Run(ctx, price, title)
			if !found {
				o.logger.Error("no available alternatives after reload",
					zap.Float64("best_price", o.state.LowestOr(price)))
				return o.failure(price), true
			}
			wait(ctx, o.cfg.IterationSettle)
			if !o.insp.IsOutOfStock(ctx) {
				o.logger.Info("alternative is available", zap.Float64("price", altPrice))
				o.state.UpdateLowest(altPrice)
				return Outcome{}, false
			}
			price = altPrice
			o.logger.Warn("alternative also unavailable, continuing search",
				zap.Float64("price_ceiling", price))
		}
		o.logger.Error("alternatives kept coming back unavailable",
			zap.Float64("best_price", o.state.LowestOr(price)))
		return o.failure(price), true
	}

	if reloaded, ok := o.insp.CurrentPrice(ctx); ok && reloaded != price {
		o.logger.Warn("price changed after reload",
			zap.Float64("was", price), zap.Float64("now", reloaded))
		price = reloaded
		o.state.UpdateLowest(reloaded)
	}

	o.logger.Info("final verification complete, listing is available",
		zap.Float64("price", price))
	return o.success(price), true
}

// finalVerify is the reload-and-verify pass run when the iteration cap is
// reached: structurally the same checks, but any recovered alternative
// terminates the run instead of re-entering the loop.
func (o *Optimizer) finalVerify(ctx context.Context) Outcome {
	o.reload(ctx)

	if o.insp.IsOutOfStock(ctx) {
		o.logger.Warn("final listing unavailable, last attempt at an alternative")
		title, _ := o.insp.CurrentTitle(ctx)
		price := o.state.LowestOr(0)
		found, altPrice := o.scroller.Run(ctx, price, title)
		if found && !o.insp.IsOutOfStock(ctx) {
			o.logger.Info("final alternative is available", zap.Float64("price", altPrice))
			o.state.UpdateLowest(altPrice)
			return o.success(altPrice)
		}
		return o.failure(price)
	}

	if o.insp.HasError(ctx) {
		o.logger.Warn("error after final reload, searching for a working alternative")
		title, _ := o.insp.CurrentTitle(ctx)
		price := o.state.LowestOr(0)
		found, altPrice := o.scroller.Run(ctx, price, title)
		if found && !o.insp.HasError(ctx) {
			o.logger.Info("final working alternative found", zap.Float64("price", altPrice))
			return o.success(altPrice)
		}
		return o.failure(price)
	}

	price := o.state.LowestOr(0)
	o.logger.Info("final state verified", zap.Float64("price", price))
	return o.success(price)
}
