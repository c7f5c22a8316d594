// File: internal/optimizer/scroll.go
package optimizer

import (
	"context"
	"hash/fnv"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/raghavx92/dealpilot-cli/internal/config"
	"github.com/raghavx92/dealpilot-cli/internal/device"
	"github.com/raghavx92/dealpilot-cli/internal/match"
	"github.com/raghavx92/dealpilot-cli/internal/oracle"
)

// Fallback display geometry when the device won't report its size.
const (
	defaultScreenWidth  = 1080
	defaultScreenHeight = 2400
)

const swipeDuration = 400 * time.Millisecond

// Searcher drives a bounded scroll sequence down the current page, asking
// the oracle every other step for an exact-match listing strictly cheaper
// than the price it was handed. It terminates on the first hit, on the
// scroll cap, or when the page stops moving.
type Searcher struct {
	dev    device.Automator
	shots  *device.ShotStore
	oracle oracle.Oracle
	state  *RunState
	feats  match.ProductFeatures
	cfg    config.OptimizerConfig
	logger *zap.Logger
}

func NewSearcher(dev device.Automator, shots *device.ShotStore, orc oracle.Oracle, state *RunState, feats match.ProductFeatures, cfg config.OptimizerConfig, logger *zap.Logger) *Searcher {
	return &Searcher{
		dev:    dev,
		shots:  shots,
		oracle: orc,
		state:  state,
		feats:  feats,
		cfg:    cfg,
		logger: logger.Named("scroll"),
	}
}

// swipeLine returns the swipe gesture line: horizontal center, from 75%
// down to 25% of screen height, with a fallback geometry when the device
// won't report its size.
func swipeLine(ctx context.Context, dev device.Automator) (from, to device.Point) {
	w, h, err := dev.ScreenSize(ctx)
	if err != nil || w <= 0 || h <= 0 {
		w, h = defaultScreenWidth, defaultScreenHeight
	}
	cx := w / 2
	return device.Point{X: cx, Y: h * 3 / 4}, device.Point{X: cx, Y: h / 4}
}

// hashHierarchy fingerprints the content tree so consecutive identical
// dumps reveal the end of the page.
func hashHierarchy(dump string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(dump))
	return h.Sum64()
}

// Run scrolls for a cheaper exact match. It returns (true, newPrice) after
// tapping into a cheaper listing, or (false, currentPrice) when the page
// is exhausted or the step cap is hit.
func (s *Searcher) Run(ctx context.Context, currentPrice float64, title string) (bool, float64) {
	from, to := swipeLine(ctx, s.dev)
	captures := 0

	s.logger.Info("scroll search started",
		zap.Float64("current_price", currentPrice),
		zap.Int("max_scrolls", s.cfg.MaxScrolls))

	for step := 0; step < s.cfg.MaxScrolls; step++ {
		if ctx.Err() != nil {
			break
		}

		// Analyze on the first step and every other step after; scrolling
		// roughly one viewport between captures keeps overlap low without
		// skipping content.
		if step%2 == 0 {
			if found, price := s.analyzeOnce(ctx, currentPrice, title, &captures); found {
				return true, price
			}
		}

		before, err := s.dev.DumpHierarchy(ctx)
		if err != nil {
			s.logger.Warn("hierarchy dump failed, stopping scroll", zap.Error(err))
			break
		}
		if err := s.dev.Swipe(ctx, from, to, swipeDuration); err != nil {
			s.logger.Warn("swipe failed, stopping scroll", zap.Error(err))
			break
		}
		wait(ctx, s.cfg.ScrollSettle)

		after, err := s.dev.DumpHierarchy(ctx)
		if err != nil {
			s.logger.Warn("hierarchy dump failed, stopping scroll", zap.Error(err))
			break
		}
		if hashHierarchy(before) == hashHierarchy(after) {
			s.logger.Info("reached end of page", zap.Int("step", step+1))
			break
		}
	}

	s.logger.Info("scroll search found nothing cheaper", zap.Int("screenshots", captures))
	return false, currentPrice
}

// analyzeOnce captures the screen, asks the oracle for cheaper exact
// matches, and taps the cheapest qualifying one.
func (s *Searcher) analyzeOnce(ctx context.Context, currentPrice float64, title string, captures *int) (bool, float64) {
	shot, path, err := s.shots.Capture(ctx, s.dev)
	if err != nil {
		s.logger.Warn("screenshot failed, skipping analysis", zap.Error(err))
		return false, 0
	}
	defer s.shots.Remove(path)
	*captures++

	candidates, err := s.oracle.FindCheaper(ctx, shot, currentPrice, title, s.feats)
	if err != nil {
		s.logger.Warn("oracle call failed, skipping analysis", zap.Error(err))
		return false, 0
	}
	if len(candidates) == 0 {
		return false, 0
	}

	// Ascending by price; ties keep the oracle's order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Price < candidates[j].Price
	})
	cheapest := candidates[0]
	if cheapest.Price >= currentPrice {
		return false, 0
	}

	savings := currentPrice - cheapest.Price
	s.logger.Info("found cheaper listing",
		zap.Float64("price", cheapest.Price),
		zap.Float64("savings", savings),
		zap.Int("x", cheapest.X),
		zap.Int("y", cheapest.Y),
		zap.String("title", cheapest.Title))

	s.tapWithFallback(ctx, cheapest.TapPoint())
	wait(ctx, s.cfg.TapSettle)
	s.state.UpdateLowest(cheapest.Price)
	return true, cheapest.Price
}

// tapWithFallback issues the tap through the primary channel and, when
// that throws, re-issues it through low-level input injection.
func (s *Searcher) tapWithFallback(ctx context.Context, p device.Point) {
	err := s.dev.Tap(ctx, p)
	if err == nil {
		return
	}
	s.logger.Warn("primary tap failed, using input injection", zap.Error(err))
	if err := s.dev.InputTap(ctx, p); err != nil {
		s.logger.Warn("fallback tap failed", zap.Error(err))
	}
}

// wait blocks for the settle delay or until the run context is cancelled.
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
