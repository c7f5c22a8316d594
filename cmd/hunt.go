// File: cmd/hunt.go
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raghavx92/dealpilot-cli/internal/cart"
	"github.com/raghavx92/dealpilot-cli/internal/device"
	"github.com/raghavx92/dealpilot-cli/internal/inspect"
	"github.com/raghavx92/dealpilot-cli/internal/match"
	"github.com/raghavx92/dealpilot-cli/internal/observability"
	"github.com/raghavx92/dealpilot-cli/internal/optimizer"
	"github.com/raghavx92/dealpilot-cli/internal/oracle"
	"github.com/raghavx92/dealpilot-cli/internal/search"
)

// regionalIndicators on screen mean the page rendered in a non-English
// locale; the phrase-matching heuristics can't read it and the page gets
// relaunched once.
var regionalIndicators = []string{"हिंदी", "मराठी", "தமிழ்", "తెలుగు", "বাংলা"}

// newHuntCmd creates the `hunt` command: search, open, optimize, cart.
func newHuntCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hunt",
		Short: "Finds the cheapest in-stock listing for a product and adds it to the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := observability.GetLogger()
			runID := uuid.NewString()
			logger.Info("run starting", zap.String("run_id", runID))

			// Fatal preconditions: credentials and a connected device.
			if cfg.Oracle.APIKey == "" {
				return errors.New("GEMINI_API_KEY not set (config oracle.api_key)")
			}
			if cfg.Search.APIKey == "" {
				return errors.New("SERPER_API_KEY not set (config search.api_key)")
			}
			adb := device.NewADB(cfg.Device.ADBPath, cfg.Device.Serial, logger)
			if !adb.Connected(ctx) {
				return errors.New("no Android device connected via adb")
			}

			shots := device.NewShotStore(cfg.Device.ScreenshotDir, logger)
			// Screenshots must be gone on every exit path, interrupt included.
			defer shots.Sweep()

			product, variants, err := promptForProduct(cmd)
			if err != nil {
				return err
			}
			query := strings.TrimSpace(product + " " + variants)
			feats := match.ExtractFeatures(query)
			logger.Info("target product",
				zap.String("query", query),
				zap.String("features", feats.PromptFilter()))

			searcher := search.NewClient(cfg.Search, logger)
			listings, err := searcher.FindListings(ctx, query)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if len(listings) == 0 {
				return errors.New("no search results found")
			}
			best := listings[0]
			logger.Info("best starting listing",
				zap.String("title", best.Title),
				zap.String("price", best.PriceText),
				zap.String("source", best.Source),
				zap.String("url", best.Link))

			orc, err := oracle.NewGemini(ctx, cfg.Oracle, logger)
			if err != nil {
				return fmt.Errorf("oracle unavailable: %w", err)
			}

			insp := inspect.New(adb, logger)
			if err := openListing(ctx, adb, insp, orc, shots, best, logger); err != nil {
				return err
			}

			// Pre-loop sanity: a dead or stockless page isn't worth optimizing.
			if insp.HasError(ctx) {
				return errors.New("error page detected before optimization")
			}
			if insp.IsOutOfStock(ctx) {
				return errors.New("product unavailable before optimization")
			}
			resetScrollPosition(ctx, adb)

			state := optimizer.NewRunState()
			scroller := optimizer.NewSearcher(adb, shots, orc, state, feats, cfg.Optimizer, logger)
			loop := optimizer.New(adb, insp, scroller, orc, shots, state, feats, cfg.Optimizer, logger)

			outcome := loop.Run(ctx)
			lowest := state.LowestOr(outcome.Price)
			if !outcome.Success {
				logger.Error("price optimization failed",
					zap.Float64("best_price_seen", lowest))
				return fmt.Errorf("optimization failed; best price seen ₹%.0f", lowest)
			}
			logger.Info("price optimization complete",
				zap.Float64("final_price", outcome.Price),
				zap.Float64("global_lowest", lowest))

			finalizer := cart.New(adb, insp, cfg.Cart, logger)
			if err := finalizer.Finalize(ctx, outcome.Price); err != nil {
				return fmt.Errorf("cart finalization: %w", err)
			}

			logger.Info("product carted at best price", zap.Float64("price", outcome.Price))
			return nil
		},
	}
}

// promptForProduct collects the product name and optional variant string
// interactively.
func promptForProduct(cmd *cobra.Command) (string, string, error) {
	reader := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprint(cmd.OutOrStdout(), "Enter product name: ")
	product, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("reading product name: %w", err)
	}
	product = strings.TrimSpace(product)
	if product == "" {
		return "", "", errors.New("product name required")
	}

	fmt.Fprint(cmd.OutOrStdout(), "Variants (e.g. RAM, Storage, Colour): ")
	variants, err := reader.ReadString('\n')
	if err != nil && variants == "" {
		variants = ""
	}
	return product, strings.TrimSpace(variants), nil
}

// openListing launches the cheapest listing URL on the device and, when
// it lands on a search-results page instead of a detail page, asks the
// oracle where the product card is and taps into it.
func openListing(ctx context.Context, adb *device.ADB, insp *inspect.Inspector, orc oracle.Oracle, shots *device.ShotStore, best search.Listing, logger *zap.Logger) error {
	url := search.CleanURL(best.Link)
	if url != best.Link {
		logger.Info("cleaned regional language code from URL", zap.String("url", url))
	}

	if err := adb.SendKeyEvent(ctx, "KEYCODE_HOME"); err != nil {
		logger.Warn("could not return to home screen", zap.Error(err))
	}
	if err := adb.LaunchURL(ctx, url); err != nil {
		return fmt.Errorf("opening listing on device: %w", err)
	}
	settle(ctx, cfg.Optimizer.InitialLoadWait)

	if pageInRegionalLanguage(ctx, adb) {
		logger.Warn("page rendered in a regional language, relaunching")
		if err := adb.LaunchURL(ctx, url); err != nil {
			return fmt.Errorf("relaunching listing: %w", err)
		}
		settle(ctx, cfg.Optimizer.InitialLoadWait)
	}

	// A detectable price means we're already on a detail page.
	if price, ok := insp.CurrentPrice(ctx); ok {
		logger.Info("already on a product page", zap.Float64("price", price))
		return nil
	}

	shot, path, err := shots.Capture(ctx, adb)
	if err != nil {
		logger.Warn("screenshot failed, proceeding with current page", zap.Error(err))
		return nil
	}
	defer shots.Remove(path)

	m, err := orc.LocateProduct(ctx, shot, best.Title, best.PriceText)
	if err != nil {
		logger.Warn("product card location failed, proceeding with current page", zap.Error(err))
		return nil
	}
	if m.Confidence == oracle.ConfidenceLow || m.TapPoint().IsZero() {
		logger.Info("product card not clearly visible, assuming detail page is already open")
		return nil
	}

	logger.Info("product card located, opening it", zap.Int("x", m.X), zap.Int("y", m.Y))
	if err := adb.Tap(ctx, m.TapPoint()); err != nil {
		logger.Warn("primary tap failed, using input injection", zap.Error(err))
		if err := adb.InputTap(ctx, m.TapPoint()); err != nil {
			logger.Warn("fallback tap failed", zap.Error(err))
		}
	}
	settle(ctx, cfg.Optimizer.TapSettle)
	return nil
}

// pageInRegionalLanguage looks for regional-script UI fragments.
func pageInRegionalLanguage(ctx context.Context, adb *device.ADB) bool {
	for _, indicator := range regionalIndicators {
		exists, err := adb.TextExists(ctx, indicator, false)
		if err != nil {
			continue
		}
		if exists {
			return true
		}
	}
	return false
}

// resetScrollPosition swipes back to the top so the loop starts from a
// known position.
func resetScrollPosition(ctx context.Context, adb *device.ADB) {
	for i := 0; i < 5; i++ {
		_ = adb.Swipe(ctx,
			device.Point{X: 540, Y: 400},
			device.Point{X: 540, Y: 1200},
			300*time.Millisecond)
		settle(ctx, 200*time.Millisecond)
	}
	settle(ctx, 2*time.Second)
}

func settle(ctx context.Context, d time.Duration) {
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

func init() {
	rootCmd.AddCommand(newHuntCmd())
}
