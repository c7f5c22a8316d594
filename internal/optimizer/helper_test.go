// File: internal/optimizer/helper_test.go
package optimizer

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/raghavx92/dealpilot-cli/internal/config"
	"github.com/raghavx92/dealpilot-cli/internal/device"
	"github.com/raghavx92/dealpilot-cli/internal/match"
	"github.com/raghavx92/dealpilot-cli/internal/oracle"
)

// testOptimizerConfig zeroes the settle delays so tests run instantly.
func testOptimizerConfig() config.OptimizerConfig {
	return config.OptimizerConfig{
		MaxIterations:      3,
		MaxScrolls:         6,
		StockRevealScrolls: 2,
	}
}

// popBool consumes a scripted answer queue: entries are returned in
// order and the final entry repeats forever, so scripts only spell out
// the calls that matter.
func popBool(q *[]bool) bool {
	if len(*q) == 0 {
		return false
	}
	v := (*q)[0]
	if len(*q) > 1 {
		*q = (*q)[1:]
	}
	return v
}

type priceRead struct {
	v  float64
	ok bool
}

func popPrice(q *[]priceRead) (float64, bool) {
	if len(*q) == 0 {
		return 0, false
	}
	r := (*q)[0]
	if len(*q) > 1 {
		*q = (*q)[1:]
	}
	return r.v, r.ok
}

func popString(q *[]string) string {
	if len(*q) == 0 {
		return ""
	}
	v := (*q)[0]
	if len(*q) > 1 {
		*q = (*q)[1:]
	}
	return v
}

// scriptedInspector answers each screen-reading call from a per-method
// queue, repeating the last entry once a queue is exhausted.
type scriptedInspector struct {
	prices []priceRead
	titles []string
	errors []bool
	stock  []bool
}

func (s *scriptedInspector) CurrentPrice(ctx context.Context) (float64, bool) {
	return popPrice(&s.prices)
}
func (s *scriptedInspector) CurrentTitle(ctx context.Context) (string, bool) {
	t := popString(&s.titles)
	return t, t != ""
}
func (s *scriptedInspector) HasError(ctx context.Context) bool     { return popBool(&s.errors) }
func (s *scriptedInspector) IsOutOfStock(ctx context.Context) bool { return popBool(&s.stock) }
func (s *scriptedInspector) HasPurchaseAffordance(ctx context.Context) bool {
	return true
}

var _ Inspector = (*scriptedInspector)(nil)

type scrollResult struct {
	found bool
	price float64
}

// scriptedScroller stands in for the Searcher, returning queued results
// and recording the price ceiling of every invocation.
type scriptedScroller struct {
	results []scrollResult
	calls   int
	prices  []float64
}

func (s *scriptedScroller) Run(ctx context.Context, currentPrice float64, title string) (bool, float64) {
	s.calls++
	s.prices = append(s.prices, currentPrice)
	if len(s.results) == 0 {
		return false, currentPrice
	}
	r := s.results[0]
	s.results = s.results[1:]
	if !r.found {
		return false, currentPrice
	}
	return true, r.price
}

var _ AlternativeSearcher = (*scriptedScroller)(nil)

// scriptedOracle returns queued answers and counts calls.
type scriptedOracle struct {
	cheaper        [][]oracle.Candidate
	available      []oracle.Match
	cheaperCalls   int
	availableCalls int
	err            error
}

func (s *scriptedOracle) FindCheaper(ctx context.Context, shot []byte, currentPrice float64, title string, feats match.ProductFeatures) ([]oracle.Candidate, error) {
	s.cheaperCalls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.cheaper) == 0 {
		return nil, nil
	}
	out := s.cheaper[0]
	s.cheaper = s.cheaper[1:]
	return out, nil
}

func (s *scriptedOracle) FindAvailable(ctx context.Context, shot []byte, currentPrice float64, title string, feats match.ProductFeatures) (oracle.Match, error) {
	s.availableCalls++
	if s.err != nil {
		return oracle.Match{}, s.err
	}
	if len(s.available) == 0 {
		return oracle.Match{Confidence: oracle.ConfidenceLow}, nil
	}
	out := s.available[0]
	s.available = s.available[1:]
	return out, nil
}

func (s *scriptedOracle) LocateProduct(ctx context.Context, shot []byte, title, priceText string) (oracle.Match, error) {
	return oracle.Match{Confidence: oracle.ConfidenceLow}, nil
}

var _ oracle.Oracle = (*scriptedOracle)(nil)

// fakeDevice records taps, swipes, and key events; hierarchy dumps come
// from a repeat-last queue so tests can simulate a page that stops moving.
type fakeDevice struct {
	taps      []device.Point
	inputTaps []device.Point
	swipes    int
	keys      []string
	dumps     []string
	tapErr    error
	shotErr   error
}

func (f *fakeDevice) Screenshot(ctx context.Context) ([]byte, error) {
	if f.shotErr != nil {
		return nil, f.shotErr
	}
	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func (f *fakeDevice) ScreenText(ctx context.Context, contains string) ([]string, error) {
	return nil, nil
}
func (f *fakeDevice) TextExists(ctx context.Context, text string, exact bool) (bool, error) {
	return false, nil
}

func (f *fakeDevice) Tap(ctx context.Context, p device.Point) error {
	if f.tapErr != nil {
		return f.tapErr
	}
	f.taps = append(f.taps, p)
	return nil
}

func (f *fakeDevice) InputTap(ctx context.Context, p device.Point) error {
	f.inputTaps = append(f.inputTaps, p)
	return nil
}

func (f *fakeDevice) TapText(ctx context.Context, text string) error { return nil }

func (f *fakeDevice) Swipe(ctx context.Context, from, to device.Point, dur time.Duration) error {
	f.swipes++
	return nil
}

func (f *fakeDevice) DumpHierarchy(ctx context.Context) (string, error) {
	return popString(&f.dumps), nil
}

func (f *fakeDevice) LaunchURL(ctx context.Context, url string) error { return nil }

func (f *fakeDevice) SendKeyEvent(ctx context.Context, code string) error {
	f.keys = append(f.keys, code)
	return nil
}

func (f *fakeDevice) ScreenSize(ctx context.Context) (int, int, error) { return 1080, 2400, nil }

var _ device.Automator = (*fakeDevice)(nil)

func newTestShots(t *testing.T) *device.ShotStore {
	t.Helper()
	return device.NewShotStore(t.TempDir(), zaptest.NewLogger(t))
}
