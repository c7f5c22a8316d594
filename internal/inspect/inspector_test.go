// File: internal/inspect/inspector_test.go
package inspect

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/raghavx92/dealpilot-cli/internal/device"
)

// fakeScreen simulates a page as a flat list of visible text elements.
type fakeScreen struct {
	texts   []string
	failAll bool
}

func (f *fakeScreen) Screenshot(ctx context.Context) ([]byte, error) { return []byte{0x89}, nil }

func (f *fakeScreen) ScreenText(ctx context.Context, contains string) ([]string, error) {
	if f.failAll {
		return nil, errors.New("device gone")
	}
	if contains == "" {
		return f.texts, nil
	}
	var out []string
	for _, t := range f.texts {
		if strings.Contains(t, contains) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeScreen) TextExists(ctx context.Context, text string, exact bool) (bool, error) {
	if f.failAll {
		return false, errors.New("device gone")
	}
	for _, t := range f.texts {
		if exact && t == text {
			return true, nil
		}
		if !exact && strings.Contains(t, text) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeScreen) Tap(ctx context.Context, p device.Point) error      { return nil }
func (f *fakeScreen) InputTap(ctx context.Context, p device.Point) error { return nil }
func (f *fakeScreen) TapText(ctx context.Context, text string) error     { return nil }
func (f *fakeScreen) Swipe(ctx context.Context, from, to device.Point, dur time.Duration) error {
	return nil
}
func (f *fakeScreen) DumpHierarchy(ctx context.Context) (string, error)  { return "<hierarchy/>", nil }
func (f *fakeScreen) LaunchURL(ctx context.Context, url string) error    { return nil }
func (f *fakeScreen) SendKeyEvent(ctx context.Context, code string) error { return nil }
func (f *fakeScreen) ScreenSize(ctx context.Context) (int, int, error)   { return 1080, 2400, nil }

var _ device.Automator = (*fakeScreen)(nil)

func newInspector(t *testing.T, texts ...string) (*Inspector, *fakeScreen) {
	t.Helper()
	fake := &fakeScreen{texts: texts}
	return New(fake, zaptest.NewLogger(t)), fake
}

func TestCurrentPrice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("First Positive Parse Wins", func(t *testing.T) {
		t.Parallel()
		insp, _ := newInspector(t, "Samsung Galaxy S24", "₹19,999", "₹21,499 at other seller")
		v, ok := insp.CurrentPrice(ctx)
		assert.True(t, ok)
		assert.InDelta(t, 19999, v, 0.001)
	})

	t.Run("Falls Through To Rs Marker", func(t *testing.T) {
		t.Parallel()
		insp, _ := newInspector(t, "Deal of the day", "Rs. 12,499")
		v, ok := insp.CurrentPrice(ctx)
		assert.True(t, ok)
		assert.InDelta(t, 12499, v, 0.001)
	})

	t.Run("No Marker On Screen", func(t *testing.T) {
		t.Parallel()
		insp, _ := newInspector(t, "Search results", "Filters")
		_, ok := insp.CurrentPrice(ctx)
		assert.False(t, ok)
	})

	t.Run("Device Failure Is Not Found", func(t *testing.T) {
		t.Parallel()
		insp, fake := newInspector(t, "₹5,000")
		fake.failAll = true
		_, ok := insp.CurrentPrice(ctx)
		assert.False(t, ok)
	})
}

func TestCurrentTitle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	insp, _ := newInspector(t, "Menu", "Cart", "Samsung Galaxy S24 5G (Onyx Black, 256 GB)")
	title, ok := insp.CurrentTitle(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Samsung Galaxy S24 5G (Onyx Black, 256 GB)", title)

	short, _ := newInspector(t, "Menu", "Cart")
	_, ok = short.CurrentTitle(ctx)
	assert.False(t, ok)
}

func TestHasError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	broken, _ := newInspector(t, "Oops! Something went wrong on our end")
	assert.True(t, broken.HasError(ctx))

	healthy, _ := newInspector(t, "Samsung Galaxy S24", "₹19,999", "Add to Cart")
	assert.False(t, healthy.HasError(ctx))
}

func TestIsOutOfStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Two Distinct Phrases", func(t *testing.T) {
		t.Parallel()
		insp, _ := newInspector(t, "Sold Out", "Notify Me when available")
		assert.True(t, insp.IsOutOfStock(ctx))
	})

	t.Run("Single Phrase Is Noise", func(t *testing.T) {
		t.Parallel()
		insp, _ := newInspector(t, "Notify Me when available", "₹19,999")
		assert.False(t, insp.IsOutOfStock(ctx))
	})

	t.Run("Purchase Affordance Overrides Phrases", func(t *testing.T) {
		t.Parallel()
		insp, _ := newInspector(t, "Sold Out", "Currently unavailable", "Add to Cart")
		assert.False(t, insp.IsOutOfStock(ctx))
	})

	t.Run("Clean Product Page", func(t *testing.T) {
		t.Parallel()
		insp, _ := newInspector(t, "Samsung Galaxy S24", "₹19,999", "Buy Now")
		assert.False(t, insp.IsOutOfStock(ctx))
	})
}

func TestHasPurchaseAffordance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	insp, _ := newInspector(t, "ADD TO CART")
	assert.True(t, insp.HasPurchaseAffordance(ctx))

	none, _ := newInspector(t, "Out of Stock")
	assert.False(t, none.HasPurchaseAffordance(ctx))
}
