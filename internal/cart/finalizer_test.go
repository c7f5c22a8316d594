// File: internal/cart/finalizer_test.go
package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/raghavx92/dealpilot-cli/internal/config"
	"github.com/raghavx92/dealpilot-cli/internal/device"
)

// fakePage exposes a set of exact-text elements and records every
// interaction the finalizer issues.
type fakePage struct {
	labels     map[string]bool
	tapped     []string
	tapTextErr error
	swipes     int
	inputTaps  []device.Point
}

func (f *fakePage) Screenshot(ctx context.Context) ([]byte, error) { return nil, nil }
func (f *fakePage) ScreenText(ctx context.Context, contains string) ([]string, error) {
	return nil, nil
}

func (f *fakePage) TextExists(ctx context.Context, text string, exact bool) (bool, error) {
	return f.labels[text], nil
}

func (f *fakePage) Tap(ctx context.Context, p device.Point) error      { return nil }
func (f *fakePage) InputTap(ctx context.Context, p device.Point) error {
	f.inputTaps = append(f.inputTaps, p)
	return nil
}

func (f *fakePage) TapText(ctx context.Context, text string) error {
	if f.tapTextErr != nil {
		return f.tapTextErr
	}
	f.tapped = append(f.tapped, text)
	return nil
}

func (f *fakePage) Swipe(ctx context.Context, from, to device.Point, dur time.Duration) error {
	f.swipes++
	return nil
}

func (f *fakePage) DumpHierarchy(ctx context.Context) (string, error)   { return "", nil }
func (f *fakePage) LaunchURL(ctx context.Context, url string) error     { return nil }
func (f *fakePage) SendKeyEvent(ctx context.Context, code string) error { return nil }
func (f *fakePage) ScreenSize(ctx context.Context) (int, int, error)    { return 1080, 2400, nil }

var _ device.Automator = (*fakePage)(nil)

type fakeVerifier struct {
	err bool
	oos bool
}

func (f *fakeVerifier) HasError(ctx context.Context) bool     { return f.err }
func (f *fakeVerifier) IsOutOfStock(ctx context.Context) bool { return f.oos }

func testCartConfig() config.CartConfig {
	return config.CartConfig{FallbackScrolls: 3, FallbackTapX: 540, FallbackTapY: 1900}
}

func newFinalizer(t *testing.T, page *fakePage, v *fakeVerifier) *Finalizer {
	t.Helper()
	return New(page, v, testCartConfig(), zaptest.NewLogger(t))
}

func TestFinalize_BrokenPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	page := &fakePage{labels: map[string]bool{"Add to Cart": true}}

	err := newFinalizer(t, page, &fakeVerifier{err: true}).Finalize(ctx, 18000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPageBroken)

	err = newFinalizer(t, page, &fakeVerifier{oos: true}).Finalize(ctx, 18000)
	assert.ErrorIs(t, err, ErrPageBroken)

	assert.Empty(t, page.tapped, "a broken page must not be interacted with")
}

func TestFinalize_GoToCartTakesPriority(t *testing.T) {
	t.Parallel()

	// Both affordances visible: the item already sits in the cart, so
	// adding it again would duplicate it.
	page := &fakePage{labels: map[string]bool{
		"Go to Cart":  true,
		"Add to Cart": true,
	}}
	f := newFinalizer(t, page, &fakeVerifier{})

	err := f.Finalize(context.Background(), 18000)

	require.NoError(t, err)
	require.Len(t, page.tapped, 1)
	assert.Equal(t, "Go to Cart", page.tapped[0])
}

func TestFinalize_AddToCartVariants(t *testing.T) {
	t.Parallel()

	for _, label := range []string{"Add to Cart", "ADD TO CART", "Add to Bag"} {
		t.Run(label, func(t *testing.T) {
			t.Parallel()
			page := &fakePage{labels: map[string]bool{label: true}}
			f := newFinalizer(t, page, &fakeVerifier{})

			err := f.Finalize(context.Background(), 18000)

			require.NoError(t, err)
			require.Len(t, page.tapped, 1)
			assert.Equal(t, label, page.tapped[0])
			assert.Zero(t, page.swipes, "no fallback when a labeled control exists")
		})
	}
}

func TestFinalize_BlindFallback(t *testing.T) {
	t.Parallel()

	// No labeled control anywhere. A cancelled context skips the settle
	// delays; the gesture sequence itself must still be issued.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &fakePage{labels: map[string]bool{}}
	f := newFinalizer(t, page, &fakeVerifier{})

	err := f.Finalize(ctx, 18000)

	require.NoError(t, err, "the blind fallback is best effort, not a failure")
	assert.Equal(t, testCartConfig().FallbackScrolls, page.swipes)
	require.Len(t, page.inputTaps, 1)
	assert.Equal(t, device.Point{X: 540, Y: 1900}, page.inputTaps[0])
}

func TestFinalize_TapFailureFallsThroughToNextLabel(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		labels:     map[string]bool{"Add to Cart": true},
		tapTextErr: errors.New("element moved"),
	}
	f := newFinalizer(t, page, &fakeVerifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.Finalize(ctx, 18000)

	// Every labeled tap failed; the blind fallback still runs.
	require.NoError(t, err)
	assert.Empty(t, page.tapped)
	require.Len(t, page.inputTaps, 1)
}
