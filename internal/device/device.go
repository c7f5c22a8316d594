// File: internal/device/device.go
package device

import (
	"context"
	"time"
)

// Point is a tap target in screen pixels.
type Point struct {
	X int
	Y int
}

// IsZero reports whether the point carries no coordinates. Oracle
// responses use the zero point as their null candidate.
func (p Point) IsZero() bool { return p.X == 0 && p.Y == 0 }

// Automator is the device automation capability the agent drives. Every
// method is a synchronous blocking call and any of them may fail; callers
// in the control loop degrade a failure to "not found" rather than
// propagating it.
type Automator interface {
	// Screenshot captures the current screen as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// ScreenText returns the text of on-screen elements whose text
	// contains the given substring.
	ScreenText(ctx context.Context, contains string) ([]string, error)

	// TextExists reports whether an element with the given text is on
	// screen. When exact is false a substring match is used.
	TextExists(ctx context.Context, text string, exact bool) (bool, error)

	// Tap issues a tap through the primary automation channel.
	Tap(ctx context.Context, p Point) error

	// InputTap issues a tap through the lower-level input-injection
	// channel, used as a fallback when Tap fails.
	InputTap(ctx context.Context, p Point) error

	// TapText taps the center of the first element whose text exactly
	// matches the given string. Fails when no such element is on screen.
	TapText(ctx context.Context, text string) error

	// Swipe drags from one point to another over the given duration.
	Swipe(ctx context.Context, from, to Point, dur time.Duration) error

	// DumpHierarchy returns the accessibility/content tree as a string.
	// The scroll strategy hashes it to detect end of page.
	DumpHierarchy(ctx context.Context) (string, error)

	// LaunchURL opens the URL in the device browser.
	LaunchURL(ctx context.Context, url string) error

	// SendKeyEvent injects a key event (e.g. "KEYCODE_F5" for reload,
	// "KEYCODE_HOME").
	SendKeyEvent(ctx context.Context, code string) error

	// ScreenSize returns the display dimensions in pixels.
	ScreenSize(ctx context.Context) (width, height int, err error)
}
