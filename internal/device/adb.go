// File: internal/device/adb.go
package device

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// ADB drives an Android device through the adb binary. It implements
// Automator; one instance corresponds to the single device connection of
// a run and is never used concurrently.
type ADB struct {
	path   string // adb binary, usually just "adb"
	serial string // optional device serial for multi-device hosts
	logger *zap.Logger

	// cached display size so repeated scroll geometry doesn't shell out.
	width  int
	height int
}

// NewADB returns an ADB automator. serial may be empty when only one
// device is attached.
func NewADB(path, serial string, logger *zap.Logger) *ADB {
	if path == "" {
		path = "adb"
	}
	return &ADB{
		path:   path,
		serial: serial,
		logger: logger.Named("device.adb"),
	}
}

func (a *ADB) args(rest ...string) []string {
	if a.serial != "" {
		return append([]string{"-s", a.serial}, rest...)
	}
	return rest
}

func (a *ADB) run(ctx context.Context, rest ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, a.path, a.args(rest...)...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("adb %s: %w (%s)", strings.Join(rest, " "), err, strings.TrimSpace(errb.String()))
	}
	return out.Bytes(), nil
}

// Connected reports whether at least one device is attached and
// authorized. It is the fatal precondition check run before the agent
// starts.
func (a *ADB) Connected(ctx context.Context) bool {
	out, err := a.run(ctx, "devices")
	if err != nil {
		a.logger.Warn("adb devices failed", zap.Error(err))
		return false
	}
	for _, line := range strings.Split(string(out), "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			return true
		}
	}
	return false
}

func (a *ADB) Screenshot(ctx context.Context) ([]byte, error) {
	return a.run(ctx, "exec-out", "screencap", "-p")
}

func (a *ADB) Tap(ctx context.Context, p Point) error {
	_, err := a.run(ctx, "shell", "input", "tap", fmt.Sprint(p.X), fmt.Sprint(p.Y))
	return err
}

// InputTap is the low-level fallback channel. Over adb both channels end
// up at input injection, but the fallback bypasses any shell quoting the
// primary path adds.
func (a *ADB) InputTap(ctx context.Context, p Point) error {
	cmd := exec.CommandContext(ctx, a.path, a.args("shell", fmt.Sprintf("input tap %d %d", p.X, p.Y))...)
	return cmd.Run()
}

func (a *ADB) Swipe(ctx context.Context, from, to Point, dur time.Duration) error {
	_, err := a.run(ctx, "shell", "input", "swipe",
		fmt.Sprint(from.X), fmt.Sprint(from.Y),
		fmt.Sprint(to.X), fmt.Sprint(to.Y),
		fmt.Sprint(dur.Milliseconds()))
	return err
}

func (a *ADB) SendKeyEvent(ctx context.Context, code string) error {
	_, err := a.run(ctx, "shell", "input", "keyevent", code)
	return err
}

func (a *ADB) LaunchURL(ctx context.Context, url string) error {
	out, err := a.run(ctx, "shell", "am", "start",
		"-a", "android.intent.action.VIEW", "-d", url)
	if err == nil && !bytes.Contains(out, []byte("Error")) {
		return nil
	}
	// Direct intent failed; open Chrome explicitly, then retry the URL.
	if _, cerr := a.run(ctx, "shell", "am", "start",
		"-n", "com.android.chrome/com.google.android.apps.chrome.Main"); cerr != nil {
		a.logger.Warn("could not launch Chrome directly", zap.Error(cerr))
	}
	if err := sleepCtx(ctx, 2*time.Second); err != nil {
		return err
	}
	_, err = a.run(ctx, "shell", "am", "start",
		"-a", "android.intent.action.VIEW", "-d", url)
	return err
}

// sleepCtx blocks for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var wmSizeRe = regexp.MustCompile(`(\d+)x(\d+)`)

func (a *ADB) ScreenSize(ctx context.Context) (int, int, error) {
	if a.width > 0 && a.height > 0 {
		return a.width, a.height, nil
	}
	out, err := a.run(ctx, "shell", "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	m := wmSizeRe.FindStringSubmatch(string(out))
	if m == nil {
		return 0, 0, fmt.Errorf("unexpected wm size output: %q", strings.TrimSpace(string(out)))
	}
	fmt.Sscanf(m[1], "%d", &a.width)
	fmt.Sscanf(m[2], "%d", &a.height)
	return a.width, a.height, nil
}

// DumpHierarchy fetches the uiautomator view hierarchy XML.
func (a *ADB) DumpHierarchy(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "exec-out", "uiautomator", "dump", "/dev/tty")
	if err != nil {
		return "", err
	}
	return trimDumpStatus(string(out)), nil
}

// trimDumpStatus drops the status line the dump command appends after the
// XML document.
func trimDumpStatus(s string) string {
	if i := strings.LastIndex(s, ">"); i >= 0 {
		return s[:i+1]
	}
	return s
}

// nodeTexts walks a hierarchy document and collects the non-empty text
// attributes of every node.
func nodeTexts(doc *etree.Document) []string {
	var texts []string
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if t := el.SelectAttrValue("text", ""); t != "" {
			texts = append(texts, t)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	if root := doc.Root(); root != nil {
		walk(root)
	}
	return texts
}

func (a *ADB) allTexts(ctx context.Context) ([]string, error) {
	raw, err := a.DumpHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return nil, fmt.Errorf("parsing hierarchy dump: %w", err)
	}
	return nodeTexts(doc), nil
}

func (a *ADB) ScreenText(ctx context.Context, contains string) ([]string, error) {
	texts, err := a.allTexts(ctx)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, t := range texts {
		if strings.Contains(t, contains) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// boundsRe parses the uiautomator bounds attribute, "[x1,y1][x2,y2]".
var boundsRe = regexp.MustCompile(`\[(\d+),(\d+)\]\[(\d+),(\d+)\]`)

// TapText resolves the element with the given exact text from the
// hierarchy dump and taps the center of its bounds.
func (a *ADB) TapText(ctx context.Context, text string) error {
	raw, err := a.DumpHierarchy(ctx)
	if err != nil {
		return err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return fmt.Errorf("parsing hierarchy dump: %w", err)
	}

	var target *etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if target != nil {
			return
		}
		if el.SelectAttrValue("text", "") == text {
			target = el
			return
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	if root := doc.Root(); root != nil {
		walk(root)
	}
	if target == nil {
		return fmt.Errorf("no element with text %q on screen", text)
	}

	center, err := boundsCenter(target.SelectAttrValue("bounds", ""))
	if err != nil {
		return fmt.Errorf("element %q: %w", text, err)
	}
	return a.Tap(ctx, center)
}

// boundsCenter resolves a bounds attribute to its midpoint.
func boundsCenter(bounds string) (Point, error) {
	m := boundsRe.FindStringSubmatch(bounds)
	if m == nil {
		return Point{}, fmt.Errorf("no usable bounds in %q", bounds)
	}
	var x1, y1, x2, y2 int
	fmt.Sscanf(m[1], "%d", &x1)
	fmt.Sscanf(m[2], "%d", &y1)
	fmt.Sscanf(m[3], "%d", &x2)
	fmt.Sscanf(m[4], "%d", &y2)
	return Point{X: (x1 + x2) / 2, Y: (y1 + y2) / 2}, nil
}

func (a *ADB) TextExists(ctx context.Context, text string, exact bool) (bool, error) {
	texts, err := a.allTexts(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range texts {
		if exact && t == text {
			return true, nil
		}
		if !exact && strings.Contains(t, text) {
			return true, nil
		}
	}
	return false, nil
}
