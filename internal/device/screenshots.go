// File: internal/device/screenshots.go
package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShotStore owns the transient screenshot files of a run. Screenshots are
// the only state this program puts on disk; every one of them must be gone
// by the time the process exits, on every exit path including interrupt.
type ShotStore struct {
	dir    string
	runID  string
	logger *zap.Logger
}

// NewShotStore creates a store rooted at dir (the OS temp dir when empty).
func NewShotStore(dir string, logger *zap.Logger) *ShotStore {
	if dir == "" {
		dir = os.TempDir()
	}
	return &ShotStore{
		dir:    dir,
		runID:  uuid.NewString()[:8],
		logger: logger.Named("shots"),
	}
}

// Save writes PNG bytes to a timestamped temp file and returns its path.
func (s *ShotStore) Save(png []byte) (string, error) {
	name := fmt.Sprintf("temp_screenshot_%s_%d.png", s.runID, time.Now().UnixNano())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, png, 0o600); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	return path, nil
}

// Capture grabs a screenshot from the device and persists it as a temp
// artifact. The returned path may be empty when persisting failed; the
// bytes are still usable and the failure is only logged.
func (s *ShotStore) Capture(ctx context.Context, dev Automator) ([]byte, string, error) {
	png, err := dev.Screenshot(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("capturing screenshot: %w", err)
	}
	path, err := s.Save(png)
	if err != nil {
		s.logger.Warn("could not persist screenshot", zap.Error(err))
		return png, "", nil
	}
	return png, path, nil
}

// Remove deletes a single screenshot; a failure is logged, not returned,
// since the final Sweep catches stragglers.
func (s *ShotStore) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("could not remove screenshot", zap.String("path", path), zap.Error(err))
	}
}

// Sweep deletes every screenshot this run produced. Deferred from the
// command entry point so it runs on success, failure, and interrupt alike.
func (s *ShotStore) Sweep() {
	pattern := filepath.Join(s.dir, fmt.Sprintf("temp_screenshot_%s_*.png", s.runID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		s.logger.Warn("screenshot sweep failed", zap.Error(err))
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("could not remove screenshot", zap.String("path", m), zap.Error(err))
		}
	}
	if len(matches) > 0 {
		s.logger.Info("cleaned up screenshots", zap.Int("count", len(matches)))
	}
}
