// File: internal/optimizer/state.go
package optimizer

import "fmt"

// RunState is the single mutable piece of shared state in the core. It is
// constructed once at program start, written only by the optimization
// loop, and read by the cart finalizer for reporting. It is never reset
// mid-run.
type RunState struct {
	lowest    float64
	hasLowest bool
	history   []float64
	visited   map[string]struct{}
}

func NewRunState() *RunState {
	return &RunState{visited: make(map[string]struct{})}
}

// Fingerprint identifies a screen by its title and displayed price. A
// revisited fingerprint is the sole cycle-detection signal.
func Fingerprint(title string, price float64) string {
	return fmt.Sprintf("%s_%v", title, price)
}

// Seen reports whether the fingerprint was recorded earlier in the run.
func (s *RunState) Seen(fp string) bool {
	_, ok := s.visited[fp]
	return ok
}

// Record adds a fingerprint to the visited set. The set only grows; it is
// never cleared within a run.
func (s *RunState) Record(fp string) {
	s.visited[fp] = struct{}{}
}

// ObservePrice appends a price reading to the ordered history. Placeholder
// values land here too; the history is a trace, not a minimum.
func (s *RunState) ObservePrice(price float64) {
	s.history = append(s.history, price)
}

// UpdateLowest lowers the global minimum when the given price is a real
// positive observation below it. The lowest is monotonically
// non-increasing once set.
func (s *RunState) UpdateLowest(price float64) bool {
	if price <= 0 {
		return false
	}
	if !s.hasLowest || price < s.lowest {
		s.lowest = price
		s.hasLowest = true
		return true
	}
	return false
}

// Lowest returns the global minimum observed so far, if any.
func (s *RunState) Lowest() (float64, bool) {
	return s.lowest, s.hasLowest
}

// LowestOr returns the global minimum, or def when none has been set.
func (s *RunState) LowestOr(def float64) float64 {
	if s.hasLowest {
		return s.lowest
	}
	return def
}

// History returns the ordered sequence of price readings.
func (s *RunState) History() []float64 {
	return s.history
}
