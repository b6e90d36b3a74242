package schedule

import "time"

// DefaultConflictWindow is the minimum spacing between two scheduled posts.
const DefaultConflictWindow = 30 * time.Minute

const (
	ConflictScopeGlobal  = "global"
	ConflictScopeAccount = "account"
)

// HasConflict reports whether any existing time lies within window of candidate,
// in either direction. Both ends of the window are inclusive.
func HasConflict(candidate time.Time, existing []time.Time, window time.Duration) bool {
	for _, t := range existing {
		diff := t.Sub(candidate)
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			return true
		}
	}
	return false
}
