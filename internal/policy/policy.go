// Package policy holds the pure decision functions over settings, the clock
// and the recent-send ledger. No owned state; everything is passed in.
package policy

import (
	"time"

	"alertd/internal/settings"
)

// RateWindow is the sliding window the per-hour send cap applies to.
const RateWindow = time.Hour

// InQuietHours reports whether now falls inside the configured window.
// Bounds are inclusive, so start=00:00 end=23:59 covers every minute of the
// day. A window with start > end spans midnight. Disabled windows are never
// quiet. Malformed clock strings disable the window rather than suppressing
// delivery (validation rejects them at update time).
func InQuietHours(now time.Time, w settings.QuietHours) bool {
	if !w.Enabled {
		return false
	}
	start, err := settings.ParseClock(w.Start)
	if err != nil {
		return false
	}
	end, err := settings.ParseClock(w.End)
	if err != nil {
		return false
	}
	cur := now.Hour()*60 + now.Minute()

	if start <= end {
		return cur >= start && cur <= end
	}
	// Wraps past midnight, e.g. 22:00-07:00.
	return cur >= start || cur <= end
}

// PruneWindow drops ledger entries older than the rate window and returns
// the remainder. The ledger is time-ordered oldest first, so this is a
// single scan from the front.
func PruneWindow(ledger []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-RateWindow)
	i := 0
	for i < len(ledger) && ledger[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return ledger
	}
	return append(ledger[:0:0], ledger[i:]...)
}

// SendsInLastHour counts ledger entries inside [now-1h, now]. Callers that
// also want the pruned ledger should use PruneWindow and take its length.
func SendsInLastHour(ledger []time.Time, now time.Time) int {
	return len(PruneWindow(ledger, now))
}
