package subscription

import (
	"math"
	"time"
)

// DaysRemaining returns the number of whole days until end, rounded up.
// An end date exactly at now yields 0.
func DaysRemaining(end time.Time, now time.Time) int {
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

// ComputeStatus derives the lifecycle status from the temporal fields alone.
// Pure and total: a zero end date (unparseable input upstream) classifies as
// expired rather than failing the computation over the whole set.
func ComputeStatus(end time.Time, autoRenew bool, forceExpired bool, now time.Time) Status {
	if forceExpired {
		return StatusExpired
	}
	if end.IsZero() {
		return StatusExpired
	}

	days := DaysRemaining(end, now)

	switch {
	case days < 0:
		return StatusExpired
	case days <= criticalThresholdDays:
		return StatusCritical
	case days <= warningThresholdDays:
		return StatusWarning
	default:
		return StatusActive
	}
}

// CurrentStatus derives the status of s at now. Deleted records always read
// as expired regardless of dates.
func (s *Subscription) CurrentStatus(now time.Time) Status {
	if s.Deleted {
		return StatusExpired
	}
	return ComputeStatus(s.EndDate, s.AutoRenew, s.ForceExpired, now)
}
