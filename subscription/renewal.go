package subscription

import "time"

// NextEndDate returns end advanced by one unit of freq. Weekly adds 7 days,
// monthly/quarterly/yearly add calendar months or years. Unknown frequencies
// fall back to the monthly rule.
func NextEndDate(end time.Time, freq Frequency) time.Time {
	switch freq {
	case FrequencyWeekly:
		return end.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return end.AddDate(0, 3, 0)
	case FrequencyYearly:
		return end.AddDate(1, 0, 0)
	default:
		return end.AddDate(0, 1, 0)
	}
}

// Advance moves an expired auto-renewing subscription into its next billing
// window. The old period's end becomes the new period's start, so the window
// duration stays consistent with the frequency. Exactly one unit per call:
// a subscription that was left behind for several periods catches up one
// reconciliation tick at a time.
func Advance(s Subscription, now time.Time) Subscription {
	s.StartDate = s.EndDate
	s.EndDate = NextEndDate(s.EndDate, s.Frequency)
	s.Status = StatusActive
	return s
}

// Resurrect unconditionally revives a subscription with a fresh 30-day
// window starting at now, clearing the soft-delete and force-expired flags.
func Resurrect(s Subscription, now time.Time) Subscription {
	s.Status = StatusActive
	s.Deleted = false
	s.ForceExpired = false
	s.StartDate = now
	s.EndDate = now.AddDate(0, 0, resurrectionGraceDays)
	return s
}
