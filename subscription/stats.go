package subscription

import "math"

// Stats is the portfolio-level snapshot derived from one account's
// subscriptions. It is ephemeral and recomputed on every change, never
// persisted on its own.
type Stats struct {
	TotalActive  int           `json:"totalActive"`
	TotalExpired int           `json:"totalExpired"`
	MonthlyCost  float64       `json:"monthlyCost"`
	YearlyCost   float64       `json:"yearlyCost"`
	NextToExpire *Subscription `json:"nextToExpire,omitempty"`
}

// Aggregate reduces subscriptions into portfolio stats. Pure and total: an
// empty input yields zeros and no NextToExpire. Costs of every non-expired
// subscription are normalized to monthly and yearly figures with fixed
// conversion factors and rounded half away from zero to 2 decimal places.
// The result is order-independent except that NextToExpire ties on the exact
// same end date resolve to the earliest input.
func Aggregate(subs []Subscription) Stats {
	var stats Stats
	var monthly, yearly float64
	var next *Subscription

	for i := range subs {
		s := &subs[i]
		if s.Status == StatusExpired {
			stats.TotalExpired++
			continue
		}
		stats.TotalActive++

		switch s.Frequency {
		case FrequencyMonthly:
			monthly += s.Cost
			yearly += s.Cost * 12
		case FrequencyYearly:
			monthly += s.Cost / 12
			yearly += s.Cost
		case FrequencyQuarterly:
			monthly += s.Cost / 3
			yearly += s.Cost * 4
		case FrequencyWeekly:
			monthly += s.Cost * 4.33
			yearly += s.Cost * 52
		}

		if next == nil || s.EndDate.Before(next.EndDate) {
			next = s
		}
	}

	stats.MonthlyCost = roundMoney(monthly)
	stats.YearlyCost = roundMoney(yearly)
	if next != nil {
		soonest := *next
		stats.NextToExpire = &soonest
	}
	return stats
}

// roundMoney rounds to 2 decimal places, half away from zero
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
