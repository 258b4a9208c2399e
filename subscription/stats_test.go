package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil)

	require.Zero(t, stats.TotalActive)
	require.Zero(t, stats.TotalExpired)
	require.Zero(t, stats.MonthlyCost)
	require.Zero(t, stats.YearlyCost)
	require.Nil(t, stats.NextToExpire)
}

func TestAggregateMixedFrequencies(t *testing.T) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	subs := []Subscription{
		{ID: "m", Cost: 10, Frequency: FrequencyMonthly, Status: StatusActive, EndDate: end},
		{ID: "y", Cost: 120, Frequency: FrequencyYearly, Status: StatusActive, EndDate: end.AddDate(0, 1, 0)},
		{ID: "q", Cost: 9, Frequency: FrequencyQuarterly, Status: StatusWarning, EndDate: end.AddDate(0, 2, 0)},
	}

	stats := Aggregate(subs)

	require.Equal(t, 3, stats.TotalActive)
	require.Equal(t, 0, stats.TotalExpired)
	// 10 + 120/12 + 9/3
	require.Equal(t, 23.00, stats.MonthlyCost)
	// 10*12 + 120 + 9*4
	require.Equal(t, 276.00, stats.YearlyCost)
	require.NotNil(t, stats.NextToExpire)
	require.Equal(t, "m", stats.NextToExpire.ID)
}

func TestAggregateWeeklyRounding(t *testing.T) {
	subs := []Subscription{
		{ID: "w", Cost: 10, Frequency: FrequencyWeekly, Status: StatusActive, EndDate: time.Now().AddDate(0, 0, 5)},
	}

	stats := Aggregate(subs)

	require.Equal(t, 43.30, stats.MonthlyCost)
	require.Equal(t, 520.00, stats.YearlyCost)
}

func TestAggregateExcludesExpired(t *testing.T) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	subs := []Subscription{
		{ID: "a", Cost: 10, Frequency: FrequencyMonthly, Status: StatusActive, EndDate: end},
		{ID: "b", Cost: 99, Frequency: FrequencyMonthly, Status: StatusExpired, EndDate: end.AddDate(0, 0, -30)},
		{ID: "c", Cost: 50, Frequency: FrequencyYearly, Status: StatusExpired, EndDate: end.AddDate(0, 0, -60)},
	}

	stats := Aggregate(subs)

	require.Equal(t, 1, stats.TotalActive)
	require.Equal(t, 2, stats.TotalExpired)
	require.Equal(t, 10.00, stats.MonthlyCost)
	require.Equal(t, 120.00, stats.YearlyCost)
	// expired records never become NextToExpire, even with earlier end dates
	require.Equal(t, "a", stats.NextToExpire.ID)
}

func TestAggregateOrderIndependent(t *testing.T) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	subs := []Subscription{
		{ID: "a", Cost: 12.34, Frequency: FrequencyMonthly, Status: StatusActive, EndDate: end},
		{ID: "b", Cost: 56.78, Frequency: FrequencyYearly, Status: StatusCritical, EndDate: end.AddDate(0, 0, -10)},
		{ID: "c", Cost: 9.99, Frequency: FrequencyWeekly, Status: StatusActive, EndDate: end.AddDate(0, 0, 10)},
	}
	reversed := []Subscription{subs[2], subs[1], subs[0]}

	first := Aggregate(subs)
	second := Aggregate(reversed)

	require.Equal(t, first.TotalActive, second.TotalActive)
	require.Equal(t, first.MonthlyCost, second.MonthlyCost)
	require.Equal(t, first.YearlyCost, second.YearlyCost)
	require.Equal(t, first.NextToExpire.ID, second.NextToExpire.ID)
}

func TestAggregateNextToExpireTieBreak(t *testing.T) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	subs := []Subscription{
		{ID: "first", Cost: 5, Frequency: FrequencyMonthly, Status: StatusActive, EndDate: end},
		{ID: "second", Cost: 5, Frequency: FrequencyMonthly, Status: StatusActive, EndDate: end},
	}

	stats := Aggregate(subs)

	require.Equal(t, "first", stats.NextToExpire.ID)
}

func TestAggregateCopiesNextToExpire(t *testing.T) {
	subs := []Subscription{
		{ID: "a", Cost: 5, Frequency: FrequencyMonthly, Status: StatusActive, EndDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	stats := Aggregate(subs)
	subs[0].Cost = 999

	require.Equal(t, 5.00, stats.NextToExpire.Cost)
}
