package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextEndDate(t *testing.T) {
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	require.Equal(t, end.AddDate(0, 0, 7), NextEndDate(end, FrequencyWeekly))
	require.Equal(t, end.AddDate(0, 1, 0), NextEndDate(end, FrequencyMonthly))
	require.Equal(t, end.AddDate(0, 3, 0), NextEndDate(end, FrequencyQuarterly))
	require.Equal(t, end.AddDate(1, 0, 0), NextEndDate(end, FrequencyYearly))

	// unknown frequency falls back to monthly
	require.Equal(t, end.AddDate(0, 1, 0), NextEndDate(end, Frequency("fortnightly")))
}

func TestAdvanceRollsWindowForward(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := Subscription{
		ID:        "sub-1",
		Frequency: FrequencyMonthly,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		AutoRenew: true,
		Status:    StatusExpired,
	}

	next := Advance(s, now)

	require.Equal(t, s.EndDate, next.StartDate, "old end becomes new start")
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), next.EndDate)
	require.Equal(t, StatusActive, next.Status)

	// the input is untouched
	require.Equal(t, StatusExpired, s.Status)
}

func TestAdvanceOneUnitPerCall(t *testing.T) {
	// a subscription dormant for several periods catches up one unit at a time
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	s := Subscription{
		Frequency: FrequencyMonthly,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		AutoRenew: true,
	}

	steps := 0
	for ComputeStatus(s.EndDate, s.AutoRenew, s.ForceExpired, now) == StatusExpired {
		s = Advance(s, now)
		steps++
		require.Less(t, steps, 12, "advance should converge")
	}

	require.Equal(t, 5, steps)
	require.True(t, s.EndDate.After(now.AddDate(0, 0, -1)))
}

func TestAdvanceYearlyPreservesAnniversary(t *testing.T) {
	now := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	s := Subscription{
		Frequency: FrequencyYearly,
		StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		AutoRenew: true,
	}

	next := Advance(s, now)

	require.Equal(t, time.Date(2027, 5, 1, 0, 0, 0, 0, time.UTC), next.EndDate)
	require.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), next.StartDate)
}

func TestResurrect(t *testing.T) {
	now := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	s := Subscription{
		ID:           "sub-2",
		Frequency:    FrequencyMonthly,
		StartDate:    time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		Deleted:      true,
		ForceExpired: true,
		Status:       StatusExpired,
	}

	revived := Resurrect(s, now)

	require.Equal(t, StatusActive, revived.Status)
	require.False(t, revived.Deleted)
	require.False(t, revived.ForceExpired)
	require.Equal(t, now, revived.StartDate)
	require.Equal(t, now.AddDate(0, 0, 30), revived.EndDate)
	require.Equal(t, StatusActive, revived.CurrentStatus(now))
}
