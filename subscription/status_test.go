package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var statusNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func TestComputeStatusThresholds(t *testing.T) {
	cases := []struct {
		name     string
		end      time.Time
		expected Status
	}{
		{"far future is active", statusNow.AddDate(0, 0, 30), StatusActive},
		{"eight days out is active", statusNow.AddDate(0, 0, 8), StatusActive},
		{"seven days out is warning", statusNow.AddDate(0, 0, 7), StatusWarning},
		{"four days out is warning", statusNow.AddDate(0, 0, 4), StatusWarning},
		{"three days out is critical", statusNow.AddDate(0, 0, 3), StatusCritical},
		{"one day out is critical", statusNow.AddDate(0, 0, 1), StatusCritical},
		{"expiring this instant is critical", statusNow, StatusCritical},
		{"past end date is expired", statusNow.AddDate(0, 0, -1), StatusExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, ComputeStatus(tc.end, false, false, statusNow))
		})
	}
}

func TestComputeStatusPartialDaysRoundUp(t *testing.T) {
	// 3 days and a few hours left still counts as 4 days
	end := statusNow.AddDate(0, 0, 3).Add(6 * time.Hour)
	require.Equal(t, StatusWarning, ComputeStatus(end, false, false, statusNow))

	// a few hours left counts as 1 day
	end = statusNow.Add(5 * time.Hour)
	require.Equal(t, StatusCritical, ComputeStatus(end, false, false, statusNow))
}

func TestComputeStatusForceExpired(t *testing.T) {
	// the burial latch wins even with a future end date
	end := statusNow.AddDate(0, 0, 30)
	require.Equal(t, StatusExpired, ComputeStatus(end, true, true, statusNow))
	require.Equal(t, StatusExpired, ComputeStatus(end, false, true, statusNow))
}

func TestComputeStatusZeroEndDate(t *testing.T) {
	require.Equal(t, StatusExpired, ComputeStatus(time.Time{}, false, false, statusNow))
}

func TestComputeStatusIdempotent(t *testing.T) {
	end := statusNow.AddDate(0, 0, 5)
	first := ComputeStatus(end, true, false, statusNow)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, ComputeStatus(end, true, false, statusNow))
	}
}

func TestCurrentStatusDeleted(t *testing.T) {
	s := &Subscription{
		EndDate: statusNow.AddDate(0, 0, 30),
		Deleted: true,
	}
	require.Equal(t, StatusExpired, s.CurrentStatus(statusNow))
}

func TestDaysRemaining(t *testing.T) {
	require.Equal(t, 0, DaysRemaining(statusNow, statusNow))
	require.Equal(t, 7, DaysRemaining(statusNow.AddDate(0, 0, 7), statusNow))
	require.Equal(t, 1, DaysRemaining(statusNow.Add(2*time.Hour), statusNow))
	// a few hours past still rounds up to 0, "expires today"
	require.Equal(t, 0, DaysRemaining(statusNow.Add(-2*time.Hour), statusNow))
	require.Equal(t, -1, DaysRemaining(statusNow.AddDate(0, 0, -1), statusNow))
}
