package subscription

import (
	"fmt"
	"time"
)

// ValidationError describes a malformed subscription field caught at
// construction or update time
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the construction-time invariants: non-negative cost and a
// first billing window of at least one full day.
func (s *Subscription) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if s.Cost < 0 {
		return &ValidationError{Field: "cost", Reason: "must not be negative"}
	}
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return &ValidationError{Field: "startDate/endDate", Reason: "must be set"}
	}
	if s.EndDate.Sub(s.StartDate) < 24*time.Hour {
		return &ValidationError{Field: "endDate", Reason: "must be at least one full day after startDate"}
	}
	return nil
}
