package subscription

import "time"

// Subscription describes one recurring paid commitment tracked for an account
type Subscription struct {
	ID           string      `json:"id" gorm:"primaryKey"`
	OwnerID      string      `json:"ownerId" gorm:"index"` // Account that owns this subscription
	Name         string      `json:"name"`
	Website      string      `json:"website,omitempty"`
	Category     string      `json:"category,omitempty"`
	Notes        string      `json:"notes,omitempty"`
	Cost         float64     `json:"cost"`      // Amount billed once per Frequency
	Frequency    Frequency   `json:"frequency"` // weekly/monthly/quarterly/yearly
	StartDate    time.Time   `json:"startDate"` // Beginning of the current billing window
	EndDate      time.Time   `json:"endDate"`   // End of the current billing window
	AutoRenew    bool        `json:"autoRenew"`
	Liked        bool        `json:"liked"`        // UI-only sort key
	Deleted      bool        `json:"deleted"`      // Soft delete. The record is kept for the cemetery
	ForceExpired bool        `json:"forceExpired"` // One-way latch, cleared only by resurrection
	FuneralType  FuneralType `json:"funeralType"`
	Status       Status      `json:"status"` // Always derived from the temporal fields, never authored
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// NormalizeFrequency maps unknown or missing frequencies to monthly
func NormalizeFrequency(f Frequency) Frequency {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return f
	default:
		return FrequencyMonthly
	}
}

// NormalizeFuneralType maps unknown or missing ceremony variants to standard
func NormalizeFuneralType(f FuneralType) FuneralType {
	switch f {
	case FuneralStandard, FuneralViking, FuneralPixelated, FuneralSpace:
		return f
	default:
		return FuneralStandard
	}
}
