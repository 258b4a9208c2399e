package billing

import "time"

// State is the custom type to describe the billing state of a Profile
type State string

// define constants
const (
	StateInactive  State = "Inactive"
	StatePending   State = "Pending"
	StateActive    State = "Active"
	StateCancelled State = "Cancelled"
)

// Profile links an account to its Stripe customer and Pro subscription
type Profile struct {
	ID                   string    `json:"id" gorm:"primaryKey"`
	OwnerID              string    `json:"ownerId" gorm:"uniqueIndex"`
	StripeCustomerID     string    `json:"-" gorm:"index"`
	StripeSubscriptionID string    `json:"-"`
	State                State     `json:"state"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
