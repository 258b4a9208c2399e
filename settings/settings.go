package settings

import (
	"time"

	"github.com/deadpixel-labs/deathclock/subscription"
)

// Default reminder threshold in days when an account has no stored settings
const DefaultReminderDays = 7

// Settings stores one account's notification and ceremony preferences
type Settings struct {
	ID                   string                   `json:"id" gorm:"primaryKey"`
	OwnerID              string                   `json:"ownerId" gorm:"uniqueIndex"`
	Email                string                   `json:"email"`
	EmailReminders       bool                     `json:"emailReminders"`
	BrowserNotifications bool                     `json:"browserNotifications"`
	ReminderDays         int                      `json:"reminderDays"`
	FuneralType          subscription.FuneralType `json:"funeralType"`
	Pro                  bool                     `json:"pro"`
	CreatedAt            time.Time                `json:"createdAt"`
	UpdatedAt            time.Time                `json:"updatedAt"`
}
