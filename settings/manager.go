package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/deadpixel-labs/deathclock/notification"
	"github.com/deadpixel-labs/deathclock/subscription"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ManagerOptions contains the dependencies of a Manager
type ManagerOptions struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// Manager handles the database operations relating to account Settings
type Manager struct {
	ManagerOptions
}

var _ notification.SettingsSource = &Manager{}

// NewManager returns a new Manager for settings
func NewManager(option ManagerOptions) (*Manager, error) {
	if option.DB == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if err := option.DB.AutoMigrate(&Settings{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize settings.Manager")
	}
	return &Manager{
		ManagerOptions: option,
	}, nil
}

// Get returns the settings row for an account, creating one with defaults on
// first access
func (m *Manager) Get(ctx context.Context, ownerID, email string) (*Settings, error) {
	var s Settings

	result := m.DB.WithContext(ctx).First(&s, "owner_id = ?", ownerID)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		s = Settings{
			ID:           uuid.New().String(),
			OwnerID:      ownerID,
			Email:        email,
			ReminderDays: DefaultReminderDays,
			FuneralType:  subscription.FuneralStandard,
		}
		if createRes := m.DB.WithContext(ctx).Create(&s); createRes.Error != nil {
			m.Logger.Error("Unable to create default settings in database",
				zap.Error(createRes.Error),
			)
			return nil, extErrors.Wrap(createRes.Error, "Cannot create default settings")
		}
		return &s, nil
	}

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get settings by owner id")
	}

	return &s, nil
}

// UpdateOption carries partial settings updates; nil fields are untouched
type UpdateOption struct {
	Email                *string
	EmailReminders       *bool
	BrowserNotifications *bool
	ReminderDays         *int
	FuneralType          *subscription.FuneralType
}

// Update applies a partial update to an account's settings and returns the
// new state
func (m *Manager) Update(ctx context.Context, ownerID string, opt UpdateOption) (*Settings, error) {
	current, err := m.Get(ctx, ownerID, "")
	if err != nil {
		return nil, err
	}

	if opt.Email != nil {
		current.Email = *opt.Email
	}
	if opt.EmailReminders != nil {
		current.EmailReminders = *opt.EmailReminders
	}
	if opt.BrowserNotifications != nil {
		current.BrowserNotifications = *opt.BrowserNotifications
	}
	if opt.ReminderDays != nil {
		if *opt.ReminderDays < 0 {
			return nil, fmt.Errorf("negative ReminderDays is invalid")
		}
		current.ReminderDays = *opt.ReminderDays
	}
	if opt.FuneralType != nil {
		current.FuneralType = subscription.NormalizeFuneralType(*opt.FuneralType)
	}

	result := m.DB.WithContext(ctx).Save(current)
	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot update settings")
	}
	return current, nil
}

// MarkPro flips the pro flag after a billing synchronization
func (m *Manager) MarkPro(ctx context.Context, ownerID string, pro bool) error {
	result := m.DB.WithContext(ctx).Model(&Settings{}).Where("owner_id = ?", ownerID).Update("pro", pro)
	if result.Error != nil {
		return extErrors.Wrap(result.Error, "Cannot mark account pro status")
	}
	return nil
}

// ReminderConfig implements notification.SettingsSource
func (m *Manager) ReminderConfig(ctx context.Context, ownerID string) (notification.ReminderConfig, error) {
	s, err := m.Get(ctx, ownerID, "")
	if err != nil {
		return notification.ReminderConfig{}, err
	}
	return notification.ReminderConfig{
		Enabled:      s.BrowserNotifications,
		ReminderDays: s.ReminderDays,
	}, nil
}
