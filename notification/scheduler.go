package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deadpixel-labs/deathclock/subscription"

	"go.uber.org/zap"
)

// ReminderConfig is the slice of account settings the scheduler needs
type ReminderConfig struct {
	Enabled      bool
	ReminderDays int
}

// SettingsSource provides per-account reminder configuration
type SettingsSource interface {
	ReminderConfig(ctx context.Context, ownerID string) (ReminderConfig, error)
}

// SchedulerOptions contains the dependencies of a Scheduler
type SchedulerOptions struct {
	Settings SettingsSource
	Ledger   Ledger
	Notifier Notifier
	Logger   *zap.Logger
}

// Scheduler cross-references subscriptions nearing expiry against the dedup
// ledger and emits at-most-once alerts per billing window
type Scheduler struct {
	SchedulerOptions
}

// NewScheduler returns a Scheduler for expiry reminders
func NewScheduler(option SchedulerOptions) (*Scheduler, error) {
	if option.Settings == nil {
		return nil, fmt.Errorf("nil Settings is invalid")
	}
	if option.Ledger == nil {
		return nil, fmt.Errorf("nil Ledger is invalid")
	}
	if option.Notifier == nil {
		return nil, fmt.Errorf("nil Notifier is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Scheduler{
		SchedulerOptions: option,
	}, nil
}

// Sweep evaluates every subscription once. Expired records never alert.
// Delivery failures are logged and skipped without recording, so the next
// sweep retries; ErrPermissionDenied is expected and swallowed the same way.
func (s *Scheduler) Sweep(ctx context.Context, subs []subscription.Subscription, now time.Time) {
	byOwner := make(map[string][]subscription.Subscription)
	for _, sub := range subs {
		byOwner[sub.OwnerID] = append(byOwner[sub.OwnerID], sub)
	}

	for ownerID, list := range byOwner {
		cfg, err := s.Settings.ReminderConfig(ctx, ownerID)
		if err != nil {
			s.Logger.Error("Cannot load reminder settings",
				zap.String("OwnerID", ownerID),
				zap.Error(err),
			)
			continue
		}
		if !cfg.Enabled || cfg.ReminderDays <= 0 {
			continue
		}
		for _, sub := range list {
			s.evaluate(ctx, sub, cfg, now)
		}
	}
}

func (s *Scheduler) evaluate(ctx context.Context, sub subscription.Subscription, cfg ReminderConfig, now time.Time) {
	if sub.CurrentStatus(now) == subscription.StatusExpired {
		return
	}
	daysLeft := subscription.DaysRemaining(sub.EndDate, now)
	if daysLeft > cfg.ReminderDays {
		return
	}

	logger := s.Logger.With(
		zap.String("OwnerID", sub.OwnerID),
		zap.String("SubscriptionID", sub.ID),
	)

	seen, err := s.Ledger.Seen(sub.OwnerID, sub.ID, sub.EndDate)
	if err != nil {
		logger.Error("Cannot check notification ledger",
			zap.Error(err),
		)
		return
	}
	if seen {
		return
	}

	err = s.Notifier.Notify(ctx, Alert{
		OwnerID:        sub.OwnerID,
		SubscriptionID: sub.ID,
		Name:           sub.Name,
		DaysLeft:       daysLeft,
		EndDate:        sub.EndDate,
	})
	if errors.Is(err, ErrPermissionDenied) {
		return
	}
	if err != nil {
		logger.Error("Cannot deliver expiry alert",
			zap.Error(err),
		)
		return
	}

	if err := s.Ledger.Record(sub.OwnerID, sub.ID, sub.EndDate); err != nil {
		// duplicate alert on the next sweep is acceptable
		logger.Error("Cannot record into notification ledger",
			zap.Error(err),
		)
	}
}
