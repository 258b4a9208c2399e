package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deadpixel-labs/deathclock/broker"
	"github.com/deadpixel-labs/deathclock/event"

	"go.uber.org/zap"
)

// ErrPermissionDenied signals that the delivery target declined the alert
// (notification permission not granted). Expected and user-controlled, so
// callers swallow it.
var ErrPermissionDenied = errors.New("notification permission not granted")

// Alert is one expiry reminder ready for delivery
type Alert struct {
	OwnerID        string
	SubscriptionID string
	Name           string
	DaysLeft       int
	EndDate        time.Time
}

// Notifier delivers alerts to the device or session. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the logger. Used in development and as the
// fallback when no broker is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

var _ Notifier = &LogNotifier{}

func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	n.Logger.Info("Subscription expiring soon",
		zap.String("OwnerID", alert.OwnerID),
		zap.String("SubscriptionID", alert.SubscriptionID),
		zap.String("Name", alert.Name),
		zap.Int("DaysLeft", alert.DaysLeft),
	)
	return nil
}

// BrokerNotifier publishes expiring events so connected clients can raise
// local notifications
type BrokerNotifier struct {
	Producer broker.Producer
}

var _ Notifier = &BrokerNotifier{}

// NewBrokerNotifier returns a Notifier that publishes via the given Producer
func NewBrokerNotifier(producer broker.Producer) (*BrokerNotifier, error) {
	if producer == nil {
		return nil, fmt.Errorf("nil Producer is invalid")
	}
	return &BrokerNotifier{
		Producer: producer,
	}, nil
}

func (n *BrokerNotifier) Notify(ctx context.Context, alert Alert) error {
	return n.Producer.PublishExpiring(alert.OwnerID, event.ExpiringEvent{
		SubscriptionID: alert.SubscriptionID,
		Name:           alert.Name,
		DaysLeft:       alert.DaysLeft,
		EndDate:        alert.EndDate,
	})
}
