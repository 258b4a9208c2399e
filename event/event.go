package event

import (
	"encoding/json"
	"time"

	"github.com/deadpixel-labs/deathclock/subscription"

	"github.com/lithammer/shortuuid/v3"
	extErrors "github.com/pkg/errors"
)

// Topics of lifecycle events published for presentation layers
const (
	TopicRenewed  string = "subscription.renewed"
	TopicCeremony        = "subscription.buried"
	TopicExpiring        = "subscription.expiring"
	TopicStats           = "portfolio.stats"
)

// Envelope wraps every published event with routing metadata
type Envelope struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	OwnerID   string          `json:"ownerId"`
	EmittedAt time.Time       `json:"emittedAt"`
	Payload   json.RawMessage `json:"payload"`
}

// RenewedEvent is emitted exactly once per auto-renewal, never per tick
type RenewedEvent struct {
	Subscription subscription.Subscription `json:"subscription"`
	PreviousEnd  time.Time                 `json:"previousEnd"`
}

// CeremonyEvent is emitted at most once when a non-renewing subscription
// enters the expired state. The snapshot lets the presentation layer render
// the funeral without another fetch.
type CeremonyEvent struct {
	Subscription subscription.Subscription `json:"subscription"`
	FuneralType  subscription.FuneralType  `json:"funeralType"`
}

// ExpiringEvent is the local alert for a subscription nearing expiry
type ExpiringEvent struct {
	SubscriptionID string    `json:"subscriptionId"`
	Name           string    `json:"name"`
	DaysLeft       int       `json:"daysLeft"`
	EndDate        time.Time `json:"endDate"`
}

// StatsEvent carries a fresh portfolio snapshot after a reconciliation pass
type StatsEvent struct {
	Stats subscription.Stats `json:"stats"`
}

// NewEnvelope seals a payload into an Envelope ready for publishing
func NewEnvelope(topic, ownerID string, emittedAt time.Time, payload interface{}) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, extErrors.Wrap(err, "Cannot encode event payload")
	}
	return Envelope{
		ID:        shortuuid.New(),
		Topic:     topic,
		OwnerID:   ownerID,
		EmittedAt: emittedAt,
		Payload:   body,
	}, nil
}
