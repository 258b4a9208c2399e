package broker

import (
	"context"

	"github.com/deadpixel-labs/deathclock/event"
)

// Producer publishes lifecycle events for presentation layers via a message
// broker. Publishing is fire-and-forget from the engine's perspective.
type Producer interface {
	Close()
	PublishRenewed(ownerID string, e event.RenewedEvent) error
	PublishCeremony(ownerID string, e event.CeremonyEvent) error
	PublishExpiring(ownerID string, e event.ExpiringEvent) error
	PublishStats(ownerID string, e event.StatsEvent) error
}

// Consumer receives the lifecycle events addressed to one account's sessions
type Consumer interface {
	Close()
	Receive(ctx context.Context, ownerID string) (<-chan event.Envelope, error)
}
