package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/deadpixel-labs/deathclock/event"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	extErrors "github.com/pkg/errors"
)

var _ Producer = &LocalBroker{}
var _ Consumer = &LocalBroker{}

// LocalBroker delivers lifecycle events in-process over a watermill
// gochannel pub/sub. Used for single-node deployments and tests where a
// RabbitMQ hop would be overkill.
type LocalBroker struct {
	pubSub *gochannel.GoChannel
}

// NewLocalBroker returns an in-process lifecycle event broker
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{},
			watermill.NopLogger{},
		),
	}
}

// Close will shut down the pub/sub and all subscriber channels
func (l *LocalBroker) Close() {
	l.pubSub.Close()
}

func (l *LocalBroker) publish(topic, ownerID string, payload interface{}) error {
	env, err := event.NewEnvelope(topic, ownerID, time.Now(), payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode event envelope")
	}
	msg := message.NewMessage(env.ID, body)
	if err := l.pubSub.Publish(ownerID, msg); err != nil {
		return extErrors.Wrap(err, "Cannot publish lifecycle event")
	}
	return nil
}

func (l *LocalBroker) PublishRenewed(ownerID string, e event.RenewedEvent) error {
	return l.publish(event.TopicRenewed, ownerID, e)
}

func (l *LocalBroker) PublishCeremony(ownerID string, e event.CeremonyEvent) error {
	return l.publish(event.TopicCeremony, ownerID, e)
}

func (l *LocalBroker) PublishExpiring(ownerID string, e event.ExpiringEvent) error {
	return l.publish(event.TopicExpiring, ownerID, e)
}

func (l *LocalBroker) PublishStats(ownerID string, e event.StatsEvent) error {
	return l.publish(event.TopicStats, ownerID, e)
}

// Receive subscribes to the given account's events until ctx is cancelled
func (l *LocalBroker) Receive(ctx context.Context, ownerID string) (<-chan event.Envelope, error) {
	messages, err := l.pubSub.Subscribe(ctx, ownerID)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot subscribe to lifecycle events")
	}
	eChan := make(chan event.Envelope)
	go func() {
		defer close(eChan)
		for msg := range messages {
			var env event.Envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				msg.Ack()
				continue
			}
			select {
			case <-ctx.Done():
				msg.Nack()
				return
			case eChan <- env:
				msg.Ack()
			}
		}
	}()
	return eChan, nil
}
