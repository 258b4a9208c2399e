package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/deadpixel-labs/deathclock/event"

	extErrors "github.com/pkg/errors"
	"github.com/streadway/amqp"
)

var _ Producer = &AMQPBroker{}
var _ Consumer = &AMQPBroker{}

const lifecycleExchange string = "lifecycle_events"

// AMQPBroker carries lifecycle events over RabbitMQ so that every open
// session of an account sees renewals, ceremonies, and alerts
type AMQPBroker struct {
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewAMQPBroker returns a lifecycle event broker over RabbitMQ
func NewAMQPBroker(amqpURI string) (*AMQPBroker, error) {
	amqpConn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot connect to Message Broker")
	}
	amqpChan, err := amqpConn.Channel()
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot create broker channel")
	}
	broker := &AMQPBroker{
		connection: amqpConn,
		channel:    amqpChan,
	}
	if err := broker.setupExchange(); err != nil {
		return nil, extErrors.Wrap(err, "Cannot declare exchange for lifecycle events")
	}
	return broker, nil
}

func (a *AMQPBroker) setupExchange() error {
	return a.channel.ExchangeDeclare(
		lifecycleExchange, // name
		"direct",          // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	)
}

// Close will close the channel and connection to release resources
func (a *AMQPBroker) Close() {
	a.channel.Close()
	a.connection.Close()
}

func (a *AMQPBroker) publish(topic, ownerID string, payload interface{}) error {
	env, err := event.NewEnvelope(topic, ownerID, time.Now(), payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode event envelope")
	}
	if err := a.channel.Publish(
		lifecycleExchange,
		ownerID,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		return extErrors.Wrap(err, "Cannot publish lifecycle event")
	}
	return nil
}

func (a *AMQPBroker) PublishRenewed(ownerID string, e event.RenewedEvent) error {
	return a.publish(event.TopicRenewed, ownerID, e)
}

func (a *AMQPBroker) PublishCeremony(ownerID string, e event.CeremonyEvent) error {
	return a.publish(event.TopicCeremony, ownerID, e)
}

func (a *AMQPBroker) PublishExpiring(ownerID string, e event.ExpiringEvent) error {
	return a.publish(event.TopicExpiring, ownerID, e)
}

func (a *AMQPBroker) PublishStats(ownerID string, e event.StatsEvent) error {
	return a.publish(event.TopicStats, ownerID, e)
}

func (a *AMQPBroker) setupQueue(qName string) error {
	_, err := a.channel.QueueDeclare(
		qName,
		true,
		false,
		false,
		false,
		nil,
	)
	return err
}

// Receive binds a queue for the given account and decodes lifecycle events
// until ctx is cancelled
func (a *AMQPBroker) Receive(ctx context.Context, ownerID string) (<-chan event.Envelope, error) {
	name := "lifecycle_" + ownerID
	if err := a.setupQueue(name); err != nil {
		return nil, extErrors.Wrap(err, "Cannot setup queue")
	}
	if err := a.channel.QueueBind(
		name,
		ownerID,
		lifecycleExchange,
		false,
		nil,
	); err != nil {
		return nil, extErrors.Wrap(err, "Cannot bind queue")
	}
	msgChan, err := a.channel.Consume(
		name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot setup consumer")
	}
	eChan := make(chan event.Envelope)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-msgChan:
				var env event.Envelope
				if err := json.Unmarshal(d.Body, &env); err != nil {
					d.Nack(false, false)
					continue
				}
				eChan <- env
				d.Ack(false)
			}
		}
	}()
	return eChan, nil
}
