package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/deadpixel-labs/deathclock/event"
	"github.com/deadpixel-labs/deathclock/subscription"

	"github.com/stretchr/testify/require"
)

func TestLocalBrokerRoundTrip(t *testing.T) {
	b := NewLocalBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envelopes, err := b.Receive(ctx, "owner-1")
	require.NoError(t, err)

	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.PublishCeremony("owner-1", event.CeremonyEvent{
		Subscription: subscription.Subscription{
			ID:      "sub-1",
			OwnerID: "owner-1",
			Name:    "Cable TV",
			EndDate: end,
		},
		FuneralType: subscription.FuneralPixelated,
	}))

	select {
	case env := <-envelopes:
		require.Equal(t, event.TopicCeremony, env.Topic)
		require.Equal(t, "owner-1", env.OwnerID)

		var payload event.CeremonyEvent
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		require.Equal(t, "sub-1", payload.Subscription.ID)
		require.Equal(t, subscription.FuneralPixelated, payload.FuneralType)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestLocalBrokerIsolatesOwners(t *testing.T) {
	b := NewLocalBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other, err := b.Receive(ctx, "owner-2")
	require.NoError(t, err)

	require.NoError(t, b.PublishStats("owner-1", event.StatsEvent{}))

	select {
	case env := <-other:
		t.Fatalf("owner-2 received an event for owner-1: %s", env.Topic)
	case <-time.After(200 * time.Millisecond):
	}
}
