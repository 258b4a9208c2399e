package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/deadpixel-labs/deathclock/event"
	"github.com/deadpixel-labs/deathclock/notification"
	"github.com/deadpixel-labs/deathclock/subscription"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

type fakeProducer struct {
	mu         sync.Mutex
	renewed    []event.RenewedEvent
	ceremonies []event.CeremonyEvent
	expiring   []event.ExpiringEvent
	stats      map[string][]event.StatsEvent
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{
		stats: make(map[string][]event.StatsEvent),
	}
}

func (f *fakeProducer) Close() {}

func (f *fakeProducer) PublishRenewed(ownerID string, e event.RenewedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renewed = append(f.renewed, e)
	return nil
}

func (f *fakeProducer) PublishCeremony(ownerID string, e event.CeremonyEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ceremonies = append(f.ceremonies, e)
	return nil
}

func (f *fakeProducer) PublishExpiring(ownerID string, e event.ExpiringEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiring = append(f.expiring, e)
	return nil
}

func (f *fakeProducer) PublishStats(ownerID string, e event.StatsEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[ownerID] = append(f.stats[ownerID], e)
	return nil
}

type allEnabled struct{}

func (allEnabled) ReminderConfig(ctx context.Context, ownerID string) (notification.ReminderConfig, error) {
	return notification.ReminderConfig{Enabled: true, ReminderDays: 7}, nil
}

type harness struct {
	store    *subscription.MemoryStore
	producer *fakeProducer
	clock    *fakeClock
	lc       *Coordinator
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()

	store := subscription.NewMemoryStore()
	producer := newFakeProducer()
	clock := &fakeClock{now: now}

	notifier, err := notification.NewBrokerNotifier(producer)
	require.NoError(t, err)

	scheduler, err := notification.NewScheduler(notification.SchedulerOptions{
		Settings: allEnabled{},
		Ledger:   notification.NewMemoryLedger(),
		Notifier: notifier,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)

	lc, err := New(Options{
		Store:     store,
		Scheduler: scheduler,
		Producer:  producer,
		Logger:    zap.NewNop(),
		Clock:     clock,
	})
	require.NoError(t, err)

	return &harness{
		store:    store,
		producer: producer,
		clock:    clock,
		lc:       lc,
	}
}

func TestCeremonyFiresOnceAndLatches(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	require.NoError(t, h.store.Create(ctx, &subscription.Subscription{
		ID:          "gym",
		OwnerID:     "owner-1",
		Name:        "Gym Membership",
		Cost:        30,
		Frequency:   subscription.FrequencyMonthly,
		StartDate:   now.AddDate(0, -1, -5),
		EndDate:     now.AddDate(0, 0, -5),
		AutoRenew:   false,
		FuneralType: subscription.FuneralViking,
		Status:      subscription.StatusCritical,
	}))

	h.lc.Reconcile(ctx)

	require.Len(t, h.producer.ceremonies, 1)
	require.Equal(t, "gym", h.producer.ceremonies[0].Subscription.ID)
	require.Equal(t, subscription.FuneralViking, h.producer.ceremonies[0].FuneralType)

	after, err := h.store.GetByID(ctx, "gym")
	require.NoError(t, err)
	require.Equal(t, subscription.StatusExpired, after.Status)
	require.True(t, after.ForceExpired)

	// later ticks never refire the ceremony
	h.lc.Tick(ctx)
	h.clock.Set(now.AddDate(0, 0, 3))
	h.lc.Tick(ctx)
	require.Len(t, h.producer.ceremonies, 1)
}

func TestAutoRenewAdvancesWithoutCeremony(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	prevEnd := now.AddDate(0, 0, -1)
	require.NoError(t, h.store.Create(ctx, &subscription.Subscription{
		ID:        "domain",
		OwnerID:   "owner-1",
		Name:      "Domain Renewal",
		Cost:      12,
		Frequency: subscription.FrequencyYearly,
		StartDate: prevEnd.AddDate(-1, 0, 0),
		EndDate:   prevEnd,
		AutoRenew: true,
		Status:    subscription.StatusCritical,
	}))

	h.lc.Reconcile(ctx)

	require.Empty(t, h.producer.ceremonies)
	require.Len(t, h.producer.renewed, 1)
	require.Equal(t, prevEnd, h.producer.renewed[0].PreviousEnd)

	after, err := h.store.GetByID(ctx, "domain")
	require.NoError(t, err)
	require.Equal(t, subscription.StatusActive, after.Status)
	require.Equal(t, prevEnd.AddDate(1, 0, 0), after.EndDate)
	require.Equal(t, prevEnd, after.StartDate)
	require.False(t, after.ForceExpired)
}

func TestDormantSubscriptionConvergesOverTicks(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	// four whole billing periods behind
	require.NoError(t, h.store.Create(ctx, &subscription.Subscription{
		ID:        "dormant",
		OwnerID:   "owner-1",
		Cost:      8,
		Frequency: subscription.FrequencyMonthly,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		AutoRenew: true,
		Status:    subscription.StatusExpired,
	}))

	for i := 0; i < 10; i++ {
		h.lc.Tick(ctx)
		after, err := h.store.GetByID(ctx, "dormant")
		require.NoError(t, err)
		if after.Status == subscription.StatusActive && !after.EndDate.Before(now) {
			break
		}
	}

	after, err := h.store.GetByID(ctx, "dormant")
	require.NoError(t, err)
	require.Equal(t, subscription.StatusActive, after.Status)
	require.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), after.EndDate)
	require.Len(t, h.producer.renewed, 5)
}

func TestStatsPublishedForChangedOwners(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	require.NoError(t, h.store.Create(ctx, &subscription.Subscription{
		ID:        "changing",
		OwnerID:   "owner-1",
		Cost:      10,
		Frequency: subscription.FrequencyMonthly,
		StartDate: now.AddDate(0, -1, 0),
		EndDate:   now.AddDate(0, 0, 5),
		Status:    subscription.StatusActive, // stale, 5 days left is warning
	}))
	require.NoError(t, h.store.Create(ctx, &subscription.Subscription{
		ID:        "steady",
		OwnerID:   "owner-2",
		Cost:      20,
		Frequency: subscription.FrequencyMonthly,
		StartDate: now.AddDate(0, -1, 0),
		EndDate:   now.AddDate(0, 1, 0),
		Status:    subscription.StatusActive,
	}))

	h.lc.Tick(ctx)

	require.Len(t, h.producer.stats["owner-1"], 1)
	require.Empty(t, h.producer.stats["owner-2"])

	stats := h.producer.stats["owner-1"][0].Stats
	require.Equal(t, 1, stats.TotalActive)
	require.Equal(t, 10.00, stats.MonthlyCost)
}

func TestDeletedRecordsSelfHealWithoutCeremony(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	// a writer set Deleted but missed the status latch
	require.NoError(t, h.store.Create(ctx, &subscription.Subscription{
		ID:        "ghost",
		OwnerID:   "owner-1",
		Cost:      5,
		Frequency: subscription.FrequencyMonthly,
		StartDate: now.AddDate(0, -1, 0),
		EndDate:   now.AddDate(0, 0, 20),
		Deleted:   true,
		Status:    subscription.StatusActive,
	}))

	h.lc.Reconcile(ctx)

	require.Empty(t, h.producer.ceremonies)
	require.Empty(t, h.producer.renewed)

	after, err := h.store.GetByID(ctx, "ghost")
	require.NoError(t, err)
	require.Equal(t, subscription.StatusExpired, after.Status)
	require.True(t, after.ForceExpired)
}

func TestReconcileSweepsNotifications(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	require.NoError(t, h.store.Create(ctx, &subscription.Subscription{
		ID:        "ending",
		OwnerID:   "owner-1",
		Name:      "News Site",
		Cost:      6,
		Frequency: subscription.FrequencyMonthly,
		StartDate: now.AddDate(0, -1, 0),
		EndDate:   now.AddDate(0, 0, 4),
		Status:    subscription.StatusWarning,
	}))

	h.lc.Reconcile(ctx)
	require.Len(t, h.producer.expiring, 1)
	require.Equal(t, "ending", h.producer.expiring[0].SubscriptionID)
	require.Equal(t, 4, h.producer.expiring[0].DaysLeft)

	// the ledger keeps the sweep quiet within the same window
	h.lc.Reconcile(ctx)
	require.Len(t, h.producer.expiring, 1)
}

func TestStartStopLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.lc.Start(ctx))
	// starting twice is a no-op
	require.NoError(t, h.lc.Start(ctx))

	h.lc.Stop()
	// stopping twice does not panic
	h.lc.Stop()
}
