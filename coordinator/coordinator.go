package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deadpixel-labs/deathclock/broker"
	"github.com/deadpixel-labs/deathclock/event"
	"github.com/deadpixel-labs/deathclock/notification"
	"github.com/deadpixel-labs/deathclock/subscription"

	"go.uber.org/zap"
)

// Options contains the dependencies of a Coordinator
type Options struct {
	Store     subscription.Store
	Scheduler *notification.Scheduler
	Producer  broker.Producer
	Logger    *zap.Logger
	Clock     Clock

	// TickInterval is the bulk reconciliation cadence. NotifyInterval is the
	// coarser cadence for the notification sweep, which catches threshold
	// crossings between data refreshes.
	TickInterval   time.Duration
	NotifyInterval time.Duration
}

// Coordinator drives the subscription lifecycle on a fixed polling cadence:
// it reclassifies every record, advances auto-renewals, latches ceremonies
// for non-renewing expiries, republishes portfolio stats, and runs the
// notification sweep. Ticks never overlap; a tick is O(records) and each
// record is reconciled as one atomic unit through the store.
type Coordinator struct {
	Options

	mu        sync.Mutex
	running   bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
	lastSweep time.Time
}

// outcome is passed out of the update lambda so events fire only after the
// state actually persisted
type outcome struct {
	renewed bool
	prevEnd time.Time
	buried  bool
}

// New returns a Coordinator for the subscription lifecycle
func New(option Options) (*Coordinator, error) {
	if option.Store == nil {
		return nil, fmt.Errorf("nil Store is invalid")
	}
	if option.Scheduler == nil {
		return nil, fmt.Errorf("nil Scheduler is invalid")
	}
	if option.Producer == nil {
		return nil, fmt.Errorf("nil Producer is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Clock == nil {
		option.Clock = SystemClock()
	}
	if option.TickInterval <= 0 {
		option.TickInterval = time.Minute
	}
	if option.NotifyInterval <= 0 {
		option.NotifyInterval = time.Hour
	}
	return &Coordinator{
		Options: option,
	}, nil
}

// Start begins the polling loop. Ticks run on a single goroutine so a slow
// pass delays the next one instead of overlapping with it.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopChan = make(chan struct{})
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(ctx)

	c.Logger.Info("Lifecycle coordinator started",
		zap.Duration("TickInterval", c.TickInterval),
		zap.Duration("NotifyInterval", c.NotifyInterval),
	)
	return nil
}

// Stop halts the polling loop and waits for an in-flight tick to finish.
// No side effects fire after Stop returns.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopChan)
	c.mu.Unlock()

	c.wg.Wait()
	c.Logger.Info("Lifecycle coordinator stopped")
}

func (c *Coordinator) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.TickInterval)
	defer ticker.Stop()

	// reconcile immediately on start so a freshly loaded data set converges
	// without waiting out the first interval
	c.tick(ctx, true)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.tick(ctx, false)
		}
	}
}

// Tick runs one reconciliation pass at the injected clock's current time
func (c *Coordinator) Tick(ctx context.Context) {
	c.tick(ctx, false)
}

// Reconcile runs one full pass immediately, including the notification
// sweep. Called after a data refresh or a user-initiated mutation.
func (c *Coordinator) Reconcile(ctx context.Context) {
	c.tick(ctx, true)
}

func (c *Coordinator) tick(ctx context.Context, forceSweep bool) {
	now := c.Clock.Now()

	subs, err := c.Store.ListAll(ctx)
	if err != nil {
		c.Logger.Error("Cannot fetch subscriptions for reconciliation",
			zap.Error(err),
		)
		return
	}

	reconciled := make([]subscription.Subscription, 0, len(subs))
	changedOwners := make(map[string]struct{})
	for i := range subs {
		after, changed := c.reconcileOne(ctx, subs[i], now)
		reconciled = append(reconciled, after)
		if changed {
			changedOwners[after.OwnerID] = struct{}{}
		}
	}

	for ownerID := range changedOwners {
		c.publishStats(ctx, ownerID)
	}

	c.mu.Lock()
	due := forceSweep || c.lastSweep.IsZero() || now.Sub(c.lastSweep) >= c.NotifyInterval
	if due {
		c.lastSweep = now
	}
	c.mu.Unlock()
	if due {
		c.Scheduler.Sweep(ctx, reconciled, now)
	}
}

func (c *Coordinator) reconcileOne(ctx context.Context, before subscription.Subscription, now time.Time) (subscription.Subscription, bool) {
	logger := c.Logger.With(
		zap.String("SubscriptionID", before.ID),
	)

	lambda := func(current *subscription.Subscription, desired *subscription.Subscription) (shouldSave bool, returnValue interface{}) {
		if current == nil {
			return false, nil
		}
		if current.Deleted {
			// soft-deleted records read as expired; self-heal if a writer
			// missed the latch
			if current.Status != subscription.StatusExpired || !current.ForceExpired {
				desired.Status = subscription.StatusExpired
				desired.ForceExpired = true
				return true, nil
			}
			return false, nil
		}

		status := subscription.ComputeStatus(current.EndDate, current.AutoRenew, current.ForceExpired, now)
		if status == subscription.StatusExpired && !current.ForceExpired {
			if current.AutoRenew {
				prevEnd := current.EndDate
				*desired = subscription.Advance(*current, now)
				return true, &outcome{renewed: true, prevEnd: prevEnd}
			}
			// one-way latch so the ceremony cannot refire on later ticks
			desired.Status = subscription.StatusExpired
			desired.ForceExpired = true
			return true, &outcome{buried: true}
		}

		if status != current.Status {
			desired.Status = status
			return true, nil
		}
		return false, nil
	}

	result := c.Store.LambdaUpdate(ctx, before.ID, lambda)
	if result.TxError != nil {
		// in-memory state stays as fetched; the next tick retries
		logger.Error("Cannot reconcile subscription",
			zap.Error(result.TxError),
		)
		return before, false
	}
	if result.Subscription == nil {
		return before, false
	}

	after := *result.Subscription
	if out, ok := result.ReturnValue.(*outcome); ok {
		if out.renewed {
			if err := c.Producer.PublishRenewed(after.OwnerID, event.RenewedEvent{
				Subscription: after,
				PreviousEnd:  out.prevEnd,
			}); err != nil {
				logger.Error("Cannot publish renewal event",
					zap.Error(err),
				)
			}
		}
		if out.buried {
			if err := c.Producer.PublishCeremony(after.OwnerID, event.CeremonyEvent{
				Subscription: after,
				FuneralType:  subscription.NormalizeFuneralType(after.FuneralType),
			}); err != nil {
				logger.Error("Cannot publish ceremony event",
					zap.Error(err),
				)
			}
		}
	}
	return after, true
}

func (c *Coordinator) publishStats(ctx context.Context, ownerID string) {
	list, err := c.Store.List(ctx, subscription.ListOption{
		OwnerID:        ownerID,
		IncludeDeleted: true,
	})
	if err != nil {
		c.Logger.Error("Cannot fetch subscriptions for stats",
			zap.String("OwnerID", ownerID),
			zap.Error(err),
		)
		return
	}
	if err := c.Producer.PublishStats(ownerID, event.StatsEvent{
		Stats: subscription.Aggregate(list),
	}); err != nil {
		c.Logger.Error("Cannot publish stats event",
			zap.String("OwnerID", ownerID),
			zap.Error(err),
		)
	}
}
