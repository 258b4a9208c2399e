package subscription

import (
	"context"
	"time"
)

// LambdaUpdateFunc is used when a transaction is required for update. The
// first return value determines if the store should commit the changes.
// Note that current and desired are nil if no Subscription with the given id
// was found, and the lambda must return false in that case.
type LambdaUpdateFunc func(current *Subscription, desired *Subscription) (shouldSave bool, returnValue interface{})

// LambdaUpdateResult carries the outcome of a LambdaUpdate: the new state if
// the lambda saved, whatever the lambda returned, and the transaction error
// if the store failed.
type LambdaUpdateResult struct {
	Subscription *Subscription
	ReturnValue  interface{}
	TxError      error
}

// ListOption describes the filters for listing one account's subscriptions
type ListOption struct {
	OwnerID        string
	IncludeDeleted bool
	Before         time.Time
	Limit          int
}

// Store is the persistence boundary the lifecycle engine drives. Manager is
// the canonical implementation; tests substitute MemoryStore. All writes of
// one record are atomic from the engine's point of view.
type Store interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id string) (*Subscription, error)
	List(ctx context.Context, opt ListOption) ([]Subscription, error)
	ListAll(ctx context.Context) ([]Subscription, error)
	LambdaUpdate(ctx context.Context, id string, lambda LambdaUpdateFunc) LambdaUpdateResult
}
