package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seedMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	ctx := context.Background()
	end := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, &Subscription{ID: "a", OwnerID: "owner-1", EndDate: end.AddDate(0, 0, 10)}))
	require.NoError(t, store.Create(ctx, &Subscription{ID: "b", OwnerID: "owner-1", EndDate: end}))
	require.NoError(t, store.Create(ctx, &Subscription{ID: "c", OwnerID: "owner-1", EndDate: end.AddDate(0, 0, 5), Deleted: true}))
	require.NoError(t, store.Create(ctx, &Subscription{ID: "d", OwnerID: "owner-2", EndDate: end}))
	return store
}

func TestMemoryStoreListFilters(t *testing.T) {
	store := seedMemoryStore(t)
	ctx := context.Background()

	list, err := store.List(ctx, ListOption{OwnerID: "owner-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b", list[0].ID, "soonest end date first")
	require.Equal(t, "a", list[1].ID)

	withDeleted, err := store.List(ctx, ListOption{OwnerID: "owner-1", IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, withDeleted, 3)

	limited, err := store.List(ctx, ListOption{OwnerID: "owner-1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "b", limited[0].ID)
}

func TestMemoryStoreListAll(t *testing.T) {
	store := seedMemoryStore(t)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "owner-1", all[0].OwnerID)
	require.Equal(t, "owner-2", all[3].OwnerID)
}

func TestMemoryStoreLambdaUpdate(t *testing.T) {
	store := seedMemoryStore(t)
	ctx := context.Background()

	result := store.LambdaUpdate(ctx, "a", func(current *Subscription, desired *Subscription) (bool, interface{}) {
		desired.Name = "renamed"
		return true, "saved"
	})
	require.NoError(t, result.TxError)
	require.NotNil(t, result.Subscription)
	require.Equal(t, "renamed", result.Subscription.Name)
	require.Equal(t, "saved", result.ReturnValue)

	after, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "renamed", after.Name)
}

func TestMemoryStoreLambdaUpdateNotFound(t *testing.T) {
	store := NewMemoryStore()

	result := store.LambdaUpdate(context.Background(), "ghost", func(current *Subscription, desired *Subscription) (bool, interface{}) {
		if current == nil {
			return false, "missing"
		}
		return true, nil
	})
	require.NoError(t, result.TxError)
	require.Nil(t, result.Subscription)
	require.Equal(t, "missing", result.ReturnValue)
}

func TestMemoryStoreDiscardsUnsavedChanges(t *testing.T) {
	store := seedMemoryStore(t)
	ctx := context.Background()

	result := store.LambdaUpdate(ctx, "b", func(current *Subscription, desired *Subscription) (bool, interface{}) {
		desired.Name = "should not persist"
		return false, nil
	})
	require.NoError(t, result.TxError)
	require.Nil(t, result.Subscription)

	after, err := store.GetByID(ctx, "b")
	require.NoError(t, err)
	require.Empty(t, after.Name)
}
