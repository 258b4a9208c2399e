package subscription

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-node setups. The
// same per-record atomicity rules as Manager apply, guarded by a mutex
// instead of a database transaction.
type MemoryStore struct {
	mu   sync.Mutex
	subs map[string]Subscription
}

var _ Store = &MemoryStore{}

// NewMemoryStore returns an empty in-memory Store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs: make(map[string]Subscription),
	}
}

func (m *MemoryStore) Create(ctx context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = *sub
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (m *MemoryStore) List(ctx context.Context, opt ListOption) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		if sub.OwnerID != opt.OwnerID {
			continue
		}
		if sub.Deleted && !opt.IncludeDeleted {
			continue
		}
		results = append(results, sub)
	}
	sortByEndDate(results)
	if opt.Limit > 0 && len(results) > opt.Limit {
		results = results[:opt.Limit]
	}
	return results, nil
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		results = append(results, sub)
	}
	sortByEndDate(results)
	return results, nil
}

func (m *MemoryStore) LambdaUpdate(ctx context.Context, id string, lambda LambdaUpdateFunc) LambdaUpdateResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lambdaResult LambdaUpdateResult
	current, ok := m.subs[id]
	if !ok {
		_, ret := lambda(nil, nil)
		lambdaResult.ReturnValue = ret
		return lambdaResult
	}
	desired := current
	shouldSave, ret := lambda(&current, &desired)
	lambdaResult.ReturnValue = ret
	if shouldSave {
		m.subs[id] = desired
		lambdaResult.Subscription = &desired
	}
	return lambdaResult
}

func sortByEndDate(subs []Subscription) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].OwnerID != subs[j].OwnerID {
			return subs[i].OwnerID < subs[j].OwnerID
		}
		return subs[i].EndDate.Before(subs[j].EndDate)
	})
}
