package notification

import (
	"sync"
	"time"
)

// MemoryLedger is an in-memory Ledger for tests and single-node setups
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

var _ Ledger = &MemoryLedger{}

// NewMemoryLedger returns an empty in-memory Ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		seen: make(map[string]struct{}),
	}
}

func (l *MemoryLedger) Seen(ownerID, subscriptionID string, windowEnd time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[ownerID+"/"+member(subscriptionID, windowEnd)]
	return ok, nil
}

func (l *MemoryLedger) Record(ownerID, subscriptionID string, windowEnd time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[ownerID+"/"+member(subscriptionID, windowEnd)] = struct{}{}
	return nil
}
