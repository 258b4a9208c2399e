package notification

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v7"
	extErrors "github.com/pkg/errors"
)

// Ledger remembers which (subscription, billing window) pairs have already
// been alerted. Keying includes the window end so a renewed subscription
// re-arms its reminder; keying on the ID alone would suppress every window
// after the first. The ledger is advisory: under concurrent engines the
// worst acceptable outcome is an occasional duplicate alert, never a lost
// record or a crash.
type Ledger interface {
	Seen(ownerID, subscriptionID string, windowEnd time.Time) (bool, error)
	Record(ownerID, subscriptionID string, windowEnd time.Time) error
}

// RedisLedger is a Ledger over a redis set per account. SADD/SISMEMBER are
// idempotent, which is all the concurrency safety the ledger needs.
type RedisLedger struct {
	Client redis.UniversalClient
	Prefix string
}

var _ Ledger = &RedisLedger{}

// NewRedisLedger returns a Ledger backed by redis
func NewRedisLedger(client redis.UniversalClient, prefix string) (*RedisLedger, error) {
	if client == nil {
		return nil, fmt.Errorf("nil redis client is invalid")
	}
	if len(prefix) == 0 {
		prefix = "deathclock"
	}
	return &RedisLedger{
		Client: client,
		Prefix: prefix,
	}, nil
}

func (l *RedisLedger) key(ownerID string) string {
	return l.Prefix + ":notified:" + ownerID
}

func member(subscriptionID string, windowEnd time.Time) string {
	return subscriptionID + "@" + strconv.FormatInt(windowEnd.UTC().Unix(), 10)
}

func (l *RedisLedger) Seen(ownerID, subscriptionID string, windowEnd time.Time) (bool, error) {
	seen, err := l.Client.SIsMember(l.key(ownerID), member(subscriptionID, windowEnd)).Result()
	if err != nil {
		return false, extErrors.Wrap(err, "Cannot check notification ledger")
	}
	return seen, nil
}

func (l *RedisLedger) Record(ownerID, subscriptionID string, windowEnd time.Time) error {
	if err := l.Client.SAdd(l.key(ownerID), member(subscriptionID, windowEnd)).Err(); err != nil {
		return extErrors.Wrap(err, "Cannot record into notification ledger")
	}
	return nil
}
