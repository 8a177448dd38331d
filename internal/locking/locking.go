// Package locking serializes stock mutations per (branch, product) key.
// The record store has no atomic increment, so every quantity change is a
// read-modify-write pair; two concurrent writers on the same key would lose
// one update. Holding a per-key lock across the pair is the substitute.
package locking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Locker acquires an exclusive lock for key and returns its release func.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// StockKey is the canonical lock key for one (branch, product) pair.
func StockKey(branchID string, productName string) string {
	return fmt.Sprintf("stock:%s:%s", branchID, productName)
}

// KeyMutex is the in-process Locker for single-instance deployments. Locks
// are plain mutexes kept per key; entries are reference-counted so idle
// keys do not accumulate.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*keyLock)}
}

func (k *KeyMutex) Acquire(_ context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyLock{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	released := false
	return func() {
		if released {
			return
		}
		released = true
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}, nil
}

// RedisLocker serializes keys across instances via redislock. Used when the
// backend runs more than one replica against the same record store.
type RedisLocker struct {
	client  *redislock.Client
	ttl     time.Duration
	backoff redislock.RetryStrategy
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:  redislock.New(rdb),
		ttl:     ttl,
		backoff: redislock.LimitRetry(redislock.ExponentialBackoff(25*time.Millisecond, 2*time.Second), 10),
	}
}

func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := r.client.Obtain(ctx, "gudangkita:"+key, r.ttl, &redislock.Options{RetryStrategy: r.backoff})
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}, nil
}
