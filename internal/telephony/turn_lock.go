package telephony

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"checkin-calls/pkg/utils"
)

// TurnLocker serialises webhook turns of the same call so a redelivered or
// overlapping callback cannot interleave its read-modify-write of the call record.
type TurnLocker interface {
	// Lock blocks until the call's lock is held or ctx is done. The returned
	// function releases it and is safe to call once.
	Lock(ctx context.Context, callSID string) (func(), error)
}

var ErrLockTimeout = errors.New("telephony: turn lock not acquired")

// MemoryTurnLocker is a process-local TurnLocker for single-instance deployments and tests.
type MemoryTurnLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewMemoryTurnLocker() *MemoryTurnLocker {
	return &MemoryTurnLocker{held: map[string]chan struct{}{}}
}

func (l *MemoryTurnLocker) Lock(ctx context.Context, callSID string) (func(), error) {
	for {
		l.mu.Lock()
		ch, busy := l.held[callSID]
		if !busy {
			mine := make(chan struct{})
			l.held[callSID] = mine
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, callSID)
					l.mu.Unlock()
					close(mine)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ch:
		}
	}
}

// RedisTurnLocker shares turn locks across instances through Redis leases.
type RedisTurnLocker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
}

// NewRedisTurnLocker builds a locker. ttl caps how long a crashed holder blocks a call.
func NewRedisTurnLocker(rdb *redis.Client, ttl time.Duration) *RedisTurnLocker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisTurnLocker{rdb: rdb, ttl: ttl, retry: 50 * time.Millisecond}
}

func lockKey(callSID string) string { return "checkin:turn:" + callSID }

func (l *RedisTurnLocker) Lock(ctx context.Context, callSID string) (func(), error) {
	key := lockKey(callSID)
	token := uuid.NewString()

	t := time.NewTicker(l.retry)
	defer t.Stop()
	for {
		ok, err := utils.AcquireLock(ctx, l.rdb, key, token, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// Release even if the turn's context is already done.
					rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = utils.ReleaseLock(rctx, l.rdb, key, token)
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-t.C:
		}
	}
}
