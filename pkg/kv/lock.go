package kv

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Locker is a distributed mutex keyed by string. Each hold is identified by
// a random token so a holder never releases a lock that expired and was
// taken by someone else. A background renewal keeps the TTL ahead of the
// hold for as long as it lasts.
type Locker struct {
	store  Store
	prefix string
	ttl    time.Duration
	retry  time.Duration
	renew  time.Duration
	onLost func(key string)
}

type LockerOption func(*Locker)

// WithRetry sets the polling interval while waiting for a held lock.
func WithRetry(d time.Duration) LockerOption {
	return func(l *Locker) { l.retry = d }
}

// WithRenewInterval sets how often a held lock's TTL is extended. Zero or
// less disables renewal.
func WithRenewInterval(d time.Duration) LockerOption {
	return func(l *Locker) { l.renew = d }
}

// WithLostHandler is called at most once per hold, when a renewal or the
// release finds the lock no longer carries the holder's token.
func WithLostHandler(fn func(key string)) LockerOption {
	return func(l *Locker) { l.onLost = fn }
}

// NewLocker returns a Locker whose holds expire after ttl unless renewed.
// Renewal defaults to a third of ttl.
func NewLocker(store Store, ttl time.Duration, opts ...LockerOption) *Locker {
	l := &Locker{
		store:  store,
		prefix: "lock:",
		ttl:    ttl,
		retry:  100 * time.Millisecond,
		renew:  ttl / 3,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryLock takes the lock if it is free.
func (l *Locker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := []byte(uuid.NewString())
	ok, err := l.store.SetNX(ctx, l.prefix+key, token, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return l.hold(key, token), true, nil
}

// Lock waits until the lock is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		unlock, ok, err := l.TryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return unlock, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type lease struct {
	key   string
	token []byte
	lost  atomic.Bool
	stop  chan struct{}
	done  chan struct{}
}

func (l *Locker) hold(key string, token []byte) func() {
	ls := &lease{
		key:   key,
		token: token,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.keepAlive(ls)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(ls.stop)
			<-ls.done
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ok, err := l.store.CompareAndDelete(ctx, l.prefix+key, token)
			if err != nil || !ok {
				l.lose(ls)
			}
		})
	}
}

func (l *Locker) keepAlive(ls *lease) {
	defer close(ls.done)
	if l.renew <= 0 {
		return
	}
	ticker := time.NewTicker(l.renew)
	defer ticker.Stop()
	for {
		select {
		case <-ls.stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), l.renew)
		ok, err := l.store.CompareAndExpire(ctx, l.prefix+ls.key, ls.token, l.ttl)
		cancel()
		if err != nil {
			// Retried on the next tick while the current TTL still covers us.
			continue
		}
		if !ok {
			l.lose(ls)
			return
		}
	}
}

func (l *Locker) lose(ls *lease) {
	if ls.lost.CompareAndSwap(false, true) && l.onLost != nil {
		l.onLost(ls.key)
	}
}
