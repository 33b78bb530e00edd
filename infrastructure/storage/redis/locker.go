package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/felixgeelhaar/agentstep/domain/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the lock only if we still own it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only if we still own the lock.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker serializes steps on the same session across processes.
type Locker struct {
	client       *redis.Client
	keyPrefix    string
	lease         time.Duration
	renewInterval time.Duration
	pollInterval  time.Duration
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithLease sets how long a lock survives a crashed holder.
func WithLease(d time.Duration) LockerOption {
	return func(l *Locker) { l.lease = d }
}

// WithRenewInterval sets how often a held lock extends its lease.
// It defaults to a third of the lease.
func WithRenewInterval(d time.Duration) LockerOption {
	return func(l *Locker) { l.renewInterval = d }
}

// WithPollInterval sets the retry interval while waiting for a lock.
func WithPollInterval(d time.Duration) LockerOption {
	return func(l *Locker) { l.pollInterval = d }
}

// NewLocker creates a distributed session locker.
func NewLocker(client *redis.Client, keyPrefix string, opts ...LockerOption) *Locker {
	l := &Locker{
		client:       client,
		keyPrefix:    keyPrefix,
		lease:        2 * time.Minute,
		pollInterval: 25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.renewInterval <= 0 || l.renewInterval >= l.lease {
		l.renewInterval = l.lease / 3
	}
	return l
}

func (l *Locker) key(sessionID string) string {
	return l.keyPrefix + "lock:" + sessionID
}

// Lock blocks until the session lock is acquired or ctx is done. The lease
// is renewed in the background until the returned func is called.
func (l *Locker) Lock(ctx context.Context, sessionID string) (func(), error) {
	if sessionID == "" {
		return nil, session.ErrEmptySessionID
	}

	key := l.key(sessionID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(session.ErrLockTimeout, ctx.Err())
			}
			return nil, errors.Join(session.ErrStoreFailed, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(session.ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.renew(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// Release with a fresh context so a canceled caller still unlocks.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}

// renew keeps the lease alive while the lock is held. It gives up once the
// key is gone or owned by someone else.
func (l *Locker) renew(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		held, err := renewScript.Run(ctx, l.client, []string{key}, token, l.lease.Milliseconds()).Int()
		cancel()
		if err == nil && held == 0 {
			return
		}
	}
}

var _ session.Locker = (*Locker)(nil)
