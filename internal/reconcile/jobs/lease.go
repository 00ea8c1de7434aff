package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
)

// Lease grants one runner at a time the right to import a feed. The returned
// context is cancelled when the lease is released or can no longer be held;
// its cause is ErrLeaseLost in the second case. Release is safe to call more
// than once and after the lease expired.
type Lease interface {
	Acquire(ctx context.Context, job string) (held context.Context, release func(), acquired bool, err error)
}

// ErrLeaseLost means the lease expired or was taken over while a run held it.
var ErrLeaseLost = dErrors.New(dErrors.CodeUnavailable, "import lease lost")

const defaultLeaseTTL = 5 * time.Minute

// releaseScript deletes the key only while it still holds our token, so a
// slow runner never releases a lease that expired and was taken by another.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the key's expiry only while it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLease is a SET NX PX lease shared by every importer process. A held
// lease is renewed every third of its TTL until released.
type RedisLease struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedisLease(client redis.UniversalClient, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLease{client: client, ttl: ttl, prefix: "trs:import-lease:"}
}

func (l *RedisLease) Acquire(ctx context.Context, job string) (context.Context, func(), bool, error) {
	key := l.prefix + job
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, nil, false, fmt.Errorf("acquire lease %s: %w", job, err)
	}
	if !ok {
		return nil, nil, false, nil
	}

	held, cancel := context.WithCancelCause(ctx)
	stopped := make(chan struct{})
	go l.renew(held, cancel, key, token, stopped)

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel(nil)
			<-stopped
			_ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err()
		})
	}
	return held, release, true, nil
}

// renew keeps the key alive until held is done. A failed or refused renewal
// cancels held with ErrLeaseLost.
func (l *RedisLease) renew(held context.Context, cancel context.CancelCauseFunc, key, token string, stopped chan<- struct{}) {
	defer close(stopped)
	interval := l.ttl / 3
	if interval <= 0 {
		interval = l.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-held.Done():
			return
		case <-ticker.C:
			n, err := renewScript.Run(held, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			if held.Err() != nil {
				return
			}
			if err != nil {
				cancel(fmt.Errorf("%w: renew %s: %w", ErrLeaseLost, key, err))
				return
			}
			if n == 0 {
				cancel(ErrLeaseLost)
				return
			}
		}
	}
}

// LocalLease serialises jobs within one process. Used when Redis is not
// configured.
type LocalLease struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLease() *LocalLease {
	return &LocalLease{held: make(map[string]bool)}
}

func (l *LocalLease) Acquire(ctx context.Context, job string) (context.Context, func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[job] {
		return nil, nil, false, nil
	}
	l.held[job] = true
	held, cancel := context.WithCancel(ctx)
	var once sync.Once
	return held, func() {
		once.Do(func() {
			cancel()
			l.mu.Lock()
			delete(l.held, job)
			l.mu.Unlock()
		})
	}, true, nil
}
