package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only while the key still carries our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a single-key lease stored with SET NX PX.
// The holder renews the lease every ttl/3 until release, so a long run keeps it;
// the TTL only bounds how long a crashed holder can block other runs.
type RedisLocker struct {
	client       *redis.Client
	key          string
	ttl          time.Duration
	refreshEvery time.Duration
}

// NewRedisLocker connects lazily to addr; nothing is dialed until the first TryAcquire.
func NewRedisLocker(addr, password, key string, ttl time.Duration) (*RedisLocker, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("lock redis addr is required")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "deadman:lock:run"
	}
	refresh := ttl / 3
	if refresh <= 0 {
		refresh = ttl
	}
	return &RedisLocker{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		key:          key,
		ttl:          ttl,
		refreshEvery: refresh,
	}, nil
}

// TryAcquire takes the lease or returns ErrHeld.
func (l *RedisLocker) TryAcquire(ctx context.Context) (Release, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(token, stop, done)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stop) })
		<-done
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("redis release: %w", err)
		}
		return nil
	}, nil
}

// keepAlive renews the lease until stop is closed or the lease is lost.
func (l *RedisLocker) keepAlive(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.refreshEvery)
			n, err := extendScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				// Someone else owns the key now.
				return
			}
		}
	}
}

// Close closes the Redis client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
