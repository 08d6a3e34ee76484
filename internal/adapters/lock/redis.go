package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/entalk/pkg/logger"
)

// Default Redis lock configuration constants.
const (
	defaultTTL        = 30 * time.Second
	defaultRetryEvery = 50 * time.Millisecond
	defaultPrefix     = "entalk:lock:"
	releaseTimeout    = 2 * time.Second
)

// releaseScript deletes the key only while it still carries our token, so an
// expired holder cannot free a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOption applies a configuration option to the Redis locker.
type RedisOption func(*Redis)

// WithTTL bounds how long a crashed holder can block others.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRetryInterval sets the polling interval while waiting.
func WithRetryInterval(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.retry = d
		}
	}
}

// WithKeyPrefix namespaces lock keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithRedisLogger sets the logger used for release failures.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(r *Redis) {
		if l != nil {
			r.logger = l
		}
	}
}

// Redis shares locks between processes with SET NX PX.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	prefix string
	logger logger.Logger

	closeOnce sync.Once
}

var _ Locker = (*Redis)(nil)

// NewRedis creates a locker on top of client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		ttl:    defaultTTL,
		retry:  defaultRetryEvery,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("lock")
	}
	return r
}

// Close closes the Redis client the locker was built on.
func (r *Redis) Close() error {
	var err error
	r.closeOnce.Do(func() { err = r.client.Close() })
	return err
}

// Lock polls until the key is free or ctx is done. Redis errors abort at once.
func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	k := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring %s: %w", k, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(rctx, r.client, []string{k}, token).Err(); err != nil {
				r.logger.Warn(rctx, "releasing lock failed", logger.String("key", k), logger.Error(err))
			}
		})
	}, nil
}
