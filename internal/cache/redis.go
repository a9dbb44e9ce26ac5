package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// scanBatch is the COUNT hint used while walking a namespace.
const scanBatch = 200

// Redis is a Cache backed by a Redis server. Expiry is delegated to Redis
// key TTLs.
type Redis struct {
	rdb        *redis.Client
	defaultTTL time.Duration
}

// NewRedis connects to Redis with opts. A non-positive defaultTTL selects
// DefaultTTL.
func NewRedis(opts *redis.Options, defaultTTL time.Duration) *Redis {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Redis{
		rdb:        redis.NewClient(opts),
		defaultTTL: defaultTTL,
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return eris.Wrap(r.rdb.Ping(ctx).Err(), "cache: redis ping")
}

// Close closes the underlying connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	b, err := r.rdb.Get(ctx, storageKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: redis get %s/%s", namespace, key)
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	if err := r.rdb.Set(ctx, storageKey(namespace, key), value, ttl).Err(); err != nil {
		return eris.Wrapf(err, "cache: redis set %s/%s", namespace, key)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, namespace, key string) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, storageKey(namespace, key)).Err(); err != nil {
		return eris.Wrapf(err, "cache: redis delete %s/%s", namespace, key)
	}
	return nil
}

func (r *Redis) InvalidateNamespace(ctx context.Context, namespace string) (int, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return 0, err
	}
	match := storageKey(namespace, "*")

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return deleted, eris.Wrapf(err, "cache: redis scan %s", namespace)
		}
		if len(keys) > 0 {
			n, err := r.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, eris.Wrapf(err, "cache: redis delete namespace %s", namespace)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}
