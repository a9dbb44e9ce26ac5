// Package cache provides a namespaced key/value store with per-entry expiry.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultTTL is used when Set is called with a non-positive ttl.
const DefaultTTL = 7 * 24 * time.Hour

// ErrMiss is returned by Get for missing and expired keys alike.
var ErrMiss = eris.New("cache: miss")

// Cache is a namespaced key/value store. Implementations are safe for
// concurrent use; writes to the same key are last-writer-wins.
type Cache interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
	// InvalidateNamespace removes every entry in namespace and returns how
	// many were removed.
	InvalidateNamespace(ctx context.Context, namespace string) (int, error)
}

// ErrInvalidNamespace is returned for a namespace outside [A-Za-z0-9_.-]+.
// The restriction keeps namespaces free of the key separator and of Redis
// glob characters.
var ErrInvalidNamespace = eris.New("cache: invalid namespace")

var namespaceRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateNamespace returns ErrInvalidNamespace unless namespace is usable.
func ValidateNamespace(namespace string) error {
	if !namespaceRe.MatchString(namespace) {
		return eris.Wrapf(ErrInvalidNamespace, "cache: namespace %q", namespace)
	}
	return nil
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// storageKey builds the backend key for a namespaced entry. Namespaces never
// contain ':', so the first separator after the prefix ends the namespace.
func storageKey(namespace, key string) string {
	return "cache:" + namespace + ":" + key
}

// GetOrCompute returns the cached value for (namespace, key) or calls compute,
// stores its result with ttl and returns it. Two concurrent callers on the
// same cold key may both run compute; the later write wins.
func GetOrCompute[T any](ctx context.Context, c Cache, namespace, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if raw, err := c.Get(ctx, namespace, key); err == nil {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		zap.L().Warn("cache: discarding undecodable entry",
			zap.String("namespace", namespace),
			zap.String("key", key),
		)
	} else if !IsMiss(err) {
		// Backend trouble degrades to a miss; the caller still gets a value.
		zap.L().Warn("cache: get failed", zap.String("namespace", namespace), zap.Error(err))
	}

	return Refresh(ctx, c, namespace, key, ttl, compute)
}

// Refresh always calls compute and overwrites the cached entry on success.
func Refresh[T any](ctx context.Context, c Cache, namespace, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	v, err := compute(ctx)
	if err != nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v, eris.Wrap(err, "cache: marshal value")
	}
	if err := c.Set(ctx, namespace, key, raw, ttl); err != nil {
		zap.L().Warn("cache: set failed", zap.String("namespace", namespace), zap.Error(err))
	}
	return v, nil
}
