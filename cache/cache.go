// Package cache memoizes expensive, deterministic stage computations on
// durable storage, keyed by market and stage name.
//
// Entries are never invalidated automatically. After changing the code of a
// cached stage, run `airbnb-vacancy cache clear` or the old payload will keep
// being served.
//
// Within a process singleflight allows one computation per key. Stores that
// implement Locker (FileStore does, with a lock file per key) extend that to
// other processes sharing the cache directory: a second process waits for
// the first and then reads its entry instead of recomputing.
package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"airbnb-vacancy/utils"
)

// ErrCorrupt is returned when a persisted entry cannot be decoded.
var ErrCorrupt = errors.New("cache: corrupt entry")

// Key builds the cache key for a market and stage.
func Key(market, stage string) string {
	return strings.ToLower(market) + "-" + stage
}

// MarketKeys returns the keys of the given stages for market.
func MarketKeys(market string, stages ...string) []string {
	keys := make([]string, len(stages))
	for i, stage := range stages {
		keys[i] = Key(market, stage)
	}
	return keys
}

// Memoize returns the value stored under key, calling compute and persisting
// its result on a miss. If another writer persisted the key first, the
// persisted value wins. When store is a Locker, compute runs under its lock.
func Memoize[T any](store Store, key string, compute func() (T, error)) (T, error) {
	var zero T

	if v, ok, err := load[T](store, key); err != nil || ok {
		return v, err
	}

	if l, ok := store.(Locker); ok {
		unlock, err := l.Lock(key)
		if err != nil {
			return zero, err
		}
		defer unlock()

		// another process may have finished while we waited
		if v, ok, err := load[T](store, key); err != nil || ok {
			return v, err
		}
	}

	v, err := compute()
	if err != nil {
		return zero, err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return zero, fmt.Errorf("cache: encode %q: %w", key, err)
	}

	stored, err := store.Save(key, buf.Bytes())
	if err != nil {
		return zero, err
	}
	if !stored {
		persisted, ok, err := load[T](store, key)
		if err != nil {
			return zero, err
		}
		if ok {
			return persisted, nil
		}
	}
	return v, nil
}

func load[T any](store Store, key string) (T, bool, error) {
	var v T
	data, ok, err := store.Load(key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return v, false, fmt.Errorf("%w: %q: %v", ErrCorrupt, key, err)
	}
	return v, true, nil
}

// Cache serializes computations per key so that at most one runs at a time
// for a given market and stage.
type Cache struct {
	store  Store
	group  singleflight.Group
	logger *utils.Logger
}

// New creates a Cache over store.
func New(store Store, logger *utils.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Get returns the memoized payload for (market, stage), computing it at most
// once. Callers that joined an in-flight computation receive their own
// decoded copy rather than sharing the leader's value.
func Get[T any](c *Cache, market, stage string, compute func() (T, error)) (T, error) {
	var zero T
	key := Key(market, stage)

	computed := false
	v, err, shared := c.group.Do(key, func() (any, error) {
		return Memoize(c.store, key, func() (T, error) {
			computed = true
			c.logger.Debug("[cache] miss %s, computing", key)
			return compute()
		})
	})
	if err != nil {
		return zero, err
	}

	if shared {
		own, ok, err := load[T](c.store, key)
		if err != nil {
			return zero, err
		}
		if ok {
			return own, nil
		}
	}
	if !computed {
		c.logger.Debug("[cache] hit %s", key)
	}
	return v.(T), nil
}
