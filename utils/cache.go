package utils

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CachePrefix namespaces every cache key so a full clear never touches other Redis data.
	CachePrefix     = "cache:"
	defaultCacheTTL = time.Minute
	memSweepAt      = 1000

	invalidateTimeout = 30 * time.Second
	scanBatch         = 1000
)

// keyScanner is the part of the Redis client prefix deletion needs.
type keyScanner interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// deleteByPrefix walks the whole keyspace with SCAN until the cursor returns to 0,
// deleting matches as it goes. Only ctx bounds the walk.
func deleteByPrefix(ctx context.Context, rc keyScanner, prefix string) (int, error) {
	deleted := 0
	var cursor uint64
	for {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		keys, next, err := rc.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			if err := rc.Del(ctx, keys...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(keys)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// in-memory fallback used when Redis is not configured
type memEntry struct {
	value     []byte
	expiresAt time.Time
}

var (
	memCache   = map[string]memEntry{}
	memCacheMu sync.Mutex
)

// CacheGetBytes returns cached bytes for a key.
func CacheGetBytes(key string) ([]byte, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		b, err := rc.Get(ctx, key).Bytes()
		if err != nil {
			Sugar.Debugf("cache get miss key=%s err=%v", key, err)
			return nil, false
		}
		return b, true
	}

	memCacheMu.Lock()
	defer memCacheMu.Unlock()
	entry, ok := memCache[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(memCache, key)
		return nil, false
	}
	return entry.value, true
}

// CacheSetBytes stores bytes; a non-positive ttl means the default.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
			Sugar.Warnf("cache set failed key=%s err=%v", key, err)
		}
		return
	}

	memCacheMu.Lock()
	defer memCacheMu.Unlock()
	now := time.Now()
	if len(memCache) >= memSweepAt {
		for k, e := range memCache {
			if now.After(e.expiresAt) {
				delete(memCache, k)
			}
		}
	}
	memCache[key] = memEntry{value: b, expiresAt: now.Add(ttl)}
}

// CacheSetJSON marshals v and stores JSON bytes.
func CacheSetJSON(key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSetBytes(key, b, ttl)
}

// CacheGetJSON loads a cached JSON value into out.
func CacheGetJSON(key string, out interface{}) bool {
	b, ok := CacheGetBytes(key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

// InvalidateByPrefix deletes keys that match the given prefix.
func InvalidateByPrefix(prefix string) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		defer cancel()
		n, err := deleteByPrefix(ctx, rc, prefix)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			Sugar.Warnw("cache invalidation cut short by deadline", "prefix", prefix, "deleted", n)
		case err != nil:
			Sugar.Warnw("cache invalidation failed", "prefix", prefix, "deleted", n, "err", err)
		}
		return
	}

	memCacheMu.Lock()
	defer memCacheMu.Unlock()
	for k := range memCache {
		if strings.HasPrefix(k, prefix) {
			delete(memCache, k)
		}
	}
}

// ClearCache drops every cached page.
func ClearCache() {
	InvalidateByPrefix(CachePrefix)
}
