package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yatube/yatube/config"
)

func TestMemoryCache(t *testing.T) {
	ClearCache()
	CacheSetBytes(CachePrefix+"a", []byte("one"), time.Minute)
	CacheSetJSON(CachePrefix+"b", map[string]int{"n": 2}, time.Minute)

	b, ok := CacheGetBytes(CachePrefix + "a")
	assert.True(t, ok)
	assert.Equal(t, "one", string(b))

	var out map[string]int
	assert.True(t, CacheGetJSON(CachePrefix+"b", &out))
	assert.Equal(t, 2, out["n"])

	ClearCache()
	_, ok = CacheGetBytes(CachePrefix + "a")
	assert.False(t, ok)
	assert.False(t, CacheGetJSON(CachePrefix+"b", &out))
}

func TestMemoryCacheExpiry(t *testing.T) {
	CacheSetBytes(CachePrefix+"short", []byte("x"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := CacheGetBytes(CachePrefix + "short")
	assert.False(t, ok)
}

func TestInvalidateByPrefixKeepsOtherKeys(t *testing.T) {
	ClearCache()
	CacheSetBytes(CachePrefix+"page:anon:/", []byte("index"), time.Minute)
	CacheSetBytes("other:key", []byte("keep"), time.Minute)

	ClearCache()
	_, ok := CacheGetBytes(CachePrefix + "page:anon:/")
	assert.False(t, ok)
	b, ok := CacheGetBytes("other:key")
	assert.True(t, ok)
	assert.Equal(t, "keep", string(b))
	InvalidateByPrefix("other:")
}

func TestNewRedisClientOptional(t *testing.T) {
	assert.Nil(t, NewRedisClient(config.AppConfig{}))

	rc := NewRedisClient(config.AppConfig{RedisHost: "127.0.0.1", RedisPort: 6390, RedisDB: 2})
	require.NotNil(t, rc)
	assert.Equal(t, "127.0.0.1:6390", rc.Options().Addr)
	assert.Equal(t, 2, rc.Options().DB)
	require.NoError(t, rc.Close())
}

// pagedKeyspace answers SCAN one page at a time, like a large Redis database
// where most pages hold no matching keys.
type pagedKeyspace struct {
	pages   [][]string
	scans   int
	deleted []string
}

func (p *pagedKeyspace) Scan(_ context.Context, cursor uint64, _ string, _ int64) *redis.ScanCmd {
	p.scans++
	next := cursor + 1
	if int(next) >= len(p.pages) {
		next = 0
	}
	return redis.NewScanCmdResult(p.pages[cursor], next, nil)
}

func (p *pagedKeyspace) Del(_ context.Context, keys ...string) *redis.IntCmd {
	p.deleted = append(p.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestDeleteByPrefixWalksWholeKeyspace(t *testing.T) {
	ks := &pagedKeyspace{pages: make([][]string, 25)}
	ks.pages[0] = []string{"cache:page:anon:/"}
	ks.pages[24] = []string{"cache:page:u1:/", "cache:page:u1:/?page=2"}

	n, err := deleteByPrefix(context.Background(), ks, CachePrefix)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 25, ks.scans)
	assert.ElementsMatch(t, []string{"cache:page:anon:/", "cache:page:u1:/", "cache:page:u1:/?page=2"}, ks.deleted)
}

func TestDeleteByPrefixStopsWhenContextDone(t *testing.T) {
	ks := &pagedKeyspace{pages: make([][]string, 5)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := deleteByPrefix(ctx, ks, CachePrefix)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ks.scans)
}
