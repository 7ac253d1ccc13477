package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// With caching disabled every helper must degrade to a no-op instead of
// panicking on a nil client.
func TestCacheHelpersWithoutRedis(t *testing.T) {
	assert.Nil(t, GetRedis())

	CacheSetBytes("cache:test:1", []byte("payload"), time.Minute)
	b, ok := CacheGetBytes("cache:test:1")
	assert.False(t, ok)
	assert.Nil(t, b)

	CacheSetJSON("cache:test:2", map[string]int{"n": 1}, time.Minute)
	CacheDelete("cache:test:1", "cache:test:2")
	CacheDelete()
	InvalidateByPrefix("cache:test:")
}
