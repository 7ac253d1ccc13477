package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsScripts(t *testing.T) {
	assert.Equal(t, "hello", Sanitize("<script>alert(1)</script>hello"))
	assert.NotContains(t, Sanitize(`<img src=x onerror="steal()">`), "onerror")
	assert.Equal(t, "beef,noodles", Sanitize("beef,noodles"))
}

func TestTokenBlacklistInMemoryFallback(t *testing.T) {
	BlacklistToken("tok-active", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted("tok-active"))
	assert.False(t, IsTokenBlacklisted("tok-unknown"))

	// Entries past their expiry no longer match.
	BlacklistToken("tok-stale", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenBlacklisted("tok-stale"))
}
